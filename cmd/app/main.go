package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"GridAdvisor/internal/di"
	"GridAdvisor/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path (empty: defaults and environment only)")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "app initialization failed: %v\n", err)
		os.Exit(1)
	}

	// Run blocks until SIGINT/SIGTERM
	if err := app.Run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "app error: %v\n", err)
		os.Exit(1)
	}
}
