package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string           `yaml:"environment" default:"development" validate:"required,oneof=development staging production test"`
	HTTP        HTTPConfig       `yaml:"http"`
	Log         LogConfig        `yaml:"log"`
	Analysis    AnalysisConfig   `yaml:"analysis"`
	Cache       CacheConfig      `yaml:"cache"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	RateLimit   RateLimitConfig  `yaml:"ratelimit"`
}

type HTTPConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8000" validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	BodyLimit       string        `yaml:"body_limit" default:"2M"`
	CORSOrigins     []string      `yaml:"cors_origins" default:"[\"*\"]"`
	SlowThreshold   time.Duration `yaml:"slow_threshold" default:"2s"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" default:"json" validate:"oneof=json console"`
	Output string `yaml:"output" default:"stdout"`
}

// AnalysisConfig holds the model and decision parameters.
type AnalysisConfig struct {
	PricePerUnit  float64       `yaml:"price_per_unit" default:"50" validate:"gt=0"`
	Currency      string        `yaml:"currency" default:"GBP" validate:"required,len=3"`
	Multiplier    float64       `yaml:"multiplier" default:"1.5" validate:"gt=0"`
	Contamination float64       `yaml:"contamination" default:"0.1" validate:"gt=0,lte=0.5"`
	Seed          int64         `yaml:"seed" default:"42"`
	Trees         int           `yaml:"trees" default:"100" validate:"gte=1,lte=1000"`
	MaxSamples    int           `yaml:"max_samples" default:"256" validate:"gte=2"`
	Horizon       int           `yaml:"horizon" default:"3" validate:"gte=1,lte=48"`
	FitTimeout    time.Duration `yaml:"fit_timeout" default:"10s"`
	MaxIterations int           `yaml:"max_iterations" default:"2000" validate:"gte=1"`
	Concurrent    bool          `yaml:"concurrent" default:"true"`
}

// Fingerprint identifies every parameter that changes the analysis output.
func (a AnalysisConfig) Fingerprint() string {
	return fmt.Sprintf("p=%g|c=%s|m=%g|k=%g|s=%d|t=%d|ms=%d|h=%d|it=%d",
		a.PricePerUnit, a.Currency, a.Multiplier, a.Contamination, a.Seed,
		a.Trees, a.MaxSamples, a.Horizon, a.MaxIterations)
}

type CacheConfig struct {
	Enabled    bool          `yaml:"enabled" default:"false"`
	TTL        time.Duration `yaml:"ttl" default:"10m"`
	MemorySize int           `yaml:"memory_size" default:"1000"`
	MemoryTTL  time.Duration `yaml:"memory_ttl" default:"1m"`
	Redis      struct {
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" default:"0"`
		PoolSize int    `yaml:"pool_size" default:"10"`
		Prefix   string `yaml:"prefix" default:"gridadvisor"`
	} `yaml:"redis"`
}

type KafkaConfig struct {
	Enabled      bool          `yaml:"enabled" default:"false"`
	Brokers      []string      `yaml:"brokers" default:"[\"localhost:9092\"]"`
	GroupID      string        `yaml:"group_id" default:"gridadvisor"`
	RequestTopic string        `yaml:"request_topic" default:"analysis.requests"`
	ResultTopic  string        `yaml:"result_topic" default:"analysis.results"`
	LogTopic     string        `yaml:"log_topic"`
	DLQTopic     string        `yaml:"dlq_topic" default:"analysis.requests.dlq"`
	Workers      int           `yaml:"workers" default:"4" validate:"gte=1"`
	RequiredAcks int           `yaml:"required_acks" default:"-1"`
	Compression  string        `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
	RetryMax     int           `yaml:"retry_max" default:"3"`
	BackoffMin   time.Duration `yaml:"backoff_min" default:"200ms"`
	BackoffMax   time.Duration `yaml:"backoff_max" default:"5s"`
}

type ClickHouseConfig struct {
	Enabled          bool          `yaml:"enabled" default:"false"`
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"grid"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	Table            string        `yaml:"table" default:"meter_readings"`
	UseHTTP          bool          `yaml:"use_http"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
}

// RateLimitConfig limits analyze requests per client address. Burst 0 disables it.
type RateLimitConfig struct {
	Burst     float64 `yaml:"burst" default:"20"`
	PerSecond float64 `yaml:"per_second" default:"5"`
}

var validate = validator.New()

// Default returns a config populated from struct defaults only.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &c
}

// Load reads and parses a YAML configuration file. Missing keys keep their defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// An empty path skips the file.
func LoadWithEnv(path string) (*Config, error) {
	c := Default()
	if path != "" {
		var err error
		if c, err = Load(path); err != nil {
			return nil, err
		}
	}

	if err := c.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("APP_ENV"); v != "" {
		c.Environment = v
	}
	if v := getenv("HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HTTP_PORT: %w", err)
		}
		c.HTTP.Port = port
	}
	if v := getenv("PRICE_PER_UNIT"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("PRICE_PER_UNIT: %w", err)
		}
		c.Analysis.PricePerUnit = price
	}
	if v := getenv("CURRENCY"); v != "" {
		c.Analysis.Currency = strings.ToUpper(v)
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
		c.Cache.Enabled = true
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Kafka.Enabled && c.Kafka.RequestTopic == "" {
		return errors.New("kafka.request_topic is required when kafka is enabled")
	}
	return nil
}
