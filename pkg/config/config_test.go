package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	assert.Equal(t, 8000, c.HTTP.Port)
	assert.Equal(t, 50.0, c.Analysis.PricePerUnit)
	assert.Equal(t, "GBP", c.Analysis.Currency)
	assert.Equal(t, 1.5, c.Analysis.Multiplier)
	assert.Equal(t, 0.1, c.Analysis.Contamination)
	assert.Equal(t, int64(42), c.Analysis.Seed)
	assert.Equal(t, 3, c.Analysis.Horizon)
	assert.Equal(t, 10*time.Second, c.Analysis.FitTimeout)
	assert.True(t, c.Analysis.Concurrent)
	assert.Equal(t, []string{"localhost:9092"}, c.Kafka.Brokers)
	assert.Equal(t, "gridadvisor", c.Cache.Redis.Prefix)
	assert.False(t, c.Kafka.Enabled)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
environment: production
analysis:
  price_per_unit: 80
  concurrent: false
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "production", c.Environment)
	assert.Equal(t, 80.0, c.Analysis.PricePerUnit)
	assert.False(t, c.Analysis.Concurrent)
	assert.Equal(t, "GBP", c.Analysis.Currency)
	assert.Equal(t, 100, c.Analysis.Trees)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load(writeConfig(t, "analysis:\n  contamination: 0.9\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Contamination")

	_, err = Load(writeConfig(t, "environment: [oops"))
	require.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"APP_ENV":         "staging",
		"HTTP_PORT":       "9090",
		"PRICE_PER_UNIT":  "65.5",
		"CURRENCY":        "eur",
		"KAFKA_BROKERS":   "k1:9092,k2:9092",
		"REDIS_ADDR":      "redis:6379",
		"CLICKHOUSE_HOST": "ch",
		"LOG_LEVEL":       "DEBUG",
	}
	c := Default()
	require.NoError(t, c.applyEnv(func(k string) string { return env[k] }))
	require.NoError(t, c.Validate())

	assert.Equal(t, "staging", c.Environment)
	assert.Equal(t, 9090, c.HTTP.Port)
	assert.Equal(t, 65.5, c.Analysis.PricePerUnit)
	assert.Equal(t, "EUR", c.Analysis.Currency)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
	assert.True(t, c.Kafka.Enabled)
	assert.True(t, c.Cache.Enabled)
	assert.True(t, c.ClickHouse.Enabled)
	assert.Equal(t, "debug", c.Log.Level)

	bad := Default()
	assert.Error(t, bad.applyEnv(func(k string) string {
		if k == "HTTP_PORT" {
			return "eighty"
		}
		return ""
	}))
}

func TestFingerprint(t *testing.T) {
	a := Default().Analysis
	b := a
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	b.Contamination = 0.2
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())

	c := a
	c.FitTimeout = time.Minute
	assert.Equal(t, a.Fingerprint(), c.Fingerprint(), "timeouts do not change results")
}

func TestLoadWithEnv_SampleFile(t *testing.T) {
	c, err := LoadWithEnv(filepath.Join("..", "..", "config", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "gridadvisor.logs", c.Kafka.LogTopic)
}
