package testsupport

import (
	"os"
	"strconv"
	"testing"

	"candlecast/internal/adapters/config"
)

// ClickHouseConfigFromEnv reads ClickHouse settings for integration tests.
// The test is skipped when CLICKHOUSE_HOST is unset or -short is given.
func ClickHouseConfigFromEnv(t *testing.T) config.ClickHouseConfig {
	t.Helper()
	requireEnv(t, "CLICKHOUSE_HOST")

	return config.ClickHouseConfig{
		Host:     os.Getenv("CLICKHOUSE_HOST"),
		Port:     intValue("CLICKHOUSE_PORT", 9000),
		User:     valueWithDefault("CLICKHOUSE_USER", "default"),
		Password: os.Getenv("CLICKHOUSE_PASSWORD"),
		Database: valueWithDefault("CLICKHOUSE_DB", "default"),
	}
}

// RedisConfigFromEnv reads Redis settings for integration tests.
// The test is skipped when REDIS_HOST is unset or -short is given.
func RedisConfigFromEnv(t *testing.T) config.RedisConfig {
	t.Helper()
	requireEnv(t, "REDIS_HOST")

	return config.RedisConfig{
		Host:      os.Getenv("REDIS_HOST"),
		Port:      intValue("REDIS_PORT", 6379),
		Password:  os.Getenv("REDIS_PASSWORD"),
		DB:        intValue("REDIS_DB", 15),
		KeyPrefix: "test:model:",
	}
}

func requireEnv(t *testing.T, keys ...string) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test")
	}

	missing := make([]string, 0)
	for _, key := range keys {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		t.Skipf("integration environment missing, set %v to run", missing)
	}
}

func valueWithDefault(key string, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

func intValue(key string, fallback int) int {
	if parsed, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return parsed
	}

	return fallback
}
