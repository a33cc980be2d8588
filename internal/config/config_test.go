package config

import (
	"testing"

	"github.com/spf13/viper"
)

func loadFromEnv(t *testing.T, env map[string]string) Config {
	t.Helper()
	viper.Reset()
	for key, value := range env {
		t.Setenv(key, value)
	}
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	return cfg
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := loadFromEnv(t, nil)

	if cfg.ServerPort != "8080" {
		t.Fatalf("unexpected default port %q", cfg.ServerPort)
	}
	if cfg.RedisRateLimitPrefix != "ledger:rate_limit" {
		t.Fatalf("unexpected default prefix %q", cfg.RedisRateLimitPrefix)
	}
	if cfg.FraudLargeAmountThreshold != 10000.0 {
		t.Fatalf("unexpected default fraud threshold %f", cfg.FraudLargeAmountThreshold)
	}
	if cfg.InterestAccrualSchedule != "0 0 1 1 *" {
		t.Fatalf("unexpected default accrual schedule %q", cfg.InterestAccrualSchedule)
	}
	if cfg.TransferRateLimitPerMinute != 30 {
		t.Fatalf("unexpected default transfer rate limit %d", cfg.TransferRateLimitPerMinute)
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	cfg := loadFromEnv(t, map[string]string{
		"SERVER_PORT":                    "9090",
		"DATABASE_URL":                   "postgres://localhost:5432/ledger",
		"JWT_SECRET":                     "s3cret",
		"FRAUD_LARGE_AMOUNT_THRESHOLD":   "2500",
		"TRANSFER_RATE_LIMIT_PER_MINUTE": "5",
	})

	if cfg.ServerPort != "9090" {
		t.Fatalf("unexpected port %q", cfg.ServerPort)
	}
	if cfg.DatabaseURL != "postgres://localhost:5432/ledger" {
		t.Fatalf("unexpected database url %q", cfg.DatabaseURL)
	}
	if cfg.JWTSecret != "s3cret" {
		t.Fatalf("unexpected jwt secret %q", cfg.JWTSecret)
	}
	if cfg.FraudLargeAmountThreshold != 2500 {
		t.Fatalf("unexpected fraud threshold %f", cfg.FraudLargeAmountThreshold)
	}
	if cfg.TransferRateLimitPerMinute != 5 {
		t.Fatalf("unexpected transfer rate limit %d", cfg.TransferRateLimitPerMinute)
	}
}

func TestLoadConfig_SanitizesBadValues(t *testing.T) {
	cfg := loadFromEnv(t, map[string]string{
		"FRAUD_LARGE_AMOUNT_THRESHOLD":   "-1",
		"TRANSFER_RATE_LIMIT_PER_MINUTE": "-10",
		"REDIS_URL":                      "  redis://localhost:6379  ",
	})

	if cfg.FraudLargeAmountThreshold != 10000.0 {
		t.Fatalf("negative threshold must fall back to the default, got %f", cfg.FraudLargeAmountThreshold)
	}
	if cfg.TransferRateLimitPerMinute != 0 {
		t.Fatalf("negative rate limit must disable limiting, got %d", cfg.TransferRateLimitPerMinute)
	}
	if cfg.RedisURL != "redis://localhost:6379" {
		t.Fatalf("redis url must be trimmed, got %q", cfg.RedisURL)
	}
}
