package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadConfig_UsesStripeSecretKeyAlias(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "STRIPE_API_KEY")
	setEnvWithCleanup(t, "STRIPE_SECRET_KEY", "sk_test_alias_only")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.StripeAPIKey != "sk_test_alias_only" {
		t.Fatalf("expected StripeAPIKey from alias env var, got %q", cfg.StripeAPIKey)
	}
}

func TestLoadConfig_StripeAPIKeyTakesPrecedenceOverAlias(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "STRIPE_API_KEY", "sk_test_primary")
	setEnvWithCleanup(t, "STRIPE_SECRET_KEY", "sk_test_alias")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.StripeAPIKey != "sk_test_primary" {
		t.Fatalf("expected StripeAPIKey to prioritize STRIPE_API_KEY, got %q", cfg.StripeAPIKey)
	}
}

func TestLoadConfig_CronRateLimitDefaultsToFivePerMinute(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "CRON_RATE_LIMIT_PER_MINUTE")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.CronRateLimitPerMinute != 5 {
		t.Fatalf("expected default CronRateLimitPerMinute of 5, got %d", cfg.CronRateLimitPerMinute)
	}
}

func TestLoadConfig_AdminRateLimitDefaultsToTenPerMinute(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	unsetEnvWithCleanup(t, "ADMIN_RATE_LIMIT_PER_MINUTE")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.AdminRateLimitPerMinute != 10 {
		t.Fatalf("expected default AdminRateLimitPerMinute of 10, got %d", cfg.AdminRateLimitPerMinute)
	}
}

func TestLoadConfig_NormalizesCurrencyToLower(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	setEnvWithCleanup(t, "PAYOUT_CURRENCY", " USD ")

	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.PayoutCurrency != "usd" {
		t.Fatalf("expected normalized currency usd, got %q", cfg.PayoutCurrency)
	}
}

func setEnvWithCleanup(t *testing.T, key string, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}

func unsetEnvWithCleanup(t *testing.T, key string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("failed to unset env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}
