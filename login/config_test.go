package login

import (
	"context"
	"errors"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvDCEAPIURL, "https://dce.example.com/api")
	t.Setenv(EnvRegion, "eu-west-1")
	t.Setenv(EnvEventsTablePrefix, "safe-events")
	t.Setenv(EnvConfigTablePrefix, "safe-config")
	t.Setenv(EnvUserPoolPrefix, "safe")
	t.Setenv(EnvDCEAPIURLParameter, "")
	t.Setenv(EnvLoginRateLimit, "")
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		setRequiredEnv(t)

		cfg, err := LoadConfigFromEnv(context.Background(), nil)
		if err != nil {
			t.Fatalf("LoadConfigFromEnv: %v", err)
		}
		if cfg.RateLimit != defaultRateLimit || cfg.RateWindow != time.Minute {
			t.Errorf("rate limit = %d/%v", cfg.RateLimit, cfg.RateWindow)
		}
	})

	t.Run("rate limit override", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv(EnvLoginRateLimit, "3")

		cfg, err := LoadConfigFromEnv(context.Background(), nil)
		if err != nil {
			t.Fatalf("LoadConfigFromEnv: %v", err)
		}
		if cfg.RateLimit != 3 {
			t.Errorf("RateLimit = %d", cfg.RateLimit)
		}
	})

	t.Run("rejects non-positive rate limit", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv(EnvLoginRateLimit, "0")

		if _, err := LoadConfigFromEnv(context.Background(), nil); err == nil {
			t.Error("expected error for zero rate limit")
		}
	})

	t.Run("missing user pool prefix fails fast", func(t *testing.T) {
		setRequiredEnv(t)
		t.Setenv(EnvUserPoolPrefix, "")

		if _, err := LoadConfigFromEnv(context.Background(), nil); !errors.Is(err, ErrMissingUserPoolPrefix) {
			t.Errorf("err = %v", err)
		}
	})
}
