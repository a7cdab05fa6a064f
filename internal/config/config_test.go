package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "STATE_BACKEND", "POLL_INTERVAL", "POLL_MAX_ATTEMPTS", "PAYMENT_CURRENCY", "PUBLIC_BASE_URL", "APPOINTMENT_FEE"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8085" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.PublicBaseURL != "http://localhost:8085" {
		t.Fatalf("expected public base url from port, got %s", cfg.PublicBaseURL)
	}
	if cfg.StateBackend != BackendFile {
		t.Fatalf("expected file backend, got %s", cfg.StateBackend)
	}
	if cfg.PollInterval != 10*time.Second || cfg.PollMaxAttempts != 30 {
		t.Fatalf("expected 10s x 30 polling, got %s x %d", cfg.PollInterval, cfg.PollMaxAttempts)
	}
	if cfg.PaymentStateTTL != 24*time.Hour {
		t.Fatalf("expected 24h state ttl, got %s", cfg.PaymentStateTTL)
	}
	if cfg.PaymentCurrency != "INR" || cfg.AppointmentFee != 500 {
		t.Fatalf("unexpected pricing defaults %s %d", cfg.PaymentCurrency, cfg.AppointmentFee)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("PUBLIC_BASE_URL", "https://desk.example.com/")
	t.Setenv("STATE_BACKEND", " Redis ")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("POLL_INTERVAL", "2s")
	t.Setenv("POLL_MAX_ATTEMPTS", "5")
	t.Setenv("OPERATION_FEE", "25000")
	t.Setenv("ALLOW_FAKE_PAYMENTS", "true")
	t.Setenv("CHECKOUT_MODE", "PRODUCTION")
	cfg := Load()
	if cfg.PublicBaseURL != "https://desk.example.com" {
		t.Fatalf("expected trimmed public base url, got %s", cfg.PublicBaseURL)
	}
	if cfg.StateBackend != BackendRedis || cfg.RedisAddr != "cache:6379" {
		t.Fatalf("expected redis backend override, got %s %s", cfg.StateBackend, cfg.RedisAddr)
	}
	if cfg.PollInterval != 2*time.Second || cfg.PollMaxAttempts != 5 {
		t.Fatalf("expected polling override, got %s x %d", cfg.PollInterval, cfg.PollMaxAttempts)
	}
	if cfg.OperationFee != 25000 {
		t.Fatalf("expected operation fee override, got %d", cfg.OperationFee)
	}
	if !cfg.AllowFakePayments || cfg.CheckoutMode != "production" {
		t.Fatalf("expected fake payments and production mode")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"unknown backend":     func(c *Config) { c.StateBackend = "sqlite" },
		"postgres without db": func(c *Config) { c.StateBackend = BackendPostgres; c.DatabaseURL = "" },
		"bad checkout mode":   func(c *Config) { c.CheckoutMode = "live" },
		"zero attempts":       func(c *Config) { c.PollMaxAttempts = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Load()
			mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
