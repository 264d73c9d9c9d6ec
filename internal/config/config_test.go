package config

import (
	"os"
	"testing"
)

func setRequired(t *testing.T) {
	t.Helper()
	required := map[string]string{
		"BROKER_API_KEY_ID":     "test_key",
		"BROKER_API_SECRET_KEY": "test_secret",
		"BROKER_BASE_URL":       "https://paper-api.example.com",
	}
	for k, v := range required {
		os.Setenv(k, v)
		t.Cleanup(func(k string) func() { return func() { os.Unsetenv(k) } }(k))
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	optionals := []string{
		"TRADING_MAX_RESUBMISSIONS",
		"TRADING_LIMIT_ORDER_TIMEOUT_MINUTES",
		"TRADING_ENABLE_PRE_MARKET",
		"WATCHER_LOG_LEVEL",
	}
	for _, k := range optionals {
		os.Unsetenv(k)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("expected LogLevel 'info', got %q", cfg.LogLevel)
	}
	if cfg.DefaultQuantity != 100 {
		t.Errorf("expected DefaultQuantity 100, got %d", cfg.DefaultQuantity)
	}
	if cfg.MaxPositionSize != 1000 {
		t.Errorf("expected MaxPositionSize 1000, got %d", cfg.MaxPositionSize)
	}
	if cfg.LimitOrderTimeoutMinutes != 5 {
		t.Errorf("expected LimitOrderTimeoutMinutes 5, got %d", cfg.LimitOrderTimeoutMinutes)
	}
	if cfg.MaxResubmissions != 3 {
		t.Errorf("expected MaxResubmissions 3, got %d", cfg.MaxResubmissions)
	}
	if cfg.EnablePreMarket {
		t.Errorf("expected EnablePreMarket false by default")
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv("BROKER_API_KEY_ID")
	os.Unsetenv("BROKER_API_SECRET_KEY")
	os.Unsetenv("BROKER_BASE_URL")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing required environment variables")
	}
}

func TestLoad_AllowedIPsParsed(t *testing.T) {
	setRequired(t)
	os.Setenv("SECURITY_ALLOWED_IPS", "10.0.0.1, 10.0.0.2,10.0.0.3")
	t.Cleanup(func() { os.Unsetenv("SECURITY_ALLOWED_IPS") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.AllowedIPs) != 3 {
		t.Fatalf("expected 3 allowed IPs, got %d: %v", len(cfg.AllowedIPs), cfg.AllowedIPs)
	}
}

func TestLoad_RejectsInvalidMaxResubmissions(t *testing.T) {
	setRequired(t)
	os.Setenv("TRADING_MAX_RESUBMISSIONS", "-1")
	t.Cleanup(func() { os.Unsetenv("TRADING_MAX_RESUBMISSIONS") })

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error for negative max_resubmissions")
	}
}
