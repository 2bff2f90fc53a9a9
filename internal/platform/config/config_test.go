package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://localhost:5000/")
	t.Setenv("REQUEST_TIMEOUT", "not-a-duration")

	cfg := FromEnv()
	if cfg.APIBaseURL != "http://localhost:5000" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.APIBaseURL)
	}
	if cfg.RequestTimeout != 15*time.Second {
		t.Fatalf("expected fallback timeout, got %v", cfg.RequestTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateRequiresBaseURL(t *testing.T) {
	cfg := Config{RequestTimeout: time.Second, SessionTTL: time.Hour, MaxBodyBytes: 4096, RateLimitPerMinute: 10}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected missing API_BASE_URL error")
	}

	cfg.APIBaseURL = "localhost:5000"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected relative API_BASE_URL to be rejected")
	}
}

func TestValidateProductionSecrets(t *testing.T) {
	cfg := Config{
		APIBaseURL:         "https://api.example.com",
		Environment:        "production",
		RequestTimeout:     time.Second,
		SessionTTL:         time.Hour,
		MaxBodyBytes:       4096,
		RateLimitPerMinute: 10,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected SESSION_SECRET error")
	}

	cfg.SessionSecret = "secret"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected PAYMENT_PUBLIC_KEY error")
	}

	cfg.PaymentPublicKey = "pk_live_x"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected COOKIE_SECURE error")
	}

	cfg.CookieSecure = true
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid production config, got %v", err)
	}
}
