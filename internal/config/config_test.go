package config

import (
	"testing"
	"time"
)

func TestParseStringSliceTrimsAndSkipsEmpty(t *testing.T) {
	got := parseStringSlice(" http://a.test, ,http://b.test,")
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Fatalf("unexpected origins: %#v", got)
	}
}

func TestParseDurationFallback(t *testing.T) {
	if d := parseDuration("nope", 3*time.Second); d != 3*time.Second {
		t.Fatalf("expected fallback, got %s", d)
	}
	if d := parseDuration("250ms", time.Second); d != 250*time.Millisecond {
		t.Fatalf("expected 250ms, got %s", d)
	}
}

func TestValidateRequiresSecretInProduction(t *testing.T) {
	cfg := &Config{Env: "production", DatabaseURL: "postgres://x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected missing JWT_SECRET error")
	}

	dev := &Config{Env: "development", DatabaseURL: "postgres://x"}
	if err := dev.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dev.JWTSecret == "" {
		t.Fatal("expected development secret fallback")
	}
}
