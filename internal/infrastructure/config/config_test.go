package config_test

import (
	"testing"
	"time"

	"github.com/iho/branchledger/internal/infrastructure/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	if cfg.DatabaseURL == "" {
		t.Fatalf("expected default database URL to be set")
	}

	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default HTTP port 8080, got %s", cfg.HTTPPort)
	}

	if cfg.DatabaseIsolation != "read committed" {
		t.Fatalf("expected default isolation read committed, got %q", cfg.DatabaseIsolation)
	}

	if cfg.SettlementTimeout != 10*time.Second {
		t.Fatalf("expected default settlement timeout 10s, got %s", cfg.SettlementTimeout)
	}

	rate, feeCap, err := cfg.FeePolicy()
	if err != nil {
		t.Fatalf("default fee policy should parse: %v", err)
	}
	if rate.String() != "0.01" || feeCap.String() != "50" {
		t.Fatalf("unexpected fee policy %s/%s", rate, feeCap)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SETTLEMENT_TIMEOUT", "3s")
	t.Setenv("FEE_DEFAULT_RATE", "0.02")
	t.Setenv("FEE_CAP", "15")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("DATABASE_ISOLATION", " Serializable ")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.SettlementTimeout != 3*time.Second || cfg.HTTPPort != "9090" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}

	if cfg.DatabaseIsolation != "serializable" {
		t.Fatalf("isolation should be normalised, got %q", cfg.DatabaseIsolation)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad duration", "SETTLEMENT_TIMEOUT", "soon"},
		{"zero timeout", "SETTLEMENT_TIMEOUT", "0s"},
		{"bad rate", "FEE_DEFAULT_RATE", "two percent"},
		{"negative cap", "FEE_CAP", "-1"},
		{"auth without secret", "AUTH_ENABLED", "true"},
		{"unknown isolation", "DATABASE_ISOLATION", "snapshot"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)

			if _, err := config.Load(); err == nil {
				t.Fatalf("expected error for %s=%s", tt.key, tt.val)
			}
		})
	}
}
