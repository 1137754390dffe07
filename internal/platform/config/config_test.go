package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Expected default addr :8080, got %s", cfg.Addr)
	}
	if cfg.JournalPollInterval != 100*time.Millisecond {
		t.Errorf("Expected 100ms poll interval, got %v", cfg.JournalPollInterval)
	}
}

func TestLoadEnvOverridesPreset(t *testing.T) {
	t.Setenv("DREAM_PROFILE", "low")
	t.Setenv("DREAM_ADDR", "127.0.0.1:9090")
	t.Setenv("DREAM_MIN_ACTION_INTERVAL", "5ms")
	t.Setenv("DREAM_SEED", "42")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9090" {
		t.Errorf("Expected overridden addr, got %s", cfg.Addr)
	}
	if cfg.MinActionInterval != 5*time.Millisecond {
		t.Errorf("Expected 5ms, got %v", cfg.MinActionInterval)
	}
	if cfg.Seed != 42 {
		t.Errorf("Expected seed 42, got %d", cfg.Seed)
	}
	// Untouched fields keep the low preset
	if cfg.DBPath != "" {
		t.Errorf("Expected low profile to disable sqlite, got %q", cfg.DBPath)
	}
	if cfg.ActionBuffer != 8 {
		t.Errorf("Expected low profile action buffer 8, got %d", cfg.ActionBuffer)
	}
}

func TestLoadUnknownProfile(t *testing.T) {
	t.Setenv("DREAM_PROFILE", "turbo")

	if _, err := Load(); err == nil {
		t.Fatal("Expected error for unknown profile")
	}
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	t.Setenv("DREAM_JOURNAL_POLL_INTERVAL", "soon")

	_, err := Load()
	if err == nil {
		t.Fatal("Expected parse error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Errorf("Expected wrapped parse error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ActionBuffer = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Expected zero action buffer to be rejected")
	}

	cfg = StressTestConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Stress preset should validate, got %v", err)
	}
}
