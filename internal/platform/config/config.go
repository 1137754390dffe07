// Package config holds the server's tunables.
// Presets mirror the deployment profiles; DREAM_* environment variables
// override individual fields on top of the chosen preset.
package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/caarlos0/env/v11"
)

// Profile names a tuning preset.
type Profile string

const (
	ProfileDefault Profile = "default"
	ProfileStress  Profile = "stress"
	ProfileLow     Profile = "low"
)

// Config holds tuned parameters for the server.
type Config struct {
	Addr string `env:"DREAM_ADDR"`

	// Storage. Empty DBPath keeps the journal in memory only.
	DBPath         string `env:"DREAM_DB_PATH"`
	DBMaxOpenConns int    `env:"DREAM_DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns int    `env:"DREAM_DB_MAX_IDLE_CONNS"`

	// Scenario. Empty path uses the embedded default.
	ScenarioPath  string `env:"DREAM_SCENARIO"`
	WatchScenario bool   `env:"DREAM_WATCH_SCENARIO"`

	// Channel buffer sizes
	ActionBuffer     int `env:"DREAM_ACTION_BUFFER"`
	BroadcastBuffer  int `env:"DREAM_BROADCAST_BUFFER"`
	ClientSendBuffer int `env:"DREAM_CLIENT_SEND_BUFFER"`

	// Pacing
	JournalPollInterval time.Duration `env:"DREAM_JOURNAL_POLL_INTERVAL"`
	MinActionInterval   time.Duration `env:"DREAM_MIN_ACTION_INTERVAL"`
	MaxClients          int           `env:"DREAM_MAX_CLIENTS"`

	// Seed for cosmetic randomness. Zero picks one from the clock.
	Seed int64 `env:"DREAM_SEED"`
}

// DefaultConfig returns sensible defaults for production.
func DefaultConfig() *Config {
	numCPU := runtime.NumCPU()

	return &Config{
		Addr:           ":8080",
		DBPath:         "dream.db",
		DBMaxOpenConns: numCPU * 2,
		DBMaxIdleConns: numCPU,

		ActionBuffer:     64,  // Queued user actions awaiting the loop
		BroadcastBuffer:  256, // Hub fan-out
		ClientSendBuffer: 64,  // Per WebSocket

		JournalPollInterval: 100 * time.Millisecond,
		MinActionInterval:   50 * time.Millisecond,
		MaxClients:          200,
	}
}

// StressTestConfig returns aggressive settings for load runs with sleepwalker.
func StressTestConfig() *Config {
	numCPU := runtime.NumCPU()

	cfg := DefaultConfig()
	cfg.DBMaxOpenConns = numCPU * 4
	cfg.DBMaxIdleConns = numCPU * 2
	cfg.ActionBuffer = 1024
	cfg.BroadcastBuffer = 1024
	cfg.ClientSendBuffer = 256
	cfg.JournalPollInterval = 50 * time.Millisecond
	cfg.MinActionInterval = 0
	cfg.MaxClients = 1000
	return cfg
}

// LowResourceConfig returns minimal settings for development.
func LowResourceConfig() *Config {
	cfg := DefaultConfig()
	cfg.DBPath = ""
	cfg.DBMaxOpenConns = 1
	cfg.DBMaxIdleConns = 1
	cfg.ActionBuffer = 8
	cfg.BroadcastBuffer = 16
	cfg.ClientSendBuffer = 8
	cfg.JournalPollInterval = 250 * time.Millisecond
	cfg.MaxClients = 10
	return cfg
}

// ForProfile returns the preset for the named profile.
func ForProfile(p Profile) (*Config, error) {
	switch p {
	case "", ProfileDefault:
		return DefaultConfig(), nil
	case ProfileStress:
		return StressTestConfig(), nil
	case ProfileLow:
		return LowResourceConfig(), nil
	default:
		return nil, fmt.Errorf("unknown profile %q", p)
	}
}

type profileEnv struct {
	Profile Profile `env:"DREAM_PROFILE" envDefault:"default"`
}

// Load picks the preset named by DREAM_PROFILE and applies DREAM_* overrides.
func Load() (*Config, error) {
	var pe profileEnv
	if err := env.Parse(&pe); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg, err := ForProfile(pe.Profile)
	if err != nil {
		return nil, err
	}

	// Unset variables leave preset values untouched.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config: empty listen address")
	}
	if c.ActionBuffer < 1 || c.BroadcastBuffer < 1 || c.ClientSendBuffer < 1 {
		return fmt.Errorf("config: channel buffers must be positive")
	}
	if c.JournalPollInterval <= 0 {
		return fmt.Errorf("config: journal poll interval must be positive")
	}
	if c.MinActionInterval < 0 {
		return fmt.Errorf("config: negative min action interval")
	}
	return nil
}
