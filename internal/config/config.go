// Package config loads server configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/talgya/tetherbound/internal/engine"
)

// Config holds every tunable for the session server.
type Config struct {
	DBPath       string        `env:"TETHERD_DB" envDefault:"data/tetherbound.db"`
	APIPort      int           `env:"TETHERD_PORT" envDefault:"8080"`
	AdminKey     string        `env:"TETHERD_ADMIN_KEY"`
	TickInterval time.Duration `env:"TETHERD_TICK_INTERVAL" envDefault:"250ms"`
	Speed        float64       `env:"TETHERD_SPEED" envDefault:"1.0"`

	// Policy knobs. Zero values fall back to engine defaults.
	HeirCostModifier  float64 `env:"TETHERD_HEIR_COST" envDefault:"0.5"`
	HeirForgiving     bool    `env:"TETHERD_HEIR_FORGIVING" envDefault:"false"`
	HeirGracePeriod   float64 `env:"TETHERD_HEIR_GRACE" envDefault:"10"`
	AllowHeirResummon bool    `env:"TETHERD_HEIR_RESUMMON" envDefault:"false"`
	ContestFactor     float64 `env:"TETHERD_CONTEST_FACTOR" envDefault:"1.5"`
	ContestMargin     float64 `env:"TETHERD_CONTEST_MARGIN" envDefault:"5"`
	ContestBacklash   float64 `env:"TETHERD_CONTEST_BACKLASH" envDefault:"10"`
	RhythmTimeoutMult float64 `env:"TETHERD_RHYTHM_TIMEOUT_MULT" envDefault:"2"`
}

// Load parses configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// EngineOptions maps the config onto engine policy options.
func (c Config) EngineOptions() engine.Options {
	opts := engine.DefaultOptions()
	opts.HeirCostModifier = c.HeirCostModifier
	opts.HeirForgiving = c.HeirForgiving
	opts.HeirGracePeriod = c.HeirGracePeriod
	opts.AllowHeirResummon = c.AllowHeirResummon
	if c.ContestFactor > 0 {
		opts.ContestFactor = c.ContestFactor
	}
	if c.ContestMargin > 0 {
		opts.ContestMargin = c.ContestMargin
	}
	if c.ContestBacklash > 0 {
		opts.ContestBacklash = c.ContestBacklash
	}
	if c.RhythmTimeoutMult > 0 {
		opts.RhythmTimeoutMult = c.RhythmTimeoutMult
	}
	return opts
}
