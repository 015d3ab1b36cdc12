package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if VELVET_CONFIG is set
//  3. env (prefix VELVET_)
//
// Context is accepted first to satisfy the project-wide convention; it is
// reserved for future use and currently unused.
func Load(_ context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("VELVET_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: VELVET_ADDR, VELVET_STORE_PATH, ...
	// Map env keys like VELVET_STORE_PATH -> store_path (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("VELVET_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "velvet_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	// Basic validation
	switch {
	case cfg.Addr == "":
		return nil, fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case cfg.StorePath == "":
		return nil, fmt.Errorf("%w: store_path must not be empty", ErrInvalidConfig)
	case cfg.ScoreScaleMinutes <= 0:
		return nil, fmt.Errorf("%w: score_scale_minutes must be positive", ErrInvalidConfig)
	case cfg.BaselineScore <= 0:
		return nil, fmt.Errorf("%w: baseline_score must be positive", ErrInvalidConfig)
	case cfg.CancelGraceHours <= 0:
		return nil, fmt.Errorf("%w: cancel_grace_hours must be positive", ErrInvalidConfig)
	case cfg.TxAttempts <= 0:
		return nil, fmt.Errorf("%w: tx_attempts must be positive", ErrInvalidConfig)
	}
	return &cfg, nil
}
