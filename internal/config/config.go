// Package config loads redroll settings from REDROLL_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
)

// DirName is the per-user directory holding history and the update cache.
const DirName = ".redroll"

// Config holds settings shared by every redroll command.
type Config struct {
	Theme               string   `env:"REDROLL_THEME"`
	HistoryDir          string   `env:"REDROLL_HISTORY_DIR"`
	MaxHistory          int      `env:"REDROLL_MAX_HISTORY" envDefault:"500"`
	NoHistory           bool     `env:"REDROLL_NO_HISTORY"`
	SkipUpdateCheck     bool     `env:"REDROLL_SKIP_UPDATE_CHECK"`
	UpdateCheckInterval int      `env:"REDROLL_UPDATE_CHECK_INTERVAL" envDefault:"7"`
	Seed                uint64   `env:"REDROLL_SEED"`
	Addr                string   `env:"REDROLL_ADDR" envDefault:"127.0.0.1:8087"`
	AllowedOrigins      []string `env:"REDROLL_ALLOWED_ORIGINS" envSeparator:","`
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads Config from the environment and fills derived defaults.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	cfg.Theme = strings.ToLower(strings.TrimSpace(cfg.Theme))
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = 500
	}
	if cfg.UpdateCheckInterval <= 0 {
		cfg.UpdateCheckInterval = 7
	}
	if cfg.HistoryDir == "" {
		dir, err := DefaultDir()
		if err != nil {
			return Config{}, err
		}
		cfg.HistoryDir = dir
	}
	return cfg, nil
}

// DefaultDir returns ~/.redroll.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}
