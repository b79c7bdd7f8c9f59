// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads and validates the track engine service
// configuration.
//
// Resolution order: built-in defaults, then the optional YAML file, then
// environment overrides (TRACKENGINE_* variables). The Manager supports
// hot reload: it watches the YAML file and atomically swaps the active
// configuration on change, keeping the previous one when the new file is
// invalid.
package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "30s" parse naturally.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// BreakerConfig configures the generation circuit breaker.
type BreakerConfig struct {
	FailureThreshold int      `yaml:"failure_threshold" validate:"gte=1"`
	SuccessThreshold int      `yaml:"success_threshold" validate:"gte=1"`
	OpenDuration     Duration `yaml:"open_duration"`
}

// RateLimitConfig configures the per-client admission window.
type RateLimitConfig struct {
	Limit  int      `yaml:"limit" validate:"gte=1"`
	Window Duration `yaml:"window"`
}

// StreamConfig configures streaming sessions.
type StreamConfig struct {
	FrameInterval Duration `yaml:"frame_interval"`
	IdleTimeout   Duration `yaml:"idle_timeout"`
	LapDuration   Duration `yaml:"lap_duration"`
}

// Config is the full service configuration.
type Config struct {
	ListenAddr string `yaml:"listen_addr" validate:"required"`
	LogLevel   string `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogDir     string `yaml:"log_dir"`

	Breaker   BreakerConfig   `yaml:"breaker"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Stream    StreamConfig    `yaml:"stream"`
}

// Default returns the configuration used when no file or overrides exist.
func Default() Config {
	return Config{
		ListenAddr: ":8080",
		LogLevel:   "info",
		Breaker: BreakerConfig{
			FailureThreshold: 3,
			SuccessThreshold: 1,
			OpenDuration:     Duration(30 * time.Second),
		},
		RateLimit: RateLimitConfig{
			Limit:  5,
			Window: Duration(60 * time.Second),
		},
		Stream: StreamConfig{
			FrameInterval: Duration(100 * time.Millisecond),
			IdleTimeout:   Duration(30 * time.Second),
			LapDuration:   Duration(10 * time.Second),
		},
	}
}

var validate = validator.New()

// Load resolves the configuration: defaults, optional YAML file, env
// overrides, then validation.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// applyEnv overlays TRACKENGINE_* environment variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("TRACKENGINE_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("TRACKENGINE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TRACKENGINE_LOG_DIR"); v != "" {
		cfg.LogDir = v
	}
}

// Manager holds the active configuration behind a read-write lock so the
// watcher can swap it while handlers read it.
type Manager struct {
	mu      sync.RWMutex
	current Config
}

// NewManager wraps an already loaded configuration.
func NewManager(cfg Config) *Manager {
	return &Manager{current: cfg}
}

// Current returns the active configuration by value.
func (m *Manager) Current() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// swap replaces the active configuration.
func (m *Manager) swap(cfg Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = cfg
}
