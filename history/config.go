// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/reactor/snapshot"
)

// MaxYAMLFileSize is the maximum allowed configuration file size.
// Prevents memory issues from oversized or hostile files.
const MaxYAMLFileSize = 256 * 1024

//go:embed history.yaml
var defaultConfigYAML []byte

// configValidate is the validator instance for history configuration.
var configValidate = validator.New()

// StrategyConfig selects and parameterizes the cadence strategy.
//
// Exactly one strategy is active per history configuration; the fields
// relevant to the chosen kind must be set, the rest are ignored.
type StrategyConfig struct {
	// Kind picks the strategy: none, time, count, size, significance.
	Kind string `yaml:"kind" validate:"required,oneof=none time count size significance"`

	// IntervalMS is the full-snapshot interval for the time strategy.
	IntervalMS int `yaml:"interval_ms" validate:"gte=0"`

	// MaxDeltas is the chain length limit for the count strategy.
	MaxDeltas int `yaml:"max_deltas" validate:"gte=0"`

	// MaxBytes is the serialized delta limit for the size strategy.
	MaxBytes int `yaml:"max_bytes" validate:"gte=0"`

	// SignificantFraction is the changed/tracked ratio for the
	// significance strategy.
	SignificantFraction float64 `yaml:"significant_fraction" validate:"gte=0,lte=1"`

	// SignificantPaths lists paths whose change always forces a full
	// snapshot under the significance strategy.
	SignificantPaths []string `yaml:"significant_paths" validate:"max=1000"`
}

// Config configures the history engine.
type Config struct {
	// MaxEntries bounds retained history entries; the oldest are evicted
	// past the bound.
	MaxEntries int `yaml:"max_entries" validate:"required,gt=0,lte=1000000"`

	// CacheSize bounds the reconstruction cache. Zero disables caching.
	CacheSize int `yaml:"cache_size" validate:"gte=0"`

	// Strategy selects the full-vs-delta cadence.
	Strategy StrategyConfig `yaml:"strategy"`
}

// DefaultConfig returns the embedded default configuration.
func DefaultConfig() Config {
	cfg, err := parseConfig(defaultConfigYAML)
	if err != nil {
		// The embedded default is part of the build; failing to parse it
		// is a programming error.
		panic(fmt.Sprintf("history: embedded default config invalid: %v", err))
	}
	return cfg
}

// LoadConfig reads and validates a configuration file.
//
// Description:
//
//	Reads YAML from path, enforcing the size limit, strict field
//	checking, struct validation, and per-strategy parameter checks.
//
// Inputs:
//
//	path - Path to a YAML configuration file.
//
// Outputs:
//
//	Config - The validated configuration.
//	error - Non-nil if the file is unreadable, oversized, malformed, or
//	invalid.
func LoadConfig(path string) (Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("stat config: %w", err)
	}
	if info.Size() > MaxYAMLFileSize {
		return Config{}, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), MaxYAMLFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return parseConfig(data)
}

func parseConfig(data []byte) (Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks structural and per-strategy constraints.
func (c Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	switch c.Strategy.Kind {
	case "time":
		if c.Strategy.IntervalMS <= 0 {
			return fmt.Errorf("validate config: time strategy requires interval_ms > 0")
		}
	case "count":
		if c.Strategy.MaxDeltas <= 0 {
			return fmt.Errorf("validate config: count strategy requires max_deltas > 0")
		}
	case "size":
		if c.Strategy.MaxBytes <= 0 {
			return fmt.Errorf("validate config: size strategy requires max_bytes > 0")
		}
	}
	return nil
}

// BuildStrategy constructs the configured cadence strategy.
func (c Config) BuildStrategy() (snapshot.Strategy, error) {
	switch c.Strategy.Kind {
	case "none":
		return snapshot.NoneStrategy{}, nil
	case "time":
		return snapshot.TimeStrategy{
			Interval: time.Duration(c.Strategy.IntervalMS) * time.Millisecond,
		}, nil
	case "count":
		return snapshot.CountStrategy{MaxDeltas: c.Strategy.MaxDeltas}, nil
	case "size":
		return snapshot.SizeStrategy{MaxBytes: c.Strategy.MaxBytes}, nil
	case "significance":
		significant := make(map[string]bool, len(c.Strategy.SignificantPaths))
		for _, p := range c.Strategy.SignificantPaths {
			significant[p] = true
		}
		return snapshot.SignificanceStrategy{
			Fraction:    c.Strategy.SignificantFraction,
			Significant: significant,
		}, nil
	default:
		return nil, fmt.Errorf("unknown strategy kind %q", c.Strategy.Kind)
	}
}
