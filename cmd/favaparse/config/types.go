// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"runtime"

	"github.com/go-playground/validator/v10"

	"github.com/ChrisRoyse/Fava-sub001/services/editor/parser"
)

// FavaConfig is the on-disk configuration for the favaparse CLI.
type FavaConfig struct {
	// Parse: limits and caching for the parse and watch commands
	Parse ParseConfig `yaml:"parse"`

	// Server: listen address and session limits for favaparse serve
	Server ServerConfig `yaml:"server"`

	// Logging: level and optional file destination
	Logging LoggingConfig `yaml:"logging"`

	// Telemetry: exporter selection for traces and metrics
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

type ParseConfig struct {
	MaxSourceSize int    `yaml:"max_source_size" validate:"gt=0"` // bytes, e.g. 10485760
	Workers       int    `yaml:"workers" validate:"gte=0"`        // 0 means NumCPU
	Cache         bool   `yaml:"cache"`                           // persist snapshots between runs
	CacheDir      string `yaml:"cache_dir,omitempty"`             // defaults to ~/.favaparse/cache
}

type ServerConfig struct {
	Addr         string  `yaml:"addr" validate:"required"`
	CacheSize    int     `yaml:"cache_size" validate:"gt=0"`
	SessionRate  float64 `yaml:"session_rate" validate:"gt=0"` // parses per second per session
	SessionBurst int     `yaml:"session_burst" validate:"gt=0"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Dir   string `yaml:"dir,omitempty"`
	JSON  bool   `yaml:"json"`
}

type TelemetryConfig struct {
	Traces   string `yaml:"traces" validate:"omitempty,oneof=otlp stdout none"`
	Metrics  string `yaml:"metrics" validate:"omitempty,oneof=prometheus stdout none"`
	Endpoint string `yaml:"endpoint,omitempty"`
	Insecure bool   `yaml:"insecure"`
}

// cfgValidate is the validator instance for config files.
var cfgValidate *validator.Validate

func init() {
	cfgValidate = validator.New()
}

// Validate checks the config against its struct tags.
func (c *FavaConfig) Validate() error {
	return cfgValidate.Struct(c)
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() FavaConfig {
	return FavaConfig{
		Parse: ParseConfig{
			MaxSourceSize: parser.DefaultMaxSourceSize,
			Workers:       runtime.NumCPU(),
			Cache:         true,
		},
		Server: ServerConfig{
			Addr:         ":8788",
			CacheSize:    128,
			SessionRate:  50,
			SessionBurst: 10,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Telemetry: TelemetryConfig{
			Traces:   "none",
			Metrics:  "none",
			Insecure: true,
		},
	}
}
