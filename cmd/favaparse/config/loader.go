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
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	// Global is a singleton instance
	Global FavaConfig
	once   sync.Once

	// explicitPath overrides the default location when --config is set.
	explicitPath string
)

// SetPath overrides the config file location. It must be called before
// the first Load.
func SetPath(path string) {
	explicitPath = path
}

// Path returns the config file location that Load will use.
func Path() (string, error) {
	if explicitPath != "" {
		return explicitPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".favaparse", "favaparse.yaml"), nil
}

// Load ensures the config is loaded into the Global variable
func Load() error {
	var err error
	once.Do(func() {
		err = loadInternal()
	})
	return err
}

func loadInternal() error {
	configPath, err := Path()
	if err != nil {
		return err
	}
	// create it if it doesn't exist
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		fmt.Printf(" First run detected, creating the config at %s\n", configPath)
		if err := createDefault(configPath); err != nil {
			return err
		}
	}
	cfg, err := LoadFile(configPath)
	if err != nil {
		return err
	}
	Global = cfg
	return nil
}

// LoadFile reads and validates a config file without touching the
// Global singleton.
func LoadFile(path string) (FavaConfig, error) {
	var cfg FavaConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read the config file %w", err)
	}
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse the config file: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config at %s: %w", path, err)
	}
	return cfg, nil
}

func createDefault(path string) error {
	return Save(DefaultConfig(), path)
}

// Save writes a config to disk, creating the parent directory.
func Save(cfg FavaConfig, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create the config directory %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// CacheDir resolves the snapshot cache directory for a config.
func (c *FavaConfig) CacheDir() (string, error) {
	if c.Parse.CacheDir != "" {
		return c.Parse.CacheDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".favaparse", "cache"), nil
}
