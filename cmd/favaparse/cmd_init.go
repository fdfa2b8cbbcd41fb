// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"fmt"
	"log"
	"net"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/ChrisRoyse/Fava-sub001/cmd/favaparse/config"
	"github.com/ChrisRoyse/Fava-sub001/pkg/ux"
)

func runInit(cmd *cobra.Command, args []string) {
	path, err := config.Path()
	if err != nil {
		log.Fatalf("%v", err)
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		ux.Error(fmt.Sprintf("config already exists at %s", path))
		ux.Muted("pass --force to overwrite it")
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	addr := cfg.Server.Addr
	level := cfg.Logging.Level
	traces := cfg.Telemetry.Traces
	metrics := cfg.Telemetry.Metrics
	cache := cfg.Parse.Cache

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Listen address for favaparse serve").
				Description("host:port, e.g. :8788 or 127.0.0.1:8788").
				Value(&addr).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("an address is required")
					}
					if _, _, err := net.SplitHostPort(s); err != nil {
						return fmt.Errorf("not a host:port address: %w", err)
					}
					return nil
				}),

			huh.NewSelect[string]().
				Title("Log level").
				Options(huh.NewOptions("debug", "info", "warn", "error")...).
				Value(&level),

			huh.NewSelect[string]().
				Title("Metric exporter").
				Description("prometheus serves /metrics from the bridge").
				Options(huh.NewOptions("none", "prometheus", "stdout")...).
				Value(&metrics),

			huh.NewSelect[string]().
				Title("Trace exporter").
				Options(huh.NewOptions("none", "otlp", "stdout")...).
				Value(&traces),

			huh.NewConfirm().
				Title("Cache parse snapshots between runs?").
				Value(&cache),
		),
	)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			ux.Muted("aborted, nothing written")
			return
		}
		log.Fatalf("Init form failed: %v", err)
	}

	cfg.Server.Addr = addr
	cfg.Logging.Level = level
	cfg.Telemetry.Traces = traces
	cfg.Telemetry.Metrics = metrics
	cfg.Parse.Cache = cache

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Refusing to write an invalid config: %v", err)
	}
	if err := config.Save(cfg, path); err != nil {
		log.Fatalf("Failed to write the config: %v", err)
	}

	ux.Success(fmt.Sprintf("wrote %s", path))
	ux.Muted("edit it directly any time; favaparse re-reads it on every run")
}
