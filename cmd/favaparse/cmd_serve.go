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
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/ChrisRoyse/Fava-sub001/cmd/favaparse/config"
	"github.com/ChrisRoyse/Fava-sub001/pkg/logging"
	"github.com/ChrisRoyse/Fava-sub001/pkg/telemetry"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/server"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/treesitter"
)

func runServe(cmd *cobra.Command, args []string) {
	if err := config.Load(); err != nil {
		log.Fatalf("Failed to load the config: %v", err)
	}
	cfg := config.Global

	// Set Gin mode
	if serveDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.Logging.Level),
		LogDir:  cfg.Logging.Dir,
		Service: "serve",
		JSON:    cfg.Logging.JSON,
	})
	defer logger.Close()

	tcfg := telemetry.DefaultConfig()
	tcfg.ServiceVersion = version
	if cfg.Telemetry.Traces != "" {
		tcfg.TraceExporter = cfg.Telemetry.Traces
	}
	if cfg.Telemetry.Metrics != "" {
		tcfg.MetricExporter = cfg.Telemetry.Metrics
	}
	if cfg.Telemetry.Endpoint != "" {
		tcfg.OTLPEndpoint = cfg.Telemetry.Endpoint
	}
	tcfg.OTLPInsecure = cfg.Telemetry.Insecure

	shutdown, err := telemetry.Init(context.Background(), tcfg)
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}

	svcCfg := server.DefaultConfig()
	svcCfg.Logger = logger.Slog()
	if cfg.Parse.MaxSourceSize > 0 {
		svcCfg.MaxSourceSize = cfg.Parse.MaxSourceSize
	}
	if cfg.Server.CacheSize > 0 {
		svcCfg.CacheSize = cfg.Server.CacheSize
	}
	if cfg.Server.SessionRate > 0 {
		svcCfg.SessionRate = rate.Limit(cfg.Server.SessionRate)
	}
	if cfg.Server.SessionBurst > 0 {
		svcCfg.SessionBurst = cfg.Server.SessionBurst
	}
	if cfg.Server.Addr != "" {
		svcCfg.Addr = cfg.Server.Addr
	}
	if serveAddr != "" {
		svcCfg.Addr = serveAddr
	}
	svc := server.NewService(svcCfg)

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("shutting down")
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
		logger.Close()
		os.Exit(0)
	}()

	logger.Info("starting the parse bridge",
		"addr", svcCfg.Addr,
		"languages", strings.Join(treesitter.Languages(), ","),
		"version", version,
	)
	if err := svc.Run(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
