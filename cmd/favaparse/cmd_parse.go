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
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ChrisRoyse/Fava-sub001/cmd/favaparse/config"
	"github.com/ChrisRoyse/Fava-sub001/pkg/ux"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/document"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/store"
)

// parseReport is the per-file result of favaparse parse.
type parseReport struct {
	File       string  `json:"file"`
	Language   string  `json:"language,omitempty"`
	Bytes      int     `json:"bytes"`
	Nodes      int     `json:"nodes"`
	HasError   bool    `json:"has_error"`
	Cached     bool    `json:"cached"`
	DurationMS float64 `json:"duration_ms"`
	Error      string  `json:"error,omitempty"`
}

func runParse(cmd *cobra.Command, args []string) {
	if err := config.Load(); err != nil {
		log.Fatalf("Failed to load the config: %v", err)
	}
	cfg := config.Global

	logger := newCommandLogger(cfg, "cli")
	defer logger.Close()

	st := openSnapshotStore(cfg, logger.Slog())
	if st != nil {
		defer st.Close()
	}

	workers := parseWorkers
	if workers <= 0 {
		workers = cfg.Parse.Workers
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var spinner *ux.ProgressSpinner
	if !parseJSON && len(args) > 1 {
		spinner = ux.NewProgressSpinner("parsing", len(args))
		spinner.Start()
	}

	reports := make([]parseReport, len(args))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(workers)
	for i, path := range args {
		g.Go(func() error {
			reports[i] = parseOne(ctx, st, cfg, logger.Slog(), path)
			if spinner != nil {
				spinner.Increment()
			}
			return nil
		})
	}
	_ = g.Wait()
	if spinner != nil {
		spinner.Stop()
	}

	var parsed, cached, failed int
	for _, rep := range reports {
		switch {
		case rep.Error != "":
			failed++
		case rep.Cached:
			cached++
		default:
			parsed++
		}
	}

	if parseJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			log.Fatalf("Failed to encode reports: %v", err)
		}
	} else {
		for _, rep := range reports {
			printReport(rep)
		}
		if parseStats || len(args) > 1 {
			ux.Summary(parsed, cached, failed)
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}

// openSnapshotStore opens the badger-backed cache, or returns nil when
// caching is off. A cache that fails to open only costs re-parses, so
// the error is logged and swallowed.
func openSnapshotStore(cfg config.FavaConfig, log *slog.Logger) *store.Store {
	if parseNoCache || !cfg.Parse.Cache {
		return nil
	}
	dir, err := cfg.CacheDir()
	if err != nil {
		log.Warn("snapshot cache disabled", slog.String("error", err.Error()))
		return nil
	}
	st, err := store.Open(store.DefaultConfig(dir))
	if err != nil {
		log.Warn("snapshot cache disabled", slog.String("error", err.Error()))
		return nil
	}
	return st
}

func parseOne(ctx context.Context, st *store.Store, cfg config.FavaConfig, log *slog.Logger, path string) parseReport {
	rep := parseReport{File: path}

	src, err := os.ReadFile(path)
	if err != nil {
		rep.Error = err.Error()
		return rep
	}
	rep.Bytes = len(src)

	lang, err := languageForFile(path, parseLanguage)
	if err != nil {
		rep.Error = err.Error()
		return rep
	}
	rep.Language = lang

	p, err := newFileParser(lang, cfg.Parse.MaxSourceSize, log)
	if err != nil {
		rep.Error = err.Error()
		return rep
	}

	if st != nil {
		if tree, ok, err := st.Get(ctx, lang, src, p.Registry()); err == nil && ok {
			rep.Cached = true
			rep.Nodes, rep.HasError = countNodes(tree)
			return rep
		}
	}

	start := time.Now()
	tree, err := p.Parse(ctx, document.NewText(src), nil)
	rep.DurationMS = float64(time.Since(start).Microseconds()) / 1000.0
	if err != nil {
		rep.Error = err.Error()
		return rep
	}
	rep.Nodes, rep.HasError = countNodes(tree)

	if st != nil {
		if err := st.Put(ctx, lang, src, tree); err != nil {
			log.Warn("failed to store a snapshot",
				slog.String("file", path), slog.String("error", err.Error()))
		}
	}
	return rep
}

func printReport(rep parseReport) {
	switch {
	case rep.Error != "":
		ux.FileStatus(rep.File, ux.IconError, rep.Error)
	case rep.HasError:
		ux.FileStatus(rep.File, ux.IconWarning,
			fmt.Sprintf("%s, %d nodes, syntax errors", rep.Language, rep.Nodes))
	case rep.Cached:
		ux.FileStatus(rep.File, ux.IconSuccess,
			fmt.Sprintf("%s, %d nodes, cached", rep.Language, rep.Nodes))
	default:
		ux.FileStatus(rep.File, ux.IconSuccess,
			fmt.Sprintf("%s, %d nodes, %.1fms", rep.Language, rep.Nodes, rep.DurationMS))
	}
}
