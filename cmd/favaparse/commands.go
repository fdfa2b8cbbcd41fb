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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ChrisRoyse/Fava-sub001/cmd/favaparse/config"
	"github.com/ChrisRoyse/Fava-sub001/pkg/ux"
)

// --- Global Command Variables ---
var (
	cfgPath     string
	plainOutput bool

	parseJSON     bool
	parseStats    bool
	parseLanguage string
	parseWorkers  int
	parseNoCache  bool

	highlightLanguage string
	highlightFolds    bool

	watchLanguage string
	watchTUI      bool

	serveAddr  string
	serveDebug bool

	initForce bool

	rootCmd = &cobra.Command{
		Use:   "favaparse",
		Short: "An incremental parse bridge for editor tooling",
		Long: `Favaparse drives tree-sitter grammars through an incremental
				parse bridge: it parses files, re-parses edits against the
				previous tree, and serves both over REST and WebSocket.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if plainOutput {
				ux.SetPlain(true)
			} else {
				ux.Init()
			}
			if cfgPath != "" {
				config.SetPath(cfgPath)
			}
		},
	}

	// --- Parsing ---
	parseCmd = &cobra.Command{
		Use:   "parse [file...]",
		Short: "Parse files and report tree statistics",
		Args:  cobra.MinimumNArgs(1),
		Run:   runParse, // Defined in cmd_parse.go
	}

	highlightCmd = &cobra.Command{
		Use:   "highlight [file]",
		Short: "Parse a file and print it with syntax highlighting",
		Args:  cobra.ExactArgs(1),
		Run:   runHighlight, // Defined in cmd_highlight.go
	}

	watchCmd = &cobra.Command{
		Use:   "watch [file]",
		Short: "Watch a file and re-parse incrementally on every change",
		Args:  cobra.ExactArgs(1),
		Run:   runWatch, // Defined in cmd_watch.go
	}

	// --- Service ---
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the parse bridge as an HTTP and WebSocket service",
		Run:   runServe, // Defined in cmd_serve.go
	}

	// --- Setup ---
	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Interactively create the favaparse config file",
		Run:   runInit, // Defined in cmd_init.go
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the favaparse version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("favaparse %s (commit %s, built %s)\n", version, commit, date)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "",
		"Path to the config file (default ~/.favaparse/favaparse.yaml)")
	rootCmd.PersistentFlags().BoolVar(&plainOutput, "plain", false,
		"Disable styled output (automatic when stdout is not a terminal)")

	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "Emit machine-readable JSON reports")
	parseCmd.Flags().BoolVar(&parseStats, "stats", false, "Print a summary line after parsing")
	parseCmd.Flags().StringVarP(&parseLanguage, "language", "l", "",
		"Force a language instead of detecting it from the file extension")
	parseCmd.Flags().IntVar(&parseWorkers, "workers", 0,
		"Number of parallel parse workers (0 uses the config, then NumCPU)")
	parseCmd.Flags().BoolVar(&parseNoCache, "no-cache", false, "Skip the parse snapshot cache")

	rootCmd.AddCommand(highlightCmd)
	highlightCmd.Flags().StringVarP(&highlightLanguage, "language", "l", "",
		"Force a language instead of detecting it from the file extension")
	highlightCmd.Flags().BoolVar(&highlightFolds, "folds", false,
		"Print foldable ranges instead of highlighted source")

	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVarP(&watchLanguage, "language", "l", "",
		"Force a language instead of detecting it from the file extension")
	watchCmd.Flags().BoolVar(&watchTUI, "tui", false, "Show a live terminal dashboard")

	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides the config)")
	serveCmd.Flags().BoolVar(&serveDebug, "debug", false, "Run gin in debug mode with verbose logs")

	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")

	rootCmd.AddCommand(versionCmd)
}
