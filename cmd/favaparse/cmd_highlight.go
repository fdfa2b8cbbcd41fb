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
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/ChrisRoyse/Fava-sub001/cmd/favaparse/config"
	"github.com/ChrisRoyse/Fava-sub001/pkg/ux"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/document"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/highlight"
)

func runHighlight(cmd *cobra.Command, args []string) {
	if err := config.Load(); err != nil {
		log.Fatalf("Failed to load the config: %v", err)
	}
	cfg := config.Global

	logger := newCommandLogger(cfg, "cli")
	defer logger.Close()

	path := args[0]
	src, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", path, err)
	}

	lang, err := languageForFile(path, highlightLanguage)
	if err != nil {
		log.Fatalf("%v", err)
	}

	p, err := newFileParser(lang, cfg.Parse.MaxSourceSize, logger.Slog())
	if err != nil {
		log.Fatalf("Failed to load the %s grammar: %v", lang, err)
	}

	text := document.NewText(src)
	tree, err := p.Parse(cmd.Context(), text, nil)
	if err != nil {
		log.Fatalf("Failed to parse %s: %v", path, err)
	}

	if highlightFolds {
		folds := highlight.Foldables(tree)
		if len(folds) == 0 {
			ux.Muted("no foldable ranges")
			return
		}
		for _, fold := range folds {
			row, col := text.PointAt(fold.From)
			endRow, endCol := text.PointAt(fold.To)
			fmt.Printf("%d:%d-%d:%d\t[%d, %d)\n", row+1, col+1, endRow+1, endCol+1, fold.From, fold.To)
		}
		return
	}

	spans := highlight.Spans(tree)
	renderer := highlight.NewRenderer(!ux.Plain())
	fmt.Print(renderer.Render(src, spans))
}
