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
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/ChrisRoyse/Fava-sub001/cmd/favaparse/config"
	"github.com/ChrisRoyse/Fava-sub001/pkg/logging"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/highlight"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/parser"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/syntax"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/treesitter"
)

// languageForFile resolves the grammar for a file, preferring an explicit
// override from --language.
func languageForFile(path, override string) (string, error) {
	if override != "" {
		if _, ok := treesitter.Lookup(override); !ok {
			return "", fmt.Errorf("unknown language %q (available: %s)",
				override, strings.Join(treesitter.Languages(), ", "))
		}
		return override, nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return "go", nil
	case ".json":
		return "json", nil
	}
	return "", fmt.Errorf("cannot detect a language for %s; pass --language (available: %s)",
		path, strings.Join(treesitter.Languages(), ", "))
}

// newFileParser builds a parser for one file with highlighting props and
// the configured size limit applied.
func newFileParser(language string, maxSourceSize int, log *slog.Logger) (*parser.Parser, error) {
	opts := []parser.Option{
		parser.WithTypeProps(highlight.PropsFor(language)),
	}
	if maxSourceSize > 0 {
		opts = append(opts, parser.WithMaxSourceSize(maxSourceSize))
	}
	if log != nil {
		opts = append(opts, parser.WithLogger(log))
	}
	return treesitter.NewParser(language, opts...)
}

// countNodes walks a tree counting nodes and looking for error nodes.
func countNodes(tree *syntax.Tree) (nodes int, hasErr bool) {
	tree.Walk(func(n *syntax.Tree, _ int) bool {
		nodes++
		if n.Type().IsError() {
			hasErr = true
		}
		return true
	})
	return nodes, hasErr
}

// newCommandLogger builds a logger for a CLI command. Stderr is kept
// quiet so log lines never interleave with command output; set the
// logging.dir config key to capture them in a file instead.
func newCommandLogger(cfg config.FavaConfig, service string) *logging.Logger {
	return logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.Logging.Level),
		LogDir:  cfg.Logging.Dir,
		Service: service,
		JSON:    cfg.Logging.JSON,
		Quiet:   true,
	})
}
