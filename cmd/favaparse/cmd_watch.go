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
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ChrisRoyse/Fava-sub001/cmd/favaparse/config"
	"github.com/ChrisRoyse/Fava-sub001/pkg/ux"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/document"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/parser"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/syntax"
)

// watchDebounce coalesces editor write bursts (save + rename + chmod)
// into one reparse.
const watchDebounce = 100 * time.Millisecond

// watchUpdate reports one reparse of the watched file. It doubles as a
// bubbletea message for the --tui dashboard.
type watchUpdate struct {
	Seq      int
	Bytes    int
	Nodes    int
	HasError bool
	Duration time.Duration
	At       time.Time
	Err      error
}

// watchSession holds the parser state between reparses so each change is
// parsed against the previous tree.
type watchSession struct {
	path     string
	language string
	parser   *parser.Parser
	text     *document.Text
	log      *slog.Logger
	seq      int
}

func runWatch(cmd *cobra.Command, args []string) {
	if err := config.Load(); err != nil {
		log.Fatalf("Failed to load the config: %v", err)
	}
	cfg := config.Global

	logger := newCommandLogger(cfg, "watch")
	defer logger.Close()

	path := args[0]
	session, first, err := newWatchSession(cmd.Context(), cfg, logger.Slog(), path)
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if watchTUI {
		if err := runWatchTUI(ctx, session, first); err != nil {
			log.Fatalf("Watch dashboard failed: %v", err)
		}
		return
	}

	ux.Title(fmt.Sprintf("watching %s (%s)", path, session.language))
	printWatchUpdate(path, first)
	err = session.run(ctx, func(up watchUpdate) {
		printWatchUpdate(path, up)
	})
	if err != nil && ctx.Err() == nil {
		log.Fatalf("Watch failed: %v", err)
	}
	ux.Muted("stopped")
}

// newWatchSession reads the file and runs the initial full parse.
func newWatchSession(ctx context.Context, cfg config.FavaConfig, log *slog.Logger, path string) (*watchSession, watchUpdate, error) {
	lang, err := languageForFile(path, watchLanguage)
	if err != nil {
		return nil, watchUpdate{}, err
	}

	slogger := log.With(
		slog.String("watch_id", uuid.New().String()),
		slog.String("file", path),
	)

	p, err := newFileParser(lang, cfg.Parse.MaxSourceSize, slogger)
	if err != nil {
		return nil, watchUpdate{}, fmt.Errorf("failed to load the %s grammar: %w", lang, err)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, watchUpdate{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	session := &watchSession{
		path:     path,
		language: lang,
		parser:   p,
		log:      slogger,
	}

	text := document.NewText(src)
	start := time.Now()
	tree, err := p.Parse(ctx, text, nil)
	if err != nil {
		return nil, watchUpdate{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	session.text = text
	session.seq = 1

	up := watchUpdate{Seq: 1, Bytes: text.Len(), Duration: time.Since(start), At: time.Now()}
	up.Nodes, up.HasError = countNodes(tree)
	return session, up, nil
}

// reparse re-reads the file and parses it against the previous tree,
// handing the engine the byte ranges both revisions share.
func (w *watchSession) reparse(ctx context.Context) watchUpdate {
	w.seq++
	up := watchUpdate{Seq: w.seq, At: time.Now()}

	src, err := os.ReadFile(w.path)
	if err != nil {
		up.Err = err
		return up
	}
	next := document.NewText(src)
	fragments := syntax.CommonFragments(w.text.Bytes(), next.Bytes())

	start := time.Now()
	tree, err := w.parser.Parse(ctx, next, fragments)
	up.Duration = time.Since(start)
	if err != nil {
		// Keep the old text so the next change diffs against a revision
		// the parser actually saw.
		up.Err = err
		return up
	}
	w.text = next
	up.Bytes = next.Len()
	up.Nodes, up.HasError = countNodes(tree)

	w.log.Info("reparsed",
		slog.Int("seq", up.Seq),
		slog.Int("bytes", up.Bytes),
		slog.Int("nodes", up.Nodes),
		slog.Duration("duration", up.Duration),
	)
	return up
}

// run watches the file's directory and emits a debounced update per
// change burst. It returns when ctx is cancelled.
func (w *watchSession) run(ctx context.Context, emit func(watchUpdate)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create the file watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors that write via rename
	// replace the inode and a direct watch silently dies.
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}

	target := filepath.Clean(w.path)
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(watchDebounce)
			}

		case <-timerC:
			emit(w.reparse(ctx))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}

func printWatchUpdate(path string, up watchUpdate) {
	if up.Err != nil {
		ux.FileStatus(path, ux.IconError, up.Err.Error())
		return
	}
	icon := ux.IconSuccess
	detail := fmt.Sprintf("#%d, %d nodes, %.1fms", up.Seq, up.Nodes,
		float64(up.Duration.Microseconds())/1000.0)
	if up.HasError {
		icon = ux.IconWarning
		detail += ", syntax errors"
	}
	ux.FileStatus(path, icon, detail)
}
