// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store persists parsed tree snapshots in BadgerDB.
//
// The store is a content-addressed cache: snapshots are keyed by language
// and a hash of the exact source bytes, so a lookup hits only when the
// content is byte-identical to what was parsed. Batch tooling uses this
// to skip reparsing files that did not change between runs.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/ChrisRoyse/Fava-sub001/services/editor/syntax"
)

// Config holds the snapshot database settings.
type Config struct {
	// Path is the directory for database files.
	// Required unless InMemory is true.
	Path string

	// InMemory keeps the store off disk. Useful for testing.
	InMemory bool

	// SyncWrites makes every write durable before returning.
	SyncWrites bool

	// Logger receives store diagnostics. BadgerDB's internal logging is
	// disabled when nil.
	Logger *slog.Logger
}

// DefaultConfig returns the production configuration for a store at path.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns a configuration for testing.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// Store is a content-addressed snapshot cache over BadgerDB. Safe for
// concurrent use.
type Store struct {
	db  *badger.DB
	log *slog.Logger
}

// Open opens the snapshot database described by cfg. The caller must
// Close the returned store.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("store: path is required for a persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("store: create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Store{db: db, log: log}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get looks up the snapshot for content in language and rebuilds its tree
// through types. A missing, stale, or undecodable snapshot is a cache
// miss, not an error; the caller reparses and overwrites it with Put.
func (s *Store) Get(ctx context.Context, language string, content []byte, types TypeResolver) (*syntax.Tree, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	key := snapshotKey(language, content)
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("store: reading snapshot: %w", err)
	}
	if raw == nil {
		return nil, false, nil
	}

	tree, err := decodeSnapshot(raw, len(content), types)
	if err != nil {
		s.log.Warn("discarding unusable tree snapshot",
			slog.String("language", language),
			slog.Any("error", err))
		return nil, false, nil
	}
	return tree, true, nil
}

// Put stores the parse result for content in language, replacing any
// previous snapshot for the same bytes.
func (s *Store) Put(ctx context.Context, language string, content []byte, tree *syntax.Tree) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tree == nil {
		return errors.New("store: nil tree")
	}

	data, err := encodeSnapshot(tree)
	if err != nil {
		return err
	}
	key := snapshotKey(language, content)
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	}); err != nil {
		return fmt.Errorf("store: writing snapshot: %w", err)
	}

	s.log.Debug("tree snapshot stored",
		slog.String("language", language),
		slog.Int("source_bytes", len(content)),
		slog.Int("snapshot_bytes", len(data)))
	return nil
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
