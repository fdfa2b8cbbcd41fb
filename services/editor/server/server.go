// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package server exposes the parse bridge over HTTP.
//
// The REST surface is stateless: POST /v1/parse parses a document and
// returns its tree, with a content-addressed LRU in front so identical
// documents are parsed once. GET /v1/session upgrades to a WebSocket and
// holds a per-connection parser, so a client can stream unified-diff
// edits and get incremental reparses back.
package server

import (
	"container/list"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/ChrisRoyse/Fava-sub001/pkg/telemetry"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/highlight"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/parser"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/syntax"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/treesitter"
)

// Config controls the editor service.
type Config struct {
	// Addr is the listen address for Run.
	Addr string

	// Languages advertises the parseable languages on /v1/languages.
	Languages []string

	// MaxSourceSize is the per-document size limit in bytes.
	MaxSourceSize int

	// CacheSize bounds the number of parse results kept for /v1/parse.
	CacheSize int

	// SessionRate and SessionBurst rate-limit parse work per WebSocket
	// session. Reads are never blocked; over-limit requests get an error
	// reply.
	SessionRate  rate.Limit
	SessionBurst int

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// NewParser builds the parser for a language. Defaults to the bundled
	// tree-sitter grammars.
	NewParser func(language string) (*parser.Parser, error)
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Addr:          ":8788",
		Languages:     treesitter.Languages(),
		MaxSourceSize: parser.DefaultMaxSourceSize,
		CacheSize:     128,
		SessionRate:   rate.Limit(50),
		SessionBurst:  10,
	}
}

// Service is the HTTP face of the parse bridge.
//
// REST parses share one parser per language; incremental reuse only pays
// off within a session, so each WebSocket connection gets its own.
type Service struct {
	cfg       Config
	log       *slog.Logger
	newParser func(language string) (*parser.Parser, error)

	pmu     sync.Mutex
	parsers map[string]*parser.Parser

	flight  singleflight.Group
	results *resultCache
}

// NewService creates a Service from config.
func NewService(cfg Config) *Service {
	s := &Service{
		cfg:     cfg,
		log:     cfg.Logger,
		parsers: make(map[string]*parser.Parser),
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.cfg.MaxSourceSize <= 0 {
		s.cfg.MaxSourceSize = parser.DefaultMaxSourceSize
	}
	if s.cfg.CacheSize <= 0 {
		s.cfg.CacheSize = 128
	}
	if s.cfg.SessionBurst <= 0 {
		s.cfg.SessionBurst = 1
	}
	s.results = newResultCache(s.cfg.CacheSize)

	s.newParser = cfg.NewParser
	if s.newParser == nil {
		s.newParser = func(language string) (*parser.Parser, error) {
			return treesitter.NewParser(language,
				parser.WithTypeProps(highlight.PropsFor(language)),
				parser.WithMaxSourceSize(s.cfg.MaxSourceSize),
				parser.WithLogger(s.log),
			)
		}
	}
	return s
}

// Router builds the gin engine with all routes registered.
func (s *Service) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("favaparse"))

	router.GET("/healthz", s.handleHealthz)
	router.GET("/metrics", s.handleMetrics)

	v1 := router.Group("/v1")
	{
		v1.POST("/parse", s.handleParse)
		v1.GET("/languages", s.handleLanguages)
		v1.GET("/session", s.handleSession)
	}
	return router
}

// Run serves until the listener fails.
func (s *Service) Run() error {
	s.log.Info("starting editor service",
		slog.String("addr", s.cfg.Addr),
		slog.Any("languages", s.cfg.Languages))
	return s.Router().Run(s.cfg.Addr)
}

// parserFor returns the shared REST parser for a language, building it on
// first use.
func (s *Service) parserFor(language string) (*parser.Parser, error) {
	s.pmu.Lock()
	defer s.pmu.Unlock()
	if p, ok := s.parsers[language]; ok {
		return p, nil
	}
	p, err := s.newParser(language)
	if err != nil {
		return nil, err
	}
	s.parsers[language] = p
	return p, nil
}

// handleMetrics serves the Prometheus scrape endpoint once telemetry has
// been initialized with the prometheus exporter.
func (s *Service) handleMetrics(c *gin.Context) {
	h := telemetry.MetricsHandler()
	if h == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "metrics exporter not configured"})
		return
	}
	h.ServeHTTP(c.Writer, c.Request)
}

// resultCache is a keyed LRU of parse results. Host trees are immutable,
// so entries can be handed out without copies or reference counts.
type resultCache struct {
	mu    sync.Mutex
	max   int
	ll    *list.List
	items map[string]*list.Element

	hits   int64
	misses int64
}

type resultEntry struct {
	key  string
	tree *syntax.Tree
}

func newResultCache(max int) *resultCache {
	return &resultCache{
		max:   max,
		ll:    list.New(),
		items: make(map[string]*list.Element),
	}
}

func (c *resultCache) get(key string) (*syntax.Tree, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.ll.MoveToFront(el)
	c.hits++
	return el.Value.(*resultEntry).tree, true
}

func (c *resultCache) put(key string, tree *syntax.Tree) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		el.Value.(*resultEntry).tree = tree
		return
	}
	c.items[key] = c.ll.PushFront(&resultEntry{key: key, tree: tree})
	for c.ll.Len() > c.max {
		oldest := c.ll.Back()
		c.ll.Remove(oldest)
		delete(c.items, oldest.Value.(*resultEntry).key)
	}
}

func (c *resultCache) stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
