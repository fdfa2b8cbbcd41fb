// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package server

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ChrisRoyse/Fava-sub001/services/editor/document"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/highlight"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/parser"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/syntax"
)

var tracer = otel.Tracer("favaparse.editor.server")

type parseRequest struct {
	Language string `json:"language"`
	Content  string `json:"content"`
	Tree     bool   `json:"tree,omitempty"`
	Spans    bool   `json:"spans,omitempty"`
}

type parseResponse struct {
	Language string     `json:"language"`
	Bytes    int        `json:"bytes"`
	Nodes    int        `json:"nodes"`
	HasError bool       `json:"has_error"`
	Root     *nodeJSON  `json:"root,omitempty"`
	Spans    []spanJSON `json:"spans,omitempty"`
}

type nodeJSON struct {
	Type     string     `json:"type"`
	From     int        `json:"from"`
	To       int        `json:"to"`
	Children []nodeJSON `json:"children,omitempty"`
}

type spanJSON struct {
	From int    `json:"from"`
	To   int    `json:"to"`
	Tok  string `json:"tok"`
}

// handleHealthz reports liveness.
func (s *Service) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleLanguages lists the parseable languages.
func (s *Service) handleLanguages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"languages": s.cfg.Languages})
}

// handleParse parses a whole document and returns its tree summary.
// Identical content parses once: results are cached by content hash and
// concurrent requests for the same document share a single parse.
func (s *Service) handleParse(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "HandleParse")
	defer span.End()

	var req parseRequest
	if err := c.BindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Language == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "language is required"})
		return
	}
	if len(req.Content) > s.cfg.MaxSourceSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("content is %d bytes (max %d)", len(req.Content), s.cfg.MaxSourceSize),
		})
		return
	}
	span.SetAttributes(
		attribute.String("editor.language", req.Language),
		attribute.Int("editor.bytes", len(req.Content)),
	)

	p, err := s.parserFor(req.Language)
	if err != nil {
		span.RecordError(err)
		var cfgErr *parser.ConfigurationError
		if errors.As(err, &cfgErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	key := fmt.Sprintf("%s:%x", req.Language, sha256.Sum256([]byte(req.Content)))

	if tree, ok := s.results.get(key); ok {
		s.log.Debug("parse served from result cache",
			slog.String("language", req.Language),
			slog.Int("bytes", len(req.Content)))
		c.JSON(http.StatusOK, buildParseResponse(req, tree))
		return
	}

	v, err, _ := s.flight.Do(key, func() (interface{}, error) {
		text := document.NewTextString(req.Content)
		tree, err := p.Parse(ctx, text, nil)
		if err != nil {
			return nil, err
		}
		s.results.put(key, tree)
		return tree, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.Error("parse request failed",
			slog.String("language", req.Language),
			slog.Any("error", err))
		c.JSON(parseErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, buildParseResponse(req, v.(*syntax.Tree)))
}

// parseErrorStatus maps bridge errors to HTTP statuses.
func parseErrorStatus(err error) int {
	if errors.Is(err, parser.ErrSourceTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	var rangeErr *parser.RangeError
	if errors.As(err, &rangeErr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func buildParseResponse(req parseRequest, tree *syntax.Tree) parseResponse {
	nodes, hasErr := treeStats(tree)
	resp := parseResponse{
		Language: req.Language,
		Bytes:    tree.Len(),
		Nodes:    nodes,
		HasError: hasErr,
	}
	if req.Tree {
		resp.Root = nodeTree(tree, 0)
	}
	if req.Spans {
		resp.Spans = spansJSON(highlight.Spans(tree))
	}
	return resp
}

// treeStats counts nodes and checks for engine error nodes in one walk.
func treeStats(tree *syntax.Tree) (nodes int, hasErr bool) {
	tree.Walk(func(n *syntax.Tree, _ int) bool {
		nodes++
		if n.Type().IsError() {
			hasErr = true
		}
		return true
	})
	return nodes, hasErr
}

func nodeTree(t *syntax.Tree, from int) *nodeJSON {
	n := &nodeJSON{Type: t.Type().Name(), From: from, To: from + t.Len()}
	for i := 0; i < t.NumChildren(); i++ {
		child, pos := t.Child(i)
		n.Children = append(n.Children, *nodeTree(child, from+pos))
	}
	return n
}

func spansJSON(spans []highlight.Span) []spanJSON {
	out := make([]spanJSON, len(spans))
	for i, sp := range spans {
		out[i] = spanJSON{From: sp.From, To: sp.To, Tok: sp.Tok}
	}
	return out
}
