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
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/ChrisRoyse/Fava-sub001/services/editor/document"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/highlight"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/parser"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/patch"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/syntax"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
}

type sessionRequest struct {
	Action   string `json:"action"`
	Language string `json:"language,omitempty"`
	Content  string `json:"content,omitempty"`
	Patch    string `json:"patch,omitempty"`
	Spans    bool   `json:"spans,omitempty"`
}

type sessionReply struct {
	Action    string     `json:"action"`
	SessionID string     `json:"sessionId,omitempty"`
	Language  string     `json:"language,omitempty"`
	Bytes     int        `json:"bytes"`
	Nodes     int        `json:"nodes,omitempty"`
	HasError  bool       `json:"has_error,omitempty"`
	Spans     []spanJSON `json:"spans,omitempty"`
	Error     string     `json:"error,omitempty"`
}

func sendJSON(ws *websocket.Conn, v interface{}) error {
	err := ws.WriteJSON(v)
	if err != nil {
		slog.Warn("failed to write websocket JSON", "error", err)
	}
	return err
}

// handleSession runs one incremental editing session.
//
// The client opens a document ("open": language plus full content), then
// streams unified diffs ("edit"). Each edit is applied to the held text
// and reparsed incrementally; the reply summarizes the new tree. Errors
// on a single message never tear down the session.
func (s *Service) handleSession(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Error("failed to upgrade the websocket", slog.Any("error", err))
		return
	}
	defer ws.Close()
	ws.SetReadLimit(int64(s.cfg.MaxSourceSize) + 64*1024)

	sessionID := uuid.New().String()
	log := s.log.With(slog.String("session_id", sessionID))
	log.Info("editing session connected")

	if err := sendJSON(ws, sessionReply{
		Action:    "session_created",
		SessionID: sessionID,
	}); err != nil {
		return
	}

	lim := rate.NewLimiter(s.cfg.SessionRate, s.cfg.SessionBurst)

	// Per-session parser state. The parser reuses subtrees against its own
	// previous parse, so the session cannot share the REST parsers.
	var (
		p         *parser.Parser
		text      *document.Text
		language  string
		wantSpans bool
	)
	ctx := c.Request.Context()

	for {
		var req sessionRequest
		if err := ws.ReadJSON(&req); err != nil {
			log.Info("editing session disconnected", slog.String("reason", err.Error()))
			break
		}

		if !lim.Allow() {
			if sendJSON(ws, sessionReply{Action: "error", Error: "rate limit exceeded"}) != nil {
				return
			}
			continue
		}

		switch req.Action {
		case "open":
			np, err := s.newParser(req.Language)
			if err != nil {
				if sendJSON(ws, sessionReply{Action: "error", Error: err.Error()}) != nil {
					return
				}
				continue
			}
			nt := document.NewTextString(req.Content)
			tree, err := np.Parse(ctx, nt, nil)
			if err != nil {
				if sendJSON(ws, sessionReply{Action: "error", Error: err.Error()}) != nil {
					return
				}
				continue
			}
			p, text, language, wantSpans = np, nt, req.Language, req.Spans
			log.Info("document opened",
				slog.String("language", language),
				slog.Int("bytes", text.Len()))
			if sendJSON(ws, treeReply(language, tree, wantSpans)) != nil {
				return
			}

		case "edit":
			if p == nil {
				if sendJSON(ws, sessionReply{Action: "error", Error: "no document open"}) != nil {
					return
				}
				continue
			}
			nt, frags, err := patch.ApplyUnified(text, []byte(req.Patch))
			if err != nil {
				if sendJSON(ws, sessionReply{Action: "error", Error: err.Error()}) != nil {
					return
				}
				continue
			}
			tree, err := p.Parse(ctx, nt, frags)
			if err != nil {
				if sendJSON(ws, sessionReply{Action: "error", Error: err.Error()}) != nil {
					return
				}
				continue
			}
			text = nt
			if sendJSON(ws, treeReply(language, tree, wantSpans)) != nil {
				return
			}

		default:
			if sendJSON(ws, sessionReply{Action: "error", Error: "unknown action: " + req.Action}) != nil {
				return
			}
		}
	}
}

func treeReply(language string, tree *syntax.Tree, withSpans bool) sessionReply {
	nodes, hasErr := treeStats(tree)
	r := sessionReply{
		Action:   "tree",
		Language: language,
		Bytes:    tree.Len(),
		Nodes:    nodes,
		HasError: hasErr,
	}
	if withSpans {
		r.Spans = spansJSON(highlight.Spans(tree))
	}
	return r
}
