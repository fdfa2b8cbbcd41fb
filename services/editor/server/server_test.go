// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// Tests for the REST parse endpoints

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisRoyse/Fava-sub001/pkg/telemetry"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/engine/enginetest"
	"github.com/ChrisRoyse/Fava-sub001/services/editor/parser"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// engineTracker builds enginetest parsers and remembers every engine it
// handed out, so tests can inspect parse counters after the fact.
type engineTracker struct {
	mu      sync.Mutex
	engines []*enginetest.Engine
	opts    []parser.Option
}

func (tr *engineTracker) factory(language string) (*parser.Parser, error) {
	if language != "faketok" {
		return nil, &parser.ConfigurationError{Grammar: language, Reason: "no such language"}
	}
	g := enginetest.StandardGrammar()
	eng := enginetest.New(g)
	tr.mu.Lock()
	tr.engines = append(tr.engines, eng)
	tr.mu.Unlock()
	return parser.New(g, eng, "document", tr.opts...)
}

func (tr *engineTracker) last(t *testing.T) *enginetest.Engine {
	t.Helper()
	tr.mu.Lock()
	defer tr.mu.Unlock()
	require.NotEmpty(t, tr.engines, "no parser was ever constructed")
	return tr.engines[len(tr.engines)-1]
}

func newTestService(mutate func(*Config)) (*Service, *engineTracker) {
	tr := &engineTracker{}
	cfg := DefaultConfig()
	cfg.Languages = []string{"faketok"}
	cfg.NewParser = tr.factory
	if mutate != nil {
		mutate(&cfg)
	}
	return NewService(cfg), tr
}

func postParse(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req, err := http.NewRequest("POST", "/v1/parse", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

// =============================================================================
// Healthz / Languages Tests
// =============================================================================

func TestHealthz_ReturnsOK(t *testing.T) {
	s, _ := newTestService(nil)
	router := s.Router()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/healthz", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, "ok", response["status"])
}

func TestLanguages_ListsConfigured(t *testing.T) {
	s, _ := newTestService(nil)
	router := s.Router()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/languages", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string][]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Equal(t, []string{"faketok"}, response["languages"])
}

// =============================================================================
// Parse Handler Tests
// =============================================================================

func TestParse_ReturnsTree(t *testing.T) {
	s, _ := newTestService(nil)
	router := s.Router()

	w := postParse(t, router, `{"language":"faketok","content":"ab cd\n","tree":true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp parseResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "faketok", resp.Language)
	assert.Equal(t, 6, resp.Bytes)
	assert.Equal(t, 6, resp.Nodes, "document, line, and four tokens")
	assert.False(t, resp.HasError)

	require.NotNil(t, resp.Root)
	assert.Equal(t, "document", resp.Root.Type)
	assert.Equal(t, 0, resp.Root.From)
	assert.Equal(t, 6, resp.Root.To)
	require.Len(t, resp.Root.Children, 1)
	assert.Equal(t, "line", resp.Root.Children[0].Type)
}

func TestParse_OmitsTreeByDefault(t *testing.T) {
	s, _ := newTestService(nil)
	router := s.Router()

	w := postParse(t, router, `{"language":"faketok","content":"ab cd\n"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp parseResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Nil(t, resp.Root)
	assert.Equal(t, 6, resp.Nodes)
}

func TestParse_CacheDeduplicates(t *testing.T) {
	s, tr := newTestService(nil)
	router := s.Router()

	body := `{"language":"faketok","content":"ab cd\nef gh\n"}`
	first := postParse(t, router, body)
	require.Equal(t, http.StatusOK, first.Code)

	second := postParse(t, router, body)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())

	eng := tr.last(t)
	assert.Equal(t, 1, eng.ParseCalls(), "second request must be served from the result cache")

	hits, misses := s.results.stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestParse_UnknownLanguage(t *testing.T) {
	s, _ := newTestService(nil)
	router := s.Router()

	w := postParse(t, router, `{"language":"klingon","content":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no such language")
}

func TestParse_InvalidBody(t *testing.T) {
	s, _ := newTestService(nil)
	router := s.Router()

	w := postParse(t, router, `{`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestParse_MissingLanguage(t *testing.T) {
	s, _ := newTestService(nil)
	router := s.Router()

	w := postParse(t, router, `{"content":"ab cd\n"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "language is required")
}

func TestParse_SourceTooLarge(t *testing.T) {
	s, _ := newTestService(func(cfg *Config) {
		cfg.MaxSourceSize = 8
	})
	router := s.Router()

	w := postParse(t, router, `{"language":"faketok","content":"ab cd ef gh\n"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

// =============================================================================
// Metrics Endpoint Tests
// =============================================================================

func TestMetrics_RequiresPrometheusExporter(t *testing.T) {
	s, _ := newTestService(nil)
	router := s.Router()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/metrics", nil)
	router.ServeHTTP(w, req)

	if w.Code == http.StatusOK {
		// Another test in this binary already installed the exporter.
		assert.Contains(t, w.Body.String(), "go_goroutines")
		return
	}
	assert.Equal(t, http.StatusNotFound, w.Code)

	shutdown, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName:    "favaparse-test",
		ServiceVersion: "0.0.0",
		Environment:    "test",
		TraceExporter:  "none",
		MetricExporter: "prometheus",
	})
	require.NoError(t, err)
	defer shutdown(context.Background())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

// =============================================================================
// Result Cache Tests
// =============================================================================

func TestResultCache_EvictsOldest(t *testing.T) {
	c := newResultCache(2)
	c.put("a", nil)
	c.put("b", nil)
	c.put("c", nil)

	_, ok := c.get("a")
	assert.False(t, ok, "oldest entry should have been evicted")
	_, ok = c.get("b")
	assert.True(t, ok)
	_, ok = c.get("c")
	assert.True(t, ok)
}

func TestResultCache_GetRefreshesRecency(t *testing.T) {
	c := newResultCache(2)
	c.put("a", nil)
	c.put("b", nil)

	_, ok := c.get("a")
	require.True(t, ok)

	c.put("c", nil)

	_, ok = c.get("a")
	assert.True(t, ok, "recently used entry must survive eviction")
	_, ok = c.get("b")
	assert.False(t, ok)
}
