// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package parser

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for the parse bridge.
var (
	tracer = otel.Tracer("favaparse.editor.parser")
	meter  = otel.Meter("favaparse.editor.parser")
)

// Metrics for parse operations.
var (
	parseLatency metric.Float64Histogram
	parseTotal   metric.Int64Counter
	nodesBuilt   metric.Int64Histogram
	nodesReused  metric.Int64Histogram
	parseErrors  metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		parseLatency, err = meter.Float64Histogram(
			"editor_parse_duration_seconds",
			metric.WithDescription("Duration of parse bridge operations"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		parseTotal, err = meter.Int64Counter(
			"editor_parse_total",
			metric.WithDescription("Total number of parse requests by result mode"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		nodesBuilt, err = meter.Int64Histogram(
			"editor_parse_nodes_built",
			metric.WithDescription("Host tree nodes constructed per parse"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		nodesReused, err = meter.Int64Histogram(
			"editor_parse_nodes_reused",
			metric.WithDescription("Previous-tree subtrees reused per parse"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		parseErrors, err = meter.Int64Counter(
			"editor_parse_errors_total",
			metric.WithDescription("Total number of failed parse requests"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordParse records metrics for one parse request.
//
// Parameters:
//   - ctx: Context for metric recording
//   - language: Grammar name (e.g. "json", "go")
//   - mode: How the request was satisfied: "cached", "full", "incremental",
//     or "fallback"
//   - duration: How long the request took
//   - stats: Conversion work performed (zero for cache hits)
func recordParse(ctx context.Context, language, mode string, duration time.Duration, stats convertStats) {
	if err := initMetrics(); err != nil {
		return // Silently skip if metrics init failed
	}

	attrs := metric.WithAttributes(
		attribute.String("language", language),
		attribute.String("mode", mode),
	)
	parseLatency.Record(ctx, duration.Seconds(), attrs)
	parseTotal.Add(ctx, 1, attrs)

	if mode != "cached" {
		langAttr := metric.WithAttributes(attribute.String("language", language))
		nodesBuilt.Record(ctx, int64(stats.built), langAttr)
		nodesReused.Record(ctx, int64(stats.reused), langAttr)
	}
}

// recordParseError counts a failed parse request.
func recordParseError(ctx context.Context, language, stage string) {
	if err := initMetrics(); err != nil {
		return
	}
	parseErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("language", language),
		attribute.String("stage", stage),
	))
}

// startParseSpan creates a span for a parse request.
func startParseSpan(ctx context.Context, language string, docLen, fragments int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Parser.Parse",
		trace.WithAttributes(
			attribute.String("editor.language", language),
			attribute.Int("editor.doc_len", docLen),
			attribute.Int("editor.fragments", fragments),
		),
	)
}

// setParseSpanResult sets the result attributes on a parse span.
func setParseSpanResult(span trace.Span, mode string, stats convertStats) {
	span.SetAttributes(
		attribute.String("editor.mode", mode),
		attribute.Int("editor.nodes_built", stats.built),
		attribute.Int("editor.nodes_reused", stats.reused),
	)
}
