// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Package-level meter for store operations.
var meter = otel.Meter("reactor.store")

// Metrics for store operations.
var (
	getsTotal       metric.Int64Counter
	setsTotal       metric.Int64Counter
	recomputesTotal metric.Int64Counter
	flushLatency    metric.Float64Histogram
	dirtyPerFlush   metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		getsTotal, err = meter.Int64Counter(
			"store_gets_total",
			metric.WithDescription("Total get calls"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		setsTotal, err = meter.Int64Counter(
			"store_sets_total",
			metric.WithDescription("Total committed value replacements"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		recomputesTotal, err = meter.Int64Counter(
			"store_recomputes_total",
			metric.WithDescription("Total computed-atom evaluations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		flushLatency, err = meter.Float64Histogram(
			"store_flush_duration_seconds",
			metric.WithDescription("Duration of batch flush (capture + notification)"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		dirtyPerFlush, err = meter.Int64Histogram(
			"store_dirty_atoms_per_flush",
			metric.WithDescription("Atoms invalidated per flushed batch"),
		)
		if err != nil {
			metricsErr = err
		}
	})
	return metricsErr
}

func recordGet(ctx context.Context) {
	if initMetrics() != nil {
		return
	}
	getsTotal.Add(ctx, 1)
}

func recordSet(ctx context.Context) {
	if initMetrics() != nil {
		return
	}
	setsTotal.Add(ctx, 1)
}

func recordRecompute(ctx context.Context) {
	if initMetrics() != nil {
		return
	}
	recomputesTotal.Add(ctx, 1)
}

func recordFlush(ctx context.Context, d time.Duration, dirty int) {
	if initMetrics() != nil {
		return
	}
	flushLatency.Record(ctx, d.Seconds())
	dirtyPerFlush.Record(ctx, int64(dirty))
}
