// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package snapshot

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Package-level meter for snapshot operations.
var meter = otel.Meter("reactor.snapshot")

// Metrics for reconstruction and caching.
var (
	reconstructLatency metric.Float64Histogram
	reconstructDepth   metric.Int64Histogram
	cacheHitsTotal     metric.Int64Counter
	cacheMissesTotal   metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		reconstructLatency, err = meter.Float64Histogram(
			"snapshot_reconstruct_duration_seconds",
			metric.WithDescription("Duration of chain reconstruction"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		reconstructDepth, err = meter.Int64Histogram(
			"snapshot_reconstruct_replay_depth",
			metric.WithDescription("Number of deltas replayed per reconstruction"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		cacheHitsTotal, err = meter.Int64Counter(
			"snapshot_cache_hits_total",
			metric.WithDescription("Reconstruction cache hits"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		cacheMissesTotal, err = meter.Int64Counter(
			"snapshot_cache_misses_total",
			metric.WithDescription("Reconstruction cache misses"),
		)
		if err != nil {
			metricsErr = err
		}
	})
	return metricsErr
}

// recordReconstruct records one reconstruction.
func recordReconstruct(ctx context.Context, d time.Duration, depth int) {
	if initMetrics() != nil {
		return
	}
	reconstructLatency.Record(ctx, d.Seconds())
	reconstructDepth.Record(ctx, int64(depth))
}

// recordCacheAccess records a cache hit or miss.
func recordCacheAccess(ctx context.Context, hit bool) {
	if initMetrics() != nil {
		return
	}
	if hit {
		cacheHitsTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("hit", true)))
	} else {
		cacheMissesTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("hit", false)))
	}
}
