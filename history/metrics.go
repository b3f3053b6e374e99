// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package history

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	capturesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reactor_history_captures_total",
		Help: "Total history entries captured, by snapshot kind",
	}, []string{"kind"})

	evictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reactor_history_evictions_total",
		Help: "Total entries evicted from the head of the timeline",
	})

	collapsesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reactor_history_collapses_total",
		Help: "Total delta entries collapsed into fulls during eviction",
	})

	navigationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reactor_history_navigations_total",
		Help: "Total timeline navigations, by operation and outcome",
	}, []string{"op", "outcome"})

	captureDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reactor_history_capture_duration_seconds",
		Help:    "Duration of history captures including diff and eviction",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	})

	entriesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reactor_history_entries",
		Help: "Current number of retained history entries",
	})
)
