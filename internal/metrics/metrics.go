// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package metrics holds the bot's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// Autoresponse metrics
	MessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_messages_processed_total",
			Help: "Messages seen by the autoresponse processor",
		},
		[]string{"result"}, // "ran", "unseen_guild", "immune", "disabled", "error"
	)

	AutoresponseActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_autoresponse_actions_total",
			Help: "Autoresponse actions by verb and outcome",
		},
		[]string{"verb", "outcome"},
	)

	PermissionDenied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_permission_denied_total",
			Help: "Swallowed permission failures from autoresponse actions",
		},
		[]string{"verb"},
	)

	ScriptDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sentinel_script_duration_seconds",
			Help:    "Time spent running one guild's autoresponse functions for a message",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	// Tag metrics
	TagLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_tag_lookups_total",
			Help: "Tag lookups",
		},
		[]string{"result"}, // "hit", "alias", "miss"
	)

	// Infrastructure metrics
	StoreLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinel_store_latency_seconds",
			Help:    "Store operation latency",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5},
		},
		[]string{"backend", "op"},
	)

	CacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_cache_results_total",
			Help: "Cache lookups by backend and result",
		},
		[]string{"backend", "result"}, // result: "hit", "miss"
	)
)
