// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collectors are registered with the default registry at init.
var (
	// Provider calls made through the resilient HTTP client, by host.
	ProviderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cerca_provider_requests_total",
		Help: "Total HTTP attempts against external providers",
	}, []string{"host"})
	ProviderRetriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cerca_provider_retries_total",
		Help: "Total retries scheduled after a transient provider failure",
	}, []string{"host"})
	ProviderFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cerca_provider_failures_total",
		Help: "Total provider calls that ended in failure, by kind",
	}, []string{"host", "kind"})
	ProviderDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cerca_provider_duration_ms",
		Help:    "Provider call duration in milliseconds, retries included",
		Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000, 10000},
	}, []string{"host"})

	// Discovery pipeline outcomes.
	SearchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cerca_searches_total",
		Help: "Total searches by final state",
	}, []string{"state"})
	SkippedRecordsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cerca_skipped_records_total",
		Help: "Total place records skipped because they could not be parsed",
	})
	EnrichmentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cerca_enrichments_total",
		Help: "Total rating lookups by outcome",
	}, []string{"outcome"})

	// Search result cache.
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cerca_cache_hits_total",
		Help: "Total search cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cerca_cache_misses_total",
		Help: "Total search cache misses",
	})
)

func init() {
	prometheus.MustRegister(ProviderRequestsTotal)
	prometheus.MustRegister(ProviderRetriesTotal)
	prometheus.MustRegister(ProviderFailuresTotal)
	prometheus.MustRegister(ProviderDurationMs)
	prometheus.MustRegister(SearchesTotal)
	prometheus.MustRegister(SkippedRecordsTotal)
	prometheus.MustRegister(EnrichmentsTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
}

// Handler exposes the registered collectors for scraping.
func Handler() http.Handler { return promhttp.Handler() }
