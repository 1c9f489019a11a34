/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package metrics exposes the dispatcher's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Resolutions counts resolved queries by the tier that produced the
	// tool-call list: cache, regex, intent, llm_fast, llm_cot, none.
	Resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devops_agent_resolutions_total",
		Help: "Queries resolved, by routing tier.",
	}, []string{"tier"})

	// CacheEvents counts semantic-cache hits, misses and inserts.
	CacheEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devops_agent_semantic_cache_events_total",
		Help: "Semantic cache events: hit, miss, insert, skip.",
	}, []string{"event"})

	// BackendCalls counts JSON-RPC dispatches by backend and outcome.
	BackendCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devops_agent_backend_calls_total",
		Help: "Backend tool calls, by backend and outcome (ok, error, transport).",
	}, []string{"backend", "outcome"})

	// BackendLatency observes call latency per backend.
	BackendLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "devops_agent_backend_call_seconds",
		Help:    "Backend call latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend"})

	// PulseStatus publishes the last health state per backend:
	// 0 disconnected, 1 degraded, 2 healthy.
	PulseStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "devops_agent_pulse_status",
		Help: "Backend health: 0 disconnected, 1 degraded, 2 healthy.",
	}, []string{"backend"})

	// LLMRequests counts LLM round-trips by stage and outcome.
	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devops_agent_llm_requests_total",
		Help: "LLM requests, by stage (fast, cot, embed) and outcome; diagnostics count as cot.",
	}, []string{"stage", "outcome"})
)
