/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package orchestrator

import (
	"sort"
	"strings"

	"github.com/NayanEupho/Agentic-DevOps/internal/pulse"
	"github.com/NayanEupho/Agentic-DevOps/internal/registry"
)

// Keyword sets per backend. A query hitting a set pulls that backend into
// the candidate list before any tool selection happens, which keeps the
// LLM's context small.
var backendKeywords = map[string][]string{
	registry.BackendDocker: {
		"docker", "container", "image", "volume", "network", "compose",
	},
	registry.BackendK8sLocal: {
		"local", "minikube", "kind", "desktop", "localhost",
	},
	registry.BackendK8sRemote: {
		"remote", "cluster", "aws", "gcp", "azure", "cloud", "production", "staging",
	},
	registry.BackendChat: {
		"hi", "hello", "hey", "help", "who are you", "what is this",
		"thanks", "thank you", "bye", "test", "explain", "why",
	},
}

// k8sCommonTerms could mean either cluster; without an explicit scope word
// both are included.
var k8sCommonTerms = []string{
	"pod", "node", "deployment", "service", "namespace", "replicaset",
	"configmap", "secret", "ingress", "pvc", "pv", "log", "logs", "describe",
	"ip", "port", "status", "phase", "label", "selector", "filter",
	"promote", "trace", "diff", "utilization", "compare",
}

// anaphorIndicators mark follow-ups that lean on the previous turn.
var anaphorIndicators = map[string]bool{
	"it": true, "that": true, "this": true, "them": true, "those": true,
	"here": true, "there": true, "details": true, "more": true,
	"describe": true, "the": true,
}

// HealthReader is the slice of the pulse monitor the router needs.
type HealthReader interface {
	Get(backendID string) pulse.Snapshot
}

// SmartRoute picks the candidate backend subset for a query.
// lastBackend is the session's sticky backend, included on anaphoric
// follow-ups. A disconnected remote cluster is dropped unless the query
// names it.
func SmartRoute(query, lastBackend string, health HealthReader) []string {
	q := strings.ToLower(query)
	words := strings.Fields(q)
	selected := map[string]bool{}

	// Sticky context for follow-ups.
	if lastBackend != "" {
		for _, w := range words {
			if anaphorIndicators[w] {
				selected[lastBackend] = true
				break
			}
		}
	}

	for backendID, keywords := range backendKeywords {
		for _, k := range keywords {
			if strings.Contains(q, k) {
				selected[backendID] = true
				break
			}
		}
	}

	// Ambiguous Kubernetes queries include both clusters; an explicit
	// local/remote keyword above already narrowed the set.
	keywordHit := len(selected) > 0
	isK8s := false
	for _, term := range k8sCommonTerms {
		if strings.Contains(q, term) {
			isK8s = true
			break
		}
	}
	if isK8s && !selected[registry.BackendK8sLocal] && !selected[registry.BackendK8sRemote] {
		selected[registry.BackendK8sLocal] = true
		selected[registry.BackendK8sRemote] = true
	}

	// No backend keyword matched: broad status checks fan out (even when
	// "status" also counted as a Kubernetes term above).
	if !keywordHit && (strings.Contains(q, "status") || strings.Contains(q, "check")) {
		selected[registry.BackendDocker] = true
		selected[registry.BackendK8sLocal] = true
		selected[registry.BackendK8sRemote] = true
	}

	// Nothing matched at all: long unknown queries get everything, short
	// ones are probably chat.
	if len(selected) == 0 {
		switch {
		case len(words) > 5:
			selected[registry.BackendDocker] = true
			selected[registry.BackendK8sLocal] = true
			selected[registry.BackendK8sRemote] = true
			selected[registry.BackendChat] = true
		default:
			selected[registry.BackendChat] = true
		}
	}

	// Pulse gating: skip a disconnected remote unless explicitly named —
	// "why is remote down" should still load it so the agent can answer.
	if selected[registry.BackendK8sRemote] && !strings.Contains(q, "remote") && health != nil {
		if health.Get(registry.BackendK8sRemote).Status == pulse.StatusDisconnected {
			delete(selected, registry.BackendK8sRemote)
		}
	}

	out := make([]string, 0, len(selected))
	for id := range selected {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// isAnaphoric reports whether the query leans on conversation context.
func isAnaphoric(query string) bool {
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if anaphorIndicators[w] {
			return true
		}
	}
	return false
}
