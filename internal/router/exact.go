/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package router

import (
	"strings"
	"sync"

	"github.com/go-logr/logr"

	"github.com/NayanEupho/Agentic-DevOps/internal/registry"
)

const inputCacheLimit = 128

// ExactRouter is the first routing tier: a memoized verbatim-input cache in
// front of an ordered template scan. Deterministic, O(k) over the template
// list, no network.
type ExactRouter struct {
	log logr.Logger

	mu        sync.Mutex
	templates []Template
	cache     map[string][]registry.ToolCall
}

// NewExactRouter compiles and orders the template set: manual templates
// first (authored patterns win), auto-inferred appended, skipping auto
// templates whose tool already has a manual one.
func NewExactRouter(manual, auto []Template, log logr.Logger) (*ExactRouter, error) {
	r := &ExactRouter{
		log:   log.WithName("regex-router"),
		cache: make(map[string][]registry.ToolCall),
	}

	manualTools := make(map[string]bool, len(manual))
	for i := range manual {
		if err := manual[i].Compile(); err != nil {
			return nil, err
		}
		manualTools[manual[i].Tool] = true
		r.templates = append(r.templates, manual[i])
	}
	for i := range auto {
		if manualTools[auto[i].Tool] {
			continue
		}
		if err := auto[i].Compile(); err != nil {
			// Auto templates are machine-derived; a bad one is skipped,
			// not fatal.
			r.log.V(1).Info("Skipping invalid auto template", "name", auto[i].Name, "err", err)
			continue
		}
		r.templates = append(r.templates, auto[i])
	}
	return r, nil
}

// TemplateCount returns the number of active templates.
func (r *ExactRouter) TemplateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.templates)
}

// Route resolves a query through the input cache and the template scan.
// The second return is false on miss.
func (r *ExactRouter) Route(query string) ([]registry.ToolCall, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, false
	}

	r.mu.Lock()
	if calls, ok := r.cache[query]; ok {
		r.mu.Unlock()
		return calls, true
	}
	templates := r.templates
	r.mu.Unlock()

	for i := range templates {
		call, ok := templates[i].Match(query)
		if !ok {
			continue
		}
		calls := []registry.ToolCall{call}
		r.log.V(1).Info("Regex match", "template", templates[i].Name, "tool", call.Name)
		r.remember(query, calls)
		return calls, true
	}
	return nil, false
}

func (r *ExactRouter) remember(query string, calls []registry.ToolCall) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.cache) >= inputCacheLimit {
		r.cache = make(map[string][]registry.ToolCall)
	}
	r.cache[query] = calls
}

// AppendAuto adds freshly inferred templates at the end of the scan order,
// used when tools are registered after startup.
func (r *ExactRouter) AppendAuto(auto []Template) {
	r.mu.Lock()
	defer r.mu.Unlock()

	have := make(map[string]bool, len(r.templates))
	for _, t := range r.templates {
		have[t.Tool] = true
	}
	for i := range auto {
		if have[auto[i].Tool] {
			continue
		}
		if err := auto[i].Compile(); err != nil {
			continue
		}
		r.templates = append(r.templates, auto[i])
	}
	// Input cache may now be stale against the new template set.
	r.cache = make(map[string][]registry.ToolCall)
}
