/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package registry owns the tool descriptors.
//
// A tool is a named operation with a JSON-schema signature and an execute
// function on some backend. The registry is the single source of truth for
// which tools exist; the retriever subscribes to change events so its vector
// index never drifts from the registered set.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Backend identifiers. Tool names carry their backend as a prefix by
// convention: docker_*, local_k8s_*, remote_k8s_*, plus the chat sentinel.
const (
	BackendDocker    = "docker"
	BackendK8sLocal  = "k8s_local"
	BackendK8sRemote = "k8s_remote"
	BackendChat      = "chat"
)

// AllBackends lists every backend id in a stable order.
func AllBackends() []string {
	return []string{BackendDocker, BackendK8sLocal, BackendK8sRemote, BackendChat}
}

// BackendForTool maps a tool name to its backend id by prefix.
func BackendForTool(name string) string {
	switch {
	case name == "chat":
		return BackendChat
	case strings.HasPrefix(name, "docker_"):
		return BackendDocker
	case strings.HasPrefix(name, "remote_k8s_"):
		return BackendK8sRemote
	case strings.HasPrefix(name, "local_k8s_"), strings.HasPrefix(name, "k8s_"):
		return BackendK8sLocal
	default:
		return BackendDocker
	}
}

// Result is a tool execution outcome. Payload carries the tool-specific
// fields (containers, pods, logs, ...) for the formatters.
type Result struct {
	Success    bool
	Payload    map[string]interface{}
	Err        string
	RawError   interface{}
	StatusCode int
}

// Failure builds a failed result with the given message.
func Failure(msg string) Result {
	return Result{Success: false, Err: msg}
}

// ExecuteFunc runs a tool with validated arguments.
type ExecuteFunc func(ctx context.Context, args map[string]interface{}) Result

// Tool is an immutable descriptor. Parameters is JSON-Schema shaped:
// {"type":"object","properties":{...},"required":[...]}.
type Tool struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
	Backend     string
	Execute     ExecuteFunc
}

// RequiredParams returns the schema's required parameter names.
func (t Tool) RequiredParams() []string {
	req, _ := t.Parameters["required"].([]string)
	if req != nil {
		return req
	}
	// Schemas decoded from JSON carry []interface{}.
	raw, _ := t.Parameters["required"].([]interface{})
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Schema returns the serializable description used for LLM prompting and
// retrieval indexing.
func (t Tool) Schema() map[string]interface{} {
	return map[string]interface{}{
		"name":        t.Name,
		"description": t.Description,
		"parameters":  t.Parameters,
	}
}

// ToolCall is a concrete invocation resolved from a query.
type ToolCall struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// ChangeEvent notifies subscribers of registry mutations.
type ChangeEvent struct {
	Added   []Tool
	Removed []string
}

// Registry holds the flat descriptor list. Readers snapshot the current
// slice reference; mutations copy-on-write under the lock.
type Registry struct {
	mu    sync.Mutex
	tools []Tool
	index map[string]int

	subs []func(ChangeEvent)
}

// New builds a registry from the initial descriptor set.
// Duplicate names are an error: the index↔name bijection downstream
// depends on uniqueness.
func New(tools ...Tool) (*Registry, error) {
	r := &Registry{index: make(map[string]int, len(tools))}
	for _, t := range tools {
		if _, dup := r.index[t.Name]; dup {
			return nil, fmt.Errorf("duplicate tool %q", t.Name)
		}
		if t.Backend == "" {
			t.Backend = BackendForTool(t.Name)
		}
		r.index[t.Name] = len(r.tools)
		r.tools = append(r.tools, t)
	}
	return r, nil
}

// List returns a snapshot of all descriptors.
func (r *Registry) List() []Tool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tools
}

// ListByBackends returns descriptors whose backend is in ids.
func (r *Registry) ListByBackends(ids []string) []Tool {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}

	r.mu.Lock()
	snapshot := r.tools
	r.mu.Unlock()

	var out []Tool
	for _, t := range snapshot {
		if want[t.Backend] {
			out = append(out, t)
		}
	}
	return out
}

// Find returns the descriptor for name.
func (r *Registry) Find(name string) (Tool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index[name]
	if !ok {
		return Tool{}, false
	}
	return r.tools[i], true
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.tools))
	for _, t := range r.tools {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

// Schema returns the serializable descriptions of all tools.
func (r *Registry) Schema() []map[string]interface{} {
	tools := r.List()
	out := make([]map[string]interface{}, 0, len(tools))
	for _, t := range tools {
		out = append(out, t.Schema())
	}
	return out
}

// Subscribe registers a change listener. Listeners run synchronously under
// the mutation call, in registration order.
func (r *Registry) Subscribe(fn func(ChangeEvent)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, fn)
}

// Add registers a tool after startup and notifies subscribers.
func (r *Registry) Add(t Tool) error {
	if t.Backend == "" {
		t.Backend = BackendForTool(t.Name)
	}

	r.mu.Lock()
	if _, dup := r.index[t.Name]; dup {
		r.mu.Unlock()
		return fmt.Errorf("duplicate tool %q", t.Name)
	}
	next := make([]Tool, len(r.tools), len(r.tools)+1)
	copy(next, r.tools)
	next = append(next, t)
	r.tools = next
	r.index[t.Name] = len(next) - 1
	subs := r.subs
	r.mu.Unlock()

	for _, fn := range subs {
		fn(ChangeEvent{Added: []Tool{t}})
	}
	return nil
}

// Remove deregisters a tool and notifies subscribers.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	i, ok := r.index[name]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("unknown tool %q", name)
	}
	next := make([]Tool, 0, len(r.tools)-1)
	next = append(next, r.tools[:i]...)
	next = append(next, r.tools[i+1:]...)
	r.tools = next
	delete(r.index, name)
	for n, j := range r.index {
		if j > i {
			r.index[n] = j - 1
		}
	}
	subs := r.subs
	r.mu.Unlock()

	for _, fn := range subs {
		fn(ChangeEvent{Removed: []string{name}})
	}
	return nil
}
