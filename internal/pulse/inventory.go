/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package pulse

import (
	"strings"
	"sync"
)

// Location records where a named resource was seen.
type Location struct {
	Backend   string `json:"backend"`
	Namespace string `json:"namespace,omitempty"`
}

// ResourceIndex maps (kind, name) to the backends that currently hold a
// resource with that name. Discovery probes refresh one backend's entries
// per tick; lookups drive the "describe it" disambiguation.
type ResourceIndex struct {
	mu sync.RWMutex
	// key: kind + "/" + name
	entries map[string][]Location
	// owner tracks which keys each backend contributed, for clean replace.
	owner map[string][]string
}

// NewResourceIndex creates an empty index.
func NewResourceIndex() *ResourceIndex {
	return &ResourceIndex{
		entries: make(map[string][]Location),
		owner:   make(map[string][]string),
	}
}

// Ingest refreshes one backend's entries from a probe payload.
// Recognized payload shapes: {"containers":[{"name":...}]} and
// {"pods":[{"name":..., "namespace":...}]}.
func (ri *ResourceIndex) Ingest(backendID, tool string, payload map[string]interface{}) {
	if payload == nil {
		return
	}

	type seen struct {
		kind, name, ns string
	}
	var found []seen

	if containers, ok := payload["containers"].([]interface{}); ok {
		for _, c := range containers {
			if m, ok := c.(map[string]interface{}); ok {
				if name, _ := m["name"].(string); name != "" {
					found = append(found, seen{kind: "container", name: name})
				}
			}
		}
	}
	if pods, ok := payload["pods"].([]interface{}); ok {
		for _, p := range pods {
			if m, ok := p.(map[string]interface{}); ok {
				name, _ := m["name"].(string)
				ns, _ := m["namespace"].(string)
				if name != "" {
					found = append(found, seen{kind: "pod", name: name, ns: ns})
				}
			}
		}
	}

	ri.mu.Lock()
	defer ri.mu.Unlock()

	// Drop this backend's previous contribution before re-adding.
	for _, key := range ri.owner[backendID] {
		kept := ri.entries[key][:0]
		for _, loc := range ri.entries[key] {
			if loc.Backend != backendID {
				kept = append(kept, loc)
			}
		}
		if len(kept) == 0 {
			delete(ri.entries, key)
		} else {
			ri.entries[key] = kept
		}
	}
	ri.owner[backendID] = ri.owner[backendID][:0]

	for _, s := range found {
		key := s.kind + "/" + s.name
		ri.entries[key] = append(ri.entries[key], Location{Backend: backendID, Namespace: s.ns})
		ri.owner[backendID] = append(ri.owner[backendID], key)
	}
}

// Lookup returns every location holding (kind, name).
func (ri *ResourceIndex) Lookup(kind, name string) []Location {
	ri.mu.RLock()
	defer ri.mu.RUnlock()

	locs := ri.entries[kind+"/"+name]
	out := make([]Location, len(locs))
	copy(out, locs)
	return out
}

// FindByName scans all kinds for a bare name, for anaphoric references
// that don't carry a kind ("describe nginx-abc").
func (ri *ResourceIndex) FindByName(name string) (kind string, locs []Location) {
	ri.mu.RLock()
	defer ri.mu.RUnlock()

	for key, entry := range ri.entries {
		if idx := strings.IndexByte(key, '/'); idx >= 0 && key[idx+1:] == name {
			out := make([]Location, len(entry))
			copy(out, entry)
			return key[:idx], out
		}
	}
	return "", nil
}

// Len returns the number of distinct (kind, name) keys.
func (ri *ResourceIndex) Len() int {
	ri.mu.RLock()
	defer ri.mu.RUnlock()
	return len(ri.entries)
}
