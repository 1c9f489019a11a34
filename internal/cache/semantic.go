/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package cache is the semantic result cache: an embedding-keyed
// near-duplicate cache of (query → tool calls, output).
//
// A hit short-circuits the whole cascade, so the bar is high: cosine ≥ 0.98
// against an entry with the same backend scope. Failed executions and
// confirmation requests are never inserted.
package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/gofrs/flock"

	"github.com/NayanEupho/Agentic-DevOps/internal/llm"
	"github.com/NayanEupho/Agentic-DevOps/internal/metrics"
	"github.com/NayanEupho/Agentic-DevOps/internal/registry"
)

// Threshold is the minimum cosine score for a hit.
const Threshold = 0.98

// maxEntries bounds the cache; the oldest entry is evicted first.
const maxEntries = 500

// Entry is one cached resolution.
type Entry struct {
	Query     string              `json:"query"`
	Embedding []float32           `json:"embedding"`
	Output    string              `json:"output"`
	ToolCalls []registry.ToolCall `json:"tool_calls"`
	Scope     string              `json:"backend_scope,omitempty"`
	Timestamp time.Time           `json:"timestamp"`
}

// Hit is a successful lookup.
type Hit struct {
	Output    string
	ToolCalls []registry.ToolCall
	Score     float64
}

// SemanticCache is safe for concurrent use. Inserts append under the lock;
// the disk save runs on a background goroutine so the hot path never blocks
// on I/O.
type SemanticCache struct {
	embedder llm.Embedder
	path     string
	log      logr.Logger

	mu      sync.Mutex
	entries []Entry

	saveMu sync.Mutex
	saveWG sync.WaitGroup
}

// New loads the persisted cache when present.
func New(embedder llm.Embedder, path string, log logr.Logger) *SemanticCache {
	c := &SemanticCache{
		embedder: embedder,
		path:     path,
		log:      log.WithName("semantic-cache"),
	}
	if b, err := os.ReadFile(path); err == nil {
		// A corrupt cache file just means starting cold.
		var entries []Entry
		if json.Unmarshal(b, &entries) == nil {
			c.entries = entries
		}
	}
	return c
}

// CanonicalScope builds the scope key from a backend id set: sorted,
// "+"-joined. The same rule is applied on insert and lookup so entries
// never match across different backend scopes.
func CanonicalScope(backends []string) string {
	if len(backends) == 0 {
		return ""
	}
	ids := append([]string(nil), backends...)
	sort.Strings(ids)
	return strings.Join(ids, "+")
}

// Lookup returns the best entry scoring ≥ Threshold within the scope.
func (c *SemanticCache) Lookup(ctx context.Context, query, scope string) (*Hit, error) {
	c.mu.Lock()
	empty := len(c.entries) == 0
	c.mu.Unlock()
	if empty {
		metrics.CacheEvents.WithLabelValues("miss").Inc()
		return nil, nil
	}

	queryEmb, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	entries := c.entries
	c.mu.Unlock()

	best := -1.0
	var bestEntry *Entry
	for i := range entries {
		if entries[i].Scope != scope {
			continue
		}
		score := llm.Cosine(queryEmb, entries[i].Embedding)
		if score > best {
			best = score
			bestEntry = &entries[i]
		}
	}

	if bestEntry == nil || best < Threshold {
		metrics.CacheEvents.WithLabelValues("miss").Inc()
		return nil, nil
	}

	metrics.CacheEvents.WithLabelValues("hit").Inc()
	c.log.V(1).Info("Cache hit", "score", best, "query", bestEntry.Query)
	return &Hit{Output: bestEntry.Output, ToolCalls: bestEntry.ToolCalls, Score: best}, nil
}

// Add inserts a successful resolution. Failure-shaped outputs and
// confirmation-bearing call lists are rejected here so no caller can cache
// them by accident.
func (c *SemanticCache) Add(ctx context.Context, query, output string, calls []registry.ToolCall, scope string) error {
	if !Cacheable(output, calls) {
		metrics.CacheEvents.WithLabelValues("skip").Inc()
		return nil
	}

	queryEmb, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return err
	}

	c.mu.Lock()
	for i := range c.entries {
		if c.entries[i].Query == query && c.entries[i].Scope == scope {
			c.mu.Unlock()
			return nil
		}
	}
	c.entries = append(c.entries, Entry{
		Query:     query,
		Embedding: queryEmb,
		Output:    output,
		ToolCalls: calls,
		Scope:     scope,
		Timestamp: time.Now(),
	})
	if len(c.entries) > maxEntries {
		c.entries = c.entries[len(c.entries)-maxEntries:]
	}
	snapshot := append([]Entry(nil), c.entries...)
	c.mu.Unlock()

	metrics.CacheEvents.WithLabelValues("insert").Inc()

	c.saveWG.Add(1)
	go func() {
		defer c.saveWG.Done()
		c.save(snapshot)
	}()
	return nil
}

// Cacheable applies the insert policy: no failure text, no transient
// confirmation payloads.
func Cacheable(output string, calls []registry.ToolCall) bool {
	lower := strings.ToLower(output)
	if strings.Contains(lower, "failed") || strings.Contains(lower, "error") {
		return false
	}
	for _, call := range calls {
		if strings.Contains(strings.ToLower(call.Name), "confirmation") {
			return false
		}
		for k := range call.Arguments {
			if strings.Contains(strings.ToLower(k), "confirmation") {
				return false
			}
		}
	}
	return true
}

// Len returns the current entry count.
func (c *SemanticCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Flush waits for pending background saves; call on shutdown.
func (c *SemanticCache) Flush() {
	c.saveWG.Wait()
}

func (c *SemanticCache) save(entries []Entry) {
	// Serialize writers so a slow disk can't interleave temp files.
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	b, err := json.Marshal(entries)
	if err != nil {
		c.log.Error(err, "Failed to encode semantic cache")
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		c.log.Error(err, "Failed to create cache directory")
		return
	}

	lock := flock.New(c.path + ".lock")
	if err := lock.Lock(); err != nil {
		c.log.Error(err, "Failed to lock semantic cache file")
		return
	}
	defer lock.Unlock()

	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		c.log.Error(err, "Failed to write semantic cache")
		return
	}
	if err := os.Rename(tmp, c.path); err != nil {
		c.log.Error(err, "Failed to replace semantic cache")
	}
}
