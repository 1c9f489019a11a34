/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package retriever

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-logr/logr"

	"github.com/NayanEupho/Agentic-DevOps/internal/llm"
	"github.com/NayanEupho/Agentic-DevOps/internal/registry"
)

// DefaultTopK is the shortlist size handed to the LLM.
const DefaultTopK = 8

// Retriever serves top-k candidate tools for a query and keeps its index
// consistent with the registry. Single writer: all index mutations go
// through the retriever.
type Retriever struct {
	reg      *registry.Registry
	embedder llm.Embedder
	index    *Index
	store    *Store
	log      logr.Logger
}

// New loads (or creates) the persisted index. A corrupt persisted index is
// discarded and rebuilt by the startup sync rather than failing startup.
func New(reg *registry.Registry, embedder llm.Embedder, dataDir string, log logr.Logger) *Retriever {
	store := NewStore(dataDir)
	ix, err := store.Load()
	if err != nil {
		log.Error(err, "Persisted tool index unusable, rebuilding")
		ix = NewIndex()
	}
	return &Retriever{
		reg:      reg,
		embedder: embedder,
		index:    ix,
		store:    store,
		log:      log.WithName("retriever"),
	}
}

// SyncStats reports what a startup sync changed.
type SyncStats struct {
	TotalTools    int
	NewEmbeddings int
	Removed       int
}

// Sync diffs the registry against the index: new tools are embedded and
// appended, vanished tools removed (rebuild, vectors reused). Idempotent —
// a second run with an unchanged registry changes nothing and leaves the
// persisted files untouched.
func (r *Retriever) Sync(ctx context.Context) (SyncStats, error) {
	tools := r.reg.List()
	stats := SyncStats{TotalTools: len(tools)}

	known := make(map[string]bool, len(tools))
	for _, t := range tools {
		known[t.Name] = true
		if r.index.Has(t.Name) {
			continue
		}
		vec, err := r.embedder.Embed(ctx, embedText(t))
		if err != nil {
			return stats, fmt.Errorf("embed tool %q: %w", t.Name, err)
		}
		if err := r.index.Add(t.Name, vec, t.Description); err != nil {
			return stats, err
		}
		stats.NewEmbeddings++
	}

	for _, name := range r.index.Names() {
		if !known[name] {
			r.index.Remove(name)
			stats.Removed++
		}
	}

	if stats.NewEmbeddings > 0 || stats.Removed > 0 {
		if err := r.store.Save(r.index); err != nil {
			return stats, fmt.Errorf("persist tool index: %w", err)
		}
		r.log.Info("Tool index synced",
			"tools", stats.TotalTools,
			"added", stats.NewEmbeddings,
			"removed", stats.Removed)
	}
	return stats, nil
}

// Watch subscribes to registry changes so post-start additions and
// removals reach the index without a restart. Persistence runs inline
// under the registry's notification; mutations are rare.
func (r *Retriever) Watch(ctx context.Context) {
	r.reg.Subscribe(func(ev registry.ChangeEvent) {
		for _, t := range ev.Added {
			vec, err := r.embedder.Embed(ctx, embedText(t))
			if err != nil {
				r.log.Error(err, "Failed to embed new tool", "tool", t.Name)
				continue
			}
			if err := r.index.Add(t.Name, vec, t.Description); err != nil {
				r.log.Error(err, "Failed to index new tool", "tool", t.Name)
			}
		}
		for _, name := range ev.Removed {
			r.index.Remove(name)
		}
		if err := r.store.Save(r.index); err != nil {
			r.log.Error(err, "Failed to persist tool index after change")
		}
	})
}

// Retrieve returns the top-k descriptors for a query, most similar first.
// When the index is empty (embedding endpoint down at startup) it degrades
// to returning the full candidate set so the LLM tier still functions.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]registry.Tool, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	if r.index.Count() == 0 {
		return r.reg.List(), nil
	}

	queryEmb, err := r.embedder.Embed(ctx, query)
	if err != nil {
		// Degrade rather than fail: retrieval is an optimization.
		r.log.Error(err, "Query embedding failed, returning full tool set")
		return r.reg.List(), nil
	}

	hits := r.index.Search(queryEmb, k)
	out := make([]registry.Tool, 0, len(hits))
	for _, h := range hits {
		if t, ok := r.reg.Find(h.Name); ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// RetrieveScoped retrieves top-k among tools of the given backends only.
// The scan filters hits after scoring; the shortlist stays ordered.
func (r *Retriever) RetrieveScoped(ctx context.Context, query string, k int, backends []string) ([]registry.Tool, error) {
	all, err := r.Retrieve(ctx, query, r.index.Count())
	if err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(backends))
	for _, b := range backends {
		want[b] = true
	}

	var out []registry.Tool
	for _, t := range all {
		if want[t.Backend] {
			out = append(out, t)
		}
		if len(out) == k {
			break
		}
	}
	if len(out) == 0 {
		// Scope filtered everything out; fall back to the scoped registry
		// listing so the LLM still sees candidates.
		out = r.reg.ListByBackends(backends)
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		if len(out) > k {
			out = out[:k]
		}
	}
	return out, nil
}

// Verify exposes the index consistency check.
func (r *Retriever) Verify() VerifyReport {
	return r.index.Verify()
}

// Rebuild re-embeds every registered tool from its descriptor and replaces
// the index. Used by the CLI after bulk registry edits.
func (r *Retriever) Rebuild(ctx context.Context) error {
	fresh := NewIndex()
	for _, t := range r.reg.List() {
		vec, err := r.embedder.Embed(ctx, embedText(t))
		if err != nil {
			return fmt.Errorf("embed tool %q: %w", t.Name, err)
		}
		if err := fresh.Add(t.Name, vec, t.Description); err != nil {
			return err
		}
	}
	r.index = fresh
	return r.store.Save(r.index)
}

// embedText is the canonical indexing text for a descriptor.
func embedText(t registry.Tool) string {
	return t.Name + ": " + t.Description
}
