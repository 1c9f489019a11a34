/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package router

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-logr/logr"
	"github.com/gofrs/flock"

	"github.com/NayanEupho/Agentic-DevOps/internal/llm"
	"github.com/NayanEupho/Agentic-DevOps/internal/registry"
)

// IntentThreshold is the cosine score a curated example must beat for the
// intent tier to claim the query. Below it, the query falls through to RAG.
const IntentThreshold = 0.82

// Intent is a curated (paraphrase → tool call) example.
type Intent struct {
	Text string                 `json:"text"`
	Tool string                 `json:"tool"`
	Args map[string]interface{} `json:"args,omitempty"`

	embedding []float32
}

// IntentRouter is the semantic tier: cosine similarity over curated
// examples with disk-cached embeddings. It catches the paraphrases the
// regexes miss while avoiding the LLM hop.
type IntentRouter struct {
	embedder  llm.Embedder
	cachePath string
	log       logr.Logger

	mu      sync.Mutex
	intents []Intent
	ready   bool
}

// NewIntentRouter builds the tier. cachePath is the JSON embedding cache
// file (text → vector); embeddings for new examples are computed lazily on
// first use and written back.
func NewIntentRouter(intents []Intent, embedder llm.Embedder, cachePath string, log logr.Logger) *IntentRouter {
	return &IntentRouter{
		embedder:  embedder,
		cachePath: cachePath,
		log:       log.WithName("intent-router"),
		intents:   intents,
	}
}

// EnsureEmbeddings loads the disk cache and fills any missing example
// embeddings, saving the cache back when it grew. Safe to call more than
// once; later calls are no-ops.
func (r *IntentRouter) EnsureEmbeddings(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ready {
		return nil
	}

	cache := map[string][]float32{}
	if b, err := os.ReadFile(r.cachePath); err == nil {
		// A corrupt cache just means re-embedding everything.
		_ = json.Unmarshal(b, &cache)
	}

	dirty := false
	kept := r.intents[:0]
	for _, in := range r.intents {
		if emb, ok := cache[in.Text]; ok {
			in.embedding = emb
			kept = append(kept, in)
			continue
		}
		emb, err := r.embedder.Embed(ctx, in.Text)
		if err != nil {
			return fmt.Errorf("embed intent %q: %w", in.Text, err)
		}
		in.embedding = emb
		cache[in.Text] = emb
		dirty = true
		kept = append(kept, in)
	}
	r.intents = kept

	if dirty {
		if err := saveJSON(r.cachePath, cache); err != nil {
			// Cache write failure costs latency next start, nothing else.
			r.log.Error(err, "Failed to save intent embedding cache")
		} else {
			r.log.Info("Saved intent embeddings", "count", len(cache))
		}
	}

	r.ready = true
	return nil
}

// Route returns the best-matching intent's tool call when its score beats
// the threshold. The score is returned for tracing either way.
func (r *IntentRouter) Route(ctx context.Context, query string) ([]registry.ToolCall, float64, bool) {
	if err := r.EnsureEmbeddings(ctx); err != nil {
		r.log.Error(err, "Intent embeddings unavailable")
		return nil, 0, false
	}

	queryEmb, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.log.Error(err, "Query embedding failed")
		return nil, 0, false
	}

	r.mu.Lock()
	intents := r.intents
	r.mu.Unlock()

	best := -1.0
	var bestIntent *Intent
	for i := range intents {
		score := llm.Cosine(queryEmb, intents[i].embedding)
		if score > best {
			best = score
			bestIntent = &intents[i]
		}
	}

	if bestIntent == nil || best <= IntentThreshold {
		return nil, best, false
	}

	r.log.V(1).Info("Semantic match", "score", best, "example", bestIntent.Text, "tool", bestIntent.Tool)
	args := bestIntent.Args
	if args == nil {
		args = map[string]interface{}{}
	}
	return []registry.ToolCall{{Name: bestIntent.Tool, Arguments: args}}, best, true
}

// saveJSON writes v atomically: temp file then rename, under a per-file
// advisory lock for multi-process safety.
func saveJSON(path string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return err
	}
	defer lock.Unlock()

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
