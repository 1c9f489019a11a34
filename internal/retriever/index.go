/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package retriever owns the vector index over tool descriptors and the
// top-k retrieval that feeds the LLM a shortlist instead of the whole
// registry.
//
// The primary structure is a flat inner-product index over unit-normalized
// vectors (cosine ≡ IP). Flat indices support append but not in-place
// removal; removal rebuilds the index, which is lossless here because the
// raw vectors are kept alongside the metadata and cheap for n ≲ 10³.
package retriever

import (
	"fmt"
	"sort"
	"sync"

	"github.com/NayanEupho/Agentic-DevOps/internal/llm"
)

// Hit is one search result.
type Hit struct {
	Name  string
	Score float64
}

// VerifyReport is the output of a consistency check.
type VerifyReport struct {
	Valid     bool     `json:"valid"`
	ToolCount int      `json:"tool_count"`
	IndexSize int      `json:"index_size"`
	Issues    []string `json:"issues"`
}

// Index is the flat IP index. Invariant: len(vectors) == len(names) and
// pos[names[i]] == i for every position — a bijection between positions
// and tool names.
type Index struct {
	mu      sync.RWMutex
	dim     int
	vectors [][]float32
	names   []string
	pos     map[string]int
	descs   map[string]string
}

// NewIndex creates an empty index. The dimension locks in on first Add.
func NewIndex() *Index {
	return &Index{
		pos:   make(map[string]int),
		descs: make(map[string]string),
	}
}

// Add inserts (or replaces) a tool vector. Vectors are unit-normalized on
// the way in so search can use the plain inner product.
func (ix *Index) Add(name string, vec []float32, description string) error {
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if len(vec) == 0 {
		return fmt.Errorf("embedding for %q cannot be empty", name)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.dim == 0 {
		ix.dim = len(vec)
	} else if len(vec) != ix.dim {
		return fmt.Errorf("embedding for %q has dimension %d, index has %d", name, len(vec), ix.dim)
	}

	normalized := llm.Normalize(append([]float32(nil), vec...))

	if i, exists := ix.pos[name]; exists {
		ix.vectors[i] = normalized
		ix.descs[name] = description
		return nil
	}

	ix.pos[name] = len(ix.names)
	ix.names = append(ix.names, name)
	ix.vectors = append(ix.vectors, normalized)
	ix.descs[name] = description
	return nil
}

// Remove drops a tool and rebuilds the position mapping. The remaining
// vectors are reused as-is — nothing is re-embedded.
func (ix *Index) Remove(name string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	i, exists := ix.pos[name]
	if !exists {
		return false
	}

	ix.names = append(ix.names[:i], ix.names[i+1:]...)
	ix.vectors = append(ix.vectors[:i], ix.vectors[i+1:]...)
	delete(ix.pos, name)
	delete(ix.descs, name)
	for j := i; j < len(ix.names); j++ {
		ix.pos[ix.names[j]] = j
	}
	return true
}

// Search returns the top-k tools by inner product. Results are ordered by
// score descending; fewer than k when the index is smaller.
func (ix *Index) Search(query []float32, k int) []Hit {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.vectors) == 0 || len(query) == 0 {
		return nil
	}

	q := llm.Normalize(append([]float32(nil), query...))
	hits := make([]Hit, 0, len(ix.vectors))
	for i, v := range ix.vectors {
		hits = append(hits, Hit{Name: ix.names[i], Score: llm.Dot(q, v)})
	}
	sort.Slice(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits
}

// Has reports whether a tool is indexed.
func (ix *Index) Has(name string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.pos[name]
	return ok
}

// Count returns the number of indexed tools.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.names)
}

// Names returns the indexed tool names in position order.
func (ix *Index) Names() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return append([]string(nil), ix.names...)
}

// Verify checks the bijection invariant.
func (ix *Index) Verify() VerifyReport {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	rep := VerifyReport{ToolCount: len(ix.pos), IndexSize: len(ix.vectors), Issues: []string{}}

	if len(ix.vectors) != len(ix.names) || len(ix.names) != len(ix.pos) {
		rep.Issues = append(rep.Issues, fmt.Sprintf(
			"index size mismatch: %d vectors, %d names, %d positions",
			len(ix.vectors), len(ix.names), len(ix.pos)))
	}
	for name, i := range ix.pos {
		if i >= len(ix.names) || ix.names[i] != name {
			rep.Issues = append(rep.Issues, fmt.Sprintf("mapping mismatch for %s", name))
		}
	}

	rep.Valid = len(rep.Issues) == 0
	return rep
}

// snapshot copies the index contents for persistence under the read lock.
func (ix *Index) snapshot() (dim int, names []string, vectors [][]float32, descs map[string]string) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	names = append([]string(nil), ix.names...)
	vectors = make([][]float32, len(ix.vectors))
	for i, v := range ix.vectors {
		vectors[i] = append([]float32(nil), v...)
	}
	descs = make(map[string]string, len(ix.descs))
	for k, v := range ix.descs {
		descs[k] = v
	}
	return ix.dim, names, vectors, descs
}
