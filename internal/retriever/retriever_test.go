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
	"os"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"

	"github.com/NayanEupho/Agentic-DevOps/internal/registry"
)

// hashEmbedder derives a deterministic pseudo-vector from the text so
// identical texts always embed identically.
type hashEmbedder struct {
	calls int
}

func (h *hashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	h.calls++
	vec := make([]float32, 8)
	for i, c := range text {
		vec[i%8] += float32(c%31) / 31
	}
	return vec, nil
}

func TestIndex_AddSearchOrder(t *testing.T) {
	ix := NewIndex()
	ix.Add("a", []float32{1, 0, 0}, "tool a")
	ix.Add("b", []float32{0.9, 0.1, 0}, "tool b")
	ix.Add("c", []float32{0, 0, 1}, "tool c")

	hits := ix.Search([]float32{1, 0, 0}, 2)
	if len(hits) != 2 {
		t.Fatalf("got %d hits, want 2", len(hits))
	}
	if hits[0].Name != "a" || hits[1].Name != "b" {
		t.Errorf("order = %s, %s", hits[0].Name, hits[1].Name)
	}
	if hits[0].Score < hits[1].Score {
		t.Error("hits not ordered by score")
	}
}

func TestIndex_Bijection(t *testing.T) {
	ix := NewIndex()
	for _, n := range []string{"a", "b", "c", "d"} {
		ix.Add(n, []float32{1, 2, 3}, "")
	}
	if rep := ix.Verify(); !rep.Valid {
		t.Errorf("fresh index invalid: %v", rep.Issues)
	}

	ix.Remove("b")
	rep := ix.Verify()
	if !rep.Valid {
		t.Errorf("post-remove invalid: %v", rep.Issues)
	}
	if rep.ToolCount != 3 || rep.IndexSize != 3 {
		t.Errorf("count = %d/%d, want 3/3", rep.ToolCount, rep.IndexSize)
	}
}

func TestIndex_RemoveKeepsVectors(t *testing.T) {
	ix := NewIndex()
	ix.Add("keep", []float32{0, 1}, "")
	ix.Add("drop", []float32{1, 0}, "")
	ix.Remove("drop")

	hits := ix.Search([]float32{0, 1}, 1)
	if len(hits) != 1 || hits[0].Name != "keep" {
		t.Errorf("surviving vector unusable: %v", hits)
	}
}

func TestIndex_RejectsDimensionMismatch(t *testing.T) {
	ix := NewIndex()
	ix.Add("a", []float32{1, 2, 3}, "")
	if err := ix.Add("b", []float32{1, 2}, ""); err == nil {
		t.Error("expected dimension error")
	}
}

func TestStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	ix := NewIndex()
	ix.Add("docker_list_containers", []float32{0.5, 0.5, 0.1}, "List containers")
	ix.Add("local_k8s_list_pods", []float32{0.1, 0.9, 0.2}, "List pods")

	if err := store.Save(ix); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loaded.Count() != 2 {
		t.Fatalf("loaded %d tools, want 2", loaded.Count())
	}
	if rep := loaded.Verify(); !rep.Valid {
		t.Errorf("loaded index invalid: %v", rep.Issues)
	}

	// Search must behave identically after the round-trip.
	want := ix.Search([]float32{0.1, 0.9, 0.2}, 1)[0].Name
	got := loaded.Search([]float32{0.1, 0.9, 0.2}, 1)[0].Name
	if got != want {
		t.Errorf("post-load search = %q, want %q", got, want)
	}
}

func TestStore_LoadMissingIsEmpty(t *testing.T) {
	loaded, err := NewStore(t.TempDir()).Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if loaded.Count() != 0 {
		t.Errorf("fresh store index has %d tools", loaded.Count())
	}
}

func TestStore_DetectsSizeMismatch(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	ix := NewIndex()
	ix.Add("a", []float32{1, 0}, "")
	if err := store.Save(ix); err != nil {
		t.Fatal(err)
	}

	os.Truncate(filepath.Join(dir, vectorsFile), 16)

	if _, err := store.Load(); err == nil {
		t.Error("expected error for truncated vectors file")
	}
}

func regWith(t *testing.T, names ...string) *registry.Registry {
	t.Helper()
	tools := make([]registry.Tool, 0, len(names))
	for _, n := range names {
		tools = append(tools, registry.Tool{
			Name:        n,
			Description: "does " + n,
			Parameters:  map[string]interface{}{"type": "object"},
		})
	}
	r, err := registry.New(tools...)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestSync_Idempotent(t *testing.T) {
	dir := t.TempDir()
	reg := regWith(t, "docker_list_containers", "local_k8s_list_pods")
	emb := &hashEmbedder{}
	r := New(reg, emb, dir, logr.Discard())
	ctx := context.Background()

	stats, err := r.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync error: %v", err)
	}
	if stats.NewEmbeddings != 2 {
		t.Errorf("first sync added %d, want 2", stats.NewEmbeddings)
	}
	firstMeta, _ := os.ReadFile(filepath.Join(dir, metadataFile))

	stats, err = r.Sync(ctx)
	if err != nil {
		t.Fatalf("second Sync error: %v", err)
	}
	if stats.NewEmbeddings != 0 || stats.Removed != 0 {
		t.Errorf("second sync changed index: %+v", stats)
	}
	secondMeta, _ := os.ReadFile(filepath.Join(dir, metadataFile))
	if string(firstMeta) != string(secondMeta) {
		t.Error("idempotent sync rewrote metadata differently")
	}
}

func TestSync_RemovesVanishedTools(t *testing.T) {
	dir := t.TempDir()
	reg := regWith(t, "docker_list_containers", "docker_old_tool")
	emb := &hashEmbedder{}
	r := New(reg, emb, dir, logr.Discard())
	ctx := context.Background()

	if _, err := r.Sync(ctx); err != nil {
		t.Fatal(err)
	}

	// Simulate a process restart with a smaller registry.
	reg2 := regWith(t, "docker_list_containers")
	r2 := New(reg2, emb, dir, logr.Discard())
	stats, err := r2.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync error: %v", err)
	}
	if stats.Removed != 1 {
		t.Errorf("Removed = %d, want 1", stats.Removed)
	}
	if r2.Verify().ToolCount != 1 {
		t.Errorf("index has %d tools, want 1", r2.Verify().ToolCount)
	}
}

func TestRetrieve_TopK(t *testing.T) {
	dir := t.TempDir()
	reg := regWith(t,
		"docker_list_containers",
		"local_k8s_list_pods",
		"remote_k8s_list_pods",
		"remote_k8s_get_logs")
	r := New(reg, &hashEmbedder{}, dir, logr.Discard())
	ctx := context.Background()
	if _, err := r.Sync(ctx); err != nil {
		t.Fatal(err)
	}

	got, err := r.Retrieve(ctx, "list pods", 2)
	if err != nil {
		t.Fatalf("Retrieve error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d tools, want 2", len(got))
	}
	for _, tool := range got {
		if _, ok := reg.Find(tool.Name); !ok {
			t.Errorf("retrieved unregistered tool %q", tool.Name)
		}
	}
}

func TestRetrieveScoped_FiltersBackends(t *testing.T) {
	dir := t.TempDir()
	reg := regWith(t, "docker_list_containers", "local_k8s_list_pods", "remote_k8s_list_pods")
	r := New(reg, &hashEmbedder{}, dir, logr.Discard())
	ctx := context.Background()
	r.Sync(ctx)

	got, err := r.RetrieveScoped(ctx, "pods please", 5, []string{registry.BackendK8sLocal})
	if err != nil {
		t.Fatalf("RetrieveScoped error: %v", err)
	}
	for _, tool := range got {
		if tool.Backend != registry.BackendK8sLocal {
			t.Errorf("tool %q outside scope", tool.Name)
		}
	}
	if len(got) == 0 {
		t.Error("scope filtered everything")
	}
}

func TestWatch_IndexFollowsRegistry(t *testing.T) {
	dir := t.TempDir()
	reg := regWith(t, "docker_list_containers")
	r := New(reg, &hashEmbedder{}, dir, logr.Discard())
	ctx := context.Background()
	r.Sync(ctx)
	r.Watch(ctx)

	reg.Add(registry.Tool{Name: "local_k8s_list_nodes", Description: "List nodes"})
	if got := r.Verify().ToolCount; got != 2 {
		t.Errorf("after add: %d indexed tools, want 2", got)
	}

	reg.Remove("docker_list_containers")
	if got := r.Verify().ToolCount; got != 1 {
		t.Errorf("after remove: %d indexed tools, want 1", got)
	}
	if !r.Verify().Valid {
		t.Errorf("index invalid after churn: %v", r.Verify().Issues)
	}
}
