/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package pulse

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"

	"github.com/NayanEupho/Agentic-DevOps/internal/registry"
)

// scriptedCaller returns canned results per backend, in sequence.
type scriptedCaller struct {
	mu      sync.Mutex
	results map[string][]registry.Result
}

func (s *scriptedCaller) Call(ctx context.Context, tool string, args map[string]interface{}) (registry.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := registry.BackendForTool(tool)
	queue := s.results[id]
	if len(queue) == 0 {
		return registry.Result{Success: true, Payload: map[string]interface{}{}}, nil
	}
	head := queue[0]
	if len(queue) > 1 {
		s.results[id] = queue[1:]
	}
	return head, nil
}

func ok() registry.Result {
	return registry.Result{Success: true, Payload: map[string]interface{}{}}
}

func fail() registry.Result {
	return registry.Failure("probe failed")
}

func newMonitor(t *testing.T, caller Caller) *Monitor {
	t.Helper()
	m, err := New(caller, "@every 15s", time.Second, logr.Discard())
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return m
}

func TestTransitions(t *testing.T) {
	caller := &scriptedCaller{results: map[string][]registry.Result{
		registry.BackendK8sRemote: {fail(), fail(), ok()},
	}}
	m := newMonitor(t, caller)
	ctx := context.Background()

	// Initial state before any probe.
	if got := m.Get(registry.BackendK8sRemote).Status; got != StatusDisconnected {
		t.Errorf("initial status = %q, want disconnected", got)
	}

	m.tick(ctx, registry.BackendK8sRemote)
	if got := m.Get(registry.BackendK8sRemote).Status; got != StatusDegraded {
		t.Errorf("after 1 failure: %q, want degraded", got)
	}

	m.tick(ctx, registry.BackendK8sRemote)
	if got := m.Get(registry.BackendK8sRemote).Status; got != StatusDisconnected {
		t.Errorf("after 2 failures: %q, want disconnected", got)
	}

	m.tick(ctx, registry.BackendK8sRemote)
	if got := m.Get(registry.BackendK8sRemote).Status; got != StatusHealthy {
		t.Errorf("after success: %q, want healthy", got)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	caller := &scriptedCaller{results: map[string][]registry.Result{
		registry.BackendDocker: {fail(), ok(), fail()},
	}}
	m := newMonitor(t, caller)
	ctx := context.Background()

	m.tick(ctx, registry.BackendDocker)
	m.tick(ctx, registry.BackendDocker)
	m.tick(ctx, registry.BackendDocker)

	// The third tick is the first failure after a success: degraded, not
	// disconnected.
	snap := m.Get(registry.BackendDocker)
	if snap.Status != StatusDegraded {
		t.Errorf("status = %q, want degraded", snap.Status)
	}
	if snap.Failures != 1 {
		t.Errorf("failures = %d, want 1", snap.Failures)
	}
}

func TestStartStop(t *testing.T) {
	caller := &scriptedCaller{results: map[string][]registry.Result{}}
	m := newMonitor(t, caller)

	m.Start(context.Background())

	// The immediate startup probe should publish healthy soon.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if m.Get(registry.BackendDocker).Status == StatusHealthy {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := m.Get(registry.BackendDocker).Status; got != StatusHealthy {
		t.Errorf("startup probe never ran: status %q", got)
	}

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestIngestFeedsResourceIndex(t *testing.T) {
	caller := &scriptedCaller{results: map[string][]registry.Result{
		registry.BackendK8sLocal: {{
			Success: true,
			Payload: map[string]interface{}{
				"pods": []interface{}{
					map[string]interface{}{"name": "nginx-abc", "namespace": "default"},
				},
			},
		}},
	}}
	m := newMonitor(t, caller)
	m.tick(context.Background(), registry.BackendK8sLocal)

	locs := m.Resources().Lookup("pod", "nginx-abc")
	if len(locs) != 1 || locs[0].Backend != registry.BackendK8sLocal {
		t.Errorf("Lookup(pod, nginx-abc) = %v", locs)
	}
}

func TestResourceIndex_ReplaceAndAmbiguity(t *testing.T) {
	ri := NewResourceIndex()

	podList := func(names ...string) map[string]interface{} {
		var pods []interface{}
		for _, n := range names {
			pods = append(pods, map[string]interface{}{"name": n, "namespace": "default"})
		}
		return map[string]interface{}{"pods": pods}
	}

	ri.Ingest(registry.BackendK8sLocal, "local_k8s_list_pods", podList("web"))
	ri.Ingest(registry.BackendK8sRemote, "remote_k8s_list_pods", podList("web"))

	if locs := ri.Lookup("pod", "web"); len(locs) != 2 {
		t.Fatalf("pod seen in %d backends, want 2", len(locs))
	}

	// Local refresh without "web": only remote should remain.
	ri.Ingest(registry.BackendK8sLocal, "local_k8s_list_pods", podList("other"))
	locs := ri.Lookup("pod", "web")
	if len(locs) != 1 || locs[0].Backend != registry.BackendK8sRemote {
		t.Errorf("after refresh: %v", locs)
	}

	kind, found := ri.FindByName("other")
	if kind != "pod" || len(found) != 1 {
		t.Errorf("FindByName(other) = %q %v", kind, found)
	}
}

func TestNew_RejectsBadSchedule(t *testing.T) {
	if _, err := New(&scriptedCaller{}, "not a schedule", time.Second, logr.Discard()); err == nil {
		t.Error("expected parse error")
	}
}
