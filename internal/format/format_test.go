/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package format

import (
	"context"
	"strings"
	"testing"

	"github.com/NayanEupho/Agentic-DevOps/internal/registry"
)

func containerResult() registry.Result {
	return registry.Result{
		Success: true,
		Payload: map[string]interface{}{
			"success": true,
			"count":   float64(2),
			"containers": []interface{}{
				map[string]interface{}{"id": "a1b2c3d4e5f6a7b8", "name": "web", "image": "nginx", "status": "Up 2 hours"},
				map[string]interface{}{"id": "b2c3", "name": "db", "image": "postgres", "status": "Exited (0)"},
			},
		},
	}
}

func TestFormat_ContainerTable(t *testing.T) {
	r := NewRegistry(nil)
	out := r.Format(context.Background(), "docker_list_containers", containerResult())

	if !strings.HasPrefix(out, "✅") {
		t.Errorf("output should start with the success marker: %q", out[:12])
	}
	if !strings.Contains(out, "Found 2 container(s)") {
		t.Error("count missing")
	}
	// One markdown row per container.
	if strings.Count(out, "| 🟢 |") != 1 || strings.Count(out, "| 🔴 |") != 1 {
		t.Errorf("status emojis wrong:\n%s", out)
	}
	if !strings.Contains(out, "a1b2c3d4e5f6") || strings.Contains(out, "a1b2c3d4e5f6a7b8") {
		t.Error("container id not truncated to 12 chars")
	}
}

func TestFormat_PodTableWithSummary(t *testing.T) {
	r := NewRegistry(nil)
	res := registry.Result{
		Success: true,
		Payload: map[string]interface{}{
			"success":   true,
			"namespace": "kube-system",
			"pods": []interface{}{
				map[string]interface{}{"name": "coredns", "phase": "Running", "pod_ip": "10.0.0.2", "node": "n1", "ready": "1/1"},
				map[string]interface{}{"name": "stuck", "phase": "Pending", "pod_ip": "", "node": "", "ready": "0/1"},
			},
		},
	}
	out := r.Format(context.Background(), "local_k8s_list_pods", res)

	if !strings.Contains(out, "'kube-system' (LOCAL)") {
		t.Errorf("namespace/scope missing:\n%s", out)
	}
	if !strings.Contains(out, "Pending: 1") || !strings.Contains(out, "Running: 1") {
		t.Error("phase summary missing")
	}
	if !strings.Contains(out, "🟢 Running") || !strings.Contains(out, "🟡 Pending") {
		t.Error("phase emojis missing")
	}

	remote := r.Format(context.Background(), "remote_k8s_list_pods", res)
	if !strings.Contains(remote, "(REMOTE)") {
		t.Error("remote scope not labelled")
	}
}

func TestFormat_EmptyLists(t *testing.T) {
	r := NewRegistry(nil)
	empty := registry.Result{Success: true, Payload: map[string]interface{}{"success": true, "namespace": "default"}}

	if out := r.Format(context.Background(), "docker_list_containers", empty); !strings.Contains(out, "No containers") {
		t.Errorf("empty containers: %q", out)
	}
	if out := r.Format(context.Background(), "local_k8s_list_pods", empty); !strings.Contains(out, "No pods") {
		t.Errorf("empty pods: %q", out)
	}
}

func TestFormat_GenericJSONFallback(t *testing.T) {
	r := NewRegistry(nil)
	res := registry.Result{Success: true, Payload: map[string]interface{}{"success": true, "widgets": float64(3)}}
	out := r.Format(context.Background(), "future_widget_tool", res)

	if !strings.Contains(out, "```json") || !strings.Contains(out, "widgets") {
		t.Errorf("fallback output: %q", out)
	}
}

type fakeDiagnoser struct {
	called bool
}

func (f *fakeDiagnoser) Diagnose(ctx context.Context, toolName, errSummary string, raw interface{}) (string, error) {
	f.called = true
	return "The token expired; refresh it.", nil
}

func TestFormat_FailureWithDiagnostics(t *testing.T) {
	d := &fakeDiagnoser{}
	r := NewRegistry(d)
	res := registry.Result{
		Success:    false,
		Err:        "K8s API Error (401)",
		RawError:   map[string]interface{}{"message": "Unauthorized"},
		StatusCode: 401,
	}

	out := r.Format(context.Background(), "remote_k8s_list_pods", res)
	if !strings.HasPrefix(out, "❌") {
		t.Error("failure marker missing")
	}
	if !strings.Contains(out, "Raw API Error") || !strings.Contains(out, "Unauthorized") {
		t.Error("raw error payload missing")
	}
	if !d.called || !strings.Contains(out, "AI Diagnostic") {
		t.Error("diagnoser not invoked")
	}
}

func TestFormat_FailureWithoutRawError(t *testing.T) {
	r := NewRegistry(&fakeDiagnoser{})
	res := registry.Result{Success: false, Err: "Cannot connect to backend server at http://x. Is it running?"}

	out := r.Format(context.Background(), "docker_list_containers", res)
	if !strings.Contains(out, "Operation failed") || strings.Contains(out, "AI Diagnostic") {
		t.Errorf("transport failure should render plainly: %q", out)
	}
}

func TestMarkdownTable(t *testing.T) {
	out := markdownTable([]string{"A", "B"}, [][]string{{"1", "2"}, {"3", "4"}})
	lines := strings.Split(out, "\n")
	if len(lines) != 4 {
		t.Fatalf("table has %d lines, want 4", len(lines))
	}
	if lines[0] != "| A | B |" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "---") {
		t.Errorf("separator = %q", lines[1])
	}

	if markdownTable(nil, nil) != "" {
		t.Error("empty table should render nothing")
	}
}
