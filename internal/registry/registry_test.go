/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package registry

import (
	"context"
	"testing"
)

func stub(name string) Tool {
	return Tool{
		Name:        name,
		Description: "stub " + name,
		Parameters: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
		},
		Execute: func(ctx context.Context, args map[string]interface{}) Result {
			return Result{Success: true}
		},
	}
}

func TestBackendForTool(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"docker_list_containers", BackendDocker},
		{"local_k8s_list_pods", BackendK8sLocal},
		{"k8s_list_pods", BackendK8sLocal},
		{"remote_k8s_promote_resource", BackendK8sRemote},
		{"chat", BackendChat},
	}
	for _, c := range cases {
		if got := BackendForTool(c.name); got != c.want {
			t.Errorf("BackendForTool(%q) = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestNew_RejectsDuplicates(t *testing.T) {
	if _, err := New(stub("docker_a"), stub("docker_a")); err == nil {
		t.Error("expected duplicate error")
	}
}

func TestFindAndList(t *testing.T) {
	r, err := New(stub("docker_list_containers"), stub("local_k8s_list_pods"))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	if _, ok := r.Find("docker_list_containers"); !ok {
		t.Error("Find(docker_list_containers) not found")
	}
	if _, ok := r.Find("nope"); ok {
		t.Error("Find(nope) should miss")
	}
	if got := len(r.List()); got != 2 {
		t.Errorf("List() has %d tools, want 2", got)
	}
}

func TestListByBackends(t *testing.T) {
	r, _ := New(stub("docker_list_containers"), stub("local_k8s_list_pods"), stub("remote_k8s_list_pods"))

	got := r.ListByBackends([]string{BackendK8sLocal, BackendK8sRemote})
	if len(got) != 2 {
		t.Fatalf("ListByBackends returned %d tools, want 2", len(got))
	}
	for _, tool := range got {
		if tool.Backend == BackendDocker {
			t.Errorf("docker tool %q leaked into k8s scope", tool.Name)
		}
	}
}

func TestAddRemove_NotifiesSubscribers(t *testing.T) {
	r, _ := New(stub("docker_list_containers"))

	var added, removed int
	r.Subscribe(func(ev ChangeEvent) {
		added += len(ev.Added)
		removed += len(ev.Removed)
	})

	if err := r.Add(stub("local_k8s_list_nodes")); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if err := r.Remove("docker_list_containers"); err != nil {
		t.Fatalf("Remove error: %v", err)
	}

	if added != 1 || removed != 1 {
		t.Errorf("subscriber saw added=%d removed=%d, want 1/1", added, removed)
	}
	if _, ok := r.Find("docker_list_containers"); ok {
		t.Error("removed tool still findable")
	}
	if _, ok := r.Find("local_k8s_list_nodes"); !ok {
		t.Error("added tool not findable")
	}
}

func TestRemove_KeepsIndexConsistent(t *testing.T) {
	r, _ := New(stub("docker_a"), stub("docker_b"), stub("docker_c"))
	if err := r.Remove("docker_a"); err != nil {
		t.Fatalf("Remove error: %v", err)
	}

	for _, name := range []string{"docker_b", "docker_c"} {
		tool, ok := r.Find(name)
		if !ok || tool.Name != name {
			t.Errorf("Find(%q) broken after removal: got %q ok=%v", name, tool.Name, ok)
		}
	}
}

func TestRequiredParams_JSONShapes(t *testing.T) {
	tool := Tool{Parameters: map[string]interface{}{
		"required": []interface{}{"namespace", "pod_name"},
	}}
	got := tool.RequiredParams()
	if len(got) != 2 || got[0] != "namespace" || got[1] != "pod_name" {
		t.Errorf("RequiredParams() = %v", got)
	}

	tool = Tool{Parameters: map[string]interface{}{"required": []string{"image"}}}
	if got := tool.RequiredParams(); len(got) != 1 || got[0] != "image" {
		t.Errorf("RequiredParams() = %v", got)
	}
}
