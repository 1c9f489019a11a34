/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/NayanEupho/Agentic-DevOps/internal/registry"
)

type recordingCaller struct {
	lastTool string
	lastArgs map[string]interface{}
}

func (r *recordingCaller) Call(ctx context.Context, toolName string, args map[string]interface{}) (registry.Result, error) {
	r.lastTool = toolName
	r.lastArgs = args
	return registry.Result{Success: true, Payload: map[string]interface{}{"success": true}}, nil
}

func TestAll_NamesUniqueAndConventional(t *testing.T) {
	set := All(&recordingCaller{})
	seen := map[string]bool{}
	for _, tool := range set {
		if seen[tool.Name] {
			t.Errorf("duplicate tool %q", tool.Name)
		}
		seen[tool.Name] = true

		if tool.Name != strings.ToLower(tool.Name) {
			t.Errorf("tool %q is not lowercased", tool.Name)
		}
		if tool.Description == "" {
			t.Errorf("tool %q has no description", tool.Name)
		}
		if tool.Execute == nil {
			t.Errorf("tool %q has no execute function", tool.Name)
		}
	}
}

func TestAll_RegistersCleanly(t *testing.T) {
	reg, err := registry.New(All(&recordingCaller{})...)
	if err != nil {
		t.Fatalf("registry rejected the built-in set: %v", err)
	}

	for _, name := range []string{
		"docker_list_containers",
		"docker_stop_container",
		"local_k8s_list_pods",
		"local_k8s_describe_pod",
		"remote_k8s_promote_resource",
		"remote_k8s_exec",
		"chat",
	} {
		if _, ok := reg.Find(name); !ok {
			t.Errorf("expected built-in tool %q", name)
		}
	}
}

func TestBackendAssignment(t *testing.T) {
	reg, _ := registry.New(All(&recordingCaller{})...)

	cases := map[string]string{
		"docker_list_containers": registry.BackendDocker,
		"local_k8s_list_pods":    registry.BackendK8sLocal,
		"remote_k8s_list_pods":   registry.BackendK8sRemote,
		"chat":                   registry.BackendChat,
	}
	for name, want := range cases {
		tool, _ := reg.Find(name)
		if tool.Backend != want {
			t.Errorf("tool %q backend = %q, want %q", name, tool.Backend, want)
		}
	}
}

func TestExecute_DispatchesThroughCaller(t *testing.T) {
	caller := &recordingCaller{}
	reg, _ := registry.New(All(caller)...)

	tool, _ := reg.Find("local_k8s_get_logs")
	args := map[string]interface{}{"pod_name": "web", "namespace": "default"}
	res := tool.Execute(context.Background(), args)

	if !res.Success {
		t.Fatalf("execute failed: %+v", res)
	}
	if caller.lastTool != "local_k8s_get_logs" {
		t.Errorf("dispatched %q", caller.lastTool)
	}
	if caller.lastArgs["pod_name"] != "web" {
		t.Errorf("args = %v", caller.lastArgs)
	}
}

func TestRequiredParams(t *testing.T) {
	reg, _ := registry.New(All(&recordingCaller{})...)

	cases := map[string][]string{
		"docker_stop_container":       {"container_id"},
		"remote_k8s_promote_resource": {"resource_type", "name"},
		"remote_k8s_exec":             {"pod_name", "command"},
		"docker_list_containers":      nil,
	}
	for name, want := range cases {
		tool, _ := reg.Find(name)
		got := tool.RequiredParams()
		if len(got) != len(want) {
			t.Errorf("%s required = %v, want %v", name, got, want)
			continue
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("%s required = %v, want %v", name, got, want)
			}
		}
	}
}
