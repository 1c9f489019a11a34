/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package agent

import (
	"testing"

	"github.com/NayanEupho/Agentic-DevOps/internal/registry"
)

func TestParse_BareArray(t *testing.T) {
	out := `[
		{"name": "remote_k8s_list_pods", "arguments": {"namespace": "default"}},
		{"name": "local_k8s_list_nodes", "arguments": {}}
	]`
	res := Parse(out)
	if res.Failed {
		t.Fatalf("parse failed: %s", res.Reason)
	}
	if len(res.Calls) != 2 {
		t.Fatalf("got %d calls, want 2", len(res.Calls))
	}
	if res.Calls[0].Name != "remote_k8s_list_pods" || res.Calls[1].Name != "local_k8s_list_nodes" {
		t.Errorf("calls = %+v", res.Calls)
	}
	if res.Calls[0].Arguments["namespace"] != "default" {
		t.Errorf("namespace = %v", res.Calls[0].Arguments["namespace"])
	}
}

func TestParse_FencedBlockInProse(t *testing.T) {
	out := "Based on your request, I will list pods and nodes.\n" +
		"```json\n" +
		`[{"name": "tool_A", "arguments": {"x": 1}}, {"name": "tool_B", "arguments": {"y": 2}}]` +
		"\n```\n"
	res := Parse(out)
	if res.Failed {
		t.Fatalf("parse failed: %s", res.Reason)
	}
	if len(res.Calls) != 2 || res.Calls[0].Name != "tool_A" || res.Calls[1].Name != "tool_B" {
		t.Errorf("calls = %+v", res.Calls)
	}
}

func TestParse_ProseWithEmbeddedArray(t *testing.T) {
	out := `Sure! Here is what I'll do: [{"name": "docker_list_containers", "arguments": {}}] — executing now.`
	res := Parse(out)
	if res.Failed {
		t.Fatalf("parse failed: %s", res.Reason)
	}
	if len(res.Calls) != 1 || res.Calls[0].Name != "docker_list_containers" {
		t.Errorf("calls = %+v", res.Calls)
	}
}

func TestParse_SingleObject(t *testing.T) {
	res := Parse(`{"name": "chat", "arguments": {"message": "hi"}}`)
	if res.Failed {
		t.Fatalf("parse failed: %s", res.Reason)
	}
	if len(res.Calls) != 1 || res.Calls[0].Name != "chat" {
		t.Errorf("calls = %+v", res.Calls)
	}
}

func TestParse_KeyAliases(t *testing.T) {
	cases := []string{
		`[{"tool_name": "docker_list_containers", "parameters": {"all": true}}]`,
		`[{"tool": "docker_list_containers", "input": {"all": true}}]`,
	}
	for _, out := range cases {
		res := Parse(out)
		if res.Failed {
			t.Fatalf("parse failed for %q: %s", out, res.Reason)
		}
		if res.Calls[0].Name != "docker_list_containers" {
			t.Errorf("name = %q", res.Calls[0].Name)
		}
		if res.Calls[0].Arguments["all"] != true {
			t.Errorf("args = %v", res.Calls[0].Arguments)
		}
	}
}

func TestParse_Shorthands(t *testing.T) {
	res := Parse(`["docker_list_containers", {"all": true}]`)
	if res.Failed {
		t.Fatalf("pair shorthand failed: %s", res.Reason)
	}
	if res.Calls[0].Name != "docker_list_containers" || res.Calls[0].Arguments["all"] != true {
		t.Errorf("calls = %+v", res.Calls)
	}

	res = Parse(`["docker_list_containers"]`)
	if res.Failed {
		t.Fatalf("single shorthand failed: %s", res.Reason)
	}
	if res.Calls[0].Name != "docker_list_containers" || len(res.Calls[0].Arguments) != 0 {
		t.Errorf("calls = %+v", res.Calls)
	}
}

func TestParse_BareStringsInList(t *testing.T) {
	res := Parse(`[{"name": "docker_list_containers", "arguments": {}}, "local_k8s_list_pods", {"name": "chat", "arguments": {}}]`)
	if res.Failed {
		t.Fatalf("parse failed: %s", res.Reason)
	}
	if len(res.Calls) != 3 || res.Calls[1].Name != "local_k8s_list_pods" {
		t.Errorf("calls = %+v", res.Calls)
	}
}

func TestParse_PermissiveRepair(t *testing.T) {
	// Single quotes, python literals, trailing comma.
	out := `[{'name': 'docker_list_containers', 'arguments': {'all': True},},]`
	res := Parse(out)
	if res.Failed {
		t.Fatalf("repair failed: %s", res.Reason)
	}
	if res.Calls[0].Name != "docker_list_containers" || res.Calls[0].Arguments["all"] != true {
		t.Errorf("calls = %+v", res.Calls)
	}
}

func TestParse_Rejects(t *testing.T) {
	for _, out := range []string{"", "   ", "I cannot help with that.", "null", "42"} {
		res := Parse(out)
		if !res.Failed {
			t.Errorf("Parse(%q) should fail, got %+v", out, res.Calls)
		}
	}
}

func TestParse_ObjectWithoutName(t *testing.T) {
	res := Parse(`[{"arguments": {"x": 1}}]`)
	if !res.Failed {
		t.Errorf("expected failure, got %+v", res.Calls)
	}
}

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New(
		registry.Tool{
			Name:        "docker_list_containers",
			Description: "List containers",
			Parameters:  map[string]interface{}{"type": "object", "properties": map[string]interface{}{}},
		},
		registry.Tool{
			Name:        "local_k8s_get_logs",
			Description: "Fetch pod logs",
			Parameters: map[string]interface{}{
				"type":     "object",
				"required": []interface{}{"pod_name"},
			},
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func TestValidate_UnknownTool(t *testing.T) {
	reg := newTestRegistry(t)
	problems := Validate(reg, []registry.ToolCall{{Name: "docker_fly", Arguments: map[string]interface{}{}}})
	if problems == "" {
		t.Error("unknown tool accepted")
	}
}

func TestValidate_MissingRequired(t *testing.T) {
	reg := newTestRegistry(t)
	problems := Validate(reg, []registry.ToolCall{{Name: "local_k8s_get_logs", Arguments: map[string]interface{}{"namespace": "default"}}})
	if problems == "" {
		t.Error("missing required arg accepted")
	}

	problems = Validate(reg, []registry.ToolCall{{Name: "local_k8s_get_logs", Arguments: map[string]interface{}{"pod_name": "web"}}})
	if problems != "" {
		t.Errorf("valid call rejected: %s", problems)
	}
}

func TestValidate_EmptyList(t *testing.T) {
	if Validate(newTestRegistry(t), nil) == "" {
		t.Error("empty call list accepted")
	}
}
