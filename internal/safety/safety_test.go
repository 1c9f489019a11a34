/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package safety

import (
	"strings"
	"testing"
)

func TestIsDangerous(t *testing.T) {
	cases := []struct {
		tool string
		want bool
	}{
		{"docker_stop_container", true},
		{"docker_rm_container", true},
		{"docker_prune_containers", true},
		{"docker_run_container", true},
		{"local_k8s_delete_pod", true},
		{"remote_k8s_delete_resource", true},
		{"remote_k8s_promote_resource", true},
		{"remote_k8s_exec", true},
		{"docker_list_containers", false},
		{"local_k8s_list_pods", false},
		{"remote_k8s_get_logs", false},
		{"chat", false},
	}
	for _, c := range cases {
		if got := IsDangerous(c.tool); got != c.want {
			t.Errorf("IsDangerous(%q) = %v, want %v", c.tool, got, c.want)
		}
	}
}

func TestAnalyze_SafeTool(t *testing.T) {
	rep := Analyze("docker_list_containers", nil)
	if rep.Dangerous {
		t.Error("list tool flagged dangerous")
	}
	if rep.Level != LevelLow {
		t.Errorf("Level = %q, want LOW", rep.Level)
	}
	if rep.Impacts == nil {
		t.Error("Impacts should be empty, not nil")
	}
}

func TestAnalyze_StopContainer(t *testing.T) {
	rep := Analyze("docker_stop_container", map[string]interface{}{"container_id": "123abc456"})
	if !rep.Dangerous || rep.Level != LevelHigh {
		t.Fatalf("stop container: dangerous=%v level=%q", rep.Dangerous, rep.Level)
	}
	if len(rep.Impacts) == 0 || !strings.Contains(rep.Impacts[0], "123abc456") {
		t.Errorf("impact bullets should name the container: %v", rep.Impacts)
	}
}

func TestAnalyze_Exec_CommandVariants(t *testing.T) {
	rep := Analyze("remote_k8s_exec", map[string]interface{}{"command": []interface{}{"ls", "/"}})
	if !strings.Contains(rep.Impacts[0], "ls /") {
		t.Errorf("exec impact should quote command: %v", rep.Impacts)
	}

	rep = Analyze("remote_k8s_exec", map[string]interface{}{"cmd": "uptime"})
	if !strings.Contains(rep.Impacts[0], "uptime") {
		t.Errorf("exec impact should fall back to cmd key: %v", rep.Impacts)
	}
}

func TestAnalyze_Promote(t *testing.T) {
	rep := Analyze("remote_k8s_promote_resource", map[string]interface{}{
		"resource_type": "deployment",
		"name":          "nginx",
	})
	if !strings.Contains(rep.Impacts[0], "deployment 'nginx'") {
		t.Errorf("promote impact should name the resource: %v", rep.Impacts)
	}
}

func TestAnalyze_IsPure(t *testing.T) {
	args := map[string]interface{}{"container_id": "abc"}
	first := Analyze("docker_stop_container", args)
	second := Analyze("docker_stop_container", args)

	if first.Reason != second.Reason || len(first.Impacts) != len(second.Impacts) {
		t.Error("Analyze is not deterministic")
	}
	if args["container_id"] != "abc" {
		t.Error("Analyze mutated its arguments")
	}
}
