/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package safety classifies tool calls by risk.
//
// The classifier is a pure function over (tool name, arguments): it never
// mutates state and never blocks anything itself. Callers enforce the gate —
// the orchestrator pauses dangerous calls until the turn carries approval.
package safety

import (
	"fmt"
	"strings"
)

// Risk levels.
const (
	LevelLow    = "LOW"
	LevelMedium = "MEDIUM"
	LevelHigh   = "HIGH"
)

// dangerousPrefixes marks whole tool families as destructive.
var dangerousPrefixes = []string{
	"docker_stop",
	"docker_rm",
	"docker_prune",
	"k8s_delete",
	"local_k8s_delete",
	"remote_k8s_delete",
	"remote_k8s_promote",
	"remote_k8s_exec",
}

// dangerousExact marks individual tools that don't follow a prefix pattern.
var dangerousExact = map[string]bool{
	"docker_run_container": true,
}

// Report is the risk assessment for one tool call.
type Report struct {
	Dangerous bool     `json:"dangerous"`
	Level     string   `json:"risk_level"`
	Reason    string   `json:"reason"`
	Impacts   []string `json:"impact_analysis"`
}

// IsDangerous reports whether the named tool requires confirmation.
func IsDangerous(toolName string) bool {
	if dangerousExact[toolName] {
		return true
	}
	for _, p := range dangerousPrefixes {
		if strings.HasPrefix(toolName, p) {
			return true
		}
	}
	return false
}

// Analyze produces the risk report for a tool call. Impact bullets are
// specific to the tool family so the confirmation prompt tells the user
// what actually happens, not just that "something is risky".
func Analyze(toolName string, args map[string]interface{}) Report {
	if !IsDangerous(toolName) {
		return Report{Dangerous: false, Level: LevelLow, Impacts: []string{}}
	}

	rep := Report{
		Dangerous: true,
		Level:     LevelHigh,
		Reason:    fmt.Sprintf("Tool '%s' performs destructive or resource-intensive actions.", toolName),
	}

	switch {
	case toolName == "docker_stop_container":
		cid := argString(args, "container_id", "unknown")
		rep.Impacts = []string{
			fmt.Sprintf("Stops container '%s' immediately.", cid),
			"Service interruption for applications in this container.",
			"Potential data loss in ephemeral volumes.",
		}

	case toolName == "docker_run_container":
		img := argString(args, "image", "unknown")
		rep.Level = LevelMedium
		rep.Impacts = []string{
			fmt.Sprintf("Starts new container from '%s'.", img),
			"Consumes system resources (CPU/RAM).",
			"Binds network ports.",
		}

	case strings.Contains(toolName, "prune"):
		rep.Impacts = []string{
			"Removes ALL stopped containers at once.",
			"Cannot be undone.",
			"Frees disk space but destroys stopped-container state.",
		}

	case strings.Contains(toolName, "delete") || strings.HasPrefix(toolName, "docker_rm"):
		rep.Impacts = []string{
			"PERMANENTLY removes the target resource.",
			"Cannot be undone.",
			"Service interruption.",
		}

	case strings.Contains(toolName, "exec"):
		cmd := argString(args, "command", "")
		if cmd == "" {
			cmd = argString(args, "cmd", "unknown command")
		}
		rep.Impacts = []string{
			fmt.Sprintf("Executes arbitrary command: '%s'", cmd),
			"Full shell access risks.",
			"Potential system modification.",
		}

	case strings.Contains(toolName, "promote"):
		name := argString(args, "name", "unknown")
		resType := argString(args, "resource_type", "resource")
		rep.Impacts = []string{
			fmt.Sprintf("Copies %s '%s' to the Remote Cluster.", resType, name),
			"Modifies remote cluster state.",
			"Potential for configuration drift if versions mismatch.",
		}

	default:
		rep.Impacts = []string{"Modifies infrastructure state."}
	}

	return rep
}

func argString(args map[string]interface{}, key, def string) string {
	if args == nil {
		return def
	}
	switch v := args[key].(type) {
	case string:
		if v != "" {
			return v
		}
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			parts = append(parts, fmt.Sprintf("%v", p))
		}
		if len(parts) > 0 {
			return strings.Join(parts, " ")
		}
	}
	return def
}
