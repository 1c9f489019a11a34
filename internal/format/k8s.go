/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package format

import (
	"fmt"
	"sort"
	"strings"

	"github.com/NayanEupho/Agentic-DevOps/internal/registry"
)

// KubernetesFormatter renders *_k8s_* results for both clusters.
type KubernetesFormatter struct{}

func (f *KubernetesFormatter) CanFormat(toolName string) bool {
	return strings.Contains(toolName, "k8s_")
}

func (f *KubernetesFormatter) Format(toolName string, res registry.Result) string {
	switch {
	case strings.Contains(toolName, "list_pods"):
		return f.formatPodList(toolName, res)
	case strings.Contains(toolName, "list_nodes"):
		return f.formatNodeList(toolName, res)
	case strings.Contains(toolName, "get_logs"):
		return f.formatLogs(res)
	case strings.Contains(toolName, "describe_"):
		return f.formatDescribe(res)
	case strings.Contains(toolName, "list_events"):
		return f.formatEvents(res)
	case strings.Contains(toolName, "top_nodes"), strings.Contains(toolName, "top_pods"):
		return f.formatTop(toolName, res)
	}
	return fmt.Sprintf("✅ K8s Tool '%s' executed successfully.", toolName)
}

func scopeOf(toolName string) string {
	if strings.HasPrefix(toolName, "remote_") {
		return "REMOTE"
	}
	return "LOCAL"
}

func (f *KubernetesFormatter) formatPodList(toolName string, res registry.Result) string {
	pods := payloadList(res.Payload, "pods")
	ns := str(res.Payload, "namespace", "unknown")
	scope := scopeOf(toolName)
	if len(pods) == 0 {
		return fmt.Sprintf("✅ Success! No pods in '%s' (%s).", ns, scope)
	}

	phases := map[string]int{}
	rows := make([][]string, 0, len(pods))
	for _, p := range pods {
		phase := str(p, "phase", "Unknown")
		phases[phase]++

		emoji := "🔴"
		switch phase {
		case "Running":
			emoji = "🟢"
		case "Pending":
			emoji = "🟡"
		}
		rows = append(rows, []string{
			emoji + " " + phase,
			str(p, "name", "?"),
			str(p, "pod_ip", "?"),
			str(p, "ready", "?"),
			str(p, "node", "?"),
		})
	}

	keys := make([]string, 0, len(phases))
	for k := range phases {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %d", k, phases[k]))
	}

	return fmt.Sprintf("✅ **Kubernetes Pods in '%s' (%s)**\n*Summary: %s*\n\n%s",
		ns, scope, strings.Join(parts, ", "),
		markdownTable([]string{"Status", "Name", "IP", "Ready", "Node"}, rows))
}

func (f *KubernetesFormatter) formatNodeList(toolName string, res registry.Result) string {
	nodes := payloadList(res.Payload, "nodes")
	if len(nodes) == 0 {
		return fmt.Sprintf("✅ Success! No nodes found (%s).", scopeOf(toolName))
	}

	rows := make([][]string, 0, len(nodes))
	for _, n := range nodes {
		status := str(n, "status", "Unknown")
		emoji := "🔴"
		if status == "Ready" {
			emoji = "🟢"
		}
		rows = append(rows, []string{
			emoji + " " + status,
			str(n, "name", "?"),
			str(n, "roles", "?"),
			str(n, "version", "?"),
		})
	}
	return fmt.Sprintf("✅ **Kubernetes Nodes (%s)**\n\n%s", scopeOf(toolName),
		markdownTable([]string{"Status", "Name", "Roles", "Version"}, rows))
}

func (f *KubernetesFormatter) formatLogs(res registry.Result) string {
	logs := str(res.Payload, "logs", "")
	pod := str(res.Payload, "pod_name", "?")
	ns := str(res.Payload, "namespace", "default")
	lines := num(res.Payload, "lines_fetched")
	return fmt.Sprintf("✅ **Logs for pod '%s' in '%s'** (%d lines):\n```\n%s\n```", pod, ns, lines, logs)
}

func (f *KubernetesFormatter) formatDescribe(res registry.Result) string {
	data := str(res.Payload, "data", "")
	if data == "" {
		enc := fmt.Sprintf("%v", res.Payload["data"])
		data = enc
	}
	if strings.Contains(data, "Name:") {
		return fmt.Sprintf("📋 **Detailed Description**:\n```yaml\n%s\n```", data)
	}
	return fmt.Sprintf("✅ **Resource Details**:\n%s", data)
}

func (f *KubernetesFormatter) formatEvents(res registry.Result) string {
	events := payloadList(res.Payload, "events")
	if len(events) == 0 {
		return "✅ Success! No events found."
	}
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		rows = append(rows, []string{
			str(e, "type", "?"),
			str(e, "reason", "?"),
			str(e, "message", "?"),
			fmt.Sprintf("%d", num(e, "count")),
		})
	}
	return fmt.Sprintf("✅ **Events (%d):**\n\n%s", len(events),
		markdownTable([]string{"Type", "Reason", "Message", "Count"}, rows))
}

func (f *KubernetesFormatter) formatTop(toolName string, res registry.Result) string {
	key := "nodes"
	if strings.Contains(toolName, "top_pods") {
		key = "pods"
	}
	items := payloadList(res.Payload, key)
	if len(items) == 0 {
		return "✅ Success! No metrics available."
	}
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{
			str(it, "name", "?"),
			str(it, "cpu_usage", "?"),
			str(it, "memory_usage", "?"),
		})
	}
	return fmt.Sprintf("✅ **Resource usage (%s):**\n\n%s", strings.ToUpper(key),
		markdownTable([]string{"Name", "CPU", "Memory"}, rows))
}
