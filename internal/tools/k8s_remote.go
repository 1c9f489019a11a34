/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package tools

import "github.com/NayanEupho/Agentic-DevOps/internal/registry"

func remoteK8sTools(c Caller) []registry.Tool {
	return []registry.Tool{
		{
			Name:        "remote_k8s_list_pods",
			Description: "List pods in the REMOTE Kubernetes cluster with phase, IP, node and readiness.",
			Parameters: obj(map[string]interface{}{
				"namespace":      propDefault("string", "Namespace to list", "default"),
				"label_selector": prop("string", "Label selector, e.g. 'app=web'"),
			}),
			Execute: dispatch(c, "remote_k8s_list_pods"),
		},
		{
			Name:        "remote_k8s_list_nodes",
			Description: "List nodes of the REMOTE cluster with status, roles and version.",
			Parameters:  obj(map[string]interface{}{}),
			Execute:     dispatch(c, "remote_k8s_list_nodes"),
		},
		{
			Name:        "remote_k8s_list_namespaces",
			Description: "List namespaces of the REMOTE cluster.",
			Parameters:  obj(map[string]interface{}{}),
			Execute:     dispatch(c, "remote_k8s_list_namespaces"),
		},
		{
			Name:        "remote_k8s_describe_pod",
			Description: "Describe a pod in the REMOTE cluster: events, conditions, containers, volumes.",
			Parameters: obj(map[string]interface{}{
				"pod_name":  prop("string", "Pod to describe"),
				"namespace": propDefault("string", "Pod namespace", "default"),
			}, "pod_name"),
			Execute: dispatch(c, "remote_k8s_describe_pod"),
		},
		{
			Name:        "remote_k8s_get_logs",
			Description: "Fetch recent log lines from a pod in the REMOTE cluster.",
			Parameters: obj(map[string]interface{}{
				"pod_name":  prop("string", "Pod to read logs from"),
				"namespace": propDefault("string", "Pod namespace", "default"),
				"lines":     propDefault("integer", "Number of trailing lines", 100),
				"container": prop("string", "Container name for multi-container pods"),
			}, "pod_name"),
			Execute: dispatch(c, "remote_k8s_get_logs"),
		},
		{
			Name:        "remote_k8s_list_events",
			Description: "List recent events in the REMOTE cluster, newest first. Useful for debugging scheduling and crash loops.",
			Parameters: obj(map[string]interface{}{
				"namespace":     propDefault("string", "Namespace to inspect", "default"),
				"resource_name": prop("string", "Filter events to one resource"),
			}),
			Execute: dispatch(c, "remote_k8s_list_events"),
		},
		{
			Name:        "remote_k8s_top_nodes",
			Description: "Show CPU and memory usage per node of the REMOTE cluster (metrics API).",
			Parameters:  obj(map[string]interface{}{}),
			Execute:     dispatch(c, "remote_k8s_top_nodes"),
		},
		{
			Name:        "remote_k8s_top_pods",
			Description: "Show CPU and memory usage per pod in a REMOTE namespace (metrics API).",
			Parameters: obj(map[string]interface{}{
				"namespace": propDefault("string", "Namespace to inspect", "default"),
			}),
			Execute: dispatch(c, "remote_k8s_top_pods"),
		},
		{
			Name:        "remote_k8s_list_services",
			Description: "List services in the REMOTE cluster with type, cluster IP and ports.",
			Parameters: obj(map[string]interface{}{
				"namespace": propDefault("string", "Namespace to list", "default"),
			}),
			Execute: dispatch(c, "remote_k8s_list_services"),
		},
		{
			Name:        "remote_k8s_get_service_url",
			Description: "Resolve the externally reachable URL of a service in the REMOTE cluster.",
			Parameters: obj(map[string]interface{}{
				"service_name": prop("string", "Service to resolve"),
				"namespace":    propDefault("string", "Service namespace", "default"),
			}, "service_name"),
			Execute: dispatch(c, "remote_k8s_get_service_url"),
		},
		{
			Name: "remote_k8s_exec",
			Description: "Execute a command inside a pod of the REMOTE cluster. " +
				"Only safe read-only commands are allowed by the backend.",
			Parameters: obj(map[string]interface{}{
				"pod_name":  prop("string", "Target pod"),
				"namespace": propDefault("string", "Pod namespace", "default"),
				"command":   prop("array", "Command and arguments, e.g. [\"ls\", \"/\"]"),
			}, "pod_name", "command"),
			Execute: dispatch(c, "remote_k8s_exec"),
		},
		{
			Name: "remote_k8s_promote_resource",
			Description: "Promote a resource (deployment/service/pod/configmap/secret) from the LOCAL cluster " +
				"to the REMOTE cluster, applying production optimizations (limits, probes).",
			Parameters: obj(map[string]interface{}{
				"resource_type": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"deployment", "service", "pod", "configmap", "secret"},
					"description": "Type of resource to promote",
				},
				"name":             prop("string", "Resource name in the LOCAL cluster"),
				"local_namespace":  propDefault("string", "Namespace in the LOCAL cluster", "default"),
				"remote_namespace": prop("string", "Namespace in the REMOTE cluster (defaults to local_namespace)"),
				"optimize":         propDefault("boolean", "Apply production-grade optimizations", true),
			}, "resource_type", "name"),
			Execute: dispatch(c, "remote_k8s_promote_resource"),
		},
		{
			Name:        "remote_k8s_delete_resource",
			Description: "Delete a resource from the REMOTE cluster. Destructive and permanent.",
			Parameters: obj(map[string]interface{}{
				"resource_type": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"deployment", "service", "pod", "configmap"},
					"description": "Type of resource to delete",
				},
				"name":      prop("string", "Resource name"),
				"namespace": propDefault("string", "Resource namespace", "default"),
			}, "resource_type", "name"),
			Execute: dispatch(c, "remote_k8s_delete_resource"),
		},
	}
}
