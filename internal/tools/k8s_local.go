/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package tools

import "github.com/NayanEupho/Agentic-DevOps/internal/registry"

func localK8sTools(c Caller) []registry.Tool {
	return []registry.Tool{
		{
			Name:        "local_k8s_list_pods",
			Description: "List pods in the LOCAL Kubernetes cluster with phase, IP, node and readiness.",
			Parameters: obj(map[string]interface{}{
				"namespace":      propDefault("string", "Namespace to list", "default"),
				"label_selector": prop("string", "Label selector, e.g. 'app=web'"),
			}),
			Execute: dispatch(c, "local_k8s_list_pods"),
		},
		{
			Name:        "local_k8s_list_nodes",
			Description: "List nodes of the LOCAL Kubernetes cluster with status, roles and version.",
			Parameters:  obj(map[string]interface{}{}),
			Execute:     dispatch(c, "local_k8s_list_nodes"),
		},
		{
			Name:        "local_k8s_describe_pod",
			Description: "Describe a pod in the LOCAL cluster: events, conditions, containers, volumes.",
			Parameters: obj(map[string]interface{}{
				"pod_name":  prop("string", "Pod to describe"),
				"namespace": propDefault("string", "Pod namespace", "default"),
			}, "pod_name"),
			Execute: dispatch(c, "local_k8s_describe_pod"),
		},
		{
			Name:        "local_k8s_get_logs",
			Description: "Fetch recent log lines from a pod in the LOCAL cluster.",
			Parameters: obj(map[string]interface{}{
				"pod_name":  prop("string", "Pod to read logs from"),
				"namespace": propDefault("string", "Pod namespace", "default"),
				"lines":     propDefault("integer", "Number of trailing lines", 100),
			}, "pod_name"),
			Execute: dispatch(c, "local_k8s_get_logs"),
		},
		{
			Name:        "local_k8s_list_services",
			Description: "List services in the LOCAL cluster with type, cluster IP and ports.",
			Parameters: obj(map[string]interface{}{
				"namespace": propDefault("string", "Namespace to list", "default"),
			}),
			Execute: dispatch(c, "local_k8s_list_services"),
		},
		{
			Name:        "local_k8s_list_deployments",
			Description: "List deployments in the LOCAL cluster with replica counts and images.",
			Parameters: obj(map[string]interface{}{
				"namespace": propDefault("string", "Namespace to list", "default"),
			}),
			Execute: dispatch(c, "local_k8s_list_deployments"),
		},
		{
			Name:        "local_k8s_delete_pod",
			Description: "Delete a pod from the LOCAL cluster. Destructive: the pod is removed permanently.",
			Parameters: obj(map[string]interface{}{
				"pod_name":  prop("string", "Pod to delete"),
				"namespace": propDefault("string", "Pod namespace", "default"),
			}, "pod_name"),
			Execute: dispatch(c, "local_k8s_delete_pod"),
		},
	}
}
