/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package tools

import "github.com/NayanEupho/Agentic-DevOps/internal/registry"

func dockerTools(c Caller) []registry.Tool {
	return []registry.Tool{
		{
			Name:        "docker_list_containers",
			Description: "List Docker containers with their id, name, image and status. Shows running containers by default.",
			Parameters: obj(map[string]interface{}{
				"all": propDefault("boolean", "Include stopped containers", false),
			}),
			Execute: dispatch(c, "docker_list_containers"),
		},
		{
			Name:        "docker_list_images",
			Description: "List Docker images available locally with repository, tag and size.",
			Parameters:  obj(map[string]interface{}{}),
			Execute:     dispatch(c, "docker_list_images"),
		},
		{
			Name:        "docker_run_container",
			Description: "Start a new container from an image. Optionally bind ports and set a container name.",
			Parameters: obj(map[string]interface{}{
				"image": prop("string", "Image to run, e.g. 'nginx:latest'"),
				"name":  prop("string", "Container name (generated when omitted)"),
				"ports": prop("string", "Port binding, e.g. '8080:80'"),
			}, "image"),
			Execute: dispatch(c, "docker_run_container"),
		},
		{
			Name:        "docker_stop_container",
			Description: "Stop a running container by id or name.",
			Parameters: obj(map[string]interface{}{
				"container_id": prop("string", "Container id or name to stop"),
			}, "container_id"),
			Execute: dispatch(c, "docker_stop_container"),
		},
		{
			Name:        "docker_remove_container",
			Description: "Remove a stopped container by id or name.",
			Parameters: obj(map[string]interface{}{
				"container_id": prop("string", "Container id or name to remove"),
				"force":        propDefault("boolean", "Force-remove a running container", false),
			}, "container_id"),
			Execute: dispatch(c, "docker_remove_container"),
		},
		{
			Name:        "docker_prune_containers",
			Description: "Remove all stopped containers at once to free disk space.",
			Parameters:  obj(map[string]interface{}{}),
			Execute:     dispatch(c, "docker_prune_containers"),
		},
		{
			Name:        "docker_container_logs",
			Description: "Fetch recent log lines from a container.",
			Parameters: obj(map[string]interface{}{
				"container_id": prop("string", "Container id or name"),
				"lines":        propDefault("integer", "Number of trailing lines", 100),
			}, "container_id"),
			Execute: dispatch(c, "docker_container_logs"),
		},
	}
}
