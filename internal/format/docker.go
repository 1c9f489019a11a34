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
	"strings"

	"github.com/NayanEupho/Agentic-DevOps/internal/registry"
)

// DockerFormatter renders docker_* results.
type DockerFormatter struct{}

func (f *DockerFormatter) CanFormat(toolName string) bool {
	return strings.HasPrefix(toolName, "docker_")
}

func (f *DockerFormatter) Format(toolName string, res registry.Result) string {
	switch toolName {
	case "docker_list_containers":
		return f.formatContainerList(res)

	case "docker_run_container":
		msg := str(res.Payload, "message", "Container started.")
		return fmt.Sprintf("✅ **%s**\n\n| ID | Name |\n| --- | --- |\n| `%s` | **%s** |",
			msg, str(res.Payload, "container_id", "unknown"), str(res.Payload, "name", "unknown"))

	case "docker_stop_container":
		msg := str(res.Payload, "message", "Container stopped.")
		return fmt.Sprintf("✅ **%s**\n\n| ID | Name |\n| --- | --- |\n| `%s` | **%s** |",
			msg, str(res.Payload, "container_id", "unknown"), str(res.Payload, "name", "unknown"))

	case "docker_list_images":
		images := payloadList(res.Payload, "images")
		if len(images) == 0 {
			return "✅ Success! No images found."
		}
		rows := make([][]string, 0, len(images))
		for _, img := range images {
			rows = append(rows, []string{
				str(img, "repository", "?"),
				str(img, "tag", "?"),
				shortID(str(img, "id", "unknown")),
				str(img, "size", "?"),
			})
		}
		return fmt.Sprintf("✅ **Found %d image(s):**\n\n%s", len(images),
			markdownTable([]string{"Repository", "Tag", "ID", "Size"}, rows))
	}

	return fmt.Sprintf("✅ Tool '%s' executed successfully.", toolName)
}

func (f *DockerFormatter) formatContainerList(res registry.Result) string {
	containers := payloadList(res.Payload, "containers")
	count := num(res.Payload, "count")
	if count == 0 {
		count = len(containers)
	}
	if len(containers) == 0 {
		return "✅ Success! No containers found."
	}

	rows := make([][]string, 0, len(containers))
	for _, c := range containers {
		status := str(c, "status", "unknown")
		emoji := "🔴"
		if strings.Contains(status, "Up") || strings.EqualFold(status, "running") {
			emoji = "🟢"
		}
		rows = append(rows, []string{
			emoji,
			str(c, "name", "?"),
			shortID(str(c, "id", "unknown")),
			str(c, "image", "?"),
			status,
		})
	}
	return fmt.Sprintf("✅ **Found %d container(s):**\n\n%s", count,
		markdownTable([]string{"Status", "Name", "ID", "Image", "State"}, rows))
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
