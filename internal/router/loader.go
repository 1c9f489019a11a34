/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package router

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// IntentsFile is the curated routing data: authored regex templates and
// semantic examples, maintained by hand in DATA_DIR/intents.yaml.
type IntentsFile struct {
	Templates []Template `json:"templates"`
	Semantic  []Intent   `json:"semantic"`
}

// LoadIntentsFile reads the curated set. A missing file falls back to the
// built-in defaults so a fresh checkout routes sensibly.
func LoadIntentsFile(path string) (*IntentsFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultIntents(), nil
		}
		return nil, fmt.Errorf("read intents file %s: %w", path, err)
	}

	var f IntentsFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse intents file %s: %w", path, err)
	}
	return &f, nil
}

// DefaultIntents is the built-in curated set. Manual templates cover the
// highest-traffic phrasings; semantic examples catch their paraphrases.
func DefaultIntents() *IntentsFile {
	return &IntentsFile{
		Templates: []Template{
			{
				Name:    "list_containers",
				Pattern: `(?:list|show)(?: all)?(?: docker)? containers\s*$`,
				Tool:    "docker_list_containers",
				Args:    map[string]interface{}{},
			},
			{
				Name:    "stop_container",
				Pattern: `stop (?:the )?container (?P<id>[\w-]+)`,
				Tool:    "docker_stop_container",
				Args:    map[string]interface{}{"container_id": "{id}"},
			},
			{
				Name:    "list_pods_in_namespace",
				Pattern: `(?:list|show)(?: all)? pods in (?:namespace )?(?P<ns>[\w-]+)`,
				Tool:    "local_k8s_list_pods",
				Args:    map[string]interface{}{"namespace": "{ns}"},
			},
			{
				Name:    "remote_logs_for_pod",
				Pattern: `remote (?:get |show )?logs (?:for )?(?:pod )?(?P<pod>[\w-]+)`,
				Tool:    "remote_k8s_get_logs",
				Args:    map[string]interface{}{"pod_name": "{pod}", "namespace": "default"},
			},
		},
		Semantic: []Intent{
			{Text: "what containers are running", Tool: "docker_list_containers"},
			{Text: "show me the docker images on this machine", Tool: "docker_list_images"},
			{Text: "what pods do we have locally", Tool: "local_k8s_list_pods", Args: map[string]interface{}{"namespace": "default"}},
			{Text: "show the nodes of the remote cluster", Tool: "remote_k8s_list_nodes"},
			{Text: "how much cpu are the remote nodes using", Tool: "remote_k8s_top_nodes"},
			{Text: "list the namespaces on the remote cluster", Tool: "remote_k8s_list_namespaces"},
		},
	}
}
