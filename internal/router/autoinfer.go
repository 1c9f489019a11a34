/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package router

import (
	"encoding/json"
	"os"
	"regexp"
	"strings"

	"github.com/NayanEupho/Agentic-DevOps/internal/registry"
)

// inferRule maps a tool-name shape to a query pattern and argument mapping.
type inferRule struct {
	nameRe  *regexp.Regexp
	pattern string
	args    map[string]interface{}
}

// inferRules recognizes the naming conventions the backends follow
// (<backend>_<verb>_<object>). Tools named local_/remote_ get the scope
// word prefixed so "local list pods" and "remote list pods" stay distinct.
var inferRules = []inferRule{
	{
		nameRe:  regexp.MustCompile(`.*_describe_pod$`),
		pattern: `describe (?:the )?(?:pod )?(?P<pod>[\w-]+)`,
		args:    map[string]interface{}{"pod_name": "{pod}", "namespace": "default"},
	},
	{
		nameRe:  regexp.MustCompile(`.*_describe_node$`),
		pattern: `describe (?:the )?node (?P<node>[\w-]+)`,
		args:    map[string]interface{}{"node_name": "{node}"},
	},
	{
		nameRe:  regexp.MustCompile(`.*_describe_service$`),
		pattern: `describe (?:the )?service (?P<service>[\w-]+)`,
		args:    map[string]interface{}{"service_name": "{service}"},
	},
	{
		nameRe:  regexp.MustCompile(`.*_describe_deployment$`),
		pattern: `describe (?:the )?deployment (?P<deployment>[\w-]+)`,
		args:    map[string]interface{}{"deployment_name": "{deployment}"},
	},
	{
		nameRe:  regexp.MustCompile(`.*_get_logs$`),
		pattern: `(?:get |show )?logs (?:for )?(?:pod )?(?P<pod>[\w-]+)`,
		args:    map[string]interface{}{"pod_name": "{pod}"},
	},
	{
		nameRe:  regexp.MustCompile(`.*_list_pods$`),
		pattern: `(?:list|show) (?:all )?pods\s*$`,
		args:    map[string]interface{}{},
	},
	{
		nameRe:  regexp.MustCompile(`.*_list_nodes$`),
		pattern: `(?:list|show) (?:all )?nodes\s*$`,
		args:    map[string]interface{}{},
	},
	{
		nameRe:  regexp.MustCompile(`.*_list_services$`),
		pattern: `(?:list|show) (?:all )?services\s*$`,
		args:    map[string]interface{}{},
	},
	{
		nameRe:  regexp.MustCompile(`.*_list_deployments$`),
		pattern: `(?:list|show) (?:all )?deployments\s*$`,
		args:    map[string]interface{}{},
	},
	{
		nameRe:  regexp.MustCompile(`.*_list_namespaces$`),
		pattern: `(?:list|show) (?:all )?namespaces\s*$`,
		args:    map[string]interface{}{},
	},
	{
		nameRe:  regexp.MustCompile(`.*_top_nodes$`),
		pattern: `(?:top|metrics for) nodes\s*$`,
		args:    map[string]interface{}{},
	},
	{
		nameRe:  regexp.MustCompile(`.*_top_pods$`),
		pattern: `(?:top|metrics for) pods\s*$`,
		args:    map[string]interface{}{},
	},
	{
		nameRe:  regexp.MustCompile(`.*_list_containers$`),
		pattern: `(?:list|show) (?:all )?(?:docker )?containers\s*$`,
		args:    map[string]interface{}{},
	},
	{
		nameRe:  regexp.MustCompile(`.*_list_images$`),
		pattern: `(?:list|show) (?:all )?(?:docker )?images\s*$`,
		args:    map[string]interface{}{},
	},
}

// InferTemplate derives a regex template from a tool's naming shape.
// Returns false when the name matches no recognized convention.
func InferTemplate(tool registry.Tool) (Template, bool) {
	for _, rule := range inferRules {
		if !rule.nameRe.MatchString(tool.Name) {
			continue
		}

		scope := ""
		switch {
		case strings.HasPrefix(tool.Name, "remote_k8s_"):
			scope = "remote "
		case strings.HasPrefix(tool.Name, "local_k8s_"):
			scope = "local "
		}

		return Template{
			Name:    "auto_" + tool.Name,
			Pattern: scope + rule.pattern,
			Tool:    tool.Name,
			Args:    rule.args,
			Auto:    true,
		}, true
	}
	return Template{}, false
}

// InferAll derives templates for every recognizable tool.
func InferAll(tools []registry.Tool) []Template {
	var out []Template
	for _, t := range tools {
		if tpl, ok := InferTemplate(t); ok {
			out = append(out, tpl)
		}
	}
	return out
}

// autoTemplateFile is the persisted shape, matching the manual file.
type autoTemplateFile struct {
	Templates []Template `json:"templates"`
}

// SaveAutoTemplates persists inferred templates atomically.
func SaveAutoTemplates(path string, templates []Template) error {
	return saveJSON(path, autoTemplateFile{Templates: templates})
}

// LoadAutoTemplates reads a previously persisted inferred set. A missing
// file returns an empty slice: inference regenerates it at startup.
func LoadAutoTemplates(path string) ([]Template, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var f autoTemplateFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, err
	}
	return f.Templates, nil
}
