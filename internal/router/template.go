/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package router implements the deterministic routing tiers: the exact/regex
// template tier and the embedding-backed intent tier. Both exist to resolve
// common queries without an LLM hop.
package router

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/NayanEupho/Agentic-DevOps/internal/registry"
)

// Template binds a compiled pattern to a tool call. Argument values may
// contain {group} placeholders resolved from the pattern's named captures.
type Template struct {
	Name    string                 `json:"name"`
	Pattern string                 `json:"pattern"`
	Tool    string                 `json:"tool"`
	Args    map[string]interface{} `json:"args"`
	Auto    bool                   `json:"auto_generated,omitempty"`

	re *regexp.Regexp
}

// Compile prepares the case-insensitive pattern. Templates are compiled
// once at load; a bad pattern is rejected here, not at query time.
func (t *Template) Compile() error {
	re, err := regexp.Compile("(?i)" + t.Pattern)
	if err != nil {
		return fmt.Errorf("template %q: invalid pattern: %w", t.Name, err)
	}
	t.re = re
	return nil
}

// Match tries the template against a query. On success it returns the tool
// call with placeholders substituted from named captures.
func (t *Template) Match(query string) (registry.ToolCall, bool) {
	if t.re == nil {
		return registry.ToolCall{}, false
	}
	m := t.re.FindStringSubmatch(query)
	if m == nil {
		return registry.ToolCall{}, false
	}

	groups := map[string]string{}
	for i, name := range t.re.SubexpNames() {
		if name != "" && i < len(m) {
			groups[name] = m[i]
		}
	}

	args := make(map[string]interface{}, len(t.Args))
	for k, v := range t.Args {
		s, ok := v.(string)
		if !ok || !strings.Contains(s, "{") {
			args[k] = v
			continue
		}
		args[k] = interpolate(s, groups)
	}
	return registry.ToolCall{Name: t.Tool, Arguments: args}, true
}

// interpolate replaces {group} placeholders with captured values.
// Unknown placeholders resolve to the empty string, matching the
// behaviour of a missing optional capture.
func interpolate(s string, groups map[string]string) string {
	var b strings.Builder
	for {
		open := strings.IndexByte(s, '{')
		if open < 0 {
			b.WriteString(s)
			return b.String()
		}
		close := strings.IndexByte(s[open:], '}')
		if close < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:open])
		b.WriteString(groups[s[open+1:open+close]])
		s = s[open+close+1:]
	}
}
