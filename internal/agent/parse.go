/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package agent is the two-stage LLM reasoner: a zero-shot JSON producer
// with a permissive parse pipeline, then a chain-of-thought fallback that
// retries with the prior validation error appended.
package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/NayanEupho/Agentic-DevOps/internal/registry"
)

// ParseResult is an explicit outcome variant: either Calls or a Reason.
// Retries are driven by this data, not by exceptions.
type ParseResult struct {
	Calls  []registry.ToolCall
	Failed bool
	Reason string
}

func parseFailed(format string, args ...interface{}) ParseResult {
	return ParseResult{Failed: true, Reason: fmt.Sprintf(format, args...)}
}

// Parse runs the tolerant pipeline over raw model output:
//
//  1. trim and strip fenced code blocks
//  2. when the output is prose, extract the first balanced JSON value
//  3. apply a permissive repair pass
//  4. normalize item shapes (key aliases, string/pair shorthands)
//
// Accepted shapes: a bare array of calls, a single call object, bare
// tool-name strings as list items, ["name"] and ["name", {args}]
// shorthands, and any of those fenced or embedded in prose. Output with no
// '[' or '{' is rejected, so a top-level bare string never parses.
func Parse(raw string) ParseResult {
	text := strings.TrimSpace(raw)
	if text == "" {
		return parseFailed("empty model output")
	}

	text = stripFences(text)
	text = extractJSON(text)
	if text == "" {
		return parseFailed("no JSON value found in model output")
	}

	var value interface{}
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		repaired := repairJSON(text)
		if err2 := json.Unmarshal([]byte(repaired), &value); err2 != nil {
			return parseFailed("output is not valid JSON: %v", err)
		}
	}

	calls, err := normalize(value)
	if err != nil {
		return parseFailed("%v", err)
	}
	if len(calls) == 0 {
		return parseFailed("model produced an empty call list")
	}
	return ParseResult{Calls: calls}
}

// stripFences removes a surrounding ``` block, with or without a language tag.
func stripFences(s string) string {
	start := strings.Index(s, "```")
	if start < 0 {
		return s
	}
	rest := s[start+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		// Drop the language tag line when present.
		firstLine := strings.TrimSpace(rest[:nl])
		if firstLine == "" || isIdent(firstLine) {
			rest = rest[nl+1:]
		}
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

func isIdent(s string) bool {
	for _, c := range s {
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return len(s) > 0
}

// extractJSON locates the first '[' or '{' and returns the substring up to
// its balanced closer, counting brackets outside string literals; text
// before and after that value is dropped. Returns empty when no bracket
// exists.
func extractJSON(s string) string {
	start := strings.IndexAny(s, "[{")
	if start < 0 {
		return ""
	}
	open := s[start]
	var close byte = ']'
	if open == '{' {
		close = '}'
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case !inString && c == open:
			depth++
		case !inString && c == close:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	// Unbalanced: hand back the tail and let the repair pass try.
	return s[start:]
}

// repairJSON applies the permissive fixes the models commonly need:
// python-style literals, single-quoted strings, trailing commas, and a
// missing closing bracket.
func repairJSON(s string) string {
	var b strings.Builder
	inString := false
	quote := byte(0)
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			b.WriteByte(c)
			escaped = false
		case inString && c == '\\':
			b.WriteByte(c)
			escaped = true
		case inString && c == quote:
			b.WriteByte('"')
			inString = false
		case inString:
			if c == '"' && quote == '\'' {
				b.WriteString(`\"`)
			} else {
				b.WriteByte(c)
			}
		case c == '"' || c == '\'':
			inString = true
			quote = c
			b.WriteByte('"')
		case c == ',':
			// Drop trailing commas before a closer.
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\n' || s[j] == '\t' || s[j] == '\r') {
				j++
			}
			if j < len(s) && (s[j] == ']' || s[j] == '}') {
				continue
			}
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}

	out := b.String()
	out = strings.ReplaceAll(out, "True", "true")
	out = strings.ReplaceAll(out, "False", "false")
	out = strings.ReplaceAll(out, "None", "null")

	// Close what the model forgot to.
	opens := strings.Count(out, "[") - strings.Count(out, "]")
	for ; opens > 0; opens-- {
		out += "]"
	}
	opens = strings.Count(out, "{") - strings.Count(out, "}")
	for ; opens > 0; opens-- {
		out += "}"
	}
	return out
}

// normalize converts the decoded JSON value into tool calls.
func normalize(value interface{}) ([]registry.ToolCall, error) {
	switch v := value.(type) {
	case map[string]interface{}:
		call, err := normalizeObject(v)
		if err != nil {
			return nil, err
		}
		return []registry.ToolCall{call}, nil

	case []interface{}:
		if len(v) == 0 {
			return nil, nil
		}
		// ["name"] and ["name", {args}] are sugar for one call.
		if name, ok := v[0].(string); ok && len(v) <= 2 {
			args := map[string]interface{}{}
			if len(v) == 2 {
				obj, ok := v[1].(map[string]interface{})
				if !ok {
					return nil, fmt.Errorf("call pair [name, args]: args must be an object, got %T", v[1])
				}
				args = obj
			}
			return []registry.ToolCall{{Name: name, Arguments: args}}, nil
		}

		calls := make([]registry.ToolCall, 0, len(v))
		for i, item := range v {
			call, err := normalizeItem(item)
			if err != nil {
				return nil, fmt.Errorf("call %d: %v", i, err)
			}
			calls = append(calls, call)
		}
		return calls, nil

	case string:
		// A bare tool name.
		if strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("empty tool name")
		}
		return []registry.ToolCall{{Name: v, Arguments: map[string]interface{}{}}}, nil

	default:
		return nil, fmt.Errorf("unsupported JSON shape %T", value)
	}
}

func normalizeItem(item interface{}) (registry.ToolCall, error) {
	switch v := item.(type) {
	case map[string]interface{}:
		return normalizeObject(v)
	case string:
		return registry.ToolCall{Name: v, Arguments: map[string]interface{}{}}, nil
	case []interface{}:
		// Nested [name, args] pair inside a list.
		if len(v) >= 1 {
			if name, ok := v[0].(string); ok {
				args := map[string]interface{}{}
				if len(v) >= 2 {
					if obj, ok := v[1].(map[string]interface{}); ok {
						args = obj
					}
				}
				return registry.ToolCall{Name: name, Arguments: args}, nil
			}
		}
		return registry.ToolCall{}, fmt.Errorf("array item is not a [name, args] pair")
	default:
		return registry.ToolCall{}, fmt.Errorf("unsupported item shape %T", item)
	}
}

// normalizeObject accepts the key aliases the models produce.
func normalizeObject(obj map[string]interface{}) (registry.ToolCall, error) {
	var name string
	for _, key := range []string{"name", "tool_name", "tool"} {
		if s, ok := obj[key].(string); ok && s != "" {
			name = s
			break
		}
	}
	if name == "" {
		return registry.ToolCall{}, fmt.Errorf("object has no tool name (tried name, tool_name, tool)")
	}

	args := map[string]interface{}{}
	for _, key := range []string{"arguments", "parameters", "input"} {
		if m, ok := obj[key].(map[string]interface{}); ok {
			args = m
			break
		}
	}
	return registry.ToolCall{Name: name, Arguments: args}, nil
}
