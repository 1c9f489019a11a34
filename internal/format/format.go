/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package format renders tool results for the user: Markdown tables and
// summaries per backend, an AI-assisted diagnostic for failures, and a
// generic JSON fallback for tools nobody special-cased.
package format

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/NayanEupho/Agentic-DevOps/internal/registry"
)

// Formatter renders successful results for the tools it recognizes.
type Formatter interface {
	CanFormat(toolName string) bool
	Format(toolName string, res registry.Result) string
}

// Diagnoser explains raw backend errors; the LLM agent implements it.
type Diagnoser interface {
	Diagnose(ctx context.Context, toolName, errSummary string, raw interface{}) (string, error)
}

// Registry fans a result out to the first formatter that claims the tool.
type Registry struct {
	formatters []Formatter
	diagnoser  Diagnoser
}

// NewRegistry builds the standard set. diagnoser may be nil; failures then
// render without the AI explanation.
func NewRegistry(diagnoser Diagnoser) *Registry {
	return &Registry{
		formatters: []Formatter{&DockerFormatter{}, &KubernetesFormatter{}},
		diagnoser:  diagnoser,
	}
}

// Format renders one tool result. Failures route to the diagnostics path.
func (r *Registry) Format(ctx context.Context, toolName string, res registry.Result) string {
	if !res.Success {
		return r.formatFailure(ctx, toolName, res)
	}
	for _, f := range r.formatters {
		if f.CanFormat(toolName) {
			return f.Format(toolName, res)
		}
	}
	enc, _ := json.MarshalIndent(res.Payload, "", "  ")
	return fmt.Sprintf("✅ **Result for %s**:\n```json\n%s\n```", toolName, enc)
}

// formatFailure renders the error, the raw payload when present, and an AI
// diagnostic when a diagnoser is wired and the backend gave us material.
func (r *Registry) formatFailure(ctx context.Context, toolName string, res registry.Result) string {
	if res.RawError == nil {
		return fmt.Sprintf("❌ Operation failed: %s", orUnknown(res.Err))
	}

	rawJSON, _ := json.MarshalIndent(res.RawError, "", "  ")
	out := fmt.Sprintf("❌ **Operation Failed**: %s\n\n🐛 **Raw API Error**:\n```json\n%s\n```",
		orUnknown(res.Err), rawJSON)

	if r.diagnoser != nil {
		if explanation, err := r.diagnoser.Diagnose(ctx, toolName, res.Err, res.RawError); err == nil {
			out += fmt.Sprintf("\n\n🤖 **AI Diagnostic**:\n%s", explanation)
		}
	}
	return out
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown error"
	}
	return s
}

// markdownTable renders headers and rows as a Markdown table.
func markdownTable(headers []string, rows [][]string) string {
	if len(headers) == 0 || len(rows) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("| " + strings.Join(headers, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(headers)) + "\n")
	for _, row := range rows {
		b.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// payloadList pulls a []map slice out of a payload field.
func payloadList(payload map[string]interface{}, key string) []map[string]interface{} {
	raw, _ := payload[key].([]interface{})
	out := make([]map[string]interface{}, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, m)
		}
	}
	return out
}

func str(m map[string]interface{}, key, def string) string {
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return def
}

func num(m map[string]interface{}, key string) int {
	if f, ok := m[key].(float64); ok {
		return int(f)
	}
	return 0
}
