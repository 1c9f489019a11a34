/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/NayanEupho/Agentic-DevOps/internal/llm"
	"github.com/NayanEupho/Agentic-DevOps/internal/registry"
	"github.com/NayanEupho/Agentic-DevOps/internal/session"
)

// DefaultMaxRetries bounds the chain-of-thought attempts of Stage B.
const DefaultMaxRetries = 2

// Agent resolves queries the deterministic tiers couldn't.
type Agent struct {
	llm        llm.Completer
	reg        *registry.Registry
	maxRetries int
	log        logr.Logger
}

// New builds the reasoner. maxRetries ≤ 0 selects the default.
func New(completer llm.Completer, reg *registry.Registry, maxRetries int, log logr.Logger) *Agent {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return &Agent{
		llm:        completer,
		reg:        reg,
		maxRetries: maxRetries,
		log:        log.WithName("agent"),
	}
}

// Resolution is the agent's final answer. Validated=false means every
// attempt failed validation and Calls holds the last (unusable) prediction
// with the reason in Err — callers must treat that as "no resolution".
type Resolution struct {
	Calls     []registry.ToolCall
	Validated bool
	Stage     string // "fast" or "cot"
	Err       string
}

const promptContract = `You select tools for a DevOps assistant.
Respond with ONLY a JSON list of tool calls: [{"name": "<tool>", "arguments": {...}}].
Rules:
- Use only the tools listed below; never invent names.
- Fill every required argument from the user's request.
- A request naming several things ("list pods and nodes") needs one call per thing.
- For small talk or questions about yourself, call the "chat" tool with {"message": <the user text>}.
`

// Resolve runs Stage A (fast zero-shot) and, when parsing or validation
// fails, Stage B (chain-of-thought with the prior error appended), up to
// maxRetries attempts.
func (a *Agent) Resolve(ctx context.Context, history []session.Message, tools []registry.Tool, query string) Resolution {
	prompt := a.buildPrompt(history, tools, query, "", false)

	out, err := a.llm.CompleteFast(ctx, prompt)
	if err != nil {
		a.log.Error(err, "Fast model unavailable, escalating")
		return a.resolveCoT(ctx, history, tools, query, "")
	}

	res, ok := a.parseAndValidate(out)
	if ok {
		res.Stage = "fast"
		return res
	}
	a.log.V(1).Info("Fast path failed, escalating", "reason", res.Err)
	return a.resolveCoT(ctx, history, tools, query, res.Err)
}

func (a *Agent) resolveCoT(ctx context.Context, history []session.Message, tools []registry.Tool, query, priorErr string) Resolution {
	last := Resolution{Stage: "cot", Err: priorErr}

	for attempt := 0; attempt < a.maxRetries; attempt++ {
		prompt := a.buildPrompt(history, tools, query, last.Err, true)

		out, err := a.llm.CompleteSmart(ctx, prompt)
		if err != nil {
			last.Err = fmt.Sprintf("llm error: %v", err)
			if ctx.Err() != nil {
				return last
			}
			continue
		}

		res, ok := a.parseAndValidate(out)
		res.Stage = "cot"
		if ok {
			return res
		}
		a.log.V(1).Info("CoT attempt failed", "attempt", attempt+1, "reason", res.Err)
		last = res
	}
	// The final prediction is returned even when still invalid; callers
	// detect failure via Validated.
	return last
}

// parseAndValidate runs the shared pipeline and the registry check.
func (a *Agent) parseAndValidate(out string) (Resolution, bool) {
	parsed := Parse(out)
	if parsed.Failed {
		return Resolution{Err: parsed.Reason}, false
	}
	if problems := Validate(a.reg, parsed.Calls); problems != "" {
		return Resolution{Calls: parsed.Calls, Err: problems}, false
	}
	return Resolution{Calls: parsed.Calls, Validated: true}, true
}

func (a *Agent) buildPrompt(history []session.Message, tools []registry.Tool, query, priorErr string, cot bool) string {
	var b strings.Builder
	b.WriteString(promptContract)

	if cot {
		b.WriteString("\nThink step by step about which backend and tool the request needs, " +
			"then output only the final JSON list on the last line.\n")
	}

	b.WriteString("\nAvailable tools:\n")
	schemas := make([]map[string]interface{}, 0, len(tools))
	for _, t := range tools {
		schemas = append(schemas, t.Schema())
	}
	enc, _ := json.Marshal(schemas)
	b.Write(enc)
	b.WriteString("\n")

	if len(history) > 0 {
		b.WriteString("\nConversation so far:\n")
		for _, m := range history {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
	}

	if priorErr != "" {
		fmt.Fprintf(&b, "\nYour previous answer was rejected: %s\nFix it.\n", priorErr)
	}

	fmt.Fprintf(&b, "\nUser request: %s\n", query)
	return b.String()
}

// Diagnose asks the smart model to explain a raw backend error for the
// diagnostics formatter. One shot, no retries — a failed diagnosis falls
// back to the raw payload.
func (a *Agent) Diagnose(ctx context.Context, toolName, errSummary string, raw interface{}) (string, error) {
	rawJSON, _ := json.MarshalIndent(raw, "", "  ")
	prompt := fmt.Sprintf(
		"A DevOps tool call failed. Explain the likely root cause and the next step in at most four sentences.\n"+
			"Action: %s\nError: %s\nRaw API error:\n%s\n",
		toolName, errSummary, rawJSON)
	return a.llm.CompleteSmart(ctx, prompt)
}
