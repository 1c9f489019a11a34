/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package orchestrator

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/NayanEupho/Agentic-DevOps/internal/registry"
)

// Scoped records the cache scope the turn resolved under.
func (r *Response) Scoped(scope string) { r.scope = scope }

// execute dispatches the calls concurrently and renders the results in
// input order. A failing call is surfaced in its own section; it does not
// abort the batch.
func (o *Orchestrator) execute(ctx context.Context, calls []registry.ToolCall) *Response {
	results := make([]registry.Result, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			tool, ok := o.reg.Find(call.Name)
			if !ok {
				// Validation upstream makes this unreachable; keep the
				// batch alive regardless.
				results[i] = registry.Failure("unknown tool " + call.Name)
				return nil
			}
			results[i] = tool.Execute(gctx, call.Arguments)
			return nil
		})
	}
	// Workers never return errors; they record failures in place.
	_ = g.Wait()

	if ctx.Err() != nil {
		return &Response{Output: "❌ Operation cancelled.", ToolCalls: calls}
	}

	allOK := true
	sections := make([]string, 0, len(calls))
	for i, call := range calls {
		if !results[i].Success {
			allOK = false
		}
		sections = append(sections, o.format.Format(ctx, call.Name, results[i]))
	}

	resp := &Response{
		Output:    strings.Join(sections, "\n\n"),
		ToolCalls: calls,
	}
	resp.executedOK = allOK
	return resp
}
