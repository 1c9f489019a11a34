/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package agent

import (
	"fmt"
	"strings"

	"github.com/NayanEupho/Agentic-DevOps/internal/registry"
)

// Validate checks a resolved call list against the registry: every name
// must be registered and every schema-required argument present. The empty
// string means valid.
func Validate(reg *registry.Registry, calls []registry.ToolCall) string {
	if len(calls) == 0 {
		return "no tool calls resolved"
	}

	var problems []string
	for i, call := range calls {
		tool, ok := reg.Find(call.Name)
		if !ok {
			problems = append(problems, fmt.Sprintf("call %d: tool %q does not exist", i, call.Name))
			continue
		}
		for _, req := range tool.RequiredParams() {
			if call.Arguments == nil {
				problems = append(problems, fmt.Sprintf("call %d (%s): missing required argument %q", i, call.Name, req))
				continue
			}
			if _, present := call.Arguments[req]; !present {
				problems = append(problems, fmt.Sprintf("call %d (%s): missing required argument %q", i, call.Name, req))
			}
		}
	}
	return strings.Join(problems, "; ")
}
