/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package tools declares the built-in descriptor set for the docker,
// local-k8s and remote-k8s backends plus the chat sentinel.
//
// The implementations live behind the backends' JSON-RPC surface; every
// Execute closure here dispatches through the shared client. What this
// package owns is the contract: names, descriptions and parameter schemas.
package tools

import (
	"context"

	"github.com/NayanEupho/Agentic-DevOps/internal/registry"
)

// Caller dispatches a tool call to its backend.
type Caller interface {
	Call(ctx context.Context, toolName string, args map[string]interface{}) (registry.Result, error)
}

// All returns the complete built-in descriptor set wired to the client.
func All(c Caller) []registry.Tool {
	var out []registry.Tool
	out = append(out, dockerTools(c)...)
	out = append(out, localK8sTools(c)...)
	out = append(out, remoteK8sTools(c)...)
	out = append(out, chatTool(c))
	return out
}

// dispatch builds the standard Execute closure for a named tool.
func dispatch(c Caller, name string) registry.ExecuteFunc {
	return func(ctx context.Context, args map[string]interface{}) registry.Result {
		res, err := c.Call(ctx, name, args)
		if err != nil {
			// Only context cancellation reaches here.
			return registry.Failure("Operation cancelled")
		}
		return res
	}
}

// obj is shorthand for a JSON-schema object.
func obj(properties map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{"type": typ, "description": description}
}

func propDefault(typ, description string, def interface{}) map[string]interface{} {
	return map[string]interface{}{"type": typ, "description": description, "default": def}
}

// chatTool is the small-talk sentinel; it rides on the docker endpoint by
// convention.
func chatTool(c Caller) registry.Tool {
	return registry.Tool{
		Name:        "chat",
		Description: "Respond conversationally to greetings, questions about the assistant, or anything that needs no infrastructure action.",
		Backend:     registry.BackendChat,
		Parameters: obj(map[string]interface{}{
			"message": prop("string", "The user's message to respond to"),
		}, "message"),
		Execute: dispatch(c, "chat"),
	}
}
