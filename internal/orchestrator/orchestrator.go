/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package orchestrator drives a query through the pipeline:
//
//	received → smart-routed → cache-checked → tier-cascaded
//	       → safety-gated → (awaiting-approval | executing)
//	       → formatted → cached → responded
//
// It owns no long-lived state beyond references to the singletons; every
// cache and index mutation goes through the owning component.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/NayanEupho/Agentic-DevOps/internal/agent"
	"github.com/NayanEupho/Agentic-DevOps/internal/cache"
	"github.com/NayanEupho/Agentic-DevOps/internal/format"
	"github.com/NayanEupho/Agentic-DevOps/internal/metrics"
	"github.com/NayanEupho/Agentic-DevOps/internal/pulse"
	"github.com/NayanEupho/Agentic-DevOps/internal/registry"
	"github.com/NayanEupho/Agentic-DevOps/internal/retriever"
	"github.com/NayanEupho/Agentic-DevOps/internal/router"
	"github.com/NayanEupho/Agentic-DevOps/internal/safety"
	"github.com/NayanEupho/Agentic-DevOps/internal/session"
)

// Request is one user turn.
type Request struct {
	SessionID string
	Query     string

	// ForcedBackends clamps the candidate set, overriding smart routing.
	ForcedBackends []string

	// PreApproved authorizes dangerous calls for this turn only. The CLI
	// sets it on the re-invocation that follows an interactive "yes".
	PreApproved bool
}

// Confirmation is the payload returned when a dangerous call is pending.
type Confirmation struct {
	Tool      string                 `json:"tool"`
	Arguments map[string]interface{} `json:"arguments"`
	Risk      safety.Report          `json:"risk"`
}

// Option is one numbered disambiguation choice.
type Option struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Tool  string `json:"tool"`
}

// Response is the turn's outcome. Exactly one of the terminal shapes is
// populated: plain output, a confirmation request, or disambiguation
// options.
type Response struct {
	Output         string              `json:"output"`
	ToolCalls      []registry.ToolCall `json:"tool_calls,omitempty"`
	Confirmation   *Confirmation       `json:"confirmation_request,omitempty"`
	Disambiguation []Option            `json:"disambiguation,omitempty"`
	Cached         bool                `json:"cached,omitempty"`
	Tier           string              `json:"tier,omitempty"`

	// turn-internal state, set during execution
	executedOK bool
	scope      string
}

// Orchestrator wires the tiers together.
type Orchestrator struct {
	reg       *registry.Registry
	exact     *router.ExactRouter
	intent    *router.IntentRouter
	retriever *retriever.Retriever
	agent     *agent.Agent
	cache     *cache.SemanticCache
	pulse     *pulse.Monitor
	sessions  *session.Store
	format    *format.Registry
	tracker   *TurnTracker

	safetyConfirm bool
	log           logr.Logger
}

// Deps bundles the constructor dependencies.
type Deps struct {
	Registry  *registry.Registry
	Exact     *router.ExactRouter
	Intent    *router.IntentRouter
	Retriever *retriever.Retriever
	Agent     *agent.Agent
	Cache     *cache.SemanticCache
	Pulse     *pulse.Monitor
	Sessions  *session.Store
	Format    *format.Registry

	// SafetyConfirm gates dangerous calls behind confirmation.
	SafetyConfirm bool
}

// New builds the orchestrator.
func New(d Deps, log logr.Logger) *Orchestrator {
	return &Orchestrator{
		reg:           d.Registry,
		exact:         d.Exact,
		intent:        d.Intent,
		retriever:     d.Retriever,
		agent:         d.Agent,
		cache:         d.Cache,
		pulse:         d.Pulse,
		sessions:      d.Sessions,
		format:        d.Format,
		tracker:       NewTurnTracker(),
		safetyConfirm: d.SafetyConfirm,
		log:           log.WithName("orchestrator"),
	}
}

// Tracker exposes the in-flight count for the shutdown drain.
func (o *Orchestrator) Tracker() *TurnTracker {
	return o.tracker
}

// Handle processes one turn. Unexpected internal failures come back as a
// generic failure response; the process never crashes on a query.
func (o *Orchestrator) Handle(ctx context.Context, req Request) *Response {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return &Response{Output: "❌ Empty query."}
	}

	ctx, span := otel.Tracer("devops-agent").Start(ctx, "orchestrator.turn")
	span.SetAttributes(attribute.String("session", req.SessionID))
	defer span.End()

	done := o.tracker.Begin(req.SessionID)
	defer done()

	sess, err := o.sessions.GetOrCreate(req.SessionID, firstWords(query))
	if err != nil {
		o.log.Error(err, "Session store unavailable")
		return &Response{Output: fmt.Sprintf("❌ Session store error: %v", err)}
	}
	if err := o.sessions.AddMessage(sess.ID, "user", query); err != nil {
		o.log.Error(err, "Failed to log user message")
	}

	resp := o.resolveAndExecute(ctx, req, sess, query)

	if ctx.Err() != nil {
		return &Response{Output: "❌ Operation cancelled."}
	}

	o.postCommit(ctx, sess, query, resp)
	return resp
}

// resolveAndExecute runs routing, the cascade, the safety gate and
// execution for one turn.
func (o *Orchestrator) resolveAndExecute(ctx context.Context, req Request, sess *session.Session, query string) *Response {
	// Smart routing.
	backends := req.ForcedBackends
	if len(backends) == 0 {
		backends = SmartRoute(query, sess.LastBackend, o.pulse)
		backends = o.widenByNamedResources(query, backends)
	}
	scope := cache.CanonicalScope(backends)
	o.log.V(1).Info("Routed", "query", query, "backends", backends)

	// Cache check.
	if hit, err := o.cache.Lookup(ctx, query, scope); err == nil && hit != nil {
		metrics.Resolutions.WithLabelValues("cache").Inc()
		return &Response{
			Output:    hit.Output,
			ToolCalls: hit.ToolCalls,
			Cached:    true,
			Tier:      "cache",
		}
	}

	// Cascade.
	calls, tier := o.cascade(ctx, query, backends, sess)
	metrics.Resolutions.WithLabelValues(tier).Inc()
	if len(calls) == 0 {
		return &Response{
			Output: "🤔 I couldn't map that request to any operation. Try rephrasing, or name the backend (docker, local, remote).",
			Tier:   tier,
		}
	}

	// Disambiguation for anaphoric describes that match in more than one
	// backend.
	if options := o.disambiguate(query, calls); len(options) > 0 {
		return &Response{
			Output:         "🤔 That name exists in more than one place. Which one did you mean?",
			ToolCalls:      calls,
			Disambiguation: options,
			Tier:           tier,
		}
	}

	// Safety gate.
	if o.safetyConfirm && !req.PreApproved {
		for _, call := range calls {
			rep := safety.Analyze(call.Name, call.Arguments)
			if !rep.Dangerous {
				continue
			}
			o.log.Info("Dangerous call paused for approval", "tool", call.Name, "level", rep.Level)
			return &Response{
				Output:    fmt.Sprintf("🛑 **Approval required**: %s (%s risk). %s", call.Name, rep.Level, rep.Reason),
				ToolCalls: calls,
				Confirmation: &Confirmation{
					Tool:      call.Name,
					Arguments: call.Arguments,
					Risk:      rep,
				},
				Tier: tier,
			}
		}
	}

	// Execution + formatting.
	resp := o.execute(ctx, calls)
	resp.Tier = tier
	resp.Scoped(scope)
	return resp
}

// cascade tries each tier in order and stops at the first validated list.
func (o *Orchestrator) cascade(ctx context.Context, query string, backends []string, sess *session.Session) ([]registry.ToolCall, string) {
	tr := otel.Tracer("devops-agent")

	// Tier 1: exact/regex.
	_, span := tr.Start(ctx, "tier.regex")
	calls, ok := o.exact.Route(query)
	span.End()
	if ok && agent.Validate(o.reg, calls) == "" && o.inScope(calls, backends) {
		return calls, "regex"
	}

	// Tier 2: semantic intent.
	intentCtx, span := tr.Start(ctx, "tier.intent")
	calls, _, ok = o.intent.Route(intentCtx, query)
	span.End()
	if ok && agent.Validate(o.reg, calls) == "" && o.inScope(calls, backends) {
		return calls, "intent"
	}

	// Tier 3: RAG shortlist + LLM.
	llmCtx, span := tr.Start(ctx, "tier.llm")
	defer span.End()

	shortlist, err := o.retriever.RetrieveScoped(llmCtx, query, retriever.DefaultTopK, backends)
	if err != nil || len(shortlist) == 0 {
		shortlist = o.reg.ListByBackends(backends)
	}

	res := o.agent.Resolve(llmCtx, session.History(sess), shortlist, query)
	if !res.Validated {
		o.log.Info("LLM resolution failed", "reason", res.Err)
		return nil, "none"
	}
	if res.Stage == "fast" {
		return res.Calls, "llm_fast"
	}
	return res.Calls, "llm_cot"
}

// inScope rejects a tier's answer when it targets a backend outside the
// routed candidate set (a forced override must stay forced).
func (o *Orchestrator) inScope(calls []registry.ToolCall, backends []string) bool {
	allowed := make(map[string]bool, len(backends))
	for _, b := range backends {
		allowed[b] = true
	}
	for _, call := range calls {
		if !allowed[registry.BackendForTool(call.Name)] {
			return false
		}
	}
	return true
}

// widenByNamedResources adds the backends holding any resource the query
// names. "describe nginx-abc" carries no backend keyword, but the pulse
// discovery index knows where nginx-abc lives; the bare-name scan covers
// references that carry no kind either.
func (o *Orchestrator) widenByNamedResources(query string, backends []string) []string {
	if o.pulse == nil {
		return backends
	}

	have := make(map[string]bool, len(backends))
	for _, b := range backends {
		have[b] = true
	}

	added := false
	for _, word := range strings.Fields(strings.ToLower(query)) {
		word = strings.Trim(word, ".,;:!?'\"")
		if len(word) < 3 {
			continue
		}
		if kind, locs := o.pulse.Resources().FindByName(word); kind != "" {
			for _, loc := range locs {
				if !have[loc.Backend] {
					have[loc.Backend] = true
					added = true
				}
			}
		}
	}
	if !added {
		return backends
	}

	out := make([]string, 0, len(have))
	for id := range have {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// disambiguate returns numbered options when an anaphoric describe/logs
// call targets a resource name the pulse index locates in several
// backends and the query names neither cluster.
func (o *Orchestrator) disambiguate(query string, calls []registry.ToolCall) []Option {
	if len(calls) != 1 || o.pulse == nil {
		return nil
	}
	name := calls[0].Name
	if !strings.Contains(name, "describe") && !strings.Contains(name, "get_logs") {
		return nil
	}
	if !isAnaphoric(query) {
		return nil
	}
	q := strings.ToLower(query)
	if strings.Contains(q, "local") || strings.Contains(q, "remote") {
		return nil
	}

	target, _ := calls[0].Arguments["pod_name"].(string)
	if target == "" {
		return nil
	}
	locs := o.pulse.Resources().Lookup("pod", target)
	if len(locs) < 2 {
		return nil
	}

	var options []Option
	for i, loc := range locs {
		variant := variantFor(name, loc.Backend)
		if variant == "" {
			continue
		}
		options = append(options, Option{
			Key:   fmt.Sprintf("%d", i+1),
			Label: fmt.Sprintf("%s on %s (namespace %s)", target, loc.Backend, loc.Namespace),
			Tool:  variant,
		})
	}
	if len(options) < 2 {
		return nil
	}
	return options
}

// variantFor maps a k8s tool to its counterpart on the given backend.
func variantFor(toolName, backendID string) string {
	base := strings.TrimPrefix(strings.TrimPrefix(toolName, "local_k8s_"), "remote_k8s_")
	switch backendID {
	case registry.BackendK8sLocal:
		return "local_k8s_" + base
	case registry.BackendK8sRemote:
		return "remote_k8s_" + base
	}
	return ""
}

// ExecuteCalls runs an already-resolved call list for a session — the
// programmatic entry point the CLI uses after a disambiguation choice.
// The safety gate still applies; the semantic cache is not written because
// there is no query text to key it by.
func (o *Orchestrator) ExecuteCalls(ctx context.Context, sessionID string, calls []registry.ToolCall, preApproved bool) *Response {
	done := o.tracker.Begin(sessionID)
	defer done()

	if problems := agent.Validate(o.reg, calls); problems != "" {
		return &Response{Output: fmt.Sprintf("❌ Invalid tool calls: %s", problems)}
	}

	if o.safetyConfirm && !preApproved {
		for _, call := range calls {
			rep := safety.Analyze(call.Name, call.Arguments)
			if !rep.Dangerous {
				continue
			}
			return &Response{
				Output:    fmt.Sprintf("🛑 **Approval required**: %s (%s risk). %s", call.Name, rep.Level, rep.Reason),
				ToolCalls: calls,
				Confirmation: &Confirmation{
					Tool:      call.Name,
					Arguments: call.Arguments,
					Risk:      rep,
				},
			}
		}
	}

	resp := o.execute(ctx, calls)
	if ctx.Err() != nil {
		return &Response{Output: "❌ Operation cancelled."}
	}

	if enc, err := json.Marshal(calls); err == nil {
		_ = o.sessions.AddMessage(sessionID, "assistant", string(enc))
	}
	_ = o.sessions.AddMessage(sessionID, "user", "[System Output] "+resp.Output)
	if resp.executedOK && len(calls) > 0 {
		_ = o.sessions.SetLastBackend(sessionID, registry.BackendForTool(calls[0].Name))
	}
	return resp
}

// postCommit appends the turn to the session log, updates the sticky
// backend and inserts into the semantic cache when the policy allows.
func (o *Orchestrator) postCommit(ctx context.Context, sess *session.Session, query string, resp *Response) {
	if len(resp.ToolCalls) > 0 {
		if enc, err := json.Marshal(resp.ToolCalls); err == nil {
			_ = o.sessions.AddMessage(sess.ID, "assistant", string(enc))
		}
	}
	if resp.Output != "" {
		_ = o.sessions.AddMessage(sess.ID, "user", "[System Output] "+resp.Output)
	}

	if resp.Confirmation != nil || resp.Disambiguation != nil || resp.Cached {
		return
	}

	if resp.executedOK && len(resp.ToolCalls) > 0 {
		backendID := registry.BackendForTool(resp.ToolCalls[0].Name)
		if err := o.sessions.SetLastBackend(sess.ID, backendID); err != nil {
			o.log.Error(err, "Failed to update sticky backend")
		}
		if err := o.cache.Add(ctx, query, resp.Output, resp.ToolCalls, resp.scope); err != nil {
			o.log.Error(err, "Semantic cache insert failed")
		}
	}
}

func firstWords(q string) string {
	words := strings.Fields(q)
	if len(words) > 6 {
		words = words[:6]
	}
	return strings.Join(words, " ")
}
