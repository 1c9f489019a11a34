/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package backend is the JSON-RPC 2.0 client for the tool servers.
//
// Each backend (docker, local k8s, remote k8s) is one HTTP endpoint; the
// client picks the endpoint from the tool-name prefix and posts a
// {jsonrpc, method, params, id} envelope where method is the tool name.
// A single pooled http.Client is shared by every call, including the pulse
// probes, so concurrent invocations must be — and are — safe.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/NayanEupho/Agentic-DevOps/internal/metrics"
	"github.com/NayanEupho/Agentic-DevOps/internal/registry"
)

const jsonrpcVersion = "2.0"

// Endpoints maps backend ids to their base URLs.
type Endpoints struct {
	Docker    string
	K8sLocal  string
	K8sRemote string
}

// URLFor returns the endpoint for a backend id. The chat sentinel rides on
// the docker endpoint by convention.
func (e Endpoints) URLFor(backendID string) string {
	switch backendID {
	case registry.BackendK8sLocal:
		return e.K8sLocal
	case registry.BackendK8sRemote:
		return e.K8sRemote
	default:
		return e.Docker
	}
}

// RemoteCluster is the connection context for the remote Kubernetes
// cluster. The remote backend server is stateless about cluster access;
// the dispatcher owns this configuration and attaches it to every
// remote_ call.
type RemoteCluster struct {
	// APIURL is the remote cluster's API server.
	APIURL string

	// VerifySSL controls TLS verification against the cluster API.
	VerifySSL bool

	// Tokens supplies the bearer token. May be nil when the backend
	// server manages its own credentials.
	Tokens *TokenSource
}

// Client dispatches tool calls over JSON-RPC.
type Client struct {
	endpoints Endpoints
	remote    *RemoteCluster
	http      *http.Client
	log       logr.Logger
}

// New builds a client with the shared keep-alive pool: at most 10 idle
// connections in total and 20 connections per endpoint, sized for parallel
// tool calls plus the background pulses. The 20-connection limit applies to
// each endpoint separately; there is no cap across endpoints. remote may be
// nil when no remote cluster is configured.
func New(endpoints Endpoints, remote *RemoteCluster, timeout time.Duration, log logr.Logger) *Client {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     30 * time.Second,
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoints: endpoints,
		remote:    remote,
		http:      &http.Client{Transport: transport, Timeout: timeout},
		log:       log.WithName("backend"),
	}
}

type rpcRequest struct {
	JSONRPC string                 `json:"jsonrpc"`
	Method  string                 `json:"method"`
	Params  map[string]interface{} `json:"params"`
	ID      int                    `json:"id"`
}

type rpcResponse struct {
	JSONRPC string                 `json:"jsonrpc"`
	Result  map[string]interface{} `json:"result"`
	Error   interface{}            `json:"error"`
	ID      int                    `json:"id"`
}

// Call executes tool toolName with args against its backend.
// Transport failures, JSON-RPC errors and result.success=false all come back
// as a failed Result; the error return is reserved for context cancellation.
func (c *Client) Call(ctx context.Context, toolName string, args map[string]interface{}) (registry.Result, error) {
	backendID := registry.BackendForTool(toolName)
	url := c.endpoints.URLFor(backendID)

	ctx, span := otel.Tracer("devops-agent").Start(ctx, "backend.call")
	span.SetAttributes(attribute.String("tool", toolName), attribute.String("backend", backendID))
	defer span.End()

	if args == nil {
		args = map[string]interface{}{}
	}
	body, err := json.Marshal(rpcRequest{
		JSONRPC: jsonrpcVersion,
		Method:  toolName,
		Params:  args,
		ID:      1,
	})
	if err != nil {
		return registry.Failure(fmt.Sprintf("failed to encode request: %v", err)), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return registry.Failure(fmt.Sprintf("failed to build request: %v", err)), nil
	}
	req.Header.Set("Content-Type", "application/json")

	if backendID == registry.BackendK8sRemote && c.remote != nil {
		release := c.attachRemoteContext(req)
		defer release()
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.BackendLatency.WithLabelValues(backendID).Observe(time.Since(start).Seconds())

	if err != nil {
		if ctx.Err() != nil {
			return registry.Result{}, ctx.Err()
		}
		metrics.BackendCalls.WithLabelValues(backendID, "transport").Inc()
		return registry.Failure(transportMessage(err, url)), nil
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.BackendCalls.WithLabelValues(backendID, "error").Inc()
		var payload interface{}
		if err := json.Unmarshal(raw, &payload); err != nil {
			payload = map[string]interface{}{"message": string(raw)}
		}
		return registry.Result{
			Success:    false,
			Err:        fmt.Sprintf("Backend error (%d) from %s", resp.StatusCode, url),
			RawError:   payload,
			StatusCode: resp.StatusCode,
		}, nil
	}

	var rpc rpcResponse
	if err := json.Unmarshal(raw, &rpc); err != nil {
		metrics.BackendCalls.WithLabelValues(backendID, "error").Inc()
		return registry.Failure(fmt.Sprintf("invalid JSON-RPC response: %v", err)), nil
	}

	if rpc.Error != nil {
		metrics.BackendCalls.WithLabelValues(backendID, "error").Inc()
		return registry.Result{
			Success:  false,
			Err:      fmt.Sprintf("%v", rpc.Error),
			RawError: rpc.Error,
		}, nil
	}

	if rpc.Result == nil {
		metrics.BackendCalls.WithLabelValues(backendID, "error").Inc()
		return registry.Failure("No result returned"), nil
	}

	res := resultFromPayload(rpc.Result)
	if res.Success {
		metrics.BackendCalls.WithLabelValues(backendID, "ok").Inc()
	} else {
		metrics.BackendCalls.WithLabelValues(backendID, "error").Inc()
	}
	return res, nil
}

// attachRemoteContext adds the cluster connection headers to a remote_
// call: the bearer token, the API endpoint and the TLS flag, plus the
// scratch token file for kubectl-style tools on the shared host. The
// returned release removes the scratch file once the call finishes; a
// missing token is not fatal — the backend may hold its own credentials.
func (c *Client) attachRemoteContext(req *http.Request) func() {
	if c.remote.APIURL != "" {
		req.Header.Set("X-Remote-Cluster-Url", c.remote.APIURL)
	}
	req.Header.Set("X-Remote-Cluster-Verify-Ssl", strconv.FormatBool(c.remote.VerifySSL))

	if c.remote.Tokens == nil {
		return func() {}
	}
	tok, err := c.remote.Tokens.Token()
	if err != nil {
		c.log.V(1).Info("Remote cluster token unavailable", "reason", err.Error())
		return func() {}
	}
	req.Header.Set("Authorization", "Bearer "+tok)

	path, release, err := c.remote.Tokens.Materialize()
	if err != nil {
		c.log.V(1).Info("Could not materialize remote token file", "reason", err.Error())
		return func() {}
	}
	req.Header.Set("X-Remote-Cluster-Token-File", path)
	return release
}

// resultFromPayload lifts the tool-specific result object into a Result.
func resultFromPayload(payload map[string]interface{}) registry.Result {
	res := registry.Result{Payload: payload}

	success, ok := payload["success"].(bool)
	res.Success = ok && success

	if !res.Success {
		if msg, ok := payload["error"].(string); ok {
			res.Err = msg
		} else if res.Err == "" {
			res.Err = "tool reported failure"
		}
		res.RawError = payload["raw_error"]
		if code, ok := payload["status_code"].(float64); ok {
			res.StatusCode = int(code)
		}
	}
	return res
}

// transportMessage maps connect and timeout failures to distinct,
// user-readable messages. Never cached downstream.
func transportMessage(err error, url string) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Request timed out"
	}
	return fmt.Sprintf("Cannot connect to backend server at %s. Is it running?", url)
}
