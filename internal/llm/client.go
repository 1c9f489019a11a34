/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package llm wraps the completion and embedding endpoints.
//
// Two completion variants are kept: the fast model serves the zero-shot
// first pass, the smart model serves the chain-of-thought fallback and the
// error diagnostics. Embeddings run against a dedicated lightweight model so
// the cache/intent/retrieval tiers stay cheap.
package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"golang.org/x/sync/singleflight"

	"github.com/NayanEupho/Agentic-DevOps/internal/metrics"
)

const embedCacheLimit = 256

// Options configures the client.
type Options struct {
	SmartModel string
	SmartHost  string
	FastModel  string
	FastHost   string

	EmbeddingModel string
	EmbeddingHost  string

	Temperature float64
	Timeout     time.Duration
}

// Client is safe for concurrent use.
type Client struct {
	smart llms.Model
	fast  llms.Model
	embed *ollama.LLM

	temperature float64
	timeout     time.Duration
	log         logr.Logger

	// Per-text embedding cache, bounded and cleared on overflow so a burst
	// of unique queries cannot grow it without bound.
	mu     sync.Mutex
	cache  map[string][]float32
	flight singleflight.Group
}

// New connects the model endpoints. The fast variant reuses the smart model
// when it points at the same (model, host) pair.
func New(opts Options, log logr.Logger) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}

	smart, err := ollama.New(
		ollama.WithModel(opts.SmartModel),
		ollama.WithServerURL(opts.SmartHost),
	)
	if err != nil {
		return nil, fmt.Errorf("init smart model %q: %w", opts.SmartModel, err)
	}

	var fast llms.Model = smart
	if opts.FastModel != opts.SmartModel || opts.FastHost != opts.SmartHost {
		f, err := ollama.New(
			ollama.WithModel(opts.FastModel),
			ollama.WithServerURL(opts.FastHost),
		)
		if err != nil {
			return nil, fmt.Errorf("init fast model %q: %w", opts.FastModel, err)
		}
		fast = f
	}

	embed, err := ollama.New(
		ollama.WithModel(opts.EmbeddingModel),
		ollama.WithServerURL(opts.EmbeddingHost),
	)
	if err != nil {
		return nil, fmt.Errorf("init embedding model %q: %w", opts.EmbeddingModel, err)
	}

	return &Client{
		smart:       smart,
		fast:        fast,
		embed:       embed,
		temperature: opts.Temperature,
		timeout:     opts.Timeout,
		cache:       make(map[string][]float32),
		log:         log.WithName("llm"),
	}, nil
}

// CompleteFast runs the zero-shot model.
func (c *Client) CompleteFast(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, c.fast, prompt, "fast")
}

// CompleteSmart runs the reasoning model.
func (c *Client) CompleteSmart(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, c.smart, prompt, "cot")
}

func (c *Client) complete(ctx context.Context, model llms.Model, prompt, stage string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := llms.GenerateFromSinglePrompt(ctx, model, prompt,
		llms.WithTemperature(c.temperature),
	)
	if err != nil {
		metrics.LLMRequests.WithLabelValues(stage, "error").Inc()
		return "", fmt.Errorf("llm completion: %w", err)
	}
	metrics.LLMRequests.WithLabelValues(stage, "ok").Inc()
	return out, nil
}

// Embed returns the embedding for text, serving repeats from the cache and
// collapsing concurrent requests for the same text into one round-trip.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	if v, ok := c.cache[text]; ok {
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	v, err, _ := c.flight.Do(text, func() (interface{}, error) {
		embedCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		vecs, err := c.embed.CreateEmbedding(embedCtx, []string{text})
		if err != nil {
			metrics.LLMRequests.WithLabelValues("embed", "error").Inc()
			return nil, fmt.Errorf("embedding: %w", err)
		}
		if len(vecs) == 0 || len(vecs[0]) == 0 {
			metrics.LLMRequests.WithLabelValues("embed", "error").Inc()
			return nil, fmt.Errorf("embedding: empty vector for %q", text)
		}
		metrics.LLMRequests.WithLabelValues("embed", "ok").Inc()

		c.mu.Lock()
		if len(c.cache) >= embedCacheLimit {
			c.cache = make(map[string][]float32)
		}
		c.cache[text] = vecs[0]
		c.mu.Unlock()

		return vecs[0], nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]float32), nil
}

// Embedder is the narrow interface the routing tiers depend on.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Completer is the narrow interface the agent depends on.
type Completer interface {
	CompleteFast(ctx context.Context, prompt string) (string, error)
	CompleteSmart(ctx context.Context, prompt string) (string, error)
}
