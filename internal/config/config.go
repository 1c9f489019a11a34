/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package config holds the environment-driven settings for the dispatcher.
//
// Every field reads from a DEVOPS_-prefixed environment variable with a
// documented default. A .env file in the working directory is honoured when
// present. Validation runs once at startup; a bad endpoint or timeout is a
// ConfigurationError surfaced before any query is accepted.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Settings is the process-wide configuration.
type Settings struct {
	// LLM completion endpoints. Smart is used for the chain-of-thought
	// fallback; Fast for the zero-shot first pass. Fast falls back to the
	// smart model/host when unset.
	LLMModel       string        `validate:"required"`
	LLMHost        string        `validate:"required,url"`
	LLMFastModel   string
	LLMFastHost    string        `validate:"omitempty,url"`
	LLMTemperature float64       `validate:"gte=0,lte=2"`
	LLMTimeout     time.Duration `validate:"gt=0"`

	// Embedding endpoint. Kept separate from the completion endpoint so a
	// small local model can serve the latency-sensitive embedding path.
	EmbeddingModel string `validate:"required"`
	EmbeddingHost  string `validate:"required,url"`

	// Backend endpoints. One JSON-RPC server per backend, all on ServerHost.
	ServerHost    string `validate:"required"`
	DockerPort    int    `validate:"gt=0,lte=65535"`
	LocalK8sPort  int    `validate:"gt=0,lte=65535"`
	RemoteK8sPort int    `validate:"gt=0,lte=65535"`

	// Remote cluster access; the backend client attaches this connection
	// context to every remote_ tool call.
	RemoteK8sAPIURL    string `validate:"omitempty,url"`
	RemoteK8sTokenPath string
	RemoteK8sVerifySSL bool

	// Timeouts.
	BackendTimeout time.Duration `validate:"gt=0"`
	ProbeTimeout   time.Duration `validate:"gt=0"`

	// Safety: when true, dangerous tool calls pause for confirmation.
	SafetyConfirm bool

	// PulseSchedule is a cron expression (robfig syntax, @every accepted)
	// for the per-backend health tick.
	PulseSchedule string `validate:"required"`

	// DataDir holds the persisted caches: vector index, intent embeddings,
	// auto templates, semantic cache.
	DataDir string `validate:"required"`

	// SessionDB is the SQLite session store path.
	SessionDB string `validate:"required"`

	LogLevel string
	LogDev   bool
}

// Load reads settings from the environment (and .env when present),
// applies defaults and validates the result.
func Load() (*Settings, error) {
	// Missing .env is the common case, not an error.
	_ = godotenv.Load()

	s := &Settings{
		LLMModel:           envOr("DEVOPS_LLM_MODEL", "qwen2.5:72b-instruct"),
		LLMHost:            envOr("DEVOPS_LLM_HOST", "http://localhost:11434"),
		LLMFastModel:       envOr("DEVOPS_LLM_FAST_MODEL", ""),
		LLMFastHost:        envOr("DEVOPS_LLM_FAST_HOST", ""),
		LLMTemperature:     envFloat("DEVOPS_LLM_TEMPERATURE", 0.1),
		LLMTimeout:         envDuration("DEVOPS_LLM_TIMEOUT", 15*time.Second),
		EmbeddingModel:     envOr("DEVOPS_EMBEDDING_MODEL", "nomic-embed-text"),
		EmbeddingHost:      envOr("DEVOPS_EMBEDDING_HOST", "http://localhost:11434"),
		ServerHost:         envOr("DEVOPS_MCP_SERVER_HOST", "127.0.0.1"),
		DockerPort:         envInt("DEVOPS_DOCKER_PORT", 8080),
		LocalK8sPort:       envInt("DEVOPS_LOCAL_K8S_PORT", 8081),
		RemoteK8sPort:      envInt("DEVOPS_REMOTE_K8S_PORT", 8082),
		RemoteK8sAPIURL:    envOr("DEVOPS_REMOTE_K8S_API_URL", ""),
		RemoteK8sTokenPath: envOr("DEVOPS_REMOTE_K8S_TOKEN_PATH", "token.txt"),
		RemoteK8sVerifySSL: envBool("DEVOPS_REMOTE_K8S_VERIFY_SSL", false),
		BackendTimeout:     envDuration("DEVOPS_BACKEND_TIMEOUT", 30*time.Second),
		ProbeTimeout:       envDuration("DEVOPS_PROBE_TIMEOUT", 5*time.Second),
		SafetyConfirm:      envBool("DEVOPS_SAFETY_CONFIRM", true),
		PulseSchedule:      envOr("DEVOPS_PULSE_SCHEDULE", "@every 15s"),
		DataDir:            envOr("DEVOPS_DATA_DIR", "data"),
		SessionDB:          envOr("DEVOPS_SESSION_DB", "devops_agent.db"),
		LogLevel:           envOr("DEVOPS_LOG_LEVEL", "info"),
		LogDev:             envBool("DEVOPS_LOG_DEV", false),
	}

	if err := validator.New().Struct(s); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return s, nil
}

// FastModel returns the fast-path model, falling back to the smart model.
func (s *Settings) FastModel() string {
	if s.LLMFastModel != "" {
		return s.LLMFastModel
	}
	return s.LLMModel
}

// FastHost returns the fast-path host, falling back to the smart host.
func (s *Settings) FastHost() string {
	if s.LLMFastHost != "" {
		return s.LLMFastHost
	}
	return s.LLMHost
}

// DockerURL returns the docker backend endpoint.
func (s *Settings) DockerURL() string {
	return fmt.Sprintf("http://%s:%d", s.ServerHost, s.DockerPort)
}

// LocalK8sURL returns the local Kubernetes backend endpoint.
func (s *Settings) LocalK8sURL() string {
	return fmt.Sprintf("http://%s:%d", s.ServerHost, s.LocalK8sPort)
}

// RemoteK8sURL returns the remote Kubernetes backend endpoint.
func (s *Settings) RemoteK8sURL() string {
	return fmt.Sprintf("http://%s:%d", s.ServerHost, s.RemoteK8sPort)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
