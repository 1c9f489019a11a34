/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	s, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if s.EmbeddingModel != "nomic-embed-text" {
		t.Errorf("EmbeddingModel = %q, want nomic-embed-text", s.EmbeddingModel)
	}
	if s.DockerPort != 8080 {
		t.Errorf("DockerPort = %d, want 8080", s.DockerPort)
	}
	if s.BackendTimeout != 30*time.Second {
		t.Errorf("BackendTimeout = %v, want 30s", s.BackendTimeout)
	}
	if !s.SafetyConfirm {
		t.Error("SafetyConfirm should default to true")
	}
	if s.PulseSchedule != "@every 15s" {
		t.Errorf("PulseSchedule = %q, want @every 15s", s.PulseSchedule)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("DEVOPS_DOCKER_PORT", "9090")
	t.Setenv("DEVOPS_SAFETY_CONFIRM", "false")
	t.Setenv("DEVOPS_LLM_TIMEOUT", "45s")

	s, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if s.DockerPort != 9090 {
		t.Errorf("DockerPort = %d, want 9090", s.DockerPort)
	}
	if s.SafetyConfirm {
		t.Error("SafetyConfirm should be false")
	}
	if s.LLMTimeout != 45*time.Second {
		t.Errorf("LLMTimeout = %v, want 45s", s.LLMTimeout)
	}
}

func TestLoad_InvalidEndpoint(t *testing.T) {
	t.Setenv("DEVOPS_LLM_HOST", "not a url")

	if _, err := Load(); err == nil {
		t.Error("expected validation error for malformed LLM host")
	}
}

func TestFastVariantFallback(t *testing.T) {
	s := &Settings{LLMModel: "big", LLMHost: "http://a:1"}
	if s.FastModel() != "big" {
		t.Errorf("FastModel() = %q, want big", s.FastModel())
	}
	if s.FastHost() != "http://a:1" {
		t.Errorf("FastHost() = %q, want http://a:1", s.FastHost())
	}

	s.LLMFastModel = "small"
	s.LLMFastHost = "http://b:2"
	if s.FastModel() != "small" {
		t.Errorf("FastModel() = %q, want small", s.FastModel())
	}
	if s.FastHost() != "http://b:2" {
		t.Errorf("FastHost() = %q, want http://b:2", s.FastHost())
	}
}

func TestBackendURLs(t *testing.T) {
	s := &Settings{ServerHost: "127.0.0.1", DockerPort: 8080, LocalK8sPort: 8081, RemoteK8sPort: 8082}

	if got := s.DockerURL(); got != "http://127.0.0.1:8080" {
		t.Errorf("DockerURL() = %q", got)
	}
	if got := s.LocalK8sURL(); got != "http://127.0.0.1:8081" {
		t.Errorf("LocalK8sURL() = %q", got)
	}
	if got := s.RemoteK8sURL(); got != "http://127.0.0.1:8082" {
		t.Errorf("RemoteK8sURL() = %q", got)
	}
}
