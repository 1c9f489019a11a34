/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-logr/logr"

	"github.com/NayanEupho/Agentic-DevOps/internal/agent"
	"github.com/NayanEupho/Agentic-DevOps/internal/backend"
	"github.com/NayanEupho/Agentic-DevOps/internal/cache"
	"github.com/NayanEupho/Agentic-DevOps/internal/config"
	"github.com/NayanEupho/Agentic-DevOps/internal/format"
	"github.com/NayanEupho/Agentic-DevOps/internal/lifecycle"
	"github.com/NayanEupho/Agentic-DevOps/internal/llm"
	"github.com/NayanEupho/Agentic-DevOps/internal/logging"
	"github.com/NayanEupho/Agentic-DevOps/internal/orchestrator"
	"github.com/NayanEupho/Agentic-DevOps/internal/pulse"
	"github.com/NayanEupho/Agentic-DevOps/internal/registry"
	"github.com/NayanEupho/Agentic-DevOps/internal/retriever"
	"github.com/NayanEupho/Agentic-DevOps/internal/router"
	"github.com/NayanEupho/Agentic-DevOps/internal/session"
	"github.com/NayanEupho/Agentic-DevOps/internal/tools"
)

// app wires the singletons. Everything is dependency-injected at startup;
// no component reaches for a global.
type app struct {
	cfg       *config.Settings
	log       logr.Logger
	registry  *registry.Registry
	retriever *retriever.Retriever
	pulse     *pulse.Monitor
	sessions  *session.Store
	orch      *orchestrator.Orchestrator
	cache     *cache.SemanticCache
	shutdown  *lifecycle.ShutdownManager
}

// buildApp constructs the full pipeline. Startup order matters: registry
// first, then the retriever sync so the index is consistent before the
// first query, then the pulse so routing has health data.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	llmClient, err := llm.New(llm.Options{
		SmartModel:     cfg.LLMModel,
		SmartHost:      cfg.LLMHost,
		FastModel:      cfg.FastModel(),
		FastHost:       cfg.FastHost(),
		EmbeddingModel: cfg.EmbeddingModel,
		EmbeddingHost:  cfg.EmbeddingHost,
		Temperature:    cfg.LLMTemperature,
		Timeout:        cfg.LLMTimeout,
	}, log)
	if err != nil {
		return nil, err
	}

	remote := &backend.RemoteCluster{
		APIURL:    cfg.RemoteK8sAPIURL,
		VerifySSL: cfg.RemoteK8sVerifySSL,
	}
	if cfg.RemoteK8sTokenPath != "" {
		remote.Tokens = backend.NewTokenSource(cfg.RemoteK8sTokenPath)
	}

	client := backend.New(backend.Endpoints{
		Docker:    cfg.DockerURL(),
		K8sLocal:  cfg.LocalK8sURL(),
		K8sRemote: cfg.RemoteK8sURL(),
	}, remote, cfg.BackendTimeout, log)

	reg, err := registry.New(tools.All(client)...)
	if err != nil {
		return nil, err
	}

	retr := retriever.New(reg, llmClient, cfg.DataDir, log)
	if stats, err := retr.Sync(ctx); err != nil {
		// The index is an optimization; startup continues without it.
		log.Error(err, "Tool index sync failed")
	} else {
		log.Info("Tool index ready", "tools", stats.TotalTools, "added", stats.NewEmbeddings)
	}
	retr.Watch(ctx)

	intents, err := router.LoadIntentsFile(filepath.Join(cfg.DataDir, "intents.yaml"))
	if err != nil {
		return nil, err
	}

	auto := router.InferAll(reg.List())
	if err := router.SaveAutoTemplates(filepath.Join(cfg.DataDir, "auto_templates.json"), auto); err != nil {
		log.Error(err, "Failed to persist auto templates")
	}
	exact, err := router.NewExactRouter(intents.Templates, auto, log)
	if err != nil {
		return nil, err
	}

	intent := router.NewIntentRouter(intents.Semantic, llmClient,
		filepath.Join(cfg.DataDir, "intent_embeddings.json"), log)

	sc := cache.New(llmClient, filepath.Join(cfg.DataDir, "semantic_cache.json"), log)

	mon, err := pulse.New(client, cfg.PulseSchedule, cfg.ProbeTimeout, log)
	if err != nil {
		return nil, fmt.Errorf("invalid pulse schedule %q: %w", cfg.PulseSchedule, err)
	}
	mon.Start(ctx)

	sessions, err := session.Open(cfg.SessionDB)
	if err != nil {
		return nil, err
	}

	ag := agent.New(llmClient, reg, agent.DefaultMaxRetries, log)

	orch := orchestrator.New(orchestrator.Deps{
		Registry:      reg,
		Exact:         exact,
		Intent:        intent,
		Retriever:     retr,
		Agent:         ag,
		Cache:         sc,
		Pulse:         mon,
		Sessions:      sessions,
		Format:        format.NewRegistry(ag),
		SafetyConfirm: cfg.SafetyConfirm,
	}, log)

	sd := lifecycle.NewShutdownManager(orch.Tracker(), 10*time.Second, log)
	sd.Register(mon)
	sd.Register(stopFunc(sc.Flush))

	return &app{
		cfg:       cfg,
		log:       log,
		registry:  reg,
		retriever: retr,
		pulse:     mon,
		sessions:  sessions,
		orch:      orch,
		cache:     sc,
		shutdown:  sd,
	}, nil
}

// close runs the shutdown sequence.
func (a *app) close() {
	a.shutdown.Shutdown()
	if err := a.sessions.Close(); err != nil {
		a.log.Error(err, "Session store close failed")
	}
}

// stopFunc adapts a plain func to the lifecycle Stopper.
type stopFunc func()

func (f stopFunc) Stop() { f() }
