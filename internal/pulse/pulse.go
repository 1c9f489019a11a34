/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package pulse runs the background health check per backend.
//
// One cooperative worker per backend issues a cheap probe on a cron-driven
// tick and publishes the latest snapshot through an atomic pointer, so the
// routers read health without ever blocking on a probe in flight. Discovery
// output from the probes feeds the resource index used for disambiguation.
package pulse

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"
	"github.com/robfig/cron/v3"

	"github.com/NayanEupho/Agentic-DevOps/internal/metrics"
	"github.com/NayanEupho/Agentic-DevOps/internal/registry"
)

// Status is a backend's health state.
type Status string

const (
	StatusHealthy      Status = "healthy"
	StatusDegraded     Status = "degraded"
	StatusDisconnected Status = "disconnected"
)

// Failure transitions: one failure degrades, two consecutive disconnect,
// any success restores healthy.
const disconnectThreshold = 2

// Snapshot is the published health state for one backend.
type Snapshot struct {
	Backend   string
	Status    Status
	LastCheck time.Time
	Failures  int
	Err       string
}

// Caller is the slice of the backend client the monitor needs.
type Caller interface {
	Call(ctx context.Context, toolName string, args map[string]interface{}) (registry.Result, error)
}

// probe is the cheap per-backend health check.
type probe struct {
	tool string
	args map[string]interface{}
}

var defaultProbes = map[string]probe{
	registry.BackendDocker:    {tool: "docker_list_containers", args: map[string]interface{}{}},
	registry.BackendK8sLocal:  {tool: "local_k8s_list_pods", args: map[string]interface{}{"namespace": "default"}},
	registry.BackendK8sRemote: {tool: "remote_k8s_list_pods", args: map[string]interface{}{"namespace": "default"}},
}

// Monitor owns the health workers and the resource index.
type Monitor struct {
	caller       Caller
	schedule     cron.Schedule
	probeTimeout time.Duration
	log          logr.Logger

	snaps     map[string]*atomic.Pointer[Snapshot]
	resources *ResourceIndex

	stop context.CancelFunc
	wg   sync.WaitGroup
}

// New builds a monitor for the probed backends. scheduleExpr is a robfig
// cron expression; "@every 15s" is the conventional default.
func New(caller Caller, scheduleExpr string, probeTimeout time.Duration, log logr.Logger) (*Monitor, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	sched, err := parser.Parse(scheduleExpr)
	if err != nil {
		return nil, err
	}
	if probeTimeout <= 0 {
		probeTimeout = 5 * time.Second
	}

	m := &Monitor{
		caller:       caller,
		schedule:     sched,
		probeTimeout: probeTimeout,
		log:          log.WithName("pulse"),
		snaps:        make(map[string]*atomic.Pointer[Snapshot]),
		resources:    NewResourceIndex(),
	}
	for id := range defaultProbes {
		p := &atomic.Pointer[Snapshot]{}
		p.Store(&Snapshot{Backend: id, Status: StatusDisconnected})
		m.snaps[id] = p
	}
	return m, nil
}

// Start launches one worker per backend. Workers stop when Stop is called
// or the parent context is cancelled.
func (m *Monitor) Start(ctx context.Context) {
	ctx, m.stop = context.WithCancel(ctx)

	for id := range defaultProbes {
		m.wg.Add(1)
		go m.worker(ctx, id)
	}
	m.log.Info("Pulse workers started", "backends", len(m.snaps))
}

// Stop cancels the workers and waits for them to exit.
func (m *Monitor) Stop() {
	if m.stop != nil {
		m.stop()
	}
	m.wg.Wait()
}

func (m *Monitor) worker(ctx context.Context, backendID string) {
	defer m.wg.Done()

	// First probe immediately so routing has real data at startup.
	m.tick(ctx, backendID)

	for {
		next := m.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			m.tick(ctx, backendID)
		}
	}
}

// tick runs one probe and publishes the transition.
func (m *Monitor) tick(ctx context.Context, backendID string) {
	p := defaultProbes[backendID]
	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	res, err := m.caller.Call(probeCtx, p.tool, p.args)
	cancel()

	prev := m.Get(backendID)
	next := Snapshot{Backend: backendID, LastCheck: time.Now()}

	switch {
	case err != nil:
		// Cancellation — keep the previous state, we are shutting down.
		return
	case res.Success:
		next.Status = StatusHealthy
		next.Failures = 0
		m.resources.Ingest(backendID, p.tool, res.Payload)
	default:
		next.Failures = prev.Failures + 1
		next.Err = res.Err
		if next.Failures >= disconnectThreshold {
			next.Status = StatusDisconnected
		} else {
			next.Status = StatusDegraded
		}
	}

	if next.Status != prev.Status {
		m.log.Info("Backend health transition",
			"backend", backendID,
			"from", prev.Status,
			"to", next.Status,
			"failures", next.Failures)
	}

	m.snaps[backendID].Store(&next)
	metrics.PulseStatus.WithLabelValues(backendID).Set(statusValue(next.Status))
}

// Get returns the latest snapshot for a backend. Never blocks.
func (m *Monitor) Get(backendID string) Snapshot {
	p, ok := m.snaps[backendID]
	if !ok {
		return Snapshot{Backend: backendID, Status: StatusDisconnected}
	}
	return *p.Load()
}

// All returns the latest snapshot per probed backend.
func (m *Monitor) All() map[string]Snapshot {
	out := make(map[string]Snapshot, len(m.snaps))
	for id, p := range m.snaps {
		out[id] = *p.Load()
	}
	return out
}

// Resources exposes the discovery index.
func (m *Monitor) Resources() *ResourceIndex {
	return m.resources
}

func statusValue(s Status) float64 {
	switch s {
	case StatusHealthy:
		return 2
	case StatusDegraded:
		return 1
	default:
		return 0
	}
}
