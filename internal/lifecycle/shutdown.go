/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package lifecycle coordinates graceful shutdown: in-flight turns either
// complete or are cut off at a hard deadline, then the background workers
// (pulse, cache flush) stop.
package lifecycle

import (
	"time"

	"github.com/go-logr/logr"
)

// TurnCounter is the interface the shutdown manager needs from the
// orchestrator's turn tracker.
type TurnCounter interface {
	InFlightCount() int
}

// Stopper is any background component with a blocking stop.
type Stopper interface {
	Stop()
}

// ShutdownManager drains turns and stops workers in order.
type ShutdownManager struct {
	turns        TurnCounter
	stoppers     []Stopper
	drainTimeout time.Duration
	log          logr.Logger
}

// NewShutdownManager creates a coordinator. drainTimeout caps how long
// in-flight turns may run after shutdown begins.
func NewShutdownManager(turns TurnCounter, drainTimeout time.Duration, log logr.Logger) *ShutdownManager {
	return &ShutdownManager{
		turns:        turns,
		drainTimeout: drainTimeout,
		log:          log.WithName("shutdown"),
	}
}

// Register adds a background component stopped after the drain.
func (s *ShutdownManager) Register(st Stopper) {
	s.stoppers = append(s.stoppers, st)
}

// Shutdown drains in-flight turns, then stops registered workers.
// Returns the number of turns still running when the deadline hit.
func (s *ShutdownManager) Shutdown() int {
	abandoned := s.waitForDrain()
	for _, st := range s.stoppers {
		st.Stop()
	}
	return abandoned
}

func (s *ShutdownManager) waitForDrain() int {
	if s.turns == nil || s.turns.InFlightCount() == 0 {
		s.log.Info("No in-flight turns — clean shutdown")
		return 0
	}

	s.log.Info("Waiting for in-flight turns to complete",
		"inflight", s.turns.InFlightCount(),
		"timeout", s.drainTimeout,
	)

	deadline := time.After(s.drainTimeout)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-deadline:
			remaining := s.turns.InFlightCount()
			if remaining > 0 {
				s.log.Info("Drain timeout reached", "remaining", remaining)
			}
			return remaining

		case <-ticker.C:
			if s.turns.InFlightCount() == 0 {
				s.log.Info("All in-flight turns completed — clean shutdown")
				return 0
			}
		}
	}
}
