/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package lifecycle

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr"
)

type fakeTurns struct {
	count atomic.Int64
}

func (f *fakeTurns) InFlightCount() int { return int(f.count.Load()) }

type fakeStopper struct {
	stopped atomic.Bool
}

func (f *fakeStopper) Stop() { f.stopped.Store(true) }

func TestShutdown_CleanWhenIdle(t *testing.T) {
	turns := &fakeTurns{}
	stopper := &fakeStopper{}
	m := NewShutdownManager(turns, time.Second, logr.Discard())
	m.Register(stopper)

	if abandoned := m.Shutdown(); abandoned != 0 {
		t.Errorf("abandoned = %d, want 0", abandoned)
	}
	if !stopper.stopped.Load() {
		t.Error("registered worker not stopped")
	}
}

func TestShutdown_WaitsForDrain(t *testing.T) {
	turns := &fakeTurns{}
	turns.count.Store(1)
	m := NewShutdownManager(turns, 2*time.Second, logr.Discard())

	go func() {
		time.Sleep(200 * time.Millisecond)
		turns.count.Store(0)
	}()

	start := time.Now()
	abandoned := m.Shutdown()
	if abandoned != 0 {
		t.Errorf("abandoned = %d, want 0", abandoned)
	}
	if time.Since(start) < 150*time.Millisecond {
		t.Error("shutdown returned before the turn drained")
	}
}

func TestShutdown_DeadlineCutsOff(t *testing.T) {
	turns := &fakeTurns{}
	turns.count.Store(2)
	stopper := &fakeStopper{}
	m := NewShutdownManager(turns, 150*time.Millisecond, logr.Discard())
	m.Register(stopper)

	if abandoned := m.Shutdown(); abandoned != 2 {
		t.Errorf("abandoned = %d, want 2", abandoned)
	}
	if !stopper.stopped.Load() {
		t.Error("workers must stop even after an unclean drain")
	}
}
