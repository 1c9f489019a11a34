/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package backend

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// TokenSource reads the remote-cluster bearer token from a file path and
// caches it. The client attaches the token to every remote_ call, together
// with a scratch copy of it as a file (for kubectl-style tools such as exec
// and promote) that lives for the duration of that call — Materialize hands
// out the path and the returned release func removes it on every exit path.
type TokenSource struct {
	path string

	mu    sync.Mutex
	token string
}

// NewTokenSource creates a source for the configured token path.
func NewTokenSource(path string) *TokenSource {
	return &TokenSource{path: path}
}

// Token returns the trimmed token, reading the file on first use.
func (ts *TokenSource) Token() (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.token != "" {
		return ts.token, nil
	}
	b, err := os.ReadFile(ts.path)
	if err != nil {
		return "", fmt.Errorf("read remote cluster token %s: %w", ts.path, err)
	}
	ts.token = strings.TrimSpace(string(b))
	if ts.token == "" {
		return "", fmt.Errorf("remote cluster token file %s is empty", ts.path)
	}
	return ts.token, nil
}

// Materialize writes the token to a private scratch file and returns its
// path with a release func. Callers defer the release immediately so the
// file is removed on success, failure and cancellation alike.
func (ts *TokenSource) Materialize() (string, func(), error) {
	tok, err := ts.Token()
	if err != nil {
		return "", nil, err
	}

	f, err := os.CreateTemp("", "devops-agent-token-*")
	if err != nil {
		return "", nil, fmt.Errorf("create scratch token file: %w", err)
	}

	name := f.Name()
	release := func() { _ = os.Remove(name) }

	if err := os.Chmod(name, 0o600); err != nil {
		f.Close()
		release()
		return "", nil, fmt.Errorf("restrict scratch token file: %w", err)
	}
	if _, err := f.WriteString(tok); err != nil {
		f.Close()
		release()
		return "", nil, fmt.Errorf("write scratch token file: %w", err)
	}
	if err := f.Close(); err != nil {
		release()
		return "", nil, fmt.Errorf("close scratch token file: %w", err)
	}
	return name, release, nil
}
