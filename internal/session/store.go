/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

// Package session persists conversation sessions in SQLite.
//
// The message log is append-only and linearized per session; the
// context_state JSON carries the sticky routing state (last backend) that
// drives anaphoric follow-ups.
package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// historyTruncateLimit bounds system-output messages when preparing LLM
// history; full outputs stay in the store.
const historyTruncateLimit = 500

// Message is one log record.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is a conversation with its context state.
type Session struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	Messages     []Message `json:"messages"`

	// LastBackend is the backend of the most recent successful resolution.
	LastBackend string `json:"last_backend,omitempty"`
}

// contextState is the JSON blob stored per session.
type contextState struct {
	LastBackend string `json:"last_backend,omitempty"`
}

// Store wraps the SQLite database. Safe for concurrent use; SQLite
// serializes writers internally and messages within one session are
// appended in call order.
type Store struct {
	db *sql.DB
}

// Open creates (or opens) the store and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session store %s: %w", path, err)
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			title TEXT,
			created_at TEXT,
			last_activity TEXT,
			context_state TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT,
			role TEXT,
			content TEXT,
			timestamp TEXT,
			FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session_id ON messages(session_id)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init session schema: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create starts a new session. An empty id gets a generated UUID.
func (s *Store) Create(id, title string) (*Session, error) {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()

	_, err := s.db.Exec(
		`INSERT INTO sessions (id, title, created_at, last_activity, context_state) VALUES (?, ?, ?, ?, ?)`,
		id, title, now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano), "{}",
	)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &Session{ID: id, Title: title, CreatedAt: now, LastActivity: now}, nil
}

// Get loads a session with its messages. Returns nil when absent.
func (s *Store) Get(id string) (*Session, error) {
	row := s.db.QueryRow(`SELECT id, title, created_at, last_activity, context_state FROM sessions WHERE id = ?`, id)

	var sess Session
	var created, activity, state string
	if err := row.Scan(&sess.ID, &sess.Title, &created, &activity, &state); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	sess.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	sess.LastActivity, _ = time.Parse(time.RFC3339Nano, activity)

	var cs contextState
	if json.Unmarshal([]byte(state), &cs) == nil {
		sess.LastBackend = cs.LastBackend
	}

	rows, err := s.db.Query(`SELECT role, content, timestamp FROM messages WHERE session_id = ? ORDER BY id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m Message
		var ts string
		if err := rows.Scan(&m.Role, &m.Content, &ts); err != nil {
			return nil, err
		}
		m.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		sess.Messages = append(sess.Messages, m)
	}
	return &sess, rows.Err()
}

// GetOrCreate loads a session, creating it when absent.
func (s *Store) GetOrCreate(id, title string) (*Session, error) {
	if id != "" {
		sess, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		if sess != nil {
			return sess, nil
		}
	}
	return s.Create(id, title)
}

// List returns session summaries ordered by last activity, newest first.
func (s *Store) List() ([]Session, error) {
	rows, err := s.db.Query(
		`SELECT s.id, s.title, s.created_at, s.last_activity, COUNT(m.id)
		 FROM sessions s LEFT JOIN messages m ON s.id = m.session_id
		 GROUP BY s.id ORDER BY s.last_activity DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var created, activity string
		var count int
		if err := rows.Scan(&sess.ID, &sess.Title, &created, &activity, &count); err != nil {
			return nil, err
		}
		sess.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		sess.LastActivity, _ = time.Parse(time.RFC3339Nano, activity)
		out = append(out, sess)
	}
	return out, rows.Err()
}

// AddMessage appends to a session's log and bumps last_activity.
func (s *Store) AddMessage(sessionID, role, content string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO messages (session_id, role, content, timestamp) VALUES (?, ?, ?, ?)`,
		sessionID, role, content, now,
	); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	if _, err := tx.Exec(`UPDATE sessions SET last_activity = ? WHERE id = ?`, now, sessionID); err != nil {
		return fmt.Errorf("bump session activity: %w", err)
	}
	return tx.Commit()
}

// SetLastBackend records the sticky backend for anaphoric follow-ups.
func (s *Store) SetLastBackend(sessionID, backendID string) error {
	state, err := json.Marshal(contextState{LastBackend: backendID})
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`UPDATE sessions SET context_state = ? WHERE id = ?`, string(state), sessionID)
	return err
}

// Prune deletes sessions idle longer than maxAge along with their
// messages. Returns the number of sessions removed.
func (s *Store) Prune(maxAge time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-maxAge).Format(time.RFC3339Nano)

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM messages WHERE session_id IN (SELECT id FROM sessions WHERE last_activity < ?)`, cutoff,
	); err != nil {
		return 0, err
	}
	res, err := tx.Exec(`DELETE FROM sessions WHERE last_activity < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// History prepares the LLM-facing view of a session's messages: system
// messages dropped, large tool outputs truncated.
func History(sess *Session) []Message {
	if sess == nil {
		return nil
	}
	out := make([]Message, 0, len(sess.Messages))
	for _, m := range sess.Messages {
		if m.Role == "system" {
			continue
		}
		if strings.Contains(m.Content, "[System Output]") && len(m.Content) > historyTruncateLimit {
			m.Content = m.Content[:historyTruncateLimit] + "... (truncated)"
		}
		out = append(out, m)
	}
	return out
}
