// Package store defines the optional durable mirror for chat sessions.
// The in-memory registry is authoritative; stores are written best-effort and
// read once at startup to survive restarts. The core tolerates a missing or
// failing store (degrades to memory-only).
package store

import (
	"context"

	"github.com/deskrelay/deskrelay/internal/chat"
)

// Store mirrors sessions and messages durably.
type Store interface {
	// UpsertSession persists session metadata (mode, assignment, participant).
	UpsertSession(ctx context.Context, s chat.Session) error
	// AppendMessage persists one log entry for a session.
	AppendMessage(ctx context.Context, sessionKey string, msg chat.Message) error
	// LoadSessions returns all persisted sessions with their message logs.
	LoadSessions(ctx context.Context) ([]chat.Session, error)
	Close() error
}

// Noop is the memory-only store: it persists nothing.
type Noop struct{}

func (Noop) UpsertSession(context.Context, chat.Session) error         { return nil }
func (Noop) AppendMessage(context.Context, string, chat.Message) error { return nil }
func (Noop) LoadSessions(context.Context) ([]chat.Session, error)      { return nil, nil }
func (Noop) Close() error                                              { return nil }
