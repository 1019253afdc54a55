// Package session owns the in-memory session registry: one record per ongoing
// conversation, keyed by "{channel}:{chatId}". All mutations go through the
// registry so they are atomic with respect to other mutations on the same
// session. Durable mirroring is a collaborator concern (internal/store); the
// registry itself is authoritative for process lifetime.
package session

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/deskrelay/deskrelay/internal/chat"
)

// ErrNotFound is returned when a mutation or lookup references an unknown
// session key. Callers report it (e.g. back to an agent), never crash on it.
var ErrNotFound = errors.New("session not found")

// Registry is the owned session store behind a mutex.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*chat.Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*chat.Session)}
}

// GetOrCreate returns the session for key, creating it in ModeBot when absent.
// The second return reports whether the session was created by this call.
// A non-empty participant hint updates the stored participant either way.
func (r *Registry) GetOrCreate(key, chatID string, origin chat.Origin, participant string) (chat.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[key]; ok {
		if participant != "" {
			s.Participant = participant
		}
		return s.Clone(), false
	}

	now := time.Now()
	s := &chat.Session{
		Key:         key,
		ChatID:      chatID,
		Origin:      origin,
		Mode:        chat.ModeBot,
		Participant: participant,
		Messages:    []chat.Message{},
		Created:     now,
		Updated:     now,
	}
	r.sessions[key] = s
	return s.Clone(), true
}

// Get returns a snapshot of the session for key.
func (r *Registry) Get(key string) (chat.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[key]
	if !ok {
		return chat.Session{}, ErrNotFound
	}
	return s.Clone(), nil
}

// Update applies fn to the session for key under the registry lock and bumps
// Updated. Returns ErrNotFound for unknown keys; any error from fn aborts the
// mutation.
func (r *Registry) Update(key string, fn func(*chat.Session) error) (chat.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[key]
	if !ok {
		return chat.Session{}, ErrNotFound
	}
	if err := fn(s); err != nil {
		return chat.Session{}, err
	}
	s.Updated = time.Now()
	return s.Clone(), nil
}

// Append adds a message to the session log and returns the updated snapshot.
func (r *Registry) Append(key string, msg chat.Message) (chat.Session, error) {
	return r.Update(key, func(s *chat.Session) error {
		s.Messages = append(s.Messages, msg)
		return nil
	})
}

// History returns a copy of the session's message log.
func (r *Registry) History(key string) ([]chat.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[key]
	if !ok {
		return nil, ErrNotFound
	}
	msgs := make([]chat.Message, len(s.Messages))
	copy(msgs, s.Messages)
	return msgs, nil
}

// List returns metadata for all sessions, most recently active first.
func (r *Registry) List() []chat.Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]chat.Info, 0, len(r.sessions))
	for _, s := range r.sessions {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Updated.Equal(infos[j].Updated) {
			return infos[i].Key < infos[j].Key
		}
		return infos[i].Updated.After(infos[j].Updated)
	})
	return infos
}

// Restore seeds the registry from persisted sessions. Existing entries win;
// used once at startup before any channel runs.
func (r *Registry) Restore(sessions []chat.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range sessions {
		s := sessions[i]
		if _, ok := r.sessions[s.Key]; ok {
			continue
		}
		if s.Messages == nil {
			s.Messages = []chat.Message{}
		}
		r.sessions[s.Key] = &s
	}
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
