// Package file persists sessions as one JSON file each, written atomically
// (temp file + rename). Suitable for single-host deployments without a
// database.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/deskrelay/deskrelay/internal/chat"
)

// Store keeps a write-through cache of sessions mirrored to dir.
type Store struct {
	dir      string
	mu       sync.Mutex
	sessions map[string]*chat.Session
}

// New opens (and creates if needed) the session directory and loads all
// persisted sessions.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("file store: dir not set")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file store: %w", err)
	}

	s := &Store{dir: dir, sessions: make(map[string]*chat.Session)}
	s.loadAll()
	return s, nil
}

func (s *Store) UpsertSession(_ context.Context, sess chat.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.sessions[sess.Key]
	if !ok {
		cp := sess.Clone()
		s.sessions[sess.Key] = &cp
		return s.save(&cp)
	}

	// Metadata update: the message log grows only through AppendMessage.
	cur.ChatID = sess.ChatID
	cur.Origin = sess.Origin
	cur.Mode = sess.Mode
	cur.AssignedAgent = sess.AssignedAgent
	cur.Participant = sess.Participant
	cur.EscalationRequested = sess.EscalationRequested
	cur.Updated = sess.Updated
	return s.save(cur)
}

func (s *Store) AppendMessage(_ context.Context, sessionKey string, msg chat.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.sessions[sessionKey]
	if !ok {
		return fmt.Errorf("file store: session %s not persisted", sessionKey)
	}
	cur.Messages = append(cur.Messages, msg)
	return s.save(cur)
}

func (s *Store) LoadSessions(_ context.Context) ([]chat.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]chat.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.Clone())
	}
	return out, nil
}

func (s *Store) Close() error { return nil }

// save writes one session file atomically: temp file → rename.
func (s *Store) save(sess *chat.Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}

	filename := sanitizeFilename(sess.Key)
	if filename == "." || !filepath.IsLocal(filename) || strings.ContainsAny(filename, `/\`) {
		return os.ErrInvalid
	}
	path := filepath.Join(s.dir, filename+".json")

	tmp, err := os.CreateTemp(s.dir, "session-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	tmp.Close()

	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}
	cleanup = false
	return nil
}

func (s *Store) loadAll() {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}

	for _, f := range files {
		if f.IsDir() || filepath.Ext(f.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, f.Name()))
		if err != nil {
			continue
		}
		var sess chat.Session
		if err := json.Unmarshal(data, &sess); err != nil {
			continue
		}
		if sess.Key == "" {
			continue
		}
		s.sessions[sess.Key] = &sess
	}
}

func sanitizeFilename(key string) string {
	r := strings.NewReplacer(":", "_", "@", "_", " ", "_")
	return r.Replace(key)
}
