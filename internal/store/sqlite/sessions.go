// Package sqlite persists sessions in a local SQLite database. Same schema as
// the Postgres store; the table layout is ensured at open.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/deskrelay/deskrelay/internal/chat"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    session_key          TEXT PRIMARY KEY,
    chat_id              TEXT NOT NULL,
    origin               TEXT NOT NULL,
    mode                 TEXT NOT NULL,
    assigned_agent       TEXT NOT NULL DEFAULT '',
    participant          TEXT NOT NULL DEFAULT '',
    escalation_requested INTEGER NOT NULL DEFAULT 0,
    created_at           TIMESTAMP NOT NULL,
    updated_at           TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
    id          TEXT PRIMARY KEY,
    session_key TEXT NOT NULL REFERENCES sessions(session_key) ON DELETE CASCADE,
    sender      TEXT NOT NULL,
    body        TEXT NOT NULL,
    file_url    TEXT NOT NULL DEFAULT '',
    agent_id    TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages (session_key, created_at);
`

// Store implements the session store backed by SQLite.
type Store struct {
	db *sql.DB
}

// New opens (and creates if needed) the SQLite database at path.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite store: path not set")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("sqlite store: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc sqlite is not safe for concurrent writers on one connection pool
	// beyond what the busy timeout covers; a single connection keeps it simple.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) UpsertSession(ctx context.Context, sess chat.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_key, chat_id, origin, mode, assigned_agent, participant, escalation_requested, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (session_key) DO UPDATE SET
		   mode = excluded.mode,
		   assigned_agent = excluded.assigned_agent,
		   participant = excluded.participant,
		   escalation_requested = excluded.escalation_requested,
		   updated_at = excluded.updated_at`,
		sess.Key, sess.ChatID, string(sess.Origin), string(sess.Mode),
		sess.AssignedAgent, sess.Participant, sess.EscalationRequested,
		sess.Created, sess.Updated,
	)
	if err != nil {
		return fmt.Errorf("upsert session %s: %w", sess.Key, err)
	}
	return nil
}

func (s *Store) AppendMessage(ctx context.Context, sessionKey string, msg chat.Message) error {
	id := msg.ID
	if id == "" {
		id = uuid.Must(uuid.NewV7()).String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO messages (id, session_key, sender, body, file_url, agent_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, sessionKey, string(msg.Sender), msg.Body, msg.FileURL, msg.AgentID, msg.At,
	)
	if err != nil {
		return fmt.Errorf("append message to %s: %w", sessionKey, err)
	}
	return nil
}

func (s *Store) LoadSessions(ctx context.Context) ([]chat.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_key, chat_id, origin, mode, assigned_agent, participant, escalation_requested, created_at, updated_at
		 FROM sessions ORDER BY updated_at`)
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	defer rows.Close()

	byKey := make(map[string]*chat.Session)
	var order []string
	for rows.Next() {
		var sess chat.Session
		var origin, mode string
		if err := rows.Scan(&sess.Key, &sess.ChatID, &origin, &mode,
			&sess.AssignedAgent, &sess.Participant, &sess.EscalationRequested,
			&sess.Created, &sess.Updated); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.Origin = chat.Origin(origin)
		sess.Mode = chat.Mode(mode)
		sess.Messages = []chat.Message{}
		byKey[sess.Key] = &sess
		order = append(order, sess.Key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}

	msgRows, err := s.db.QueryContext(ctx,
		`SELECT id, session_key, sender, body, file_url, agent_id, created_at
		 FROM messages ORDER BY session_key, created_at`)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer msgRows.Close()

	for msgRows.Next() {
		var msg chat.Message
		var key, sender string
		if err := msgRows.Scan(&msg.ID, &key, &sender, &msg.Body, &msg.FileURL, &msg.AgentID, &msg.At); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Sender = chat.Sender(sender)
		if sess, ok := byKey[key]; ok {
			sess.Messages = append(sess.Messages, msg)
		}
	}
	if err := msgRows.Err(); err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}

	out := make([]chat.Session, 0, len(order))
	for _, key := range order {
		out = append(out, *byKey[key])
	}
	return out, nil
}

func (s *Store) Close() error { return s.db.Close() }
