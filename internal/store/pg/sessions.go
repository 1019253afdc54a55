// Package pg persists sessions in Postgres. Schema is managed through
// embedded golang-migrate migrations, applied at open.
package pg

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/deskrelay/deskrelay/internal/chat"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store implements the session store backed by Postgres.
type Store struct {
	db *sql.DB
}

// New connects to Postgres and applies pending migrations.
func New(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// NewMigrator builds a migrator over the embedded migration files.
func NewMigrator(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}
	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx", driver)
	if err != nil {
		return nil, fmt.Errorf("init migrations: %w", err)
	}
	return m, nil
}

// Migrate applies all pending migrations to db.
func Migrate(db *sql.DB) error {
	m, err := NewMigrator(db)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (s *Store) UpsertSession(ctx context.Context, sess chat.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_key, chat_id, origin, mode, assigned_agent, participant, escalation_requested, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (session_key) DO UPDATE SET
		   mode = EXCLUDED.mode,
		   assigned_agent = EXCLUDED.assigned_agent,
		   participant = EXCLUDED.participant,
		   escalation_requested = EXCLUDED.escalation_requested,
		   updated_at = EXCLUDED.updated_at`,
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
		`INSERT INTO messages (id, session_key, sender, body, file_url, agent_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO NOTHING`,
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
