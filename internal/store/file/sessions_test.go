package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/deskrelay/deskrelay/internal/chat"
)

func testSession(key, chatID string) chat.Session {
	now := time.Now().UTC().Truncate(time.Second)
	return chat.Session{
		Key:      key,
		ChatID:   chatID,
		Origin:   chat.OriginWeb,
		Mode:     chat.ModeBot,
		Messages: []chat.Message{},
		Created:  now,
		Updated:  now,
	}
}

func TestPersistAndReload(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := New(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	sess := testSession("web:u1", "u1")
	if err := s.UpsertSession(ctx, sess); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.AppendMessage(ctx, "web:u1", chat.Message{ID: "m1", Sender: chat.SenderUser, Body: "hi"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.AppendMessage(ctx, "web:u1", chat.Message{ID: "m2", Sender: chat.SenderBot, Body: "hello"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	// A fresh store over the same directory sees the data.
	s2, err := New(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	loaded, err := s2.LoadSessions(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("sessions = %d, want 1", len(loaded))
	}
	got := loaded[0]
	if got.Key != "web:u1" || len(got.Messages) != 2 {
		t.Errorf("loaded = %+v", got)
	}
	if got.Messages[1].Body != "hello" {
		t.Errorf("message order lost: %+v", got.Messages)
	}
}

func TestUpsertPreservesMessages(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, _ := New(dir)
	s.UpsertSession(ctx, testSession("web:u1", "u1"))
	s.AppendMessage(ctx, "web:u1", chat.Message{ID: "m1", Body: "hi"})

	// Metadata-only upsert (e.g. mode change) must not clobber the log.
	meta := testSession("web:u1", "u1")
	meta.Mode = chat.ModeHuman
	meta.AssignedAgent = "7"
	if err := s.UpsertSession(ctx, meta); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	loaded, _ := s.LoadSessions(ctx)
	if len(loaded) != 1 {
		t.Fatalf("sessions = %d", len(loaded))
	}
	if loaded[0].Mode != chat.ModeHuman || loaded[0].AssignedAgent != "7" {
		t.Errorf("metadata not updated: %+v", loaded[0])
	}
	if len(loaded[0].Messages) != 1 {
		t.Errorf("messages clobbered: %+v", loaded[0].Messages)
	}
}

func TestAppendUnknownSession(t *testing.T) {
	s, _ := New(t.TempDir())

	err := s.AppendMessage(context.Background(), "web:nope", chat.Message{ID: "m1"})
	if err == nil {
		t.Fatal("append to unknown session must fail")
	}
}

func TestFilenamesAreSanitized(t *testing.T) {
	dir := t.TempDir()
	s, _ := New(dir)

	s.UpsertSession(context.Background(), testSession("bridge:4915112345678@c.example", "4915112345678@c.example"))

	files, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range files {
		if strings.ContainsAny(f.Name(), ":@ ") {
			t.Errorf("unsanitized filename %q", f.Name())
		}
		if filepath.Ext(f.Name()) == ".tmp" {
			t.Errorf("temp file left behind: %q", f.Name())
		}
	}
}

func TestCorruptFileSkipped(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{notjson"), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := New(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	loaded, _ := s.LoadSessions(context.Background())
	if len(loaded) != 0 {
		t.Errorf("corrupt file produced sessions: %+v", loaded)
	}
}
