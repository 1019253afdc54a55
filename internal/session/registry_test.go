package session

import (
	"errors"
	"testing"
	"time"

	"github.com/deskrelay/deskrelay/internal/chat"
)

func TestGetOrCreate(t *testing.T) {
	r := NewRegistry()

	s, created := r.GetOrCreate("web:u1", "u1", chat.OriginWeb, "Alice")
	if !created {
		t.Fatal("expected session to be created")
	}
	if s.Mode != chat.ModeBot {
		t.Errorf("new session mode = %q, want %q", s.Mode, chat.ModeBot)
	}
	if s.Participant != "Alice" {
		t.Errorf("participant = %q, want Alice", s.Participant)
	}

	s2, created := r.GetOrCreate("web:u1", "u1", chat.OriginWeb, "")
	if created {
		t.Fatal("second call must not create")
	}
	if s2.Participant != "Alice" {
		t.Errorf("participant lost on lookup: %q", s2.Participant)
	}

	// A participant hint on lookup refreshes the stored name.
	s3, _ := r.GetOrCreate("web:u1", "u1", chat.OriginWeb, "Alice B")
	if s3.Participant != "Alice B" {
		t.Errorf("participant not refreshed: %q", s3.Participant)
	}
}

func TestUpdateUnknownKey(t *testing.T) {
	r := NewRegistry()

	_, err := r.Update("web:missing", func(s *chat.Session) error { return nil })
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateAborts(t *testing.T) {
	r := NewRegistry()
	r.GetOrCreate("web:u1", "u1", chat.OriginWeb, "")

	before, _ := r.Get("web:u1")

	boom := errors.New("boom")
	_, err := r.Update("web:u1", func(s *chat.Session) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	after, _ := r.Get("web:u1")
	if !after.Updated.Equal(before.Updated) {
		t.Error("failed update bumped the activity timestamp")
	}
}

func TestAppendAndHistory(t *testing.T) {
	r := NewRegistry()
	r.GetOrCreate("web:u1", "u1", chat.OriginWeb, "")

	for _, body := range []string{"one", "two", "three"} {
		if _, err := r.Append("web:u1", chat.Message{ID: body, Sender: chat.SenderUser, Body: body, At: time.Now()}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	msgs, err := r.History("web:u1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("len = %d, want 3", len(msgs))
	}
	if msgs[0].Body != "one" || msgs[2].Body != "three" {
		t.Errorf("messages out of order: %v", msgs)
	}

	// Snapshots are copies; mutating them must not touch the registry.
	msgs[0].Body = "mutated"
	again, _ := r.History("web:u1")
	if again[0].Body != "one" {
		t.Error("history snapshot aliases internal state")
	}
}

func TestListOrder(t *testing.T) {
	r := NewRegistry()
	r.GetOrCreate("web:a", "a", chat.OriginWeb, "")
	r.GetOrCreate("bridge:b", "b", chat.OriginExternal, "")
	r.GetOrCreate("web:c", "c", chat.OriginWeb, "")

	// Touch a so it becomes the most recent.
	time.Sleep(2 * time.Millisecond)
	if _, err := r.Append("web:a", chat.Message{ID: "m", Body: "x", At: time.Now()}); err != nil {
		t.Fatalf("append: %v", err)
	}

	infos := r.List()
	if len(infos) != 3 {
		t.Fatalf("len = %d, want 3", len(infos))
	}
	if infos[0].Key != "web:a" {
		t.Errorf("most recent first, got %q", infos[0].Key)
	}
	if infos[0].MessageCount != 1 {
		t.Errorf("message count = %d, want 1", infos[0].MessageCount)
	}
}

func TestRestoreExistingWins(t *testing.T) {
	r := NewRegistry()
	r.GetOrCreate("web:u1", "u1", chat.OriginWeb, "Live")

	r.Restore([]chat.Session{
		{Key: "web:u1", ChatID: "u1", Origin: chat.OriginWeb, Mode: chat.ModeHuman, Participant: "Stale"},
		{Key: "bridge:u2", ChatID: "u2", Origin: chat.OriginExternal, Mode: chat.ModeBot},
	})

	if r.Len() != 2 {
		t.Fatalf("len = %d, want 2", r.Len())
	}
	s, _ := r.Get("web:u1")
	if s.Participant != "Live" {
		t.Errorf("restore overwrote live session: %q", s.Participant)
	}
	if _, err := r.Get("bridge:u2"); err != nil {
		t.Errorf("restored session missing: %v", err)
	}
}
