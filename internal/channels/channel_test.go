package channels

import (
	"context"
	"testing"
	"time"

	"github.com/deskrelay/deskrelay/internal/bus"
)

func TestIsAllowed(t *testing.T) {
	tests := []struct {
		name      string
		allowList []string
		senderID  string
		want      bool
	}{
		{"empty list allows all", nil, "123", true},
		{"exact id", []string{"123"}, "123", true},
		{"compound sender matches id", []string{"123"}, "123|bob", true},
		{"compound sender matches username", []string{"bob"}, "123|bob", true},
		{"at-prefixed username", []string{"@bob"}, "123|bob", true},
		{"not listed", []string{"456"}, "123", false},
		{"username mismatch", []string{"@carol"}, "123|bob", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewBaseChannel("test", bus.New(), tt.allowList)
			if got := c.IsAllowed(tt.senderID); got != tt.want {
				t.Errorf("IsAllowed(%q) with %v = %v, want %v", tt.senderID, tt.allowList, got, tt.want)
			}
		})
	}
}

func TestPublishSetsChannelName(t *testing.T) {
	msgBus := bus.New()
	c := NewBaseChannel("bridge", msgBus, nil)

	c.Publish(bus.InboundMessage{SenderID: "u1", ChatID: "u1", Content: "hi", Role: bus.RoleUser})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, ok := msgBus.ConsumeInbound(ctx)
	if !ok {
		t.Fatal("no message published")
	}
	if msg.Channel != "bridge" {
		t.Errorf("channel = %q, want bridge", msg.Channel)
	}
}

func TestPublishRespectsAllowlist(t *testing.T) {
	msgBus := bus.New()
	c := NewBaseChannel("telegram", msgBus, []string{"42"})

	c.Publish(bus.InboundMessage{SenderID: "99", ChatID: "99", Content: "nope", Role: bus.RoleAgent})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, ok := msgBus.ConsumeInbound(ctx); ok {
		t.Error("message from disallowed sender was published")
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Errorf("short text changed: %q", got)
	}
	if got := Truncate("hello world", 5); got != "hello..." {
		t.Errorf("got %q", got)
	}
	// Rune-safe: multi-byte characters are not split.
	if got := Truncate("héllo wörld", 5); got != "héllo..." {
		t.Errorf("got %q", got)
	}
}

func TestManagerDispatch(t *testing.T) {
	msgBus := bus.New()
	m := NewManager(msgBus)

	sent := make(chan bus.OutboundMessage, 1)
	m.RegisterChannel("fake", &fakeChannel{sent: sent})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.StartAll(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer m.StopAll(context.Background())

	msgBus.PublishOutbound(bus.OutboundMessage{Channel: "fake", ChatID: "c1", Content: "out"})

	select {
	case msg := <-sent:
		if msg.Content != "out" {
			t.Errorf("msg = %+v", msg)
		}
	case <-time.After(time.Second):
		t.Fatal("outbound message not dispatched")
	}

	// Unknown channel is logged and skipped, not fatal.
	msgBus.PublishOutbound(bus.OutboundMessage{Channel: "ghost", ChatID: "c1", Content: "lost"})
}

type fakeChannel struct {
	running bool
	sent    chan bus.OutboundMessage
}

func (f *fakeChannel) Name() string                  { return "fake" }
func (f *fakeChannel) Start(_ context.Context) error { f.running = true; return nil }
func (f *fakeChannel) Stop(_ context.Context) error  { f.running = false; return nil }
func (f *fakeChannel) IsRunning() bool               { return f.running }
func (f *fakeChannel) Send(_ context.Context, msg bus.OutboundMessage) error {
	f.sent <- msg
	return nil
}
