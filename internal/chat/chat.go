// Package chat defines the core conversation model: sessions, messages, and
// the mode/ownership state they carry. The session registry, router, and
// stores all operate on these types.
package chat

import "time"

// Mode says who currently owns a session: the auto-responder or a human agent.
type Mode string

const (
	ModeBot   Mode = "bot"
	ModeHuman Mode = "human"
)

// Origin identifies the inbound adapter that created a session. It determines
// where bot and agent replies are delivered.
type Origin string

const (
	OriginWeb      Origin = "web"      // browser WebSocket via the gateway
	OriginExternal Origin = "external" // external messaging platform via the bridge
)

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser   Sender = "user"
	SenderAgent  Sender = "agent"
	SenderBot    Sender = "bot"
	SenderSystem Sender = "system"
)

// Message is one entry in a session's log. Immutable once appended.
type Message struct {
	ID      string    `json:"id"`
	Sender  Sender    `json:"sender"`
	Body    string    `json:"body"`
	FileURL string    `json:"fileUrl,omitempty"`
	AgentID string    `json:"agentId,omitempty"` // set only when Sender == SenderAgent
	At      time.Time `json:"at"`
}

// Session is one ongoing conversation between an end-user and the support
// system. AssignedAgent is non-empty iff Mode == ModeHuman.
type Session struct {
	Key                 string    `json:"key"` // "{channel}:{chatId}", see Key()
	ChatID              string    `json:"chatId"`
	Origin              Origin    `json:"origin"`
	Mode                Mode      `json:"mode"`
	AssignedAgent       string    `json:"assignedAgent,omitempty"`
	Participant         string    `json:"participant,omitempty"` // best-effort display name
	EscalationRequested bool      `json:"escalationRequested"`
	Messages            []Message `json:"messages"`
	Created             time.Time `json:"created"`
	Updated             time.Time `json:"updated"`
}

// Clone returns a deep copy safe to hand out past the registry lock.
func (s *Session) Clone() Session {
	cp := *s
	cp.Messages = make([]Message, len(s.Messages))
	copy(cp.Messages, s.Messages)
	return cp
}

// Info is lightweight session metadata for listings.
type Info struct {
	Key                 string    `json:"key"`
	Origin              Origin    `json:"origin"`
	Mode                Mode      `json:"mode"`
	AssignedAgent       string    `json:"assignedAgent,omitempty"`
	Participant         string    `json:"participant,omitempty"`
	EscalationRequested bool      `json:"escalationRequested"`
	MessageCount        int       `json:"messageCount"`
	Updated             time.Time `json:"updated"`
}

// Info returns the listing metadata for a session.
func (s *Session) Info() Info {
	return Info{
		Key:                 s.Key,
		Origin:              s.Origin,
		Mode:                s.Mode,
		AssignedAgent:       s.AssignedAgent,
		Participant:         s.Participant,
		EscalationRequested: s.EscalationRequested,
		MessageCount:        len(s.Messages),
		Updated:             s.Updated,
	}
}
