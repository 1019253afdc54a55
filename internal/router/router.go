// Package router implements the chat-session state machine. It drains the
// inbound side of the message bus (one consumer, so per-session handling is
// serialized), decides per message whether the auto-responder or the assigned
// human agent owns the conversation, and emits outbound deliveries plus
// gateway events. Durable mirroring is best-effort: store failures are logged
// and in-memory state stays authoritative.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/deskrelay/deskrelay/internal/agents"
	"github.com/deskrelay/deskrelay/internal/bus"
	"github.com/deskrelay/deskrelay/internal/chat"
	"github.com/deskrelay/deskrelay/internal/responder"
	"github.com/deskrelay/deskrelay/internal/session"
	"github.com/deskrelay/deskrelay/internal/store"
	"github.com/deskrelay/deskrelay/pkg/protocol"
)

// Router routes inbound messages between end-users, the auto-responder, and
// support agents.
type Router struct {
	bus       *bus.MessageBus
	registry  *session.Registry
	hub       *agents.Hub
	responder *responder.Responder
	store     store.Store
}

// New creates a Router. store may be a Noop store (memory-only).
func New(msgBus *bus.MessageBus, reg *session.Registry, hub *agents.Hub, resp *responder.Responder, st store.Store) *Router {
	if st == nil {
		st = store.Noop{}
	}
	return &Router{bus: msgBus, registry: reg, hub: hub, responder: resp, store: st}
}

// Run consumes inbound messages until ctx is cancelled.
func (r *Router) Run(ctx context.Context) {
	slog.Info("router started")
	for {
		msg, ok := r.bus.ConsumeInbound(ctx)
		if !ok {
			slog.Info("router stopped")
			return
		}
		r.Handle(ctx, msg)
	}
}

// Handle processes one inbound message. Exported for tests and for adapters
// that bypass the bus.
func (r *Router) Handle(ctx context.Context, msg bus.InboundMessage) {
	if msg.ChatID == "" || (msg.Content == "" && msg.FileURL == "" && msg.Command == "") {
		// Malformed event: discard, the adapter has already acked receipt.
		slog.Debug("discarding malformed inbound message", "channel", msg.Channel)
		return
	}

	if msg.Role == bus.RoleAgent {
		r.handleAgent(ctx, msg)
		return
	}
	r.handleUser(ctx, msg)
}

// --- user side ---

func (r *Router) handleUser(ctx context.Context, msg bus.InboundMessage) {
	key := chat.Key(msg.Channel, msg.ChatID)
	origin := chat.OriginForChannel(msg.Channel)

	sess, created := r.registry.GetOrCreate(key, msg.ChatID, origin, msg.DisplayName)
	if created {
		r.mirrorSession(ctx, sess)
		r.bus.Broadcast(bus.Event{Name: protocol.EventSessionCreated, Payload: sess.Info()})
		slog.Info("session created", "session", key, "origin", string(origin))
	}

	userMsg := newMessage(chat.SenderUser, msg.Content, msg.FileURL, "")
	sess = r.append(ctx, key, userMsg)

	switch sess.Mode {
	case chat.ModeHuman:
		r.forwardToAgent(sess, msg)
	default:
		r.autoRespond(ctx, key, sess, msg)
	}
}

// autoRespond runs the keyword responder and delivers its reply to the user's
// origin channel. On an escalation trigger it flags the session and notifies
// every registered agent.
func (r *Router) autoRespond(ctx context.Context, key string, sess chat.Session, msg bus.InboundMessage) {
	if msg.Content == "" {
		// File-only message: nothing for the keyword responder to match.
		return
	}

	reply, escalate := r.responder.Respond(msg.Content)

	if escalate {
		updated, err := r.registry.Update(key, func(s *chat.Session) error {
			s.EscalationRequested = true
			return nil
		})
		if err != nil {
			slog.Error("escalation flag update failed", "session", key, "error", err)
		} else {
			sess = updated
			r.mirrorSession(ctx, sess)
			r.bus.Broadcast(bus.Event{Name: protocol.EventEscalationRequested, Payload: map[string]interface{}{
				"sessionKey":  key,
				"participant": sess.Participant,
			}})
			r.notifyAgents(sess)
		}
	}

	botMsg := newMessage(chat.SenderBot, reply, "", "")
	r.append(ctx, key, botMsg)
	r.bus.PublishOutbound(bus.OutboundMessage{Channel: msg.Channel, ChatID: msg.ChatID, Content: reply})
}

// forwardToAgent relays a user message verbatim to the session's assigned
// agent. No auto-reply is produced while a human owns the chat.
func (r *Router) forwardToAgent(sess chat.Session, msg bus.InboundMessage) {
	agent, ok := r.hub.Get(sess.AssignedAgent)
	if !ok {
		// Assignment survived a restart but the agent has not re-registered.
		slog.Warn("assigned agent unknown, message kept in log only",
			"session", sess.Key, "agent", sess.AssignedAgent)
		return
	}

	who := sess.Participant
	if who == "" {
		who = sess.ChatID
	}
	content := fmt.Sprintf("[%s] %s", who, msg.Content)
	if msg.Content == "" && msg.FileURL != "" {
		content = fmt.Sprintf("[%s] sent a file", who)
	}
	r.bus.PublishOutbound(bus.OutboundMessage{
		Channel: agent.Channel,
		ChatID:  agent.Address,
		Content: content,
		FileURL: msg.FileURL,
	})
}

// notifyAgents tells every registered agent about an escalation request.
func (r *Router) notifyAgents(sess chat.Session) {
	who := sess.Participant
	if who == "" {
		who = sess.ChatID
	}
	text := fmt.Sprintf("Escalation: %s asked for a human.\nTake over with: /take %s", who, sess.Key)

	all := r.hub.All()
	if len(all) == 0 {
		slog.Warn("escalation requested but no agents registered", "session", sess.Key)
		return
	}
	for _, a := range all {
		r.bus.PublishOutbound(bus.OutboundMessage{Channel: a.Channel, ChatID: a.Address, Content: text})
	}
}

// --- agent side ---

func (r *Router) handleAgent(ctx context.Context, msg bus.InboundMessage) {
	reply := func(text string) {
		r.bus.PublishOutbound(bus.OutboundMessage{Channel: msg.Channel, ChatID: msg.ChatID, Content: text})
	}

	switch msg.Command {
	case "register":
		a := r.hub.Register(msg.SenderID, msg.DisplayName, msg.Channel, msg.ChatID)
		slog.Info("agent registered", "agent", a.ID, "name", a.Name)
		reply(fmt.Sprintf("Registered as %s. You'll be notified when a user asks for a human.\nUse /chats to list conversations.", displayName(a)))

	case "chats":
		reply(r.formatSessionList())

	case "take":
		if len(msg.Args) == 0 {
			reply("Usage: /take <session key>")
			return
		}
		r.takeover(ctx, msg, msg.Args[0], reply)

	case "release":
		target := r.hub.Current(msg.SenderID)
		if len(msg.Args) > 0 {
			target = msg.Args[0]
		}
		if target == "" {
			reply("You have no open chat to release.")
			return
		}
		r.release(ctx, msg, target, reply)

	case "whoami":
		a, ok := r.hub.Get(msg.SenderID)
		if !ok {
			reply("You are not registered yet. Use /register first.")
			return
		}
		owned := r.hub.Owned(a.ID)
		if len(owned) == 0 {
			reply(fmt.Sprintf("%s - no open chats.", displayName(a)))
			return
		}
		reply(fmt.Sprintf("%s - open chats:\n%s", displayName(a), strings.Join(owned, "\n")))

	case "":
		r.agentReply(ctx, msg, reply)

	default:
		reply(fmt.Sprintf("Unknown command %q. Commands: /register /chats /take /release /whoami", msg.Command))
	}
}

// takeover transitions a session BOT→HUMAN (or reassigns it between agents).
func (r *Router) takeover(ctx context.Context, msg bus.InboundMessage, target string, reply func(string)) {
	key, ok := r.resolveSessionKey(target)
	if !ok {
		// Unknown session: report to the agent, no state change.
		reply(fmt.Sprintf("No session %q. Use /chats to list conversations.", target))
		return
	}

	// Any command proves reachability; keep the agent's address current.
	agent := r.hub.Register(msg.SenderID, msg.DisplayName, msg.Channel, msg.ChatID)

	var previous string
	sysBody := fmt.Sprintf("agent %s joined the conversation", displayName(agent))
	sysMsg := newMessage(chat.SenderSystem, sysBody, "", "")

	sess, err := r.registry.Update(key, func(s *chat.Session) error {
		previous = s.AssignedAgent
		s.Mode = chat.ModeHuman
		s.AssignedAgent = agent.ID
		s.EscalationRequested = false
		s.Messages = append(s.Messages, sysMsg)
		return nil
	})
	if err != nil {
		reply(fmt.Sprintf("No session %q. Use /chats to list conversations.", target))
		return
	}

	if previous != "" && previous != agent.ID {
		r.hub.Unassign(key)
		if prev, ok := r.hub.Get(previous); ok {
			r.bus.PublishOutbound(bus.OutboundMessage{
				Channel: prev.Channel, ChatID: prev.Address,
				Content: fmt.Sprintf("%s took over chat %s.", displayName(agent), key),
			})
		}
	}
	r.hub.Assign(agent.ID, key)

	r.mirrorSession(ctx, sess)
	r.mirrorMessage(ctx, key, sysMsg)
	r.bus.Broadcast(bus.Event{Name: protocol.EventMessageAppended, Payload: appendedPayload(key, sysMsg)})
	r.bus.Broadcast(bus.Event{Name: protocol.EventModeChanged, Payload: modePayload(sess)})
	r.deliverToUser(sess, sysBody)

	slog.Info("session taken over", "session", key, "agent", agent.ID)
	reply(fmt.Sprintf("You took over %s. Messages from the user now come to you; just type to reply.\nHand back with /release.", key))
}

// release transitions a session HUMAN→BOT.
func (r *Router) release(ctx context.Context, msg bus.InboundMessage, target string, reply func(string)) {
	key, ok := r.resolveSessionKey(target)
	if !ok {
		reply(fmt.Sprintf("No session %q.", target))
		return
	}

	agent, _ := r.hub.Get(msg.SenderID)
	sysBody := fmt.Sprintf("agent %s left the conversation; the assistant is back", displayName(agent))
	sysMsg := newMessage(chat.SenderSystem, sysBody, "", "")

	sess, err := r.registry.Update(key, func(s *chat.Session) error {
		if s.Mode != chat.ModeHuman {
			return fmt.Errorf("session %s is not owned by an agent", key)
		}
		if s.AssignedAgent != msg.SenderID {
			return fmt.Errorf("session %s is owned by another agent", key)
		}
		s.Mode = chat.ModeBot
		s.AssignedAgent = ""
		s.EscalationRequested = false
		s.Messages = append(s.Messages, sysMsg)
		return nil
	})
	if err != nil {
		reply(err.Error())
		return
	}

	r.hub.Unassign(key)
	r.mirrorSession(ctx, sess)
	r.mirrorMessage(ctx, key, sysMsg)
	r.bus.Broadcast(bus.Event{Name: protocol.EventMessageAppended, Payload: appendedPayload(key, sysMsg)})
	r.bus.Broadcast(bus.Event{Name: protocol.EventModeChanged, Payload: modePayload(sess)})
	r.deliverToUser(sess, sysBody)

	slog.Info("session released", "session", key, "agent", msg.SenderID)
	reply(fmt.Sprintf("Released %s. The assistant is answering again.", key))
}

// agentReply relays agent free text to the user of the agent's current chat.
func (r *Router) agentReply(ctx context.Context, msg bus.InboundMessage, reply func(string)) {
	key := r.hub.Current(msg.SenderID)
	if key == "" {
		reply("You have no open chat. Use /chats to list conversations and /take <key> to pick one.")
		return
	}

	sess, err := r.registry.Get(key)
	if err != nil || sess.AssignedAgent != msg.SenderID {
		r.hub.Unassign(key)
		reply("Your chat is no longer assigned to you. Use /chats and /take to pick one.")
		return
	}

	agentMsg := newMessage(chat.SenderAgent, msg.Content, msg.FileURL, msg.SenderID)
	sess = r.append(ctx, key, agentMsg)
	r.deliverToUserFile(sess, msg.Content, msg.FileURL)
}

// --- helpers ---

// append records a message in the registry, mirrors it to the store, and
// broadcasts the gateway event. Returns the updated session snapshot.
func (r *Router) append(ctx context.Context, key string, msg chat.Message) chat.Session {
	sess, err := r.registry.Append(key, msg)
	if err != nil {
		slog.Error("append failed", "session", key, "error", err)
		return chat.Session{}
	}
	r.mirrorMessage(ctx, key, msg)
	r.bus.Broadcast(bus.Event{Name: protocol.EventMessageAppended, Payload: appendedPayload(key, msg)})
	return sess
}

func (r *Router) mirrorSession(ctx context.Context, sess chat.Session) {
	if err := r.store.UpsertSession(ctx, sess); err != nil {
		slog.Error("store upsert failed", "session", sess.Key, "error", err)
	}
}

func (r *Router) mirrorMessage(ctx context.Context, key string, msg chat.Message) {
	if err := r.store.AppendMessage(ctx, key, msg); err != nil {
		slog.Error("store append failed", "session", key, "error", err)
	}
}

// deliverToUser sends text to the session's origin channel.
func (r *Router) deliverToUser(sess chat.Session, text string) {
	r.deliverToUserFile(sess, text, "")
}

func (r *Router) deliverToUserFile(sess chat.Session, text, fileURL string) {
	channel, _ := chat.ParseKey(sess.Key)
	if channel == "" {
		slog.Warn("session key unparseable, cannot deliver", "session", sess.Key)
		return
	}
	r.bus.PublishOutbound(bus.OutboundMessage{
		Channel: channel,
		ChatID:  sess.ChatID,
		Content: text,
		FileURL: fileURL,
	})
}

// resolveSessionKey accepts either a full "{channel}:{chatId}" key or, as a
// convenience, a bare chat ID that matches exactly one session.
func (r *Router) resolveSessionKey(target string) (string, bool) {
	if _, err := r.registry.Get(target); err == nil {
		return target, true
	}

	var match string
	for _, info := range r.registry.List() {
		_, chatID := chat.ParseKey(info.Key)
		if chatID == target {
			if match != "" {
				return "", false // ambiguous across channels
			}
			match = info.Key
		}
	}
	return match, match != ""
}

func (r *Router) formatSessionList() string {
	infos := r.registry.List()
	if len(infos) == 0 {
		return "No active conversations."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Active conversations (%d), most recent first:\n", len(infos)))
	for i, info := range infos {
		who := info.Participant
		if who == "" {
			_, who = chat.ParseKey(info.Key)
		}
		owner := "bot"
		if info.Mode == chat.ModeHuman {
			owner = info.AssignedAgent
		}
		flag := ""
		if info.EscalationRequested {
			flag = " [escalation requested]"
		}
		sb.WriteString(fmt.Sprintf("%d. %s - %s, %d msgs, owner: %s%s\n",
			i+1, info.Key, who, info.MessageCount, owner, flag))
	}
	sb.WriteString("\nTake over with: /take <key>")
	return sb.String()
}

func newMessage(sender chat.Sender, body, fileURL, agentID string) chat.Message {
	return chat.Message{
		ID:      uuid.Must(uuid.NewV7()).String(),
		Sender:  sender,
		Body:    body,
		FileURL: fileURL,
		AgentID: agentID,
		At:      time.Now(),
	}
}

func appendedPayload(key string, msg chat.Message) map[string]interface{} {
	return map[string]interface{}{"sessionKey": key, "message": msg}
}

func modePayload(sess chat.Session) map[string]interface{} {
	return map[string]interface{}{
		"sessionKey":    sess.Key,
		"mode":          sess.Mode,
		"assignedAgent": sess.AssignedAgent,
	}
}

func displayName(a agents.Agent) string {
	if a.Name != "" {
		return a.Name
	}
	if a.ID != "" {
		return a.ID
	}
	return "unknown"
}
