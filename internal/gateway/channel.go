package gateway

import (
	"context"
	"log/slog"

	"github.com/deskrelay/deskrelay/internal/bus"
	"github.com/deskrelay/deskrelay/pkg/protocol"
)

// WebChannel adapts the gateway to the channel interface so the outbound
// dispatcher can deliver to browser clients like any other channel. Delivery
// pushes a chat.message event to every socket attached to the chat ID.
type WebChannel struct {
	server *Server
}

// Channel returns the gateway's channel adapter. Register it on the manager
// under the name "web".
func (s *Server) Channel() *WebChannel {
	return &WebChannel{server: s}
}

func (w *WebChannel) Name() string { return "web" }

// Start is a no-op. The gateway HTTP server has its own lifecycle.
func (w *WebChannel) Start(_ context.Context) error { return nil }

// Stop is a no-op, see Start.
func (w *WebChannel) Stop(_ context.Context) error { return nil }

func (w *WebChannel) IsRunning() bool { return w.server.httpServer != nil }

// Send pushes the message to connected sockets for the chat. Zero reachable
// sockets is not an error: the user may have closed the tab and the transcript
// still has the message for when they reconnect.
func (w *WebChannel) Send(_ context.Context, msg bus.OutboundMessage) error {
	event := *protocol.NewEvent(protocol.EventChatMessage, map[string]interface{}{
		"chatId":  msg.ChatID,
		"content": msg.Content,
		"file":    msg.FileURL,
	})
	if n := w.server.sendToChat(msg.ChatID, event); n == 0 {
		slog.Debug("no web clients attached, message kept in transcript", "chat", msg.ChatID)
	}
	return nil
}
