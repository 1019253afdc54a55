package gateway

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/deskrelay/deskrelay/internal/bus"
	"github.com/deskrelay/deskrelay/internal/chat"
	"github.com/deskrelay/deskrelay/pkg/protocol"
)

type connectParams struct {
	Token  string `json:"token,omitempty"`
	ChatID string `json:"chatId"`
	Name   string `json:"name,omitempty"`
}

type chatSendParams struct {
	Content string `json:"content"`
	File    string `json:"file,omitempty"`
}

type chatHistoryParams struct {
	SessionKey string `json:"sessionKey,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// handleRequest dispatches one request frame from a client. connect must be
// the first method on every connection.
func (s *Server) handleRequest(ctx context.Context, c *Client, req *protocol.RequestFrame) {
	if req.Method != protocol.MethodConnect && req.Method != protocol.MethodPing {
		c.mu.Lock()
		authed := c.authed
		c.mu.Unlock()
		if !authed {
			c.sendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrCodeNotConnected, "connect first"))
			return
		}
	}

	switch req.Method {
	case protocol.MethodConnect:
		s.handleConnect(c, req)
	case protocol.MethodPing:
		c.sendResponse(protocol.NewResponse(req.ID, map[string]interface{}{"pong": true}))
	case protocol.MethodChatSend:
		s.handleChatSend(ctx, c, req)
	case protocol.MethodChatHistory:
		s.handleChatHistory(c, req)
	case protocol.MethodSessionsList:
		// Observers only: an attached widget must not enumerate other chats.
		if c.ChatID() != "" {
			c.sendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrCodeUnauthorized, "sessions.list is for observers"))
			return
		}
		c.sendResponse(protocol.NewResponse(req.ID, s.registry.List()))
	default:
		c.sendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrCodeUnknownMethod, "unknown method "+req.Method))
	}
}

func (s *Server) handleConnect(c *Client, req *protocol.RequestFrame) {
	var params connectParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			c.sendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrCodeBadRequest, "invalid connect params"))
			return
		}
	}

	if token := s.cfg.Gateway.Token; token != "" && params.Token != token {
		c.sendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrCodeUnauthorized, "bad token"))
		return
	}
	c.mu.Lock()
	c.authed = true
	c.chatID = params.ChatID
	c.name = params.Name
	c.mu.Unlock()

	payload := map[string]interface{}{"protocol": protocol.ProtocolVersion}
	if params.ChatID != "" {
		// Attached client: a chat widget bound to one conversation.
		key := chat.Key("web", params.ChatID)
		payload["sessionKey"] = key
		slog.Info("gateway client attached", "id", c.id, "session", key)
	} else {
		// Observer client: a dashboard that follows every session.
		slog.Info("gateway observer connected", "id", c.id)
	}

	c.sendResponse(protocol.NewResponse(req.ID, payload))
}

func (s *Server) handleChatSend(_ context.Context, c *Client, req *protocol.RequestFrame) {
	if !s.rateLimiter.Allow(c.id) {
		c.sendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrCodeRateLimited, "slow down"))
		return
	}

	var params chatSendParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		c.sendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrCodeBadRequest, "invalid chat.send params"))
		return
	}
	if params.Content == "" && params.File == "" {
		c.sendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrCodeBadRequest, "content or file is required"))
		return
	}

	c.mu.Lock()
	chatID, name := c.chatID, c.name
	c.mu.Unlock()
	if chatID == "" {
		c.sendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrCodeBadRequest, "client is not attached to a chat"))
		return
	}

	s.bus.PublishInbound(bus.InboundMessage{
		Channel:     "web",
		SenderID:    chatID,
		ChatID:      chatID,
		DisplayName: name,
		Content:     params.Content,
		FileURL:     params.File,
		Role:        bus.RoleUser,
	})

	c.sendResponse(protocol.NewResponse(req.ID, map[string]interface{}{"accepted": true}))
}

func (s *Server) handleChatHistory(c *Client, req *protocol.RequestFrame) {
	var params chatHistoryParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			c.sendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrCodeBadRequest, "invalid chat.history params"))
			return
		}
	}

	// Attached widgets read only their own transcript; observers name a key.
	key := params.SessionKey
	if chatID := c.ChatID(); chatID != "" {
		own := chat.Key("web", chatID)
		if key != "" && key != own {
			c.sendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrCodeUnauthorized, "history is limited to your own chat"))
			return
		}
		key = own
	} else if key == "" {
		c.sendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrCodeBadRequest, "sessionKey is required"))
		return
	}

	messages, err := s.registry.History(key)
	if err != nil {
		c.sendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrCodeUnknownSession, "unknown session "+key))
		return
	}
	if params.Limit > 0 && len(messages) > params.Limit {
		messages = messages[len(messages)-params.Limit:]
	}

	c.sendResponse(protocol.NewResponse(req.ID, map[string]interface{}{
		"sessionKey": key,
		"messages":   messages,
	}))
}
