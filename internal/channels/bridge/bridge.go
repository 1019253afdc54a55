// Package bridge connects the relay to an external messaging platform
// through a bridge process. The bridge speaks the platform protocol and
// exposes a WebSocket; this channel exchanges JSON frames with it.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/deskrelay/deskrelay/internal/bus"
	"github.com/deskrelay/deskrelay/internal/channels"
)

const (
	reconnectBase = time.Second
	reconnectMax  = 30 * time.Second
)

// frame is the wire format exchanged with the bridge.
type frame struct {
	Type     string `json:"type"`
	From     string `json:"from,omitempty"`
	FromName string `json:"from_name,omitempty"`
	Chat     string `json:"chat,omitempty"`
	To       string `json:"to,omitempty"`
	Content  string `json:"content,omitempty"`
	File     string `json:"file,omitempty"`
}

// Channel connects to a messaging bridge via WebSocket.
type Channel struct {
	*channels.BaseChannel
	url    string
	mu     sync.Mutex
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new bridge channel.
func New(url string, msgBus *bus.MessageBus) (*Channel, error) {
	if url == "" {
		return nil, fmt.Errorf("bridge url is required")
	}
	return &Channel{
		BaseChannel: channels.NewBaseChannel("bridge", msgBus, nil),
		url:         url,
	}, nil
}

// Start connects to the bridge WebSocket and begins listening.
func (c *Channel) Start(ctx context.Context) error {
	slog.Info("starting bridge channel", "url", c.url)

	c.ctx, c.cancel = context.WithCancel(ctx)

	if err := c.connect(); err != nil {
		// The reconnect loop keeps trying, startup proceeds.
		slog.Warn("initial bridge connection failed, will retry", "error", err)
	}

	go c.listenLoop()

	c.SetRunning(true)
	return nil
}

// Stop gracefully shuts down the bridge channel.
func (c *Channel) Stop(_ context.Context) error {
	slog.Info("stopping bridge channel")

	if c.cancel != nil {
		c.cancel()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.SetRunning(false)
	return nil
}

// Send delivers an outbound message to the bridge.
func (c *Channel) Send(_ context.Context, msg bus.OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("bridge not connected")
	}

	data, err := json.Marshal(frame{
		Type:    "message",
		To:      msg.ChatID,
		Content: msg.Content,
		File:    msg.FileURL,
	})
	if err != nil {
		return fmt.Errorf("marshal bridge message: %w", err)
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("send bridge message: %w", err)
	}
	return nil
}

// connect establishes the WebSocket connection to the bridge.
func (c *Channel) connect() error {
	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("dial bridge %s: %w", c.url, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	slog.Info("bridge connected", "url", c.url)
	return nil
}

// listenLoop reads frames from the bridge with automatic reconnection.
func (c *Channel) listenLoop() {
	backoff := reconnectBase

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()

		if conn == nil {
			slog.Info("attempting bridge reconnect", "backoff", backoff)

			select {
			case <-c.ctx.Done():
				return
			case <-time.After(backoff):
			}

			if err := c.connect(); err != nil {
				slog.Warn("bridge reconnect failed", "error", err)
				backoff = min(backoff*2, reconnectMax)
				continue
			}
			backoff = reconnectBase
			continue
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			slog.Warn("bridge read error, will reconnect", "error", err)

			c.mu.Lock()
			if c.conn != nil {
				_ = c.conn.Close()
				c.conn = nil
			}
			c.mu.Unlock()
			continue
		}

		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			slog.Warn("invalid bridge frame", "error", err)
			continue
		}
		if f.Type == "message" {
			c.handleIncoming(f)
		}
	}
}

// handleIncoming publishes an end-user message received from the bridge.
func (c *Channel) handleIncoming(f frame) {
	if f.From == "" {
		return
	}
	chatID := f.Chat
	if chatID == "" {
		chatID = f.From
	}

	slog.Debug("bridge message received",
		"sender", f.From,
		"chat", chatID,
		"text_preview", channels.Truncate(f.Content, 60),
	)

	c.Publish(bus.InboundMessage{
		SenderID:    f.From,
		ChatID:      chatID,
		DisplayName: f.FromName,
		Content:     f.Content,
		FileURL:     f.File,
		Role:        bus.RoleUser,
	})
}
