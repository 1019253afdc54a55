package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/deskrelay/deskrelay/internal/bus"
	"github.com/deskrelay/deskrelay/internal/chat"
	"github.com/deskrelay/deskrelay/pkg/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendQueueSize  = 64
)

// Client is a single WebSocket connection. Frames to the peer go through the
// send channel so only the write pump touches the connection.
type Client struct {
	id     string
	conn   *websocket.Conn
	server *Server
	send   chan []byte

	mu     sync.Mutex
	authed bool
	chatID string
	name   string
	closed bool

	closeOnce sync.Once
}

// NewClient wraps a WebSocket connection.
func NewClient(conn *websocket.Conn, server *Server) *Client {
	return &Client{
		id:     uuid.Must(uuid.NewV7()).String(),
		conn:   conn,
		server: server,
		send:   make(chan []byte, sendQueueSize),
	}
}

// ChatID returns the chat this client is attached to ("" until connect).
func (c *Client) ChatID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chatID
}

// wantsEvent reports whether a bus event should be forwarded to this client.
// Observers (no attached chat) receive everything; attached widgets only
// receive events about their own session.
func (c *Client) wantsEvent(event bus.Event) bool {
	chatID := c.ChatID()
	if chatID == "" {
		return true
	}

	var key string
	switch p := event.Payload.(type) {
	case map[string]interface{}:
		key, _ = p["sessionKey"].(string)
	case chat.Info:
		key = p.Key
	}
	if key == "" {
		// Events without a session scope (health, shutdown) go to everyone.
		return true
	}
	return key == chat.Key("web", chatID)
}

// Run starts the read and write pumps and blocks until the connection drops.
func (c *Client) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump(ctx)
	c.readPump(ctx)
}

// Close shuts down the client connection. The send channel stays open: a bus
// broadcast snapshotted before Unsubscribe may still call SendEvent after
// Close, so sends are fenced by the closed flag instead.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		_ = c.conn.Close()
	})
}

// enqueue hands a marshalled frame to the write pump. Returns false when the
// client is closed or its queue is full.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// SendEvent queues an event frame for delivery. Slow or closed clients are
// skipped rather than blocking the broadcaster.
func (c *Client) SendEvent(event protocol.EventFrame) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("marshal event frame", "error", err)
		return
	}
	if !c.enqueue(data) {
		slog.Debug("event not delivered", "id", c.id, "event", event.Event)
	}
}

func (c *Client) sendResponse(resp *protocol.ResponseFrame) {
	data, err := json.Marshal(resp)
	if err != nil {
		slog.Error("marshal response frame", "error", err)
		return
	}
	if !c.enqueue(data) {
		slog.Debug("response not delivered", "id", c.id)
	}
}

func (c *Client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read error", "id", c.id, "error", err)
			}
			return
		}

		var req protocol.RequestFrame
		if err := json.Unmarshal(data, &req); err != nil {
			c.sendResponse(protocol.NewErrorResponse("", protocol.ErrCodeBadRequest, "invalid frame"))
			continue
		}
		c.server.handleRequest(ctx, c, &req)
	}
}

func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
