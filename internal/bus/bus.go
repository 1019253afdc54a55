// Package bus carries normalized messages between the inbound channels, the
// router, and the outbound dispatcher, plus a broadcast fan-out for gateway
// events. Inbound messages are drained by a single consumer (the router), so
// session handling is serialized at message granularity.
package bus

import (
	"context"
	"log/slog"
	"sync"
)

const queueSize = 256

// MessageBus is the in-process message queue connecting channels and router.
type MessageBus struct {
	inbound  chan InboundMessage
	outbound chan OutboundMessage

	mu          sync.RWMutex
	subscribers map[string]EventHandler
}

// New creates a MessageBus with buffered queues.
func New() *MessageBus {
	return &MessageBus{
		inbound:     make(chan InboundMessage, queueSize),
		outbound:    make(chan OutboundMessage, queueSize),
		subscribers: make(map[string]EventHandler),
	}
}

// PublishInbound enqueues a message from a channel for the router.
// Drops the message if the queue is full rather than blocking the channel.
func (b *MessageBus) PublishInbound(msg InboundMessage) {
	select {
	case b.inbound <- msg:
	default:
		slog.Warn("inbound queue full, message dropped",
			"channel", msg.Channel, "chat", msg.ChatID, "role", msg.Role)
	}
}

// ConsumeInbound blocks until an inbound message is available or ctx is done.
func (b *MessageBus) ConsumeInbound(ctx context.Context) (InboundMessage, bool) {
	select {
	case <-ctx.Done():
		return InboundMessage{}, false
	case msg := <-b.inbound:
		return msg, true
	}
}

// PublishOutbound enqueues a message for delivery to a channel.
// Drops and logs when the queue is full, same stance as the inbound side.
func (b *MessageBus) PublishOutbound(msg OutboundMessage) {
	select {
	case b.outbound <- msg:
	default:
		slog.Warn("outbound queue full, message dropped",
			"channel", msg.Channel, "chat", msg.ChatID)
	}
}

// SubscribeOutbound blocks until an outbound message is available or ctx is done.
func (b *MessageBus) SubscribeOutbound(ctx context.Context) (OutboundMessage, bool) {
	select {
	case <-ctx.Done():
		return OutboundMessage{}, false
	case msg := <-b.outbound:
		return msg, true
	}
}

// Subscribe registers an event handler under an ID (gateway client ID).
func (b *MessageBus) Subscribe(id string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[id] = handler
}

// Unsubscribe removes an event handler.
func (b *MessageBus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, id)
}

// Broadcast delivers an event to all subscribers. Handlers must not block.
func (b *MessageBus) Broadcast(event Event) {
	b.mu.RLock()
	handlers := make([]EventHandler, 0, len(b.subscribers))
	for _, h := range b.subscribers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}
