// Package channels provides the channel abstraction layer for the relay.
// Channels connect external messaging platforms (Telegram for support staff,
// the bridge socket for end-users) to the router via the message bus.
package channels

import (
	"context"
	"strings"

	"github.com/deskrelay/deskrelay/internal/bus"
)

// InternalChannels are system channels excluded from outbound dispatch.
// The web gateway registers itself as a real channel, so only truly
// synthetic names live here.
var InternalChannels = map[string]bool{
	"system": true,
}

// IsInternalChannel checks if a channel name is internal.
func IsInternalChannel(name string) bool {
	return InternalChannels[name]
}

// Channel defines the interface that all channel implementations must satisfy.
type Channel interface {
	// Name returns the channel identifier (e.g., "telegram", "bridge", "web").
	Name() string

	// Start begins listening for messages. Should be non-blocking after setup.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the channel.
	Stop(ctx context.Context) error

	// Send delivers an outbound message to the channel.
	Send(ctx context.Context, msg bus.OutboundMessage) error

	// IsRunning returns whether the channel is actively processing messages.
	IsRunning() bool
}

// BaseChannel provides shared functionality for channel implementations.
type BaseChannel struct {
	name      string
	bus       *bus.MessageBus
	running   bool
	allowList []string
}

// NewBaseChannel creates a new BaseChannel with the given parameters.
func NewBaseChannel(name string, msgBus *bus.MessageBus, allowList []string) *BaseChannel {
	return &BaseChannel{
		name:      name,
		bus:       msgBus,
		allowList: allowList,
	}
}

// Name returns the channel name.
func (c *BaseChannel) Name() string { return c.name }

// IsRunning returns whether the channel is running.
func (c *BaseChannel) IsRunning() bool { return c.running }

// SetRunning updates the running state.
func (c *BaseChannel) SetRunning(running bool) { c.running = running }

// Bus returns the message bus reference.
func (c *BaseChannel) Bus() *bus.MessageBus { return c.bus }

// IsAllowed checks if a sender is permitted by the allowlist.
// Supports compound senderID format: "123456|username".
// Empty allowlist means all senders are allowed.
func (c *BaseChannel) IsAllowed(senderID string) bool {
	if len(c.allowList) == 0 {
		return true
	}

	idPart := senderID
	userPart := ""
	if idx := strings.Index(senderID, "|"); idx > 0 {
		idPart = senderID[:idx]
		userPart = senderID[idx+1:]
	}

	for _, allowed := range c.allowList {
		trimmed := strings.TrimPrefix(allowed, "@")
		if senderID == allowed || senderID == trimmed ||
			idPart == allowed || idPart == trimmed ||
			(userPart != "" && (userPart == allowed || userPart == trimmed)) {
			return true
		}
	}
	return false
}

// Publish forwards a received message to the bus after the allowlist check.
// This is the standard way for channels to hand off inbound traffic.
func (c *BaseChannel) Publish(msg bus.InboundMessage) {
	if !c.IsAllowed(msg.SenderID) {
		return
	}
	msg.Channel = c.name
	c.bus.PublishInbound(msg)
}

// Truncate shortens content to maxLen runes, appending an ellipsis marker.
func Truncate(content string, maxLen int) string {
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	return string(runes[:maxLen]) + "..."
}
