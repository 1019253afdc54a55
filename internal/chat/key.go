// Session key builder and parser.
//
// Session keys are scoped by the inbound channel so that chat IDs from
// different platforms can never collide:
//
//	{channel}:{chatId}
//
// Examples:
//
//	web:3f2c9a10-6f2e-4f3a-9c1d-1a2b3c4d5e6f
//	bridge:4915112345678@c.example
package chat

import (
	"fmt"
	"strings"
)

// Key builds the canonical session key for a channel conversation.
func Key(channel, chatID string) string {
	return fmt.Sprintf("%s:%s", channel, chatID)
}

// ParseKey splits a canonical session key into channel and chat ID.
// Returns ("", "") if the key is not in the expected format.
func ParseKey(key string) (channel, chatID string) {
	parts := strings.SplitN(key, ":", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", ""
	}
	return parts[0], parts[1]
}

// OriginForChannel maps an inbound channel name to the session origin.
// Unknown channels are treated as external.
func OriginForChannel(channel string) Origin {
	if channel == "web" {
		return OriginWeb
	}
	return OriginExternal
}
