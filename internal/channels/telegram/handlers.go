package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mymmrac/telego"

	"github.com/deskrelay/deskrelay/internal/bus"
	"github.com/deskrelay/deskrelay/internal/channels"
)

const helpText = `DeskRelay agent commands:
/register - register as a support agent
/chats - list active conversations, most recent first
/take <key> - take over a conversation
/release [key] - hand a conversation back to the assistant
/whoami - show your registration and open chats

Once you take a chat, plain messages you type here are relayed to the user.`

// handleMessage converts an incoming Telegram message into a bus message.
// Commands are parsed here; the router owns their semantics.
func (c *Channel) handleMessage(message *telego.Message) {
	user := message.From
	if user == nil {
		return
	}

	userID := fmt.Sprintf("%d", user.ID)
	senderID := userID
	if user.Username != "" {
		senderID = fmt.Sprintf("%s|%s", userID, user.Username)
	}

	if !c.IsAllowed(senderID) {
		slog.Debug("telegram message rejected by allowlist",
			"user_id", userID, "username", user.Username)
		return
	}

	text := message.Text
	if text == "" {
		text = message.Caption
	}

	chatID := fmt.Sprintf("%d", message.Chat.ID)

	slog.Debug("telegram message received",
		"chat_id", message.Chat.ID,
		"user_id", user.ID,
		"text_preview", channels.Truncate(text, 60),
	)

	command, args := parseCommand(text)
	if command == "help" || command == "start" {
		reply := &telego.SendMessageParams{
			ChatID: telego.ChatID{ID: message.Chat.ID},
			Text:   helpText,
		}
		if _, err := c.bot.SendMessage(context.Background(), reply); err != nil {
			slog.Warn("telegram help reply failed", "error", err)
		}
		return
	}

	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		name = user.Username
	}

	c.Publish(bus.InboundMessage{
		SenderID:    userID,
		ChatID:      chatID,
		DisplayName: name,
		Content:     text,
		FileURL:     resolveFileURL(message),
		Role:        bus.RoleAgent,
		Command:     command,
		Args:        args,
	})
}

// parseCommand splits "/take web:u1 extra" into ("take", ["web:u1", "extra"]).
// A "@botname" suffix on the command is stripped. Plain text returns ("", nil).
func parseCommand(text string) (string, []string) {
	if !strings.HasPrefix(text, "/") {
		return "", nil
	}
	fields := strings.Fields(text[1:])
	if len(fields) == 0 {
		return "", nil
	}
	command := fields[0]
	if idx := strings.Index(command, "@"); idx > 0 {
		command = command[:idx]
	}
	return strings.ToLower(command), fields[1:]
}

// resolveFileURL extracts a forwardable attachment reference if present.
// Telegram file_ids are not public URLs, so documents are referenced by name
// only; the actual bytes stay on Telegram's side.
func resolveFileURL(message *telego.Message) string {
	if message.Document != nil {
		return message.Document.FileName
	}
	return ""
}
