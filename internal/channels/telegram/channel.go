// Package telegram implements the support-staff channel. Agents talk to the
// relay through a Telegram bot: slash commands manage chat ownership, free
// text is relayed to the agent's current chat.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mymmrac/telego"

	"github.com/deskrelay/deskrelay/internal/bus"
	"github.com/deskrelay/deskrelay/internal/channels"
	"github.com/deskrelay/deskrelay/internal/config"
)

// Channel connects to Telegram via the Bot API using long polling.
type Channel struct {
	*channels.BaseChannel
	bot        *telego.Bot
	config     config.TelegramConfig
	pollCancel context.CancelFunc
	pollDone   chan struct{}
}

// New creates a new Telegram channel from config.
func New(cfg config.TelegramConfig, msgBus *bus.MessageBus) (*Channel, error) {
	bot, err := telego.NewBot(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return &Channel{
		BaseChannel: channels.NewBaseChannel("telegram", msgBus, cfg.AllowFrom),
		bot:         bot,
		config:      cfg,
	}, nil
}

// Start begins long polling for Telegram updates.
func (c *Channel) Start(ctx context.Context) error {
	slog.Info("starting telegram bot (polling mode)")

	pollCtx, cancel := context.WithCancel(ctx)
	c.pollCancel = cancel
	c.pollDone = make(chan struct{})

	updates, err := c.bot.UpdatesViaLongPolling(pollCtx, &telego.GetUpdatesParams{
		Timeout:        30,
		AllowedUpdates: []string{"message"},
	})
	if err != nil {
		cancel()
		return fmt.Errorf("start long polling: %w", err)
	}

	c.SetRunning(true)
	slog.Info("telegram bot connected", "username", c.bot.Username())

	// Register the bot command menu with retry.
	go func() {
		for attempt := 1; attempt <= 3; attempt++ {
			if err := c.syncMenuCommands(pollCtx); err != nil {
				slog.Warn("failed to sync telegram menu commands", "error", err, "attempt", attempt)
				select {
				case <-pollCtx.Done():
					return
				case <-time.After(time.Duration(attempt*5) * time.Second):
				}
				continue
			}
			return
		}
	}()

	go func() {
		defer close(c.pollDone)
		for {
			select {
			case <-pollCtx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					slog.Info("telegram updates channel closed")
					return
				}
				if update.Message != nil {
					c.handleMessage(update.Message)
				}
			}
		}
	}()

	return nil
}

// Stop shuts down the bot by cancelling the long polling context and waiting
// for the polling goroutine to exit, so Telegram releases the getUpdates lock
// before a new instance starts.
func (c *Channel) Stop(_ context.Context) error {
	slog.Info("stopping telegram bot")
	c.SetRunning(false)

	if c.pollCancel != nil {
		c.pollCancel()
	}
	if c.pollDone != nil {
		select {
		case <-c.pollDone:
		case <-time.After(10 * time.Second):
			slog.Warn("telegram polling goroutine did not exit within timeout")
		}
	}
	return nil
}

// Send delivers an outbound message to a Telegram chat.
func (c *Channel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	chatID, err := parseChatID(msg.ChatID)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", msg.ChatID, err)
	}

	if msg.FileURL != "" {
		params := &telego.SendDocumentParams{
			ChatID:   telego.ChatID{ID: chatID},
			Document: telego.InputFile{URL: msg.FileURL},
			Caption:  channels.Truncate(msg.Content, 1024),
		}
		if _, err := c.bot.SendDocument(ctx, params); err != nil {
			return fmt.Errorf("send telegram document: %w", err)
		}
		return nil
	}

	params := &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: chatID},
		Text:   channels.Truncate(msg.Content, 4096),
	}
	if _, err := c.bot.SendMessage(ctx, params); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

func (c *Channel) syncMenuCommands(ctx context.Context) error {
	return c.bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{
		Commands: []telego.BotCommand{
			{Command: "register", Description: "Register as a support agent"},
			{Command: "chats", Description: "List active conversations"},
			{Command: "take", Description: "Take over a conversation"},
			{Command: "release", Description: "Hand a conversation back to the assistant"},
			{Command: "whoami", Description: "Show your registration and open chats"},
			{Command: "help", Description: "Show usage"},
		},
	})
}

// parseChatID converts a string chat ID to int64.
func parseChatID(chatIDStr string) (int64, error) {
	var id int64
	_, err := fmt.Sscanf(chatIDStr, "%d", &id)
	return id, err
}
