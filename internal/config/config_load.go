package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/titanous/json5"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Host:         "0.0.0.0",
			Port:         18850,
			RateLimitRPM: 60,
		},
		Responder: ResponderConfig{
			Rules: []ResponderRule{
				{Keywords: []string{"hello", "hi", "good morning", "good evening"},
					Reply: "Hi there! How can I help you today?"},
				{Keywords: []string{"opening hours", "open", "hours"},
					Reply: "We're available Monday to Friday, 9:00-18:00."},
				{Keywords: []string{"price", "pricing", "cost"},
					Reply: "You can find our current pricing at our website under Pricing."},
				{Keywords: []string{"help"},
					Reply: "Sure - tell me what you need, or say \"talk to human\" to reach our support staff."},
			},
			EscalationTriggers: []string{
				"agent", "human support", "talk to human", "real person", "operator",
			},
			EscalationReply: "Got it - I've notified our support staff. A human agent will join shortly.",
			FallbackReply:   "Sorry, I didn't quite get that. Say \"talk to human\" to reach our support staff.",
		},
		Store: StoreConfig{
			Backend: "memory",
			Dir:     "~/.deskrelay/sessions",
			Path:    "~/.deskrelay/deskrelay.db",
		},
	}
}

// Load reads config from a JSON5 file, then overlays env vars.
// A missing file is not an error: defaults + env apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config.
// Env vars take precedence over file values; secrets are env-only.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	envStr("DESKRELAY_GATEWAY_TOKEN", &c.Gateway.Token)
	envStr("DESKRELAY_TELEGRAM_TOKEN", &c.Channels.Telegram.Token)
	envStr("DESKRELAY_BRIDGE_URL", &c.Channels.Bridge.URL)
	envStr("DESKRELAY_POSTGRES_DSN", &c.Store.PostgresDSN)
	envStr("DESKRELAY_STORE_BACKEND", &c.Store.Backend)
	envStr("DESKRELAY_STORE_DIR", &c.Store.Dir)
	envStr("DESKRELAY_STORE_PATH", &c.Store.Path)

	envStr("DESKRELAY_HOST", &c.Gateway.Host)
	if v := os.Getenv("DESKRELAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Gateway.Port = port
		}
	}

	if v := os.Getenv("DESKRELAY_ALLOWED_ORIGINS"); v != "" {
		c.Gateway.AllowedOrigins = strings.Split(v, ",")
	}

	// Auto-enable channels when credentials are provided via env.
	if c.Channels.Telegram.Token != "" {
		c.Channels.Telegram.Enabled = true
	}
	if c.Channels.Bridge.URL != "" {
		c.Channels.Bridge.Enabled = true
	}

	// Auto-select postgres when a DSN is provided and no backend was chosen explicitly.
	if c.Store.PostgresDSN != "" && os.Getenv("DESKRELAY_STORE_BACKEND") == "" && c.Store.Backend == "memory" {
		c.Store.Backend = "postgres"
	}
}

// ExpandHome replaces a leading ~ with the user home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}
