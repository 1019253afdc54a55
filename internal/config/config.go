package config

// Config is the root configuration for the DeskRelay gateway.
type Config struct {
	Gateway   GatewayConfig   `json:"gateway"`
	Channels  ChannelsConfig  `json:"channels"`
	Responder ResponderConfig `json:"responder"`
	Store     StoreConfig     `json:"store"`
}

// GatewayConfig configures the WebSocket/HTTP gateway.
type GatewayConfig struct {
	Host           string   `json:"host"`
	Port           int      `json:"port"`
	Token          string   `json:"-"` // from env DESKRELAY_GATEWAY_TOKEN only
	AllowedOrigins []string `json:"allowed_origins,omitempty"`
	RateLimitRPM   int      `json:"rate_limit_rpm,omitempty"` // per client; 0 = disabled
}

// ChannelsConfig holds per-channel settings.
type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
	Bridge   BridgeConfig   `json:"bridge"`
}

// TelegramConfig configures the support-staff Telegram channel.
type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"-"` // from env DESKRELAY_TELEGRAM_TOKEN only
	AllowFrom []string `json:"allow_from,omitempty"`
}

// BridgeConfig configures the external customer-platform bridge.
// The bridge process speaks the platform protocol; this side is a WebSocket
// client exchanging JSON message frames with it.
type BridgeConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url,omitempty"`
}

// ResponderConfig configures the keyword auto-responder.
type ResponderConfig struct {
	Rules              []ResponderRule `json:"rules,omitempty"`
	EscalationTriggers []string        `json:"escalation_triggers,omitempty"`
	EscalationReply    string          `json:"escalation_reply,omitempty"`
	FallbackReply      string          `json:"fallback_reply,omitempty"`
}

// ResponderRule maps a keyword set to a canned reply. First match wins.
type ResponderRule struct {
	Keywords []string `json:"keywords"`
	Reply    string   `json:"reply"`
}

// StoreConfig selects the durable session store backend.
type StoreConfig struct {
	Backend     string `json:"backend"`        // "memory" (default), "file", "postgres", "sqlite"
	Dir         string `json:"dir,omitempty"`  // file backend: session directory
	Path        string `json:"path,omitempty"` // sqlite backend: database file
	PostgresDSN string `json:"-"`              // from env DESKRELAY_POSTGRES_DSN only
}
