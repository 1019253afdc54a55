package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if cfg.Gateway.Port != 18850 {
		t.Errorf("default port = %d", cfg.Gateway.Port)
	}
	if cfg.Store.Backend != "memory" {
		t.Errorf("default store backend = %q", cfg.Store.Backend)
	}
	if len(cfg.Responder.Rules) == 0 {
		t.Error("default responder rules missing")
	}
}

func TestLoadJSON5(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	// JSON5: comments and trailing commas are allowed.
	data := `{
		// gateway settings
		gateway: {
			port: 9000,
			allowed_origins: ["https://example.com"],
		},
		responder: {
			fallback_reply: "pardon?",
		},
	}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Gateway.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Gateway.Port)
	}
	if len(cfg.Gateway.AllowedOrigins) != 1 || cfg.Gateway.AllowedOrigins[0] != "https://example.com" {
		t.Errorf("allowed origins = %v", cfg.Gateway.AllowedOrigins)
	}
	if cfg.Responder.FallbackReply != "pardon?" {
		t.Errorf("fallback = %q", cfg.Responder.FallbackReply)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DESKRELAY_PORT", "7777")
	t.Setenv("DESKRELAY_TELEGRAM_TOKEN", "tg-secret")
	t.Setenv("DESKRELAY_POSTGRES_DSN", "postgres://localhost/deskrelay")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Gateway.Port != 7777 {
		t.Errorf("port = %d, want env override", cfg.Gateway.Port)
	}
	if cfg.Channels.Telegram.Token != "tg-secret" {
		t.Error("telegram token not read from env")
	}
	if !cfg.Channels.Telegram.Enabled {
		t.Error("telegram channel not auto-enabled by credentials")
	}
	if cfg.Store.Backend != "postgres" {
		t.Errorf("store backend = %q, want postgres auto-selected from DSN", cfg.Store.Backend)
	}
}

func TestExplicitBackendWinsOverDSN(t *testing.T) {
	t.Setenv("DESKRELAY_POSTGRES_DSN", "postgres://localhost/deskrelay")
	t.Setenv("DESKRELAY_STORE_BACKEND", "sqlite")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Store.Backend != "sqlite" {
		t.Errorf("backend = %q, explicit choice must win", cfg.Store.Backend)
	}
}

func TestExpandHome(t *testing.T) {
	home, _ := os.UserHomeDir()

	if got := ExpandHome("~/x"); got != home+"/x" {
		t.Errorf("ExpandHome(~/x) = %q", got)
	}
	if got := ExpandHome("~"); got != home {
		t.Errorf("ExpandHome(~) = %q", got)
	}
	if got := ExpandHome("/abs/path"); got != "/abs/path" {
		t.Errorf("ExpandHome(/abs/path) = %q", got)
	}
}

func TestSecretsNeverSerialized(t *testing.T) {
	// Tokens and DSNs are env-only; they carry `json:"-"` so a config dump
	// can never leak them.
	cfg := Default()
	cfg.Gateway.Token = "secret"
	cfg.Channels.Telegram.Token = "secret"
	cfg.Store.PostgresDSN = "secret"

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(data, []byte("secret")) {
		t.Error("secret leaked into serialized config")
	}
}
