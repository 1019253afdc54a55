package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/deskrelay/deskrelay/internal/agents"
	"github.com/deskrelay/deskrelay/internal/bus"
	"github.com/deskrelay/deskrelay/internal/channels"
	"github.com/deskrelay/deskrelay/internal/channels/bridge"
	"github.com/deskrelay/deskrelay/internal/channels/telegram"
	"github.com/deskrelay/deskrelay/internal/config"
	"github.com/deskrelay/deskrelay/internal/gateway"
	"github.com/deskrelay/deskrelay/internal/responder"
	"github.com/deskrelay/deskrelay/internal/router"
	"github.com/deskrelay/deskrelay/internal/session"
	"github.com/deskrelay/deskrelay/internal/store"
	"github.com/deskrelay/deskrelay/pkg/protocol"
)

func runServe() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	msgBus := bus.New()

	st, err := store.Open(cfg.Store)
	if err != nil {
		slog.Error("failed to open store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	registry := session.NewRegistry()
	if sessions, err := st.LoadSessions(context.Background()); err != nil {
		slog.Warn("failed to load persisted sessions", "error", err)
	} else if len(sessions) > 0 {
		registry.Restore(sessions)
		slog.Info("sessions restored", "count", registry.Len())
	}

	hub := agents.NewHub()
	resp := responder.New(cfg.Responder)
	rtr := router.New(msgBus, registry, hub, resp, st)

	server := gateway.NewServer(cfg, msgBus, registry)

	channelMgr := channels.NewManager(msgBus)
	channelMgr.RegisterChannel("web", server.Channel())

	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token != "" {
		tg, err := telegram.New(cfg.Channels.Telegram, msgBus)
		if err != nil {
			slog.Error("failed to initialize telegram channel", "error", err)
		} else {
			channelMgr.RegisterChannel("telegram", tg)
			slog.Info("telegram channel enabled")
		}
	}

	if cfg.Channels.Bridge.Enabled && cfg.Channels.Bridge.URL != "" {
		br, err := bridge.New(cfg.Channels.Bridge.URL, msgBus)
		if err != nil {
			slog.Error("failed to initialize bridge channel", "error", err)
		} else {
			channelMgr.RegisterChannel("bridge", br)
			slog.Info("bridge channel enabled")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if err := channelMgr.StartAll(ctx); err != nil {
		slog.Error("failed to start channels", "error", err)
	}

	go rtr.Run(ctx)

	go func() {
		sig := <-sigCh
		slog.Info("graceful shutdown initiated", "signal", sig)

		server.BroadcastEvent(*protocol.NewEvent(protocol.EventShutdown, nil))
		channelMgr.StopAll(context.Background())
		cancel()
	}()

	slog.Info("deskrelay starting",
		"version", Version,
		"protocol", protocol.ProtocolVersion,
		"store", cfg.Store.Backend,
	)

	if err := server.Start(ctx); err != nil {
		slog.Error("gateway error", "error", err)
		os.Exit(1)
	}
}
