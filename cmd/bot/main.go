package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"weatherbot/internal/alarms"
	"weatherbot/internal/bot"
	"weatherbot/internal/config"
	"weatherbot/internal/dispatch"
	"weatherbot/internal/iconcache"
	"weatherbot/internal/onebot"
	"weatherbot/internal/scheduler"
	"weatherbot/internal/storage"
	"weatherbot/internal/subscription"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	registry := subscription.NewRegistry(store, log)
	if err := registry.Load(ctx); err != nil {
		log.Error("load subscriptions", "error", err)
		os.Exit(1)
	}

	icons, err := iconcache.New(cfg.IconCacheDir, cfg.NMCBaseURL, http.DefaultClient)
	if err != nil {
		log.Error("create icon cache", "path", cfg.IconCacheDir, "error", err)
		os.Exit(1)
	}

	source := alarms.NewWithBaseURL(http.DefaultClient, cfg.NMCBaseURL)
	gateway := onebot.NewClient(http.DefaultClient, cfg.OneBotAPIURL, cfg.OneBotToken, log)
	dispatcher := dispatch.New(gateway, icons, cfg.NMCBaseURL, log)
	sched := scheduler.New(source, registry, store, dispatcher, log)
	commands := bot.New(registry, gateway, log)
	listener := onebot.NewListener(cfg.OneBotWSURL, cfg.OneBotToken, log)

	log.Info("starting weather alarm bot")

	go sched.Run(ctx)

	listener.Listen(ctx, commands.HandleEvent)

	log.Info("bot stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
