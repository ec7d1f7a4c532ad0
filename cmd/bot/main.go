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
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telemonitorrent/internal/bot"
	"telemonitorrent/internal/config"
	"telemonitorrent/internal/monitor"
	"telemonitorrent/internal/notify"
	"telemonitorrent/internal/qbittorrent"
	"telemonitorrent/internal/scheduler"
	"telemonitorrent/internal/storage"
	"telemonitorrent/internal/tracker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := os.MkdirAll(cfg.FileDir, 0o750); err != nil {
		log.Error("create torrent directory", "path", cfg.FileDir, "error", err)
		os.Exit(1)
	}
	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	if dir := filepath.Dir(cfg.UsersDBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create users data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath, cfg.UsersDBPath, cfg.FileDir)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	var trackerOpts []tracker.Option
	if cfg.UseProxy {
		if err := tracker.ValidateProxy(ctx, cfg.HTTPSProxy); err != nil {
			log.Error("proxy validation failed", "error", err)
			os.Exit(1)
		}
		transport, err := tracker.ProxyTransport(cfg.HTTPProxy, cfg.HTTPSProxy)
		if err != nil {
			log.Error("configure proxy", "error", err)
			os.Exit(1)
		}
		jarClient := &http.Client{Transport: transport, Timeout: 30 * time.Second}
		trackerOpts = append(trackerOpts, tracker.WithHTTPClient(jarClient))
		log.Info("tracker traffic routed through proxy")
	}
	site := tracker.New(cfg.TrackerUsername, cfg.TrackerPassword, log, trackerOpts...)

	qb := qbittorrent.New(qbittorrent.Config{
		Enabled:  cfg.QBittorrentEnabled,
		BaseURL:  cfg.QBittorrentURL,
		Username: cfg.QBittorrentUsername,
		Password: cfg.QBittorrentPassword,
		Category: cfg.QBittorrentCategory,
		SavePath: cfg.QBittorrentSavePath,
	}, log)
	if qb.Enabled() {
		if err := qb.Ping(ctx); err != nil {
			log.Warn("qbittorrent unreachable, uploads will be retried per update", "error", err)
		}
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Error("create bot api", "error", err)
		os.Exit(1)
	}
	log.Info("telegram api connected", "username", api.Self.UserName)

	notifier := notify.New(api, store, cfg.NotificationsEnabled, log)
	pipeline := monitor.New(store, site, qb, notifier, log)
	b := bot.New(api, store, site, pipeline, cfg, log)

	sched := scheduler.New(pipeline, time.Duration(cfg.CheckIntervalMinutes)*time.Minute, log)

	log.Info("starting bot", "check_interval_min", cfg.CheckIntervalMinutes)

	go sched.Run(ctx)

	b.Run(ctx)

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
