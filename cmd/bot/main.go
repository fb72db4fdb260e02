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

	"github.com/joho/godotenv"

	"reddit_bot/internal/bot"
	"reddit_bot/internal/config"
	"reddit_bot/internal/reddit"
	"reddit_bot/internal/scheduler"
	"reddit_bot/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	store := openStore(cfg, log)
	defer func() { _ = store.Close() }()

	httpClient := &http.Client{Timeout: 30 * time.Second}
	rc := reddit.New(httpClient, cfg.RedditClientID, cfg.RedditSecret, cfg.RedditUserAgent)

	b, err := bot.New(cfg.TelegramBotToken, store, cfg, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	sched := scheduler.New(store, rc, b, cfg, log)
	b.SetCycleRunner(sched)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting bot", "channels", len(cfg.Channels), "interval_minutes", cfg.CheckIntervalMinutes)

	go sched.Run(ctx)

	b.Run(ctx)

	log.Info("bot stopped")
}

// openStore prefers the SQLite backend and falls back to the flat seen
// file when no durable database location is available.
func openStore(cfg *config.Config, log *slog.Logger) storage.SeenStore {
	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Warn("create data directory", "path", dir, "error", err)
		}
	}

	store, err := storage.NewSQLite(cfg.DatabasePath)
	if err == nil {
		log.Info("using sqlite seen store", "path", cfg.DatabasePath)
		return store
	}
	log.Warn("sqlite unavailable, falling back to flat seen file",
		"db_path", cfg.DatabasePath, "seen_path", cfg.SeenPath, "error", err)

	fileStore, err := storage.NewFile(cfg.SeenPath, log)
	if err != nil {
		log.Error("open seen file store", "path", cfg.SeenPath, "error", err)
		os.Exit(1)
	}
	return fileStore
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
