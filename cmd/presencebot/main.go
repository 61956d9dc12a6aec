// Package main contains the entrypoint for the presencebot application.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"

	"github.com/okarv/presencebot/internal/bot"
	"github.com/okarv/presencebot/internal/config"
	"github.com/okarv/presencebot/internal/database"
	"github.com/okarv/presencebot/internal/logger"
	"github.com/okarv/presencebot/internal/notify"
	"github.com/okarv/presencebot/internal/places"
	"github.com/okarv/presencebot/internal/roblox"
	"github.com/okarv/presencebot/internal/watcher"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run initializes and starts all application components (config, logger,
// database, provider client, watcher, bot, scheduler), handles graceful
// shutdown, and returns an exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info("Logger initialized", "level", cfg.Log.Level, "format", cfg.Log.Format)

	// A corrupt or unreadable cache database degrades to an in-memory-only
	// cache; it never stops the process.
	var store database.Store
	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Place cache database unusable, continuing without persistence",
			"path", cfg.Database.Path, "error", err)
		store = database.NewNoopStore(log)
	} else {
		defer database.CloseDB(db)
		store = database.NewStore(db, log)
		if pingErr := store.Ping(ctx); pingErr != nil {
			log.Error("Place cache database failed health check, continuing without persistence",
				"path", cfg.Database.Path, "error", pingErr)
			store = database.NewNoopStore(log)
		}
	}

	tg, err := tgbot.New(cfg.Telegram.Token)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	notifier := notify.NewTelegram(tg, cfg.Telegram.ChatID, cfg.Telegram.AlertChatID, cfg.Telegram.AdminID, log)

	client := roblox.NewClient(roblox.Config{
		Cookie: cfg.Roblox.Cookie,
		Alert: func(alertCtx context.Context, apiName, detail string) {
			// Send already logs failures; an undeliverable alert is dropped.
			_ = notifier.Send(alertCtx, notify.OperationalAlert{API: apiName, Detail: detail})
		},
	}, log)

	resolver := places.NewResolver(ctx, client, store, cfg.Watcher.ResolveRetryCooldown, log)

	w := watcher.New(client, resolver, notifier, cfg.Roblox.Tracked, cfg.Roblox.Subject, log)

	deps := bot.HandlerDeps{
		Logger:  log,
		Watcher: w,
		AdminID: cfg.Telegram.AdminID,
	}
	tg.RegisterHandler(tgbot.HandlerTypeMessageText, "/checknow", tgbot.MatchTypePrefix,
		bot.AdminOnly(deps)(bot.NewCheckNowHandler(deps)))

	sched, err := bot.NewScheduler(log, cfg.Watcher.Interval, w.Check)
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	app := bot.NewBot(log, tg, sched)

	log.Info("Starting presencebot...",
		"tracked", len(cfg.Roblox.Tracked), "subject", cfg.Roblox.Subject, "interval", cfg.Watcher.Interval)
	runErr := app.Run(ctx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	time.Sleep(time.Second)
	return 0
}
