// Package main contains the entrypoint for the file2link Telegram bot.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/edgard/file2link/internal/bot"
	"github.com/edgard/file2link/internal/bot/handlers"
	"github.com/edgard/file2link/internal/bot/tasks"
	"github.com/edgard/file2link/internal/config"
	"github.com/edgard/file2link/internal/database"
	"github.com/edgard/file2link/internal/logger"
	"github.com/edgard/file2link/internal/metrics"
	"github.com/edgard/file2link/internal/server"
	"github.com/edgard/file2link/internal/telegram"
	"github.com/edgard/file2link/internal/transfer"
	"github.com/edgard/file2link/internal/uploader"

	_ "modernc.org/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// newAppLogger tags every record with the bot's session name so several
// instances can share one log sink.
func newAppLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	return logger.New(w, cfg.Logger.Level, cfg.Logger.JSON).With("bot", cfg.Telegram.SessionName)
}

// run wires every component, blocks until shutdown and returns the process exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "./config.yaml", "Path to configuration file (optional, env vars override it)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := newAppLogger(os.Stdout, cfg)
	slog.SetDefault(log)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	if err := os.MkdirAll(cfg.Transfer.DownloadsDir, 0o750); err != nil {
		log.Error("Failed to create downloads directory", "path", cfg.Transfer.DownloadsDir, "error", err)
		return 1
	}

	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, telegram.ClientOptions(cfg.Telegram, log)...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	m := metrics.New()
	active := transfer.NewActiveFiles()
	hDeps := handlers.HandlerDeps{
		Logger:     log,
		Config:     cfg,
		Store:      store,
		Downloader: transfer.NewDownloader(tg, cfg.Transfer, log),
		Uploader:   uploader.NewClient(cfg.Uploader, log),
		Metrics:    m,
		Transfers:  semaphore.NewWeighted(int64(cfg.Transfer.MaxConcurrent)),
		Active:     active,
	}
	tDeps := tasks.TaskDeps{
		Logger:  log,
		Store:   store,
		Config:  cfg,
		Metrics: m,
		Active:  active,
	}

	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllHandlers(hDeps)); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	status := &bot.Status{}
	srv := server.New(cfg, store, status.Connected, m.Handler(), log)
	app := bot.NewBot(log, tg, sched, srv, status)

	log.Info("Starting bot...", "addr", cfg.Addr(), "base_url", cfg.HTTP.BaseURL)
	runErr := app.Run(ctx)
	log.Info("Bot run loop finished. Initiating shutdown...")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		// Allow logs to flush before exiting on error
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully.")
	return 0
}
