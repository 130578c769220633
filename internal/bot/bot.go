// Package bot implements lifecycle management and component orchestration
// for the file2link Telegram bot.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Poller receives Telegram updates until ctx is cancelled. *bot.Bot implements it.
type Poller interface {
	Start(ctx context.Context)
}

// HTTPServer serves until ctx is cancelled.
type HTTPServer interface {
	Run(ctx context.Context) error
}

// Status tracks whether the Telegram poller is up. It is shared with the
// health endpoint.
type Status struct {
	connected atomic.Bool
}

// Connected reports whether the poller is running.
func (s *Status) Connected() bool {
	return s.connected.Load()
}

// SetConnected records the poller state.
func (s *Status) SetConnected(v bool) {
	s.connected.Store(v)
}

// Bot represents the main application and manages its components' lifecycle.
type Bot struct {
	logger    *slog.Logger
	poller    Poller
	scheduler *Scheduler
	server    HTTPServer
	status    *Status
}

// NewBot wires the long-running components together. scheduler and server may be nil.
func NewBot(logger *slog.Logger, poller Poller, scheduler *Scheduler, server HTTPServer, status *Status) *Bot {
	if status == nil {
		status = &Status{}
	}
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		poller:    poller,
		scheduler: scheduler,
		server:    server,
		status:    status,
	}
}

// Run starts the poller, scheduler and HTTP server and blocks until ctx is
// cancelled or one of them fails, in which case the others are stopped too.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting Telegram bot listener...")
		b.status.SetConnected(true)
		b.poller.Start(gCtx)
		b.status.SetConnected(false)
		b.logger.Info("Telegram bot listener stopped.")

		if gCtx.Err() == nil {
			b.logger.Warn("Telegram bot listener stopped unexpectedly without context cancellation.")
			return errors.New("telegram listener stopped unexpectedly")
		}
		return nil
	})

	if b.scheduler != nil {
		g.Go(func() error {
			b.logger.Info("Starting scheduler...")
			if err := b.scheduler.Start(); err != nil {
				b.logger.Error("Failed to start scheduler", "error", err)
				return fmt.Errorf("failed to start scheduler: %w", err)
			}

			<-gCtx.Done()
			b.logger.Info("Shutdown signal received, stopping scheduler...")

			if err := b.scheduler.Stop(); err != nil {
				b.logger.Error("Error stopping scheduler", "error", err)
			}
			return nil
		})
	}

	if b.server != nil {
		g.Go(func() error {
			if err := b.server.Run(gCtx); err != nil {
				return fmt.Errorf("http server: %w", err)
			}
			if gCtx.Err() == nil {
				return errors.New("http server stopped unexpectedly")
			}
			return nil
		})
	}

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}
