// Package server runs the HTTP side of the bot: liveness, health,
// short-link redirects and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/edgard/file2link/internal/config"
	"github.com/edgard/file2link/internal/database"
	"github.com/edgard/file2link/internal/logger"
)

// LinkStore is the slice of the database the server reads from.
type LinkStore interface {
	Ping(ctx context.Context) error
	GetLink(ctx context.Context, token string) (*database.Link, error)
	CountLinks(ctx context.Context) (int64, error)
}

// Server is the HTTP server behind the reverse proxy.
type Server struct {
	addr      string
	cfg       config.HTTPConfig
	linkTTL   time.Duration
	message   string
	store     LinkStore
	connected func() bool
	metrics   http.Handler
	logger    *slog.Logger
	now       func() time.Time
}

// New builds the server. connected reports whether the Telegram client is up;
// metrics may be nil to leave /metrics unmounted.
func New(cfg *config.Config, store LinkStore, connected func() bool, metrics http.Handler, log *slog.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}
	if connected == nil {
		connected = func() bool { return false }
	}
	return &Server{
		addr:      cfg.Addr(),
		cfg:       cfg.HTTP,
		linkTTL:   cfg.Links.TTL,
		message:   cfg.Messages.Root,
		store:     store,
		connected: connected,
		metrics:   metrics,
		logger:    log.With("component", "http"),
		now:       time.Now,
	}
}

// Run listens on the configured address and serves until ctx is cancelled,
// then shuts down gracefully within ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("http listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http serve: %w", err)
	case <-ctx.Done():
	}

	// The parent context is already cancelled; shutdown gets a fresh budget.
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("HTTP server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
