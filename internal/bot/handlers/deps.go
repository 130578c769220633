package handlers

import (
	"context"
	"log/slog"

	"golang.org/x/sync/semaphore"

	"github.com/edgard/file2link/internal/config"
	"github.com/edgard/file2link/internal/database"
	"github.com/edgard/file2link/internal/metrics"
	"github.com/edgard/file2link/internal/transfer"
)

// Downloader fetches a Telegram file onto local disk.
type Downloader interface {
	Download(ctx context.Context, fileID, dest string, onProgress transfer.ProgressFunc) (int64, error)
}

// Uploader pushes a local file to the file host and returns its share URL.
type Uploader interface {
	Upload(ctx context.Context, path string) (string, error)
}

// HandlerDeps provides dependencies for Telegram handlers.
type HandlerDeps struct {
	Logger     *slog.Logger
	Config     *config.Config
	Store      database.Store
	Downloader Downloader
	Uploader   Uploader
	Metrics    *metrics.Metrics
	// Transfers bounds the number of media messages processed at once.
	Transfers *semaphore.Weighted
	// Active holds the local paths of running transfers; may be nil.
	Active *transfer.ActiveFiles
}
