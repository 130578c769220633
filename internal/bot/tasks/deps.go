// Package tasks implements the scheduled housekeeping jobs of the bot:
// expiring link records, sweeping stale downloads and compacting the database.
package tasks

import (
	"log/slog"

	"github.com/edgard/file2link/internal/config"
	"github.com/edgard/file2link/internal/database"
	"github.com/edgard/file2link/internal/metrics"
	"github.com/edgard/file2link/internal/transfer"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger  *slog.Logger
	Store   database.Store
	Config  *config.Config
	Metrics *metrics.Metrics
	// Active is shared with the media handler so the downloads sweep skips
	// files still waiting on an upload.
	Active *transfer.ActiveFiles
}
