package tasks

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// newDownloadsCleanupTask removes files left in the downloads directory by
// transfers that died mid-way. Files of running transfers are skipped whatever
// their age; everything else older than the download timeout is removed.
func newDownloadsCleanupTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "downloads_cleanup")

	return func(ctx context.Context) error {
		dir := deps.Config.Transfer.DownloadsDir
		maxAge := deps.Config.Transfer.DownloadTimeout
		cutoff := time.Now().Add(-maxAge)

		entries, err := os.ReadDir(dir)
		if errors.Is(err, fs.ErrNotExist) {
			log.DebugContext(ctx, "Downloads directory does not exist", "dir", dir)
			return nil
		}
		if err != nil {
			return fmt.Errorf("read downloads dir: %w", err)
		}

		var removed, skipped int
		var errs []error
		for _, entry := range entries {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !entry.Type().IsRegular() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				// Removed by the owning transfer in the meantime.
				continue
			}
			if info.ModTime().After(cutoff) {
				continue
			}

			path := filepath.Join(dir, entry.Name())
			if deps.Active.Contains(path) {
				skipped++
				continue
			}
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, err)
				continue
			}
			removed++
		}

		log.InfoContext(ctx, "Downloads cleanup completed", "removed", removed, "in_use", skipped, "max_age", maxAge)
		if len(errs) > 0 {
			return fmt.Errorf("remove stale downloads: %w", errors.Join(errs...))
		}
		return nil
	}
}
