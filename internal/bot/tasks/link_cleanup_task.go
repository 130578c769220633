package tasks

import (
	"context"
	"fmt"
	"time"
)

// newLinkCleanupTask deletes link records older than links.ttl.
func newLinkCleanupTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "link_cleanup")

	return func(ctx context.Context) error {
		ttl := deps.Config.Links.TTL
		if ttl <= 0 {
			log.DebugContext(ctx, "Link TTL disabled, nothing to purge")
			return nil
		}

		startTime := time.Now()
		deleted, err := deps.Store.DeleteExpiredLinks(ctx, ttl)
		if err != nil {
			log.ErrorContext(ctx, "Link cleanup failed", "error", err)
			return fmt.Errorf("link cleanup failed: %w", err)
		}

		deps.Metrics.AddPurged(deleted)
		log.InfoContext(ctx, "Link cleanup completed", "deleted", deleted, "ttl", ttl, "duration", time.Since(startTime))
		return nil
	}
}
