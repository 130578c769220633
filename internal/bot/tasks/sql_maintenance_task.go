package tasks

import (
	"context"
	"fmt"
	"time"
)

// newSQLMaintenanceTask compacts the SQLite file. Link purges leave free pages
// behind; the row count is logged so a shrinking file can be told apart from
// a shrinking table.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "sql_maintenance")

	return func(ctx context.Context) error {
		started := time.Now()
		if err := deps.Store.RunSQLMaintenance(ctx); err != nil {
			return fmt.Errorf("compact database: %w", err)
		}

		links, err := deps.Store.CountLinks(ctx)
		if err != nil {
			log.WarnContext(ctx, "Could not count links after compaction", "error", err)
			links = -1
		}
		log.InfoContext(ctx, "Database compacted", "links", links, "elapsed", time.Since(started))
		return nil
	}
}
