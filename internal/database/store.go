package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/edgard/file2link/internal/logger"
)

// Store defines the interface for link persistence.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveLink inserts the link or replaces the row with the same token.
	SaveLink(ctx context.Context, link *Link) error

	// GetLink retrieves a link by token. Returns nil, nil if not found.
	GetLink(ctx context.Context, token string) (*Link, error)

	// DeleteExpiredLinks removes links created more than olderThan ago.
	DeleteExpiredLinks(ctx context.Context, olderThan time.Duration) (int64, error)

	// CountLinks returns the number of stored links.
	CountLinks(ctx context.Context) (int64, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore implements Store on top of sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a new Store backed by sqlx.
func NewStore(db *sqlx.DB, log *slog.Logger) Store {
	if log == nil {
		log = logger.Discard()
	}
	return &sqlxStore{
		db:     db,
		logger: log.With("component", "store"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) SaveLink(ctx context.Context, link *Link) error {
	if link == nil {
		return errors.New("cannot save nil link")
	}
	if link.Token == "" {
		return errors.New("link must have a non-empty token")
	}
	if link.FilePath == "" {
		return errors.New("link must have a non-empty file_path")
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = s.now()
	} else {
		link.CreatedAt = link.CreatedAt.UTC()
	}

	query := `
        INSERT OR REPLACE INTO links (token, file_id, file_name, file_path, file_size, user_id, created_at)
        VALUES (:token, :file_id, :file_name, :file_path, :file_size, :user_id, :created_at);
    `
	if _, err := s.db.NamedExecContext(ctx, query, link); err != nil {
		s.logger.ErrorContext(ctx, "Error saving link", "token", link.Token, "error", err)
		return fmt.Errorf("failed to save link %s: %w", link.Token, err)
	}

	s.logger.DebugContext(ctx, "Link saved successfully", "token", link.Token, "user_id", link.UserID)
	return nil
}

func (s *sqlxStore) GetLink(ctx context.Context, token string) (*Link, error) {
	if token == "" {
		return nil, errors.New("token cannot be empty")
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var link Link
	query := `SELECT token, file_id, file_name, file_path, file_size, user_id, created_at
	          FROM links WHERE token = ?`
	err := s.db.GetContext(ctx, &link, query, token)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No link found", "token", token)
		return nil, nil
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "Context timeout or cancellation while fetching link", "token", token, "error", err)
		return nil, err
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting link", "token", token, "error", err)
		return nil, fmt.Errorf("failed to get link %s: %w", token, err)
	}

	return &link, nil
}

func (s *sqlxStore) DeleteExpiredLinks(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("retention must be positive, got %v", olderThan)
	}

	cutoff := s.now().Add(-olderThan)
	result, err := s.db.ExecContext(ctx, `DELETE FROM links WHERE created_at < ?`, cutoff)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting expired links", "cutoff", cutoff, "error", err)
		return 0, fmt.Errorf("failed to delete expired links: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		s.logger.WarnContext(ctx, "Could not get affected row count when deleting links", "error", err)
		return 0, nil
	}

	s.logger.InfoContext(ctx, "Deleted expired links", "count", count, "cutoff", cutoff)
	return count, nil
}

func (s *sqlxStore) CountLinks(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM links`); err != nil {
		return 0, fmt.Errorf("failed to count links: %w", err)
	}
	return count, nil
}

// RunSQLMaintenance executes VACUUM, which SQLite only allows outside a transaction.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")
	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	return nil
}
