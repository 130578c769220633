package database

import (
	"time"
)

// Link maps a short token onto an uploaded file.
// FilePath holds the share URL returned by the file host.
type Link struct {
	Token     string    `db:"token"`
	FileID    string    `db:"file_id"`
	FileName  string    `db:"file_name"`
	FilePath  string    `db:"file_path"`
	FileSize  int64     `db:"file_size"`
	UserID    int64     `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
}

// Expired reports whether the link is older than ttl at now.
func (l *Link) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(l.CreatedAt) > ttl
}
