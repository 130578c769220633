// Package transfer moves files out of Telegram: it resolves file ids,
// streams downloads to disk and renders progress for the user.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/file2link/internal/config"
	"github.com/edgard/file2link/internal/logger"
)

// ProgressFunc receives the bytes written so far and the expected total (0 if unknown).
type ProgressFunc func(current, total int64)

// FileLocator resolves Telegram file ids into download links. *bot.Bot implements it.
type FileLocator interface {
	GetFile(ctx context.Context, params *bot.GetFileParams) (*models.File, error)
	FileDownloadLink(f *models.File) string
}

// Downloader fetches Telegram files onto local disk.
type Downloader struct {
	files      FileLocator
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

// NewDownloader creates a downloader bound by cfg.DownloadTimeout.
func NewDownloader(files FileLocator, cfg config.TransferConfig, log *slog.Logger) *Downloader {
	if log == nil {
		log = logger.Discard()
	}
	return &Downloader{
		files:      files,
		httpClient: &http.Client{},
		timeout:    cfg.DownloadTimeout,
		logger:     log.With("component", "downloader"),
	}
}

// Download writes the file behind fileID to dest and returns the number of bytes written.
// A partially written dest is removed on failure.
func (d *Downloader) Download(ctx context.Context, fileID, dest string, onProgress ProgressFunc) (written int64, err error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	file, err := d.files.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return 0, fmt.Errorf("get file: %w", err)
	}
	if file == nil || file.FilePath == "" {
		return 0, errors.New("telegram returned no file path")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.files.FileDownloadLink(file), nil)
	if err != nil {
		return 0, fmt.Errorf("build download request: %w", err)
	}

	// #nosec G107 -- URL built by the bot client from its own server URL
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("download request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	total := resp.ContentLength
	if total <= 0 {
		total = int64(file.FileSize)
	}
	if total < 0 {
		total = 0
	}

	out, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dest, err)
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", dest, closeErr)
		}
		if err != nil {
			if rmErr := os.Remove(dest); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				d.logger.WarnContext(ctx, "Failed to remove partial download", "path", dest, "error", rmErr)
			}
		}
	}()

	cw := &countingWriter{w: out, total: total, onProgress: onProgress}
	written, err = io.Copy(cw, resp.Body)
	if err != nil {
		return written, fmt.Errorf("write %s: %w", dest, err)
	}

	d.logger.DebugContext(ctx, "Download finished", "file_id", fileID, "path", dest, "bytes", written)
	return written, nil
}

// countingWriter reports progress after every chunk it passes through.
type countingWriter struct {
	w          io.Writer
	n          int64
	total      int64
	onProgress ProgressFunc
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	if c.onProgress != nil && n > 0 {
		c.onProgress(c.n, c.total)
	}
	return n, err
}
