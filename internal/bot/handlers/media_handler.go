package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"

	"github.com/edgard/file2link/internal/database"
	"github.com/edgard/file2link/internal/metrics"
	"github.com/edgard/file2link/internal/transfer"
	"github.com/edgard/file2link/internal/uploader"
)

const (
	sendMessageTimeout = 10 * time.Second
	dbSaveTimeout      = 5 * time.Second
)

// errStopped marks a transfer that already told the user why it stopped.
var errStopped = errors.New("transfer stopped")

// NewMediaHandler returns the handler that turns an attachment into a share link.
func NewMediaHandler(deps HandlerDeps) bot.HandlerFunc {
	return mediaHandler{deps}.Handle
}

type mediaHandler struct {
	deps HandlerDeps
}

func (h mediaHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil {
		return
	}
	log := h.deps.Logger.With("handler", "media", "chat_id", msg.Chat.ID, "user_id", msg.From.ID, "message_id", msg.ID)

	meta, err := transfer.ExtractFileMeta(msg)
	if err != nil {
		log.DebugContext(ctx, "Ignoring message without media", "error", err)
		return
	}
	log = log.With("kind", meta.Kind, "file_size", meta.FileSize)

	maxSize := h.deps.Config.Transfer.MaxFileSize
	if meta.FileSize > maxSize {
		log.InfoContext(ctx, "Rejecting oversized file", "max_file_size", maxSize)
		h.deps.Metrics.ObserveTransfer(metrics.ResultTooLarge, 0, 0)
		h.reply(ctx, b, msg, render(h.deps.Config.Messages.TooLarge,
			"size", humanize.IBytes(uint64(meta.FileSize)), //nolint:gosec // positive here
			"max_size", humanize.IBytes(uint64(maxSize)), //nolint:gosec // validated positive
		), log)
		return
	}

	if h.deps.Transfers != nil {
		if err := h.deps.Transfers.Acquire(ctx, 1); err != nil {
			log.WarnContext(ctx, "Gave up waiting for a transfer slot", "error", err)
			return
		}
		defer h.deps.Transfers.Release(1)
	}

	started := time.Now()
	written, err := h.process(ctx, b, msg, meta, log)
	switch {
	case err == nil:
		h.deps.Metrics.ObserveTransfer(metrics.ResultOK, written, time.Since(started))
	case errors.Is(err, errStopped):
	default:
		log.ErrorContext(ctx, "Failed to process media", "error", err)
		h.reply(ctx, b, msg, render(h.deps.Config.Messages.ProcessingFailed, "error", err.Error()), log)
	}
}

// process runs the download, upload and reply steps. It returns errStopped
// when a step failed and the user has already been told.
func (h mediaHandler) process(ctx context.Context, b *bot.Bot, msg *models.Message, meta transfer.FileMeta, log *slog.Logger) (int64, error) {
	cfg := h.deps.Config
	msgs := cfg.Messages

	sendCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
	prog, err := b.SendMessage(sendCtx, &bot.SendMessageParams{
		ChatID:          msg.Chat.ID,
		Text:            msgs.Preparing,
		ReplyParameters: &models.ReplyParameters{MessageID: msg.ID},
	})
	cancel()
	if err != nil {
		return 0, fmt.Errorf("send progress message: %w", err)
	}

	edit := func(ctx context.Context, text string, html bool) error {
		params := &bot.EditMessageTextParams{
			ChatID:    msg.Chat.ID,
			MessageID: prog.ID,
			Text:      text,
		}
		if html {
			params.ParseMode = models.ParseModeHTML
			params.LinkPreviewOptions = &models.LinkPreviewOptions{IsDisabled: bot.True()}
		}
		_, err := b.EditMessageText(ctx, params)
		return err
	}
	editOrLog := func(text string, html bool) {
		editCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
		defer cancel()
		if err := edit(editCtx, text, html); err != nil {
			log.WarnContext(ctx, "Failed to edit progress message", "error", err)
		}
	}

	safeName := transfer.SanitizeFileName(meta.FileName)
	path := filepath.Join(cfg.Transfer.DownloadsDir, fmt.Sprintf("%d_%s", msg.ID, safeName))
	h.deps.Active.Add(path)
	defer func() {
		removeFile(path, log)
		h.deps.Active.Remove(path)
	}()

	reporter := transfer.NewProgressReporter(cfg.Transfer.ProgressInterval,
		func(current, total int64) string {
			return render(msgs.Downloading,
				"bar", transfer.ProgressBar(current, total, transfer.DefaultBarLength),
				"current", transfer.FormatMB(current),
				"total", transfer.FormatMB(total),
			)
		},
		func(ctx context.Context, text string) error { return edit(ctx, text, false) },
		log,
	)

	written, err := h.deps.Downloader.Download(ctx, meta.FileID, path, func(current, total int64) {
		reporter.Report(ctx, current, total)
	})
	if err != nil {
		log.ErrorContext(ctx, "Download failed", "error", err)
		h.deps.Metrics.ObserveTransfer(metrics.ResultDownloadFailed, 0, 0)
		editOrLog(render(msgs.DownloadFailed, "error", err.Error()), false)
		return 0, errStopped
	}

	editOrLog(msgs.Uploading, false)

	link, err := h.deps.Uploader.Upload(ctx, path)
	if err != nil {
		log.ErrorContext(ctx, "Upload failed", "error", err)
		result := metrics.ResultUploadFailed
		if errors.Is(err, uploader.ErrUploadRejected) {
			result = metrics.ResultRejected
		}
		h.deps.Metrics.ObserveTransfer(result, 0, 0)
		editOrLog(msgs.UploadFailed, false)
		return 0, errStopped
	}
	removeFile(path, log)

	size := meta.FileSize
	if size <= 0 {
		size = written
	}

	shortLink := h.saveLink(ctx, &database.Link{
		Token:    uuid.NewString(),
		FileID:   meta.FileID,
		FileName: safeName,
		FilePath: link,
		FileSize: size,
		UserID:   msg.From.ID,
	}, log)

	editOrLog(render(msgs.Completed,
		"name", escape(safeName),
		"size", sizeMB(size),
		"link", escape(link),
		"short_link", escape(shortLink),
		"channel", escape(cfg.Telegram.ChannelUsername),
	), true)

	h.notify(ctx, b, msg.From, safeName, size, link, log)

	log.InfoContext(ctx, "Transfer completed", "link", link, "bytes", written)
	return written, nil
}

// saveLink persists the link and returns the short URL. When the store fails the
// direct link is returned instead so the user still gets something that works.
func (h mediaHandler) saveLink(ctx context.Context, link *database.Link, log *slog.Logger) string {
	saveCtx, cancel := context.WithTimeout(ctx, dbSaveTimeout)
	defer cancel()

	if err := h.deps.Store.SaveLink(saveCtx, link); err != nil {
		log.ErrorContext(ctx, "Failed to save link, falling back to direct URL", "error", err)
		return link.FilePath
	}
	return h.deps.Config.ShortLink(link.Token)
}

func (h mediaHandler) reply(ctx context.Context, b *bot.Bot, msg *models.Message, text string, log *slog.Logger) {
	sendCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
	defer cancel()

	_, err := b.SendMessage(sendCtx, &bot.SendMessageParams{
		ChatID:          msg.Chat.ID,
		Text:            text,
		ReplyParameters: &models.ReplyParameters{MessageID: msg.ID},
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send reply", "error", err)
	}
}

func removeFile(path string, log *slog.Logger) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("Failed to remove local file", "path", path, "error", err)
	}
}
