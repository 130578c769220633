// Package logger provides structured logging for the file2link bot.
// It builds slog loggers and adapts them to the bot and scheduler libraries.
package logger

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// ParseLevel maps a config level name onto a slog level, defaulting to info.
func ParseLevel(levelStr string) slog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a logger on w without touching the default logger.
func New(w io.Writer, levelStr string, jsonOutput bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(levelStr)}

	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Discard returns a logger that drops everything; handy for tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Middleware logs every incoming update with its identifiers and processing time.
func Middleware(log *slog.Logger) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			startTime := time.Now()
			entry := log.With(UpdateAttrs(update)...)

			entry.DebugContext(ctx, "Processing update")
			next(ctx, b, update)
			entry.InfoContext(ctx, "Finished processing update", "duration", time.Since(startTime))
		}
	}
}

// UpdateAttrs extracts loggable key/value pairs from an update.
func UpdateAttrs(update *models.Update) []any {
	attrs := []any{"update_id", update.ID}

	switch {
	case update.Message != nil:
		msg := update.Message
		attrs = append(attrs,
			"update_type", "message",
			"message_id", msg.ID,
			"chat_id", msg.Chat.ID,
		)
		if msg.From != nil {
			attrs = append(attrs, "user_id", msg.From.ID)
		}
		if kind := MediaKind(msg); kind != "" {
			attrs = append(attrs, "media", kind)
		} else if msg.Text != "" {
			attrs = append(attrs, "text_preview", truncateString(msg.Text, 50))
		}
	case update.CallbackQuery != nil:
		q := update.CallbackQuery
		attrs = append(attrs,
			"update_type", "callback_query",
			"callback_query_id", q.ID,
			"user_id", q.From.ID,
			"data", q.Data,
		)
		if q.Message.Message != nil {
			attrs = append(attrs, "chat_id", q.Message.Message.Chat.ID)
		} else if q.Message.InaccessibleMessage != nil {
			attrs = append(attrs, "chat_id", q.Message.InaccessibleMessage.Chat.ID)
		}
	default:
		attrs = append(attrs, "update_type", "other")
	}
	return attrs
}

// MediaKind names the attachment carried by msg, or "" when there is none.
func MediaKind(msg *models.Message) string {
	switch {
	case msg == nil:
		return ""
	case msg.Document != nil:
		return "document"
	case msg.Video != nil:
		return "video"
	case msg.Audio != nil:
		return "audio"
	case len(msg.Photo) > 0:
		return "photo"
	case msg.Voice != nil:
		return "voice"
	case msg.Animation != nil:
		return "animation"
	case msg.VideoNote != nil:
		return "video_note"
	default:
		return ""
	}
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(r[:maxLen-3]) + "..."
}
