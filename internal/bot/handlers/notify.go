package handlers

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const notifyTimeFormat = "2006-01-02 15:04:05"

// notify posts a summary of the upload to the log channel. Failures are only logged.
func (h mediaHandler) notify(ctx context.Context, b *bot.Bot, user *models.User, fileName string, size int64, link string, log *slog.Logger) {
	channelID := h.deps.Config.Telegram.NotifyChannelID
	if channelID == 0 || user == nil {
		return
	}

	text := render(h.deps.Config.Messages.Notify,
		"user", escape(displayName(user)),
		"username", escape(usernameOrPlaceholder(user)),
		"user_id", strconv.FormatInt(user.ID, 10),
		"name", escape(fileName),
		"size", sizeMB(size),
		"link", escape(link),
		"time", time.Now().Format(notifyTimeFormat),
	)

	sendCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
	defer cancel()

	_, err := b.SendMessage(sendCtx, &bot.SendMessageParams{
		ChatID:             channelID,
		Text:               text,
		ParseMode:          models.ParseModeHTML,
		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: bot.True()},
	})
	if err != nil {
		log.WarnContext(ctx, "Failed to notify log channel", "error", err, "channel_id", channelID)
	}
}

func displayName(u *models.User) string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return "Unknown"
	}
	return name
}

func usernameOrPlaceholder(u *models.User) string {
	if u.Username == "" {
		return "(no username)"
	}
	return "@" + u.Username
}
