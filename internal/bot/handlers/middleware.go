// Package handlers contains the Telegram handlers of the bot,
// along with their registration logic and middleware.
package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// AllowedUsersOnly stops messages from senders outside telegram.allowed_user_ids
// and tells them which channel to join. An empty list lets everyone through.
func AllowedUsersOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			if update.Message == nil || update.Message.From == nil {
				next(ctx, bot, update)
				return
			}

			userID := update.Message.From.ID
			if deps.Config.IsUserAllowed(userID) {
				next(ctx, bot, update)
				return
			}

			chatID := update.Message.Chat.ID
			log := deps.Logger.With("middleware", "AllowedUsersOnly")
			log.WarnContext(ctx, "Message from user outside the allow list", "user_id", userID, "chat_id", chatID)

			_, err := bot.SendMessage(ctx, &tgbot.SendMessageParams{
				ChatID: chatID,
				Text:   render(deps.Config.Messages.NotAllowed, "channel", deps.Config.Telegram.ChannelUsername),
				ReplyParameters: &models.ReplyParameters{
					MessageID: update.Message.ID,
				},
			})
			if err != nil {
				log.ErrorContext(ctx, "Failed to send not-allowed message", "error", err, "chat_id", chatID)
			}
		}
	}
}
