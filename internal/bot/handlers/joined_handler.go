package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewJoinedHandler returns a handler for the "I Have Joined" button.
// Membership is taken on trust.
func NewJoinedHandler(deps HandlerDeps) bot.HandlerFunc {
	return joinedHandler{deps}.Handle
}

type joinedHandler struct {
	deps HandlerDeps
}

func (h joinedHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "joined")

	q := update.CallbackQuery
	if q == nil {
		log.WarnContext(ctx, "Joined handler received update without callback query", "update_id", update.ID)
		return
	}

	chatID := q.From.ID
	switch {
	case q.Message.Message != nil:
		chatID = q.Message.Message.Chat.ID
		_, err := b.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
			ChatID:    chatID,
			MessageID: q.Message.Message.ID,
		})
		if err != nil {
			log.WarnContext(ctx, "Failed to remove join keyboard", "error", err, "chat_id", chatID)
		}
	case q.Message.InaccessibleMessage != nil:
		chatID = q.Message.InaccessibleMessage.Chat.ID
	}

	log.InfoContext(ctx, "User confirmed channel join", "user_id", q.From.ID, "chat_id", chatID)

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   h.deps.Config.Messages.Joined,
	}); err != nil {
		log.ErrorContext(ctx, "Failed to send joined message", "error", err, "chat_id", chatID)
	}

	if _, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: q.ID,
		Text:            h.deps.Config.Messages.JoinedAnswer,
		ShowAlert:       false,
	}); err != nil {
		log.ErrorContext(ctx, "Failed to answer callback query", "error", err, "callback_id", q.ID)
	}
}
