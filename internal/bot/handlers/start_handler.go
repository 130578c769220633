package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewStartHandler returns a handler for the /start command.
func NewStartHandler(deps HandlerDeps) bot.HandlerFunc {
	return startHandler{deps}.Handle
}

// startHandler greets the user and shows the channel buttons.
type startHandler struct {
	deps HandlerDeps
}

func (h startHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "start")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Start handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	chatID := update.Message.Chat.ID
	log.InfoContext(ctx, "Handling /start command", "chat_id", chatID, "user_id", update.Message.From.ID)

	msgs := h.deps.Config.Messages
	channel := h.deps.Config.Telegram.ChannelUsername

	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        render(msgs.Welcome, "name", escape(update.Message.From.FirstName), "channel", escape(channel)),
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: joinKeyboard(msgs.JoinButton, msgs.JoinedButton, channel),
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send welcome message", "error", err, "chat_id", chatID)
	} else {
		log.DebugContext(ctx, "Successfully sent welcome message", "chat_id", chatID)
	}
}

// joinKeyboard links to the channel on the first row and offers the
// confirmation button on the second.
func joinKeyboard(joinText, joinedText, channel string) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{{Text: joinText, URL: "https://t.me/" + channel}},
			{{Text: joinedText, CallbackData: JoinedCallbackData}},
		},
	}
}
