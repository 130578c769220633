package handlers

import (
	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// JoinedCallbackData is the callback payload of the "I Have Joined" button.
const JoinedCallbackData = "joined_ignore_check"

// RegisteredHandler represents a handler with its matching rule and middleware.
// When MatchFunc is set it takes precedence over HandlerType/Pattern/MatchType.
type RegisteredHandler struct {
	HandlerType tgbot.HandlerType
	Pattern     string
	MatchType   tgbot.MatchType
	MatchFunc   tgbot.MatchFunc
	Handler     tgbot.HandlerFunc
	Middleware  []tgbot.Middleware
}

// RegisterAllHandlers builds every handler the bot serves, keyed by a descriptive name.
func RegisterAllHandlers(deps HandlerDeps) map[string]RegisteredHandler {
	handlers := make(map[string]RegisteredHandler)

	handlers["/start"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "start",
		Handler:     NewStartHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
	}
	handlers["/help"] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "help",
		Handler:     NewHelpHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
	}
	handlers[JoinedCallbackData] = RegisteredHandler{
		HandlerType: tgbot.HandlerTypeCallbackQueryData,
		Pattern:     JoinedCallbackData,
		Handler:     NewJoinedHandler(deps),
		MatchType:   tgbot.MatchTypeExact,
	}
	handlers["media"] = RegisteredHandler{
		MatchFunc:  HasMedia,
		Handler:    NewMediaHandler(deps),
		Middleware: []tgbot.Middleware{AllowedUsersOnly(deps)},
	}

	return handlers
}

// HasMedia matches messages carrying a downloadable attachment.
func HasMedia(update *models.Update) bool {
	msg := update.Message
	if msg == nil {
		return false
	}
	return msg.Document != nil ||
		msg.Video != nil ||
		msg.Audio != nil ||
		len(msg.Photo) > 0 ||
		msg.Voice != nil ||
		msg.Animation != nil ||
		msg.VideoNote != nil
}
