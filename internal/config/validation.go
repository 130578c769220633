package config

import (
	"net"
	"slices"
	"strconv"
	"strings"
)

// IsUserAllowed reports whether userID may use the bot.
// An empty allow list means the bot is open to everyone.
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.Telegram.AllowedUserIDs) == 0 {
		return true
	}
	return slices.Contains(c.Telegram.AllowedUserIDs, userID)
}

// Addr returns the listen address of the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.HTTP.Host, strconv.Itoa(c.HTTP.Port))
}

// ShortLink builds the public redirect URL for a link token.
func (c *Config) ShortLink(token string) string {
	return strings.TrimRight(c.HTTP.BaseURL, "/") + "/l/" + token
}
