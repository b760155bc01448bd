package telegram

import (
	"errors"

	"gopkg.in/telebot.v3"
)

// Client is the outbound messaging surface used by services and scheduled jobs.
// It decouples the application logic from the bot library; handlers still use
// the library directly for callback acknowledgements.
type Client interface {
	SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error
	SendDocument(recipientChatID int64, data []byte, filename string) error
	EditMessage(recipientChatID int64, messageID int, text string, options *telebot.SendOptions) error
	// Download fetches a file by its opaque reference and returns its contents
	// together with the remote file name (used to pick an extension on disk).
	Download(fileID string) (data []byte, remoteName string, err error)
}

// IsBlocked reports whether err means the recipient permanently blocked the
// bot, as opposed to a transient delivery failure. Blocked recipients are
// removed from the store by the scheduled jobs.
func IsBlocked(err error) bool {
	return errors.Is(err, telebot.ErrBlockedByUser)
}
