// internal/infra/telegram/client.go
package telegram

import (
	"bytes"
	"io"
	"path/filepath"
	"strconv"

	"gopkg.in/telebot.v3"
)

// TelebotAdapter implements the Client interface using the gopkg.in/telebot.v3 library.
type TelebotAdapter struct {
	bot *telebot.Bot
}

func NewTelebotAdapter(b *telebot.Bot) *TelebotAdapter {
	return &TelebotAdapter{bot: b}
}

// SendMessage sends a text message to the specified recipient.
func (tba *TelebotAdapter) SendMessage(recipientChatID int64, text string, options *telebot.SendOptions) error {
	if options == nil {
		options = &telebot.SendOptions{}
	}

	recipient := &telebot.User{ID: recipientChatID} // Students and the admin are direct user chats
	_, err := tba.bot.Send(recipient, text, options)
	return err
}

// SendDocument uploads the in-memory payload as a document.
func (tba *TelebotAdapter) SendDocument(recipientChatID int64, data []byte, filename string) error {
	recipient := &telebot.User{ID: recipientChatID}
	doc := &telebot.Document{
		File:     telebot.FromReader(bytes.NewReader(data)),
		FileName: filename,
	}
	_, err := tba.bot.Send(recipient, doc)
	return err
}

// EditMessage rewrites the text (and inline keyboard) of an already sent message.
func (tba *TelebotAdapter) EditMessage(recipientChatID int64, messageID int, text string, options *telebot.SendOptions) error {
	if options == nil {
		options = &telebot.SendOptions{}
	}

	msg := &telebot.StoredMessage{
		MessageID: strconv.Itoa(messageID),
		ChatID:    recipientChatID,
	}
	_, err := tba.bot.Edit(msg, text, options)
	return err
}

// Download fetches a file from the Bot API by its file id and returns the
// contents along with the remote file name.
func (tba *TelebotAdapter) Download(fileID string) ([]byte, string, error) {
	file, err := tba.bot.FileByID(fileID)
	if err != nil {
		return nil, "", err
	}

	rc, err := tba.bot.File(&file)
	if err != nil {
		return nil, "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, "", err
	}
	return data, filepath.Base(file.FilePath), nil
}
