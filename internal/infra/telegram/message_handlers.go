// internal/infra/telegram/message_handlers.go
package telegram

import (
	"context"
	"homework_intake_bot/internal/app"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func profileFromSender(c telebot.Context) app.Profile {
	sender := c.Sender()
	return app.Profile{
		ID:        sender.ID,
		Username:  sender.Username,
		FirstName: sender.FirstName,
	}
}

// RegisterMessageHandlers wires inbound messages to the dialogue engine.
// Unregistered slash commands fall through to OnText, so /start and /menu
// reach the engine as plain text.
func RegisterMessageHandlers(
	ctx context.Context,
	b *telebot.Bot,
	intake *app.IntakeService,
	baseLogger *logrus.Entry,
) {
	logCtx := baseLogger.WithField("handler_group", "messages")

	b.Handle(telebot.OnText, func(c telebot.Context) error {
		return intake.HandleText(ctx, profileFromSender(c), c.Message().ID, c.Text())
	})

	b.Handle(telebot.OnPhoto, func(c telebot.Context) error {
		m := c.Message()
		if m.Photo == nil {
			logCtx.WithField("sender_id", c.Sender().ID).Warn("Photo update without a photo payload")
			return nil
		}
		return intake.HandlePhoto(ctx, profileFromSender(c), m.ID, m.Photo.FileID, m.Caption, m.AlbumID)
	})

	b.Handle(telebot.OnDocument, func(c telebot.Context) error {
		m := c.Message()
		if m.Document == nil {
			logCtx.WithField("sender_id", c.Sender().ID).Warn("Document update without a document payload")
			return nil
		}
		return intake.HandleDocument(ctx, profileFromSender(c), m.ID, m.Document.FileID, m.Document.FileName, m.Caption)
	})
}
