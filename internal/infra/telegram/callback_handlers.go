// internal/infra/telegram/callback_handlers.go
package telegram

import (
	"context"
	"errors"
	"fmt"

	"homework_intake_bot/internal/app"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterCallbackHandlers wires every inline-keyboard button to its service
// call. Buttons are matched by their unique; the "|"-joined payload arrives
// pre-split in c.Args().
func RegisterCallbackHandlers(
	ctx context.Context,
	b *telebot.Bot,
	intake *app.IntakeService,
	adminService *app.AdminService,
	maintenance *app.MaintenanceService,
	adminTelegramID int64,
	baseLogger *logrus.Entry,
) {
	logCtx := baseLogger.WithField("handler_group", "callbacks")

	b.Handle(&telebot.Btn{Unique: app.CallbackCancel}, func(c telebot.Context) error {
		if err := intake.Cancel(ctx, profileFromSender(c)); err != nil {
			logCtx.WithError(err).WithField("sender_id", c.Sender().ID).Error("Cancel failed")
		}
		return c.Respond()
	})

	b.Handle(&telebot.Btn{Unique: app.CallbackSection}, func(c telebot.Context) error {
		args := c.Args()
		if len(args) != 1 {
			c.Bot().OnError(fmt.Errorf("invalid section callback payload: %v", args), c)
			return c.Respond(&telebot.CallbackResponse{Text: "Ошибка обработки."})
		}

		err := intake.ChooseSection(ctx, profileFromSender(c), c.Message().ID, args[0])
		if errors.Is(err, app.ErrSessionExpired) {
			return c.Respond(&telebot.CallbackResponse{Text: "Сессия истекла, начни заново"})
		}
		if err != nil {
			logCtx.WithError(err).WithField("sender_id", c.Sender().ID).Error("Section choice failed")
			return c.Respond(&telebot.CallbackResponse{Text: "Произошла ошибка."})
		}
		return c.Respond()
	})

	b.Handle(&telebot.Btn{Unique: app.CallbackTopic}, func(c telebot.Context) error {
		args := c.Args()
		if len(args) != 2 {
			c.Bot().OnError(fmt.Errorf("invalid topic callback payload: %v", args), c)
			return c.Respond(&telebot.CallbackResponse{Text: "Ошибка обработки."})
		}

		if err := intake.ChooseTopic(ctx, profileFromSender(c), c.Message().ID, args[0], args[1]); err != nil {
			logCtx.WithError(err).WithField("sender_id", c.Sender().ID).Error("Topic choice failed")
			return c.Respond(&telebot.CallbackResponse{Text: "Произошла ошибка."})
		}
		return c.Respond()
	})

	b.Handle(&telebot.Btn{Unique: app.CallbackAdmin}, func(c telebot.Context) error {
		senderID := c.Sender().ID
		if senderID != adminTelegramID {
			return c.Respond(&telebot.CallbackResponse{Text: "Доступ запрещён."})
		}

		args := c.Args()
		if len(args) != 1 {
			c.Bot().OnError(fmt.Errorf("invalid admin callback payload: %v", args), c)
			return c.Respond(&telebot.CallbackResponse{Text: "Ошибка обработки."})
		}
		action := args[0]
		actionLog := logCtx.WithFields(logrus.Fields{"sender_id": senderID, "action": action})

		switch action {
		case app.AdminActionDailyReport:
			if err := c.Respond(&telebot.CallbackResponse{Text: "Генерирую отчет..."}); err != nil {
				actionLog.WithError(err).Warn("Could not acknowledge callback")
			}
			if err := adminService.SendDailyReport(ctx, senderID); err != nil {
				actionLog.WithError(err).Error("Daily report failed")
			}
			return nil

		case app.AdminActionSendDailyNow:
			if err := c.Respond(&telebot.CallbackResponse{Text: "Отправляю сводку..."}); err != nil {
				actionLog.WithError(err).Warn("Could not acknowledge callback")
			}
			if err := maintenance.SendNightlySummary(ctx); err != nil {
				actionLog.WithError(err).Error("On-demand summary failed")
			}
			return nil

		case app.AdminActionFullHistory:
			if err := c.Respond(&telebot.CallbackResponse{Text: "Это может занять время..."}); err != nil {
				actionLog.WithError(err).Warn("Could not acknowledge callback")
			}
			if err := adminService.SendFullHistory(ctx, senderID); err != nil {
				actionLog.WithError(err).Error("Full history failed")
			}
			return nil

		case app.AdminActionExportUser:
			if err := intake.BeginExport(ctx, profileFromSender(c)); err != nil {
				actionLog.WithError(err).Error("Could not arm export target capture")
				return c.Respond(&telebot.CallbackResponse{Text: "Произошла ошибка."})
			}
			return c.Respond()

		case app.AdminActionDeleteUser:
			if err := intake.BeginDelete(ctx, profileFromSender(c)); err != nil {
				actionLog.WithError(err).Error("Could not arm delete target capture")
				return c.Respond(&telebot.CallbackResponse{Text: "Произошла ошибка."})
			}
			return c.Respond()

		case app.AdminActionResetAll:
			if err := adminService.ResetAll(ctx, senderID); err != nil {
				actionLog.WithError(err).Error("Reset failed")
				return c.Respond(&telebot.CallbackResponse{Text: "Ошибка сброса."})
			}
			return c.Respond(&telebot.CallbackResponse{Text: "База сброшена!", ShowAlert: true})

		default:
			c.Bot().OnError(fmt.Errorf("unhandled admin action: %s", action), c)
			return c.Respond(&telebot.CallbackResponse{Text: "Неизвестное действие."})
		}
	})
}
