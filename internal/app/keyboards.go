package app

import (
	"gopkg.in/telebot.v3"
)

// Main menu reply-keyboard labels. The dialogue engine matches inbound text
// against these, so keyboards and routing stay in one place.
const (
	btnSubmitHomework = "📚 Сдать ДЗ"
	btnSubmitNotes    = "📘 Сдать конспект"
	btnMyArchive      = "📁 Мои конспекты"
	btnMainMenu       = "📌 Главное меню"
	btnAdminPanel     = "🛠️ Админ-панель"
)

// Callback uniques: keyboards emit them, handlers subscribe by them. Together
// with the "|"-joined payload they form the full callback grammar
// (cancel, sec|<name>, topic|<section>|<id>, admin|<action>). Payload values
// containing "|" are not supported.
const (
	CallbackCancel  = "cancel"
	CallbackSection = "sec"
	CallbackTopic   = "topic"
	CallbackAdmin   = "admin"
)

// Admin panel actions carried in the admin|<action> payload.
const (
	AdminActionDailyReport  = "daily_full"
	AdminActionSendDailyNow = "send_daily_now"
	AdminActionFullHistory  = "full_history_manual"
	AdminActionExportUser   = "export_user"
	AdminActionDeleteUser   = "delete_user"
	AdminActionResetAll     = "reset_all"
)

func mainMenu(isAdmin bool) *telebot.ReplyMarkup {
	m := &telebot.ReplyMarkup{ResizeKeyboard: true}
	rows := []telebot.Row{
		m.Row(m.Text(btnSubmitHomework), m.Text(btnSubmitNotes)),
		m.Row(m.Text(btnMyArchive), m.Text(btnMainMenu)),
	}
	if isAdmin {
		rows = append(rows, m.Row(m.Text(btnAdminPanel)))
	}
	m.Reply(rows...)
	return m
}

func sectionsKeyboard() *telebot.ReplyMarkup {
	m := &telebot.ReplyMarkup{}
	rows := make([]telebot.Row, 0, len(Sections())+1)
	for _, sec := range Sections() {
		rows = append(rows, m.Row(m.Data(sec, CallbackSection, sec)))
	}
	rows = append(rows, m.Row(m.Data("Отмена", CallbackCancel)))
	m.Inline(rows...)
	return m
}

func topicsKeyboard(section string) *telebot.ReplyMarkup {
	m := &telebot.ReplyMarkup{}
	topics := SectionTopics(section)
	rows := make([]telebot.Row, 0, len(topics)+1)
	for _, t := range topics {
		rows = append(rows, m.Row(m.Data(t.Title, CallbackTopic, section, t.ID)))
	}
	rows = append(rows, m.Row(m.Data("Отмена", CallbackCancel)))
	m.Inline(rows...)
	return m
}

func adminKeyboard() *telebot.ReplyMarkup {
	m := &telebot.ReplyMarkup{}
	m.Inline(
		m.Row(m.Data("📋 Дневной отчёт", CallbackAdmin, AdminActionDailyReport)),
		m.Row(m.Data("📤 Выслать сейчас", CallbackAdmin, AdminActionSendDailyNow)),
		m.Row(m.Data("📊 Полная история", CallbackAdmin, AdminActionFullHistory)),
		m.Row(m.Data("👤 Выгрузить ученика", CallbackAdmin, AdminActionExportUser)),
		m.Row(m.Data("🗑️ Удалить ученика", CallbackAdmin, AdminActionDeleteUser)),
		m.Row(m.Data("♻️ Сброс базы", CallbackAdmin, AdminActionResetAll)),
		m.Row(m.Data("Отмена", CallbackCancel)),
	)
	return m
}

func sendOpts(markup *telebot.ReplyMarkup) *telebot.SendOptions {
	return &telebot.SendOptions{ReplyMarkup: markup}
}
