package app

import (
	"context"
	"fmt"
	"time"

	"homework_intake_bot/internal/domain/student"
	"homework_intake_bot/internal/domain/submission"
	domainTelegram "homework_intake_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
)

const defaultBroadcastText = "Привет от Дани) Желаю удачкииии!!\n\nУ меня все хорошо, просто очень много прогаю и занят стартапом((("

// MaintenanceService implements the scheduled tasks that run against the store
// and the gateway: the evening reminder, the nightly summary, the absence
// sweep and the periodic broadcast. Every task tolerates per-recipient
// failures and keeps iterating; a permanently blocked recipient is deleted
// from the store with cascade.
type MaintenanceService struct {
	students        student.Repository
	subs            submission.Repository
	miss            submission.MissReasonRepository
	telegramClient  domainTelegram.Client
	adminTelegramID int64
	broadcastText   string
	sendDelay       time.Duration
	logger          *logrus.Entry
	now             func() time.Time
}

func NewMaintenanceService(
	sr student.Repository,
	subs submission.Repository,
	miss submission.MissReasonRepository,
	tc domainTelegram.Client,
	adminID int64,
	broadcastText string,
	sendDelay time.Duration,
	logger *logrus.Entry,
) *MaintenanceService {
	if broadcastText == "" {
		broadcastText = defaultBroadcastText
	}
	return &MaintenanceService{
		students:        sr,
		subs:            subs,
		miss:            miss,
		telegramClient:  tc,
		adminTelegramID: adminID,
		broadcastText:   broadcastText,
		sendDelay:       sendDelay,
		logger:          logger,
		now:             time.Now,
	}
}

func (s *MaintenanceService) today() string {
	return s.now().UTC().Format("2006-01-02")
}

// sendOrDrop delivers one message and handles the blocked-recipient signal:
// the student is deleted from the store and false is returned. Transient
// errors are logged and swallowed.
func (s *MaintenanceService) sendOrDrop(ctx context.Context, studentID int64, text string, logCtx *logrus.Entry) bool {
	err := s.telegramClient.SendMessage(studentID, text, nil)
	if err == nil {
		return true
	}
	if domainTelegram.IsBlocked(err) {
		logCtx.WithField("student_id", studentID).Info("Student blocked the bot, removing with cascade")
		if delErr := s.students.Delete(ctx, studentID); delErr != nil {
			logCtx.WithError(delErr).WithField("student_id", studentID).Error("Could not delete blocked student")
		}
		return false
	}
	logCtx.WithError(err).WithField("student_id", studentID).Warn("Delivery failed, continuing")
	return false
}

// SendEveningReminders messages every student to hand in today's work.
func (s *MaintenanceService) SendEveningReminders(ctx context.Context) error {
	logCtx := s.logger.WithField("job", "evening_reminder")

	ids, err := s.students.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list students for reminder: %w", err)
	}
	logCtx.WithField("students", len(ids)).Info("Sending evening reminders")

	for _, id := range ids {
		s.sendOrDrop(ctx, id, "⏰ Напоминание: не забудьте сегодня сдать ДЗ и/или конспект.", logCtx)
	}
	return nil
}

// SendNightlySummary sends the admin today's homework and notes counts.
func (s *MaintenanceService) SendNightlySummary(ctx context.Context) error {
	logCtx := s.logger.WithField("job", "nightly_summary")
	date := s.today()

	hw, err := s.subs.CountByDate(ctx, date, submission.KindHomework)
	if err != nil {
		return fmt.Errorf("failed to count homework for summary: %w", err)
	}
	notes, err := s.subs.CountByDate(ctx, date, submission.KindNotes)
	if err != nil {
		return fmt.Errorf("failed to count notes for summary: %w", err)
	}

	msg := fmt.Sprintf("Ежедневный отчёт за %s:\nДЗ: %d\nКонспект: %d", date, hw, notes)
	if err := s.telegramClient.SendMessage(s.adminTelegramID, msg, nil); err != nil {
		logCtx.WithError(err).Error("Could not deliver nightly summary")
	}
	return nil
}

// SweepMissingSubmissions creates an empty miss-reason record for every
// student with nothing handed in today and asks them for the reason. The
// insert is idempotent, so a rerun for the same date changes nothing.
func (s *MaintenanceService) SweepMissingSubmissions(ctx context.Context) error {
	logCtx := s.logger.WithField("job", "absence_sweep")
	date := s.today()

	ids, err := s.students.ListIDsWithoutSubmission(ctx, date)
	if err != nil {
		return fmt.Errorf("failed to list absent students: %w", err)
	}
	logCtx.WithFields(logrus.Fields{"date": date, "students": len(ids)}).Info("Running absence sweep")

	for _, id := range ids {
		if err := s.miss.InsertIfAbsent(ctx, id, date); err != nil {
			logCtx.WithError(err).WithField("student_id", id).Error("Could not insert miss-reason record")
			continue
		}
		text := fmt.Sprintf("Сегодня (%s) ты ничего не сдал(а). Укажи причину пропуска (отправь текст).", date)
		s.sendOrDrop(ctx, id, text, logCtx)
	}
	return nil
}

// Broadcast sends the fixed message to every student, pausing between sends to
// respect outbound rate limits.
func (s *MaintenanceService) Broadcast(ctx context.Context) error {
	logCtx := s.logger.WithField("job", "broadcast")

	ids, err := s.students.ListIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list students for broadcast: %w", err)
	}
	logCtx.WithField("students", len(ids)).Info("Broadcasting")

	for _, id := range ids {
		s.sendOrDrop(ctx, id, s.broadcastText, logCtx)
		if s.sendDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.sendDelay):
			}
		}
	}
	return nil
}
