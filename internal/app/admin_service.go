package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"homework_intake_bot/internal/domain/student"
	"homework_intake_bot/internal/domain/submission"
	domainTelegram "homework_intake_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
)

// Custom application-level errors for admin operations
var ErrAdminNotAuthorized = fmt.Errorf("performing user is not authorized as an admin")

// AdminService owns the administrator-only operations: exports, deletion,
// full reset and on-demand reports. Every operation re-checks the performing
// user even though handlers gate access too.
type AdminService struct {
	students        student.Repository
	subs            submission.Repository
	reports         *ReportService
	archive         *ArchiveService
	telegramClient  domainTelegram.Client
	adminTelegramID int64
	logger          *logrus.Entry
	now             func() time.Time
}

func NewAdminService(
	sr student.Repository,
	subs submission.Repository,
	reports *ReportService,
	archive *ArchiveService,
	tc domainTelegram.Client,
	adminID int64,
	logger *logrus.Entry,
) *AdminService {
	return &AdminService{
		students:        sr,
		subs:            subs,
		reports:         reports,
		archive:         archive,
		telegramClient:  tc,
		adminTelegramID: adminID,
		logger:          logger,
		now:             time.Now,
	}
}

// resolveTarget accepts a numeric Telegram id or a handle (with or without a
// leading @).
func (s *AdminService) resolveTarget(ctx context.Context, identifier string) (*student.Student, error) {
	identifier = strings.TrimPrefix(strings.TrimSpace(identifier), "@")
	if id, err := strconv.ParseInt(identifier, 10, 64); err == nil {
		return s.students.GetByTelegramID(ctx, id)
	}
	return s.students.GetByUsername(ctx, identifier)
}

// ExportTarget builds the submissions workbook and, when present, the zip of
// archived files for the identified student.
func (s *AdminService) ExportTarget(ctx context.Context, performingID int64, identifier string) (xlsx []byte, archiveZip []byte, err error) {
	if performingID != s.adminTelegramID {
		return nil, nil, ErrAdminNotAuthorized
	}

	target, err := s.resolveTarget(ctx, identifier)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve export target %q: %w", identifier, err)
	}

	xlsx, err = s.reports.ExportStudent(ctx, target)
	if err != nil {
		return nil, nil, err
	}
	archiveZip, err = s.archive.ZipStudentArchive(target.TelegramID)
	if err != nil {
		s.logger.WithError(err).WithField("student_id", target.TelegramID).Error("Could not zip student archive for export")
		archiveZip = nil
	}
	return xlsx, archiveZip, nil
}

// DeleteTarget removes the identified student; submissions and miss reasons
// cascade in the store, archived files are removed from disk.
func (s *AdminService) DeleteTarget(ctx context.Context, performingID int64, identifier string) error {
	if performingID != s.adminTelegramID {
		return ErrAdminNotAuthorized
	}

	target, err := s.resolveTarget(ctx, identifier)
	if err != nil {
		return fmt.Errorf("failed to resolve delete target %q: %w", identifier, err)
	}

	if err := s.students.Delete(ctx, target.TelegramID); err != nil {
		return fmt.Errorf("failed to delete student %d: %w", target.TelegramID, err)
	}
	if err := s.archive.RemoveStudentArchive(target.TelegramID); err != nil {
		s.logger.WithError(err).WithField("student_id", target.TelegramID).Error("Could not remove student archive directory")
	}
	s.logger.WithField("student_id", target.TelegramID).Info("Student deleted with cascade")
	return nil
}

// ResetAll wipes the store and the on-disk archive.
func (s *AdminService) ResetAll(ctx context.Context, performingID int64) error {
	if performingID != s.adminTelegramID {
		return ErrAdminNotAuthorized
	}
	if err := s.subs.ResetAll(ctx); err != nil {
		return err
	}
	if err := s.archive.ResetAll(); err != nil {
		s.logger.WithError(err).Error("Could not reset archive directory")
	}
	s.logger.Warn("Full database reset performed")
	return nil
}

// SendDailyReport renders today's report and sends it to the admin.
func (s *AdminService) SendDailyReport(ctx context.Context, performingID int64) error {
	if performingID != s.adminTelegramID {
		return ErrAdminNotAuthorized
	}
	date := s.now().UTC().Format("2006-01-02")
	data, err := s.reports.DailyReport(ctx, date)
	if err != nil {
		s.logger.WithError(err).Error("Daily report generation failed")
		if sendErr := s.telegramClient.SendMessage(s.adminTelegramID, "Ошибка генерации отчета", nil); sendErr != nil {
			s.logger.WithError(sendErr).Error("Could not deliver report failure notice")
		}
		return err
	}
	return s.telegramClient.SendDocument(s.adminTelegramID, data, fmt.Sprintf("report_%s.xlsx", date))
}

// SendFullHistory renders the complete history workbook and sends it to the
// admin.
func (s *AdminService) SendFullHistory(ctx context.Context, performingID int64) error {
	if performingID != s.adminTelegramID {
		return ErrAdminNotAuthorized
	}
	data, err := s.reports.FullHistory(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Full history generation failed")
		return err
	}
	return s.telegramClient.SendDocument(s.adminTelegramID, data, "history.xlsx")
}
