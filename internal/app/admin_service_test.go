package app

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"homework_intake_bot/internal/domain/student"
	"homework_intake_bot/internal/domain/submission"
)

type adminFixture struct {
	svc      *AdminService
	tc       *fakeTelegramClient
	students *fakeStudentRepository
	subs     *fakeSubmissionRepository
	archive  *ArchiveService
	baseDir  string
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()

	tc := newFakeTelegramClient()
	students := newFakeStudentRepository()
	subs := newFakeSubmissionRepository()
	miss := newFakeMissReasonRepository()
	logger := testLogger()
	baseDir := t.TempDir()

	archive := NewArchiveService(tc, baseDir, logger)
	reports := NewReportService(students, subs, miss, logger)
	svc := NewAdminService(students, subs, reports, archive, tc, testAdminID, logger)
	svc.now = func() time.Time {
		return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	}
	return &adminFixture{svc: svc, tc: tc, students: students, subs: subs, archive: archive, baseDir: baseDir}
}

func (f *adminFixture) addStudent(id int64, username string) {
	s := &student.Student{TelegramID: id, FirstName: "Вася"}
	if username != "" {
		s.Username = sql.NullString{String: username, Valid: true}
	}
	f.students.Students[id] = s
}

func TestAdminOperationsRejectNonAdmin(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	if _, _, err := f.svc.ExportTarget(ctx, 1, "someone"); !errors.Is(err, ErrAdminNotAuthorized) {
		t.Errorf("ExportTarget err = %v", err)
	}
	if err := f.svc.DeleteTarget(ctx, 1, "someone"); !errors.Is(err, ErrAdminNotAuthorized) {
		t.Errorf("DeleteTarget err = %v", err)
	}
	if err := f.svc.ResetAll(ctx, 1); !errors.Is(err, ErrAdminNotAuthorized) {
		t.Errorf("ResetAll err = %v", err)
	}
	if err := f.svc.SendDailyReport(ctx, 1); !errors.Is(err, ErrAdminNotAuthorized) {
		t.Errorf("SendDailyReport err = %v", err)
	}
	if err := f.svc.SendFullHistory(ctx, 1); !errors.Is(err, ErrAdminNotAuthorized) {
		t.Errorf("SendFullHistory err = %v", err)
	}
}

func TestExportTargetResolvesByIDAndHandle(t *testing.T) {
	f := newAdminFixture(t)
	f.addStudent(7, "vasya")
	ctx := context.Background()

	for _, identifier := range []string{"7", "@vasya", "vasya"} {
		xlsx, _, err := f.svc.ExportTarget(ctx, testAdminID, identifier)
		if err != nil {
			t.Errorf("ExportTarget(%q): %v", identifier, err)
			continue
		}
		if len(xlsx) == 0 {
			t.Errorf("ExportTarget(%q): empty workbook", identifier)
		}
	}
}

func TestExportTargetIncludesArchiveWhenPresent(t *testing.T) {
	f := newAdminFixture(t)
	f.addStudent(7, "vasya")
	topicDir := filepath.Join(f.baseDir, "7", "conspect")
	if err := os.MkdirAll(topicDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(topicDir, "note.txt"), []byte("конспект"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, archiveZip, err := f.svc.ExportTarget(context.Background(), testAdminID, "7")
	if err != nil {
		t.Fatalf("ExportTarget: %v", err)
	}
	if len(archiveZip) == 0 {
		t.Error("expected a zip of archived files")
	}
}

func TestExportTargetUnknownStudent(t *testing.T) {
	f := newAdminFixture(t)

	if _, _, err := f.svc.ExportTarget(context.Background(), testAdminID, "@nobody"); err == nil {
		t.Error("expected an error for an unknown target")
	}
}

func TestDeleteTargetRemovesStudentAndArchive(t *testing.T) {
	f := newAdminFixture(t)
	f.addStudent(7, "vasya")
	studentDir := filepath.Join(f.baseDir, "7")
	if err := os.MkdirAll(studentDir, 0o755); err != nil {
		t.Fatal(err)
	}

	if err := f.svc.DeleteTarget(context.Background(), testAdminID, "@vasya"); err != nil {
		t.Fatalf("DeleteTarget: %v", err)
	}

	if len(f.students.Deleted) != 1 || f.students.Deleted[0] != 7 {
		t.Errorf("deleted = %v, want [7]", f.students.Deleted)
	}
	if _, err := os.Stat(studentDir); !os.IsNotExist(err) {
		t.Error("archive directory should be removed")
	}
}

func TestResetAllWipesStoreAndArchive(t *testing.T) {
	f := newAdminFixture(t)
	f.subs.Subs = []*submission.Submission{{StudentID: 1, Kind: submission.KindHomework, Date: "2026-08-29"}}
	if err := os.MkdirAll(filepath.Join(f.baseDir, "1"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := f.svc.ResetAll(context.Background(), testAdminID); err != nil {
		t.Fatalf("ResetAll: %v", err)
	}

	if f.subs.ResetCalls != 1 || len(f.subs.Subs) != 0 {
		t.Errorf("store reset calls = %d, submissions = %d", f.subs.ResetCalls, len(f.subs.Subs))
	}
	entries, err := os.ReadDir(f.baseDir)
	if err != nil {
		t.Fatalf("archive base dir should survive a reset: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("archive entries after reset = %d, want 0", len(entries))
	}
}

func TestSendDailyReportDeliversWorkbook(t *testing.T) {
	f := newAdminFixture(t)
	f.addStudent(1, "vasya")
	f.subs.Subs = []*submission.Submission{
		{StudentID: 1, Kind: submission.KindHomework, Section: "ЕГЭ 1-27",
			TopicID: "ege1", TopicTitle: "Задание 1", Content: submission.ContentText,
			Summary: "решение", Date: "2026-08-29"},
	}

	if err := f.svc.SendDailyReport(context.Background(), testAdminID); err != nil {
		t.Fatalf("SendDailyReport: %v", err)
	}

	if len(f.tc.Documents) != 1 {
		t.Fatalf("documents = %+v", f.tc.Documents)
	}
	d := f.tc.Documents[0]
	if d.ChatID != testAdminID || d.Filename != "report_2026-08-29.xlsx" || d.Size == 0 {
		t.Errorf("document = %+v", d)
	}
}

func TestSendFullHistoryDeliversWorkbook(t *testing.T) {
	f := newAdminFixture(t)
	f.addStudent(1, "vasya")
	f.subs.Subs = []*submission.Submission{
		{StudentID: 1, Kind: submission.KindNotes, Section: "Основы Питона",
			TopicID: "op1", TopicTitle: "Вводный урок", Content: submission.ContentText,
			Summary: "конспект", Date: "2026-08-28"},
	}

	if err := f.svc.SendFullHistory(context.Background(), testAdminID); err != nil {
		t.Fatalf("SendFullHistory: %v", err)
	}

	if len(f.tc.Documents) != 1 || f.tc.Documents[0].Filename != "history.xlsx" {
		t.Errorf("documents = %+v", f.tc.Documents)
	}
}
