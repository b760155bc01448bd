package app

import (
	"context"
	"fmt"
	"sort"

	"homework_intake_bot/internal/domain/student"
	"homework_intake_bot/internal/domain/submission"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

const headerFillColor = "A7F3D0"

// ReportService renders XLSX workbooks from the store: the daily report, the
// full-history package and per-student exports.
type ReportService struct {
	students student.Repository
	subs     submission.Repository
	miss     submission.MissReasonRepository
	logger   *logrus.Entry
}

func NewReportService(
	sr student.Repository,
	subs submission.Repository,
	miss submission.MissReasonRepository,
	logger *logrus.Entry,
) *ReportService {
	return &ReportService{students: sr, subs: subs, miss: miss, logger: logger}
}

// DailyReport builds the workbook for one calendar date: a raw_submissions
// sheet with every submission of the day and a daily_summary sheet with
// per-student counts, miss reason and the last topic touched.
func (s *ReportService) DailyReport(ctx context.Context, date string) ([]byte, error) {
	students, err := s.students.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list students for daily report: %w", err)
	}
	subs, err := s.subs.ListByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions for daily report: %w", err)
	}

	byID := make(map[int64]*student.Student, len(students))
	for _, st := range students {
		byID[st.TelegramID] = st
	}

	f := excelize.NewFile()
	defer f.Close()

	const rawSheet = "raw_submissions"
	f.SetSheetName("Sheet1", rawSheet)

	headerStyle, err := newHeaderStyle(f)
	if err != nil {
		return nil, err
	}

	rawHeader := []interface{}{"User ID", "Username", "Name", "Type", "Section", "Topic", "Summary", "Date", "TS"}
	if err := writeHeader(f, rawSheet, rawHeader, headerStyle); err != nil {
		return nil, err
	}
	for i, sub := range subs {
		var username, firstName string
		if st, ok := byID[sub.StudentID]; ok {
			username = st.Username.String
			firstName = st.FirstName
		}
		row := []interface{}{
			sub.StudentID, username, firstName, string(sub.Kind), sub.Section,
			sub.TopicTitle, sub.Summary, sub.Date, sub.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(rawSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write raw submission row: %w", err)
		}
	}

	const sumSheet = "daily_summary"
	if _, err := f.NewSheet(sumSheet); err != nil {
		return nil, fmt.Errorf("failed to add daily_summary sheet: %w", err)
	}
	sumHeader := []interface{}{"User ID", "Name", "DZ Submitted", "Conspect Submitted", "Miss Reason", "Task Flag"}
	if err := writeHeader(f, sumSheet, sumHeader, headerStyle); err != nil {
		return nil, err
	}
	for i, st := range students {
		hw, err := s.subs.CountByStudentAndDate(ctx, st.TelegramID, date, submission.KindHomework)
		if err != nil {
			return nil, fmt.Errorf("failed to count homework for student %d: %w", st.TelegramID, err)
		}
		notes, err := s.subs.CountByStudentAndDate(ctx, st.TelegramID, date, submission.KindNotes)
		if err != nil {
			return nil, fmt.Errorf("failed to count notes for student %d: %w", st.TelegramID, err)
		}
		reason, err := s.miss.GetReason(ctx, st.TelegramID, date)
		if err != nil {
			s.logger.WithError(err).WithField("student_id", st.TelegramID).Warn("Could not read miss reason for daily report")
		}
		lastTopic, err := s.subs.LastTopicOfDay(ctx, st.TelegramID, date)
		if err != nil {
			s.logger.WithError(err).WithField("student_id", st.TelegramID).Warn("Could not read last topic for daily report")
		}

		row := []interface{}{st.TelegramID, st.DisplayName(), hw, notes, reason, lastTopic}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sumSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write daily summary row: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize daily report: %w", err)
	}
	return buf.Bytes(), nil
}

// FullHistory builds the ALL_HISTORY workbook: every submission ever recorded,
// newest dates first, plus top-student column charts for homework, notes and
// misses embedded in their own sheets.
func (s *ReportService) FullHistory(ctx context.Context) ([]byte, error) {
	students, err := s.students.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list students for history: %w", err)
	}
	subs, err := s.subs.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions for history: %w", err)
	}
	misses, err := s.miss.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list miss reasons for history: %w", err)
	}

	nameByID := make(map[int64]string, len(students))
	for _, st := range students {
		nameByID[st.TelegramID] = st.FirstName
	}

	f := excelize.NewFile()
	defer f.Close()

	const histSheet = "ALL_HISTORY"
	f.SetSheetName("Sheet1", histSheet)

	headerStyle, err := newHeaderStyle(f)
	if err != nil {
		return nil, err
	}
	header := []interface{}{"Date", "User ID", "Name", "Type", "Topic", "Summary"}
	if err := writeHeader(f, histSheet, header, headerStyle); err != nil {
		return nil, err
	}

	hwStats := make(map[string]int64)
	notesStats := make(map[string]int64)
	missStats := make(map[string]int64)

	for i, sub := range subs {
		name := nameByID[sub.StudentID]
		row := []interface{}{sub.Date, sub.StudentID, name, string(sub.Kind), sub.TopicTitle, sub.Summary}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(histSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write history row: %w", err)
		}
		switch sub.Kind {
		case submission.KindHomework:
			hwStats[name]++
		case submission.KindNotes:
			notesStats[name]++
		}
	}
	for _, m := range misses {
		if name, ok := nameByID[m.StudentID]; ok {
			missStats[name]++
		}
	}

	if err := addTopChartSheet(f, "top_homework", "Топ по ДЗ", hwStats, headerStyle); err != nil {
		return nil, err
	}
	if err := addTopChartSheet(f, "top_notes", "Топ по конспектам", notesStats, headerStyle); err != nil {
		return nil, err
	}
	if err := addTopChartSheet(f, "top_misses", "Топ пропусков", missStats, headerStyle); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize history workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportStudent builds the per-student workbook used by the admin export flow.
func (s *ReportService) ExportStudent(ctx context.Context, st *student.Student) ([]byte, error) {
	subs, err := s.subs.ListByStudent(ctx, st.TelegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions for student %d: %w", st.TelegramID, err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	header := []interface{}{"Type", "Section", "Topic", "Summary", "Date"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write export header: %w", err)
	}
	for i, sub := range subs {
		row := []interface{}{string(sub.Kind), sub.Section, sub.TopicTitle, sub.Summary, sub.Date}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write export row: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize student export: %w", err)
	}
	return buf.Bytes(), nil
}

func newHeaderStyle(f *excelize.File) (int, error) {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{headerFillColor}, Pattern: 1},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create header style: %w", err)
	}
	return style, nil
}

func writeHeader(f *excelize.File, sheet string, header []interface{}, style int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header on %s: %w", sheet, err)
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("failed to style header on %s: %w", sheet, err)
	}
	return nil
}

// addTopChartSheet writes a name/count table of the top 15 entries and embeds
// a column chart next to it.
func addTopChartSheet(f *excelize.File, sheet, title string, stats map[string]int64, headerStyle int) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to add %s sheet: %w", sheet, err)
	}
	if err := writeHeader(f, sheet, []interface{}{"Name", "Count"}, headerStyle); err != nil {
		return err
	}

	top := topEntries(stats, 15)
	if len(top) == 0 {
		return nil
	}
	for i, e := range top {
		row := []interface{}{e.name, e.count}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row: %w", sheet, err)
		}
	}

	lastRow := len(top) + 1
	err := f.AddChart(sheet, "D2", &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("%s!$B$1", sheet),
			Categories: fmt.Sprintf("%s!$A$2:$A$%d", sheet, lastRow),
			Values:     fmt.Sprintf("%s!$B$2:$B$%d", sheet, lastRow),
		}},
		Title:  []excelize.RichTextRun{{Text: title}},
		Legend: excelize.ChartLegend{Position: "none"},
	})
	if err != nil {
		return fmt.Errorf("failed to add %s chart: %w", sheet, err)
	}
	return nil
}

type statEntry struct {
	name  string
	count int64
}

func topEntries(stats map[string]int64, n int) []statEntry {
	entries := make([]statEntry, 0, len(stats))
	for name, count := range stats {
		entries = append(entries, statEntry{name: name, count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
