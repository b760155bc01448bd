package app

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"homework_intake_bot/internal/domain/dialogue"
	"homework_intake_bot/internal/domain/student"
	"homework_intake_bot/internal/domain/submission"
	domainTelegram "homework_intake_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
)

// ErrSessionExpired signals that a button press arrived for a dialogue step the
// student is no longer in; handlers answer the callback with a hint instead of
// advancing anything.
var ErrSessionExpired = fmt.Errorf("dialogue session expired")

// Profile is the sender identity attached to every inbound event.
type Profile struct {
	ID        int64
	Username  string
	FirstName string
}

// IntakeService is the dialogue engine: it interprets inbound events against
// the per-student conversation state, stages album photos in the aggregator,
// persists finished submissions and emits the replies. Events for one student
// are handled strictly one at a time.
type IntakeService struct {
	students student.Repository
	subs     submission.Repository
	miss     submission.MissReasonRepository

	telegramClient domainTelegram.Client
	states         *dialogue.Store
	groups         *MediaGroupAggregator
	archive        *ArchiveService
	admin          *AdminService

	adminTelegramID int64
	debounce        time.Duration
	logger          *logrus.Entry

	pick func(n int) int
	now  func() time.Time
}

func NewIntakeService(
	sr student.Repository,
	subs submission.Repository,
	miss submission.MissReasonRepository,
	tc domainTelegram.Client,
	states *dialogue.Store,
	groups *MediaGroupAggregator,
	archive *ArchiveService,
	admin *AdminService,
	adminID int64,
	debounce time.Duration,
	logger *logrus.Entry,
) *IntakeService {
	return &IntakeService{
		students:        sr,
		subs:            subs,
		miss:            miss,
		telegramClient:  tc,
		states:          states,
		groups:          groups,
		archive:         archive,
		admin:           admin,
		adminTelegramID: adminID,
		debounce:        debounce,
		logger:          logger,
		pick:            rand.Intn,
		now:             time.Now,
	}
}

func (s *IntakeService) isAdmin(id int64) bool {
	return id == s.adminTelegramID
}

func (s *IntakeService) today() string {
	return s.now().UTC().Format("2006-01-02")
}

// upsertStudent refreshes the sender's profile row; failures are logged and do
// not block the dialogue.
func (s *IntakeService) upsertStudent(ctx context.Context, p Profile) {
	st := &student.Student{
		TelegramID: p.ID,
		FirstName:  p.FirstName,
	}
	if p.Username != "" {
		st.Username = sql.NullString{String: p.Username, Valid: true}
	}
	if err := s.students.Upsert(ctx, st); err != nil {
		s.logger.WithError(err).WithField("student_id", p.ID).Error("Could not upsert student")
	}
}

func kindLabel(k submission.Kind) string {
	if k == submission.KindNotes {
		return "Конспект"
	}
	return "ДЗ"
}

func (s *IntakeService) senderHandle(p Profile) string {
	if p.Username != "" {
		return p.Username
	}
	return "noname"
}

// HandleText routes a text message: global menu triggers first, then the
// state-dependent interpretation.
func (s *IntakeService) HandleText(ctx context.Context, p Profile, messageID int, text string) error {
	release := s.states.Acquire(p.ID)
	defer release()

	s.upsertStudent(ctx, p)

	if text == "/start" || text == "/menu" || text == btnMainMenu {
		s.states.Reset(p.ID)
		return s.telegramClient.SendMessage(p.ID,
			"Привет! Я бот для сдачи ДЗ и конспектов.\nВыбери действие:",
			sendOpts(mainMenu(s.isAdmin(p.ID))))
	}

	switch st := s.states.Get(p.ID).(type) {
	case dialogue.Start:
		return s.handleStartText(ctx, p, text)
	case dialogue.WaitingForContent:
		return s.submitText(ctx, p, st, messageID, text)
	case dialogue.AdminAwaitingExportTarget:
		return s.handleExportTarget(ctx, p, text)
	case dialogue.AdminAwaitingDeleteTarget:
		return s.handleDeleteTarget(ctx, p, text)
	default:
		// ChoosingSection / ChoosingTopic / AdminPanel are driven by button
		// presses only; free text is ignored.
		return nil
	}
}

func (s *IntakeService) handleStartText(ctx context.Context, p Profile, text string) error {
	switch text {
	case btnSubmitHomework:
		s.states.Set(p.ID, dialogue.ChoosingSection{Kind: submission.KindHomework})
		return s.telegramClient.SendMessage(p.ID, "Выбери раздел:", sendOpts(sectionsKeyboard()))

	case btnSubmitNotes:
		s.states.Set(p.ID, dialogue.ChoosingSection{Kind: submission.KindNotes})
		return s.telegramClient.SendMessage(p.ID, "Выбери раздел:", sendOpts(sectionsKeyboard()))

	case btnMyArchive:
		if err := s.telegramClient.SendMessage(p.ID, "Архивирую твои конспекты, подожди пару секунд...", nil); err != nil {
			s.logger.WithError(err).WithField("student_id", p.ID).Warn("Could not send archive progress notice")
		}
		data, err := s.archive.ZipStudentArchive(p.ID)
		if err != nil {
			s.logger.WithError(err).WithField("student_id", p.ID).Error("Could not build student archive")
		}
		if err != nil || len(data) == 0 {
			return s.telegramClient.SendMessage(p.ID, "У тебя пока нет сохранённых конспектов.", nil)
		}
		return s.telegramClient.SendDocument(p.ID, data, "my_conspects.zip")

	case btnAdminPanel:
		if !s.isAdmin(p.ID) {
			return s.telegramClient.SendMessage(p.ID, "Доступ запрещён.", nil)
		}
		s.states.Set(p.ID, dialogue.AdminPanel{})
		return s.telegramClient.SendMessage(p.ID, "Админ-панель:", sendOpts(adminKeyboard()))

	default:
		open, err := s.miss.HasOpen(ctx, p.ID)
		if err != nil {
			s.logger.WithError(err).WithField("student_id", p.ID).Error("Could not check for open miss reason")
		}
		if open {
			if err := s.miss.CloseOpen(ctx, p.ID, text); err != nil {
				s.logger.WithError(err).WithField("student_id", p.ID).Error("Could not close miss reason")
				return nil
			}
			return s.telegramClient.SendMessage(p.ID, "Причина сохранена, спасибо.", nil)
		}

		lower := strings.ToLower(text)
		if strings.HasPrefix(lower, "дз") || strings.HasPrefix(lower, "конспект") {
			return s.telegramClient.SendMessage(p.ID, "Пожалуйста, используй меню для сдачи работ.", nil)
		}
		return nil
	}
}

// submitText records a plain-text submission and finishes the flow.
func (s *IntakeService) submitText(ctx context.Context, p Profile, st dialogue.WaitingForContent, messageID int, text string) error {
	summary := submission.Summarize(text, submission.TextSummaryLimit)
	sub := &submission.Submission{
		StudentID:  p.ID,
		Kind:       st.Kind,
		Section:    st.Section,
		TopicID:    st.TopicID,
		TopicTitle: st.TopicTitle,
		Content:    submission.ContentText,
		Summary:    summary,
		MessageID:  messageID,
		Date:       s.today(),
		CreatedAt:  s.now().UTC(),
	}
	if err := s.subs.Create(ctx, sub); err != nil {
		s.logger.WithError(err).WithField("student_id", p.ID).Error("Could not persist text submission")
	} else if st.Kind == submission.KindNotes {
		if err := s.archive.SaveText(p.ID, st.Section, st.TopicID, text); err != nil {
			s.logger.WithError(err).WithField("student_id", p.ID).Error("Could not archive text submission")
		}
	}

	s.notifyAdmin(fmt.Sprintf("✅ Новый %s от @%s: %s - %s",
		kindLabel(st.Kind), s.senderHandle(p), st.TopicTitle, summary))

	s.states.Reset(p.ID)
	return s.telegramClient.SendMessage(p.ID,
		fmt.Sprintf("%s %s", praise(s.pick), st.TopicTitle),
		sendOpts(mainMenu(s.isAdmin(p.ID))))
}

// HandlePhoto routes a photo message. A grouped photo is staged in the
// aggregator and produces neither a reply nor a state change; the flush job
// finishes the group later.
func (s *IntakeService) HandlePhoto(ctx context.Context, p Profile, messageID int, fileID, caption, mediaGroupID string) error {
	release := s.states.Acquire(p.ID)
	defer release()

	s.upsertStudent(ctx, p)

	st, ok := s.states.Get(p.ID).(dialogue.WaitingForContent)
	if !ok {
		return nil
	}

	if mediaGroupID != "" {
		s.groups.Append(
			GroupKey{StudentID: p.ID, MediaGroupID: mediaGroupID},
			fileID, caption,
			GroupContext{Kind: st.Kind, Section: st.Section, TopicID: st.TopicID, TopicTitle: st.TopicTitle},
		)
		return nil
	}

	summary := submission.Summarize(caption, submission.CaptionSummaryLimit)
	sub := &submission.Submission{
		StudentID:  p.ID,
		Kind:       st.Kind,
		Section:    st.Section,
		TopicID:    st.TopicID,
		TopicTitle: st.TopicTitle,
		Content:    submission.ContentPhoto,
		Summary:    summary,
		FileRefs:   fileID,
		MessageID:  messageID,
		Date:       s.today(),
		CreatedAt:  s.now().UTC(),
	}
	if err := s.subs.Create(ctx, sub); err != nil {
		s.logger.WithError(err).WithField("student_id", p.ID).Error("Could not persist photo submission")
	} else if st.Kind == submission.KindNotes {
		if err := s.archive.SaveFile(p.ID, st.Section, st.TopicID, fileID); err != nil {
			s.logger.WithError(err).WithField("student_id", p.ID).Error("Could not archive photo")
			if sendErr := s.telegramClient.SendMessage(p.ID, "⚠️ Файл не удалось сохранить на диск. Попробуй еще раз.", nil); sendErr != nil {
				s.logger.WithError(sendErr).Warn("Could not send archive failure notice")
			}
		}
	}

	s.notifyAdmin(fmt.Sprintf("📸 Новый %s от @%s: %s - %s",
		kindLabel(st.Kind), s.senderHandle(p), st.TopicTitle, summary))

	s.states.Reset(p.ID)
	return s.telegramClient.SendMessage(p.ID,
		fmt.Sprintf("%s %s", praise(s.pick), st.TopicTitle),
		sendOpts(mainMenu(s.isAdmin(p.ID))))
}

// HandleDocument records a document submission, using the caption (or file
// name when absent) as the summary.
func (s *IntakeService) HandleDocument(ctx context.Context, p Profile, messageID int, fileID, fileName, caption string) error {
	release := s.states.Acquire(p.ID)
	defer release()

	s.upsertStudent(ctx, p)

	st, ok := s.states.Get(p.ID).(dialogue.WaitingForContent)
	if !ok {
		return nil
	}

	if caption == "" {
		if fileName == "" {
			fileName = "document"
		}
		caption = fileName
	}
	summary := submission.Summarize(caption, submission.CaptionSummaryLimit)

	sub := &submission.Submission{
		StudentID:  p.ID,
		Kind:       st.Kind,
		Section:    st.Section,
		TopicID:    st.TopicID,
		TopicTitle: st.TopicTitle,
		Content:    submission.ContentDocument,
		Summary:    summary,
		FileRefs:   fileID,
		MessageID:  messageID,
		Date:       s.today(),
		CreatedAt:  s.now().UTC(),
	}
	if err := s.subs.Create(ctx, sub); err != nil {
		s.logger.WithError(err).WithField("student_id", p.ID).Error("Could not persist document submission")
	} else if st.Kind == submission.KindNotes {
		if err := s.archive.SaveFile(p.ID, st.Section, st.TopicID, fileID); err != nil {
			s.logger.WithError(err).WithField("student_id", p.ID).Error("Could not archive document")
			if sendErr := s.telegramClient.SendMessage(p.ID, "⚠️ Ошибка сохранения файла.", nil); sendErr != nil {
				s.logger.WithError(sendErr).Warn("Could not send archive failure notice")
			}
		}
	}

	s.notifyAdmin(fmt.Sprintf("📄 Новый %s (ФАЙЛ) от @%s: %s - %s",
		kindLabel(st.Kind), s.senderHandle(p), st.TopicTitle, summary))

	s.states.Reset(p.ID)
	return s.telegramClient.SendMessage(p.ID,
		fmt.Sprintf("%s %s (Файл принят)", praise(s.pick), st.TopicTitle),
		sendOpts(mainMenu(s.isAdmin(p.ID))))
}

// Cancel aborts whatever flow is active and returns to the main menu.
func (s *IntakeService) Cancel(ctx context.Context, p Profile) error {
	release := s.states.Acquire(p.ID)
	defer release()

	s.upsertStudent(ctx, p)
	s.states.Reset(p.ID)
	return s.telegramClient.SendMessage(p.ID, "Операция отменена.", sendOpts(mainMenu(s.isAdmin(p.ID))))
}

// ChooseSection advances ChoosingSection -> ChoosingTopic. Pressing a stale
// section button yields ErrSessionExpired.
func (s *IntakeService) ChooseSection(ctx context.Context, p Profile, messageID int, section string) error {
	release := s.states.Acquire(p.ID)
	defer release()

	s.upsertStudent(ctx, p)

	st, ok := s.states.Get(p.ID).(dialogue.ChoosingSection)
	if !ok {
		return ErrSessionExpired
	}

	s.states.Set(p.ID, dialogue.ChoosingTopic{Kind: st.Kind, Section: section})
	return s.telegramClient.EditMessage(p.ID, messageID,
		fmt.Sprintf("Раздел: %s\nВыбери тему:", section),
		sendOpts(topicsKeyboard(section)))
}

// ChooseTopic advances ChoosingTopic -> WaitingForContent. Presses outside the
// expected state are ignored without a reply.
func (s *IntakeService) ChooseTopic(ctx context.Context, p Profile, messageID int, section, topicID string) error {
	release := s.states.Acquire(p.ID)
	defer release()

	s.upsertStudent(ctx, p)

	st, ok := s.states.Get(p.ID).(dialogue.ChoosingTopic)
	if !ok {
		return nil
	}

	title, ok := TopicTitle(section, topicID)
	if !ok {
		title = "Тема"
	}
	s.states.Set(p.ID, dialogue.WaitingForContent{
		Kind:       st.Kind,
		Section:    section,
		TopicID:    topicID,
		TopicTitle: title,
	})

	prompt := "ДЗ"
	if st.Kind == submission.KindNotes {
		prompt = "конспект"
	}
	return s.telegramClient.EditMessage(p.ID, messageID,
		fmt.Sprintf("Тема: %s\nОтправь %s (фото, файл или текст).", title, prompt),
		nil)
}

// BeginExport and BeginDelete arm the admin target-capture states.
func (s *IntakeService) BeginExport(ctx context.Context, p Profile) error {
	if !s.isAdmin(p.ID) {
		return ErrAdminNotAuthorized
	}
	release := s.states.Acquire(p.ID)
	defer release()

	s.states.Set(p.ID, dialogue.AdminAwaitingExportTarget{})
	return s.telegramClient.SendMessage(p.ID, "Пришли ID или @username пользователя:", nil)
}

func (s *IntakeService) BeginDelete(ctx context.Context, p Profile) error {
	if !s.isAdmin(p.ID) {
		return ErrAdminNotAuthorized
	}
	release := s.states.Acquire(p.ID)
	defer release()

	s.states.Set(p.ID, dialogue.AdminAwaitingDeleteTarget{})
	return s.telegramClient.SendMessage(p.ID, "Пришли ID или @username для УДАЛЕНИЯ:", nil)
}

func (s *IntakeService) handleExportTarget(ctx context.Context, p Profile, text string) error {
	if err := s.telegramClient.SendMessage(p.ID, "Начинаю выгрузку...", nil); err != nil {
		s.logger.WithError(err).Warn("Could not send export progress notice")
	}

	s.states.Set(p.ID, dialogue.AdminPanel{})

	xlsx, archiveZip, err := s.admin.ExportTarget(ctx, p.ID, text)
	if err != nil {
		s.logger.WithError(err).WithField("target", text).Warn("Export failed")
		return s.telegramClient.SendMessage(p.ID, "Пользователь не найден или ошибка.", sendOpts(adminKeyboard()))
	}

	if err := s.telegramClient.SendDocument(p.ID, xlsx, "submissions.xlsx"); err != nil {
		s.logger.WithError(err).Error("Could not deliver export workbook")
	}
	if archiveZip != nil {
		if err := s.telegramClient.SendDocument(p.ID, archiveZip, "files.zip"); err != nil {
			s.logger.WithError(err).Error("Could not deliver export archive")
		}
	}
	return s.telegramClient.SendMessage(p.ID, "Готово.", sendOpts(adminKeyboard()))
}

func (s *IntakeService) handleDeleteTarget(ctx context.Context, p Profile, text string) error {
	s.states.Set(p.ID, dialogue.AdminPanel{})

	if err := s.admin.DeleteTarget(ctx, p.ID, strings.TrimSpace(text)); err != nil {
		s.logger.WithError(err).WithField("target", text).Warn("Delete failed")
		return s.telegramClient.SendMessage(p.ID, "Ошибка удаления.", sendOpts(adminKeyboard()))
	}
	return s.telegramClient.SendMessage(p.ID, "Пользователь удален.", sendOpts(adminKeyboard()))
}

// FlushMediaGroups finalizes every media group that has been quiet for the
// debounce window: persists the album, archives note files, notifies both
// sides and clears the submitter's dialogue state. Runs on a short fixed
// period; the scheduler guarantees runs never overlap.
func (s *IntakeService) FlushMediaGroups(ctx context.Context) error {
	for _, g := range s.groups.TakeStale(s.debounce) {
		s.finalizeGroup(ctx, g)
	}
	return nil
}

func (s *IntakeService) finalizeGroup(ctx context.Context, g FinishedGroup) {
	release := s.states.Acquire(g.Key.StudentID)
	defer release()

	logCtx := s.logger.WithFields(logrus.Fields{
		"student_id":  g.Key.StudentID,
		"media_group": g.Key.MediaGroupID,
		"photos":      len(g.FileIDs),
	})

	summary := submission.Summarize(g.Caption, submission.CaptionSummaryLimit)
	sub := &submission.Submission{
		StudentID:  g.Key.StudentID,
		Kind:       g.Context.Kind,
		Section:    g.Context.Section,
		TopicID:    g.Context.TopicID,
		TopicTitle: g.Context.TopicTitle,
		Content:    submission.ContentPhotoAlbum,
		Summary:    summary,
		FileRefs:   strings.Join(g.FileIDs, ";"),
		MessageID:  0, // no single message represents an album
		Date:       s.today(),
		CreatedAt:  s.now().UTC(),
	}
	if err := s.subs.Create(ctx, sub); err != nil {
		logCtx.WithError(err).Error("Could not persist photo album")
		return
	}

	if g.Context.Kind == submission.KindNotes {
		for _, fileID := range g.FileIDs {
			if err := s.archive.SaveFile(g.Key.StudentID, g.Context.Section, g.Context.TopicID, fileID); err != nil {
				logCtx.WithError(err).Error("Could not archive album photo")
			}
		}
	}

	if err := s.telegramClient.SendMessage(g.Key.StudentID,
		fmt.Sprintf("Альбом принят! (%d фото)", len(g.FileIDs)), nil); err != nil {
		logCtx.WithError(err).Warn("Could not confirm album to student")
	}

	s.notifyAdmin(fmt.Sprintf("📸 Новый %s (АЛЬБОМ) от user_%d: %s - %s",
		kindLabel(g.Context.Kind), g.Key.StudentID, g.Context.TopicTitle, summary))

	s.states.Reset(g.Key.StudentID)
	logCtx.Info("Photo album finalized")
}

func (s *IntakeService) notifyAdmin(text string) {
	if err := s.telegramClient.SendMessage(s.adminTelegramID, text, nil); err != nil {
		s.logger.WithError(err).Warn("Could not notify admin")
	}
}
