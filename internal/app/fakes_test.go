package app

import (
	"context"
	"fmt"
	"io"
	"sync"

	"homework_intake_bot/internal/domain/student"
	"homework_intake_bot/internal/domain/submission"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// sentMessage captures one outbound text message.
type sentMessage struct {
	ChatID int64
	Text   string
	Opts   *telebot.SendOptions
}

type sentDocument struct {
	ChatID   int64
	Filename string
	Size     int
}

type editedMessage struct {
	ChatID    int64
	MessageID int
	Text      string
}

// fakeTelegramClient records outbound traffic and can simulate blocked or
// flaky recipients.
type fakeTelegramClient struct {
	mu        sync.Mutex
	Messages  []sentMessage
	Documents []sentDocument
	Edits     []editedMessage

	BlockedIDs map[int64]bool
	FailIDs    map[int64]bool

	DownloadData map[string][]byte
	DownloadName string
}

func newFakeTelegramClient() *fakeTelegramClient {
	return &fakeTelegramClient{
		BlockedIDs:   map[int64]bool{},
		FailIDs:      map[int64]bool{},
		DownloadData: map[string][]byte{},
		DownloadName: "photo.jpg",
	}
}

func (c *fakeTelegramClient) SendMessage(chatID int64, text string, opts *telebot.SendOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.BlockedIDs[chatID] {
		return telebot.ErrBlockedByUser
	}
	if c.FailIDs[chatID] {
		return fmt.Errorf("send failed")
	}
	c.Messages = append(c.Messages, sentMessage{ChatID: chatID, Text: text, Opts: opts})
	return nil
}

func (c *fakeTelegramClient) SendDocument(chatID int64, data []byte, filename string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.BlockedIDs[chatID] {
		return telebot.ErrBlockedByUser
	}
	c.Documents = append(c.Documents, sentDocument{ChatID: chatID, Filename: filename, Size: len(data)})
	return nil
}

func (c *fakeTelegramClient) EditMessage(chatID int64, messageID int, text string, opts *telebot.SendOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Edits = append(c.Edits, editedMessage{ChatID: chatID, MessageID: messageID, Text: text})
	return nil
}

func (c *fakeTelegramClient) Download(fileID string) ([]byte, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.DownloadData[fileID]
	if !ok {
		return nil, "", fmt.Errorf("unknown file %q", fileID)
	}
	return data, c.DownloadName, nil
}

// messagesTo returns the texts sent to one chat, in order.
func (c *fakeTelegramClient) messagesTo(chatID int64) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, m := range c.Messages {
		if m.ChatID == chatID {
			out = append(out, m.Text)
		}
	}
	return out
}

// fakeStudentRepository keeps students in a map keyed by telegram id.
type fakeStudentRepository struct {
	mu       sync.Mutex
	Students map[int64]*student.Student
	MissedOn map[string][]int64
	Deleted  []int64

	UpsertErr error
}

func newFakeStudentRepository() *fakeStudentRepository {
	return &fakeStudentRepository{
		Students: map[int64]*student.Student{},
		MissedOn: map[string][]int64{},
	}
}

func (r *fakeStudentRepository) Upsert(ctx context.Context, s *student.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.UpsertErr != nil {
		return r.UpsertErr
	}
	copied := *s
	r.Students[s.TelegramID] = &copied
	return nil
}

func (r *fakeStudentRepository) GetByTelegramID(ctx context.Context, id int64) (*student.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.Students[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, fmt.Errorf("student %d: not found", id)
}

func (r *fakeStudentRepository) GetByUsername(ctx context.Context, username string) (*student.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.Students {
		if s.Username.Valid && s.Username.String == username {
			copied := *s
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("student @%s: not found", username)
}

func (r *fakeStudentRepository) ListAll(ctx context.Context) ([]*student.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*student.Student
	for _, s := range r.Students {
		copied := *s
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeStudentRepository) ListIDs(ctx context.Context) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []int64
	for id := range r.Students {
		out = append(out, id)
	}
	return out, nil
}

func (r *fakeStudentRepository) ListIDsWithoutSubmission(ctx context.Context, date string) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.MissedOn[date]...), nil
}

func (r *fakeStudentRepository) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.Students[id]; !ok {
		return fmt.Errorf("student %d: not found", id)
	}
	delete(r.Students, id)
	r.Deleted = append(r.Deleted, id)
	return nil
}

// fakeSubmissionRepository appends to a slice and computes counts on the fly.
type fakeSubmissionRepository struct {
	mu     sync.Mutex
	Subs   []*submission.Submission
	nextID int64

	CreateErr  error
	ResetCalls int
}

func newFakeSubmissionRepository() *fakeSubmissionRepository {
	return &fakeSubmissionRepository{}
}

func (r *fakeSubmissionRepository) Create(ctx context.Context, s *submission.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateErr != nil {
		return r.CreateErr
	}
	r.nextID++
	s.ID = r.nextID
	copied := *s
	r.Subs = append(r.Subs, &copied)
	return nil
}

func (r *fakeSubmissionRepository) CountByDate(ctx context.Context, date string, kind submission.Kind) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.Subs {
		if s.Date == date && s.Kind == kind {
			n++
		}
	}
	return n, nil
}

func (r *fakeSubmissionRepository) CountByStudentAndDate(ctx context.Context, studentID int64, date string, kind submission.Kind) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.Subs {
		if s.StudentID == studentID && s.Date == date && s.Kind == kind {
			n++
		}
	}
	return n, nil
}

func (r *fakeSubmissionRepository) ListByDate(ctx context.Context, date string) ([]*submission.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*submission.Submission
	for _, s := range r.Subs {
		if s.Date == date {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeSubmissionRepository) ListByStudent(ctx context.Context, studentID int64) ([]*submission.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*submission.Submission
	for _, s := range r.Subs {
		if s.StudentID == studentID {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeSubmissionRepository) ListAll(ctx context.Context) ([]*submission.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*submission.Submission
	for _, s := range r.Subs {
		copied := *s
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeSubmissionRepository) LastTopicOfDay(ctx context.Context, studentID int64, date string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	topic := ""
	for _, s := range r.Subs {
		if s.StudentID == studentID && s.Date == date {
			topic = s.TopicTitle
		}
	}
	return topic, nil
}

func (r *fakeSubmissionRepository) ResetAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Subs = nil
	r.ResetCalls++
	return nil
}

type missKey struct {
	StudentID int64
	Date      string
}

// fakeMissReasonRepository mirrors the conflict-free semantics of the real
// table: InsertIfAbsent is idempotent, CloseOpen fills every empty reason.
type fakeMissReasonRepository struct {
	mu      sync.Mutex
	Reasons map[missKey]string
}

func newFakeMissReasonRepository() *fakeMissReasonRepository {
	return &fakeMissReasonRepository{Reasons: map[missKey]string{}}
}

func (r *fakeMissReasonRepository) InsertIfAbsent(ctx context.Context, studentID int64, date string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := missKey{studentID, date}
	if _, ok := r.Reasons[k]; !ok {
		r.Reasons[k] = ""
	}
	return nil
}

func (r *fakeMissReasonRepository) HasOpen(ctx context.Context, studentID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, reason := range r.Reasons {
		if k.StudentID == studentID && reason == "" {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeMissReasonRepository) CloseOpen(ctx context.Context, studentID int64, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, stored := range r.Reasons {
		if k.StudentID == studentID && stored == "" {
			r.Reasons[k] = reason
		}
	}
	return nil
}

func (r *fakeMissReasonRepository) GetReason(ctx context.Context, studentID int64, date string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Reasons[missKey{studentID, date}], nil
}

func (r *fakeMissReasonRepository) ListAll(ctx context.Context) ([]*submission.MissReason, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*submission.MissReason
	for k, reason := range r.Reasons {
		out = append(out, &submission.MissReason{StudentID: k.StudentID, Date: k.Date, Reason: reason})
	}
	return out, nil
}
