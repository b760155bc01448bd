package submission

import (
	"context"
)

// Repository defines persistence operations for Submission rows.
type Repository interface {
	Create(ctx context.Context, s *Submission) error
	CountByDate(ctx context.Context, date string, kind Kind) (int64, error)
	CountByStudentAndDate(ctx context.Context, studentID int64, date string, kind Kind) (int64, error)
	ListByDate(ctx context.Context, date string) ([]*Submission, error)
	ListByStudent(ctx context.Context, studentID int64) ([]*Submission, error)
	// ListAll returns the full history, newest date first.
	ListAll(ctx context.Context) ([]*Submission, error)
	// LastTopicOfDay returns the topic title of the student's most recent
	// submission on the date, or "" when there is none.
	LastTopicOfDay(ctx context.Context, studentID int64, date string) (string, error)
	// ResetAll wipes submissions, miss reasons and students in one transaction.
	ResetAll(ctx context.Context) error
}

// MissReasonRepository defines the atomic per-row operations the sweep and the
// dialogue path rely on. InsertIfAbsent and CloseOpen are the conflict-avoidance
// primitives: no external locking is layered on top of them.
type MissReasonRepository interface {
	// InsertIfAbsent creates an empty-reason record for (student, date) unless
	// one already exists. Idempotent.
	InsertIfAbsent(ctx context.Context, studentID int64, date string) error
	// HasOpen reports whether the student has any record with an empty reason.
	HasOpen(ctx context.Context, studentID int64) (bool, error)
	// CloseOpen fills every open record of the student with the reason.
	CloseOpen(ctx context.Context, studentID int64, reason string) error
	// GetReason returns the stored reason for (student, date), "" when absent.
	GetReason(ctx context.Context, studentID int64, date string) (string, error)
	ListAll(ctx context.Context) ([]*MissReason, error)
}
