package student

import (
	"context"
)

// Repository defines the operations for persisting and retrieving Student entities.
type Repository interface {
	// Upsert inserts the student or refreshes username/first name on conflict.
	Upsert(ctx context.Context, s *Student) error
	GetByTelegramID(ctx context.Context, telegramID int64) (*Student, error)
	GetByUsername(ctx context.Context, username string) (*Student, error)
	ListAll(ctx context.Context) ([]*Student, error)
	ListIDs(ctx context.Context) ([]int64, error)
	// ListIDsWithoutSubmission returns the ids of students with zero submissions
	// on the given calendar date (YYYY-MM-DD).
	ListIDsWithoutSubmission(ctx context.Context, date string) ([]int64, error)
	// Delete removes the student; submissions and miss reasons cascade in the store.
	Delete(ctx context.Context, telegramID int64) error
}
