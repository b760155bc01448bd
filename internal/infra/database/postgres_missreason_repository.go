package database

import (
	"context"
	"database/sql"
	"fmt"

	"homework_intake_bot/internal/domain/submission"
)

type PostgresMissReasonRepository struct {
	db *sql.DB
}

func NewPostgresMissReasonRepository(db *sql.DB) *PostgresMissReasonRepository {
	return &PostgresMissReasonRepository{db: db}
}

// InsertIfAbsent relies on the (student_id, date) primary key: a conflicting
// insert is a no-op, which is what makes the nightly sweep idempotent.
func (r *PostgresMissReasonRepository) InsertIfAbsent(ctx context.Context, studentID int64, date string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO miss_reasons (student_id, date, reason) VALUES ($1, $2, '')
               ON CONFLICT (student_id, date) DO NOTHING`,
		studentID, date,
	)
	if err != nil {
		return fmt.Errorf("error inserting miss reason: %w", err)
	}
	return nil
}

func (r *PostgresMissReasonRepository) HasOpen(ctx context.Context, studentID int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM miss_reasons WHERE student_id = $1 AND reason = '' LIMIT 1`,
		studentID,
	).Scan(&one)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("error checking open miss reason: %w", err)
	}
	return true, nil
}

// CloseOpen is conditional on reason = '' so a second message from the student
// never overwrites an already recorded reason.
func (r *PostgresMissReasonRepository) CloseOpen(ctx context.Context, studentID int64, reason string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE miss_reasons SET reason = $1 WHERE student_id = $2 AND reason = ''`,
		reason, studentID,
	)
	if err != nil {
		return fmt.Errorf("error closing miss reason: %w", err)
	}
	return nil
}

func (r *PostgresMissReasonRepository) GetReason(ctx context.Context, studentID int64, date string) (string, error) {
	var reason string
	err := r.db.QueryRowContext(ctx,
		`SELECT reason FROM miss_reasons WHERE student_id = $1 AND date = $2`,
		studentID, date,
	).Scan(&reason)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("error getting miss reason: %w", err)
	}
	return reason, nil
}

func (r *PostgresMissReasonRepository) ListAll(ctx context.Context) ([]*submission.MissReason, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT student_id, date, reason FROM miss_reasons ORDER BY date, student_id`)
	if err != nil {
		return nil, fmt.Errorf("error listing miss reasons: %w", err)
	}
	defer rows.Close()

	reasons := make([]*submission.MissReason, 0)
	for rows.Next() {
		m := &submission.MissReason{}
		if err := rows.Scan(&m.StudentID, &m.Date, &m.Reason); err != nil {
			return nil, fmt.Errorf("error scanning miss reason: %w", err)
		}
		reasons = append(reasons, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating miss reasons: %w", err)
	}
	return reasons, nil
}
