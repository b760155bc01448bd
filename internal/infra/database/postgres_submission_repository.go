package database

import (
	"context"
	"database/sql"
	"fmt"

	"homework_intake_bot/internal/domain/submission"
)

const submissionColumns = `id, student_id, kind, section, topic_id, topic_title,
               content_type, content_summary, file_refs, message_id, date, created_at`

type PostgresSubmissionRepository struct {
	db *sql.DB
}

func NewPostgresSubmissionRepository(db *sql.DB) *PostgresSubmissionRepository {
	return &PostgresSubmissionRepository{db: db}
}

func (r *PostgresSubmissionRepository) Create(ctx context.Context, s *submission.Submission) error {
	query := `INSERT INTO submissions (student_id, kind, section, topic_id, topic_title,
               content_type, content_summary, file_refs, message_id, date, created_at)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
               RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		s.StudentID, s.Kind, s.Section, s.TopicID, s.TopicTitle,
		s.Content, s.Summary, s.FileRefs, s.MessageID, s.Date, s.CreatedAt,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("error creating submission: %w", err)
	}
	return nil
}

func (r *PostgresSubmissionRepository) CountByDate(ctx context.Context, date string, kind submission.Kind) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM submissions WHERE date = $1 AND kind = $2`, date, kind,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting submissions by date: %w", err)
	}
	return count, nil
}

func (r *PostgresSubmissionRepository) CountByStudentAndDate(ctx context.Context, studentID int64, date string, kind submission.Kind) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM submissions WHERE student_id = $1 AND date = $2 AND kind = $3`,
		studentID, date, kind,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting submissions by student and date: %w", err)
	}
	return count, nil
}

func (r *PostgresSubmissionRepository) ListByDate(ctx context.Context, date string) ([]*submission.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE date = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("error listing submissions by date: %w", err)
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

func (r *PostgresSubmissionRepository) ListByStudent(ctx context.Context, studentID int64) ([]*submission.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions WHERE student_id = $1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("error listing submissions by student: %w", err)
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

func (r *PostgresSubmissionRepository) ListAll(ctx context.Context) ([]*submission.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM submissions ORDER BY date DESC, created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing all submissions: %w", err)
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

func (r *PostgresSubmissionRepository) LastTopicOfDay(ctx context.Context, studentID int64, date string) (string, error) {
	var title string
	err := r.db.QueryRowContext(ctx,
		`SELECT topic_title FROM submissions WHERE student_id = $1 AND date = $2
               ORDER BY created_at DESC LIMIT 1`,
		studentID, date,
	).Scan(&title)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("error getting last topic of day: %w", err)
	}
	return title, nil
}

// ResetAll wipes submissions, miss reasons and students in a single
// transaction. Used by the admin reset action only.
func (r *PostgresSubmissionRepository) ResetAll(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting reset transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{
		`DELETE FROM submissions`,
		`DELETE FROM miss_reasons`,
		`DELETE FROM students`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("error resetting database: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing reset: %w", err)
	}
	return nil
}

func scanSubmissions(rows *sql.Rows) ([]*submission.Submission, error) {
	subs := make([]*submission.Submission, 0)
	for rows.Next() {
		s := &submission.Submission{}
		if err := rows.Scan(
			&s.ID, &s.StudentID, &s.Kind, &s.Section, &s.TopicID, &s.TopicTitle,
			&s.Content, &s.Summary, &s.FileRefs, &s.MessageID, &s.Date, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning submission: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submissions: %w", err)
	}
	return subs, nil
}
