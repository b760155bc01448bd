package database

import (
	"context"
	"database/sql"
	"fmt"

	"homework_intake_bot/internal/domain/student"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// Custom errors
var ErrStudentNotFound = fmt.Errorf("student not found")

type PostgresStudentRepository struct {
	db *sql.DB
}

func NewPostgresStudentRepository(db *sql.DB) *PostgresStudentRepository {
	return &PostgresStudentRepository{db: db}
}

func (r *PostgresStudentRepository) Upsert(ctx context.Context, s *student.Student) error {
	query := `INSERT INTO students (telegram_id, username, first_name)
               VALUES ($1, $2, $3)
               ON CONFLICT (telegram_id) DO UPDATE
               SET username = EXCLUDED.username, first_name = EXCLUDED.first_name, updated_at = NOW()
               RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, s.TelegramID, s.Username, s.FirstName).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error upserting student: %w", err)
	}
	return nil
}

func (r *PostgresStudentRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*student.Student, error) {
	query := `SELECT telegram_id, username, first_name, created_at, updated_at
               FROM students WHERE telegram_id = $1`
	s := &student.Student{}
	err := r.db.QueryRowContext(ctx, query, telegramID).Scan(&s.TelegramID, &s.Username, &s.FirstName, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("error getting student by Telegram ID: %w", err)
	}
	return s, nil
}

func (r *PostgresStudentRepository) GetByUsername(ctx context.Context, username string) (*student.Student, error) {
	query := `SELECT telegram_id, username, first_name, created_at, updated_at
               FROM students WHERE username = $1`
	s := &student.Student{}
	err := r.db.QueryRowContext(ctx, query, username).Scan(&s.TelegramID, &s.Username, &s.FirstName, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("error getting student by username: %w", err)
	}
	return s, nil
}

func (r *PostgresStudentRepository) ListAll(ctx context.Context) ([]*student.Student, error) {
	query := `SELECT telegram_id, username, first_name, created_at, updated_at
               FROM students ORDER BY telegram_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing students: %w", err)
	}
	defer rows.Close()

	students := make([]*student.Student, 0)
	for rows.Next() {
		s := &student.Student{}
		if err := rows.Scan(&s.TelegramID, &s.Username, &s.FirstName, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning student: %w", err)
		}
		students = append(students, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating students: %w", err)
	}
	return students, nil
}

func (r *PostgresStudentRepository) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT telegram_id FROM students ORDER BY telegram_id`)
	if err != nil {
		return nil, fmt.Errorf("error listing student ids: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (r *PostgresStudentRepository) ListIDsWithoutSubmission(ctx context.Context, date string) ([]int64, error) {
	query := `SELECT telegram_id FROM students
               WHERE telegram_id NOT IN (SELECT student_id FROM submissions WHERE date = $1)
               ORDER BY telegram_id`

	rows, err := r.db.QueryContext(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("error listing students without submission: %w", err)
	}
	defer rows.Close()
	return scanIDs(rows)
}

func (r *PostgresStudentRepository) Delete(ctx context.Context, telegramID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE telegram_id = $1`, telegramID)
	if err != nil {
		return fmt.Errorf("error deleting student: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrStudentNotFound
	}
	return nil
}

func scanIDs(rows *sql.Rows) ([]int64, error) {
	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning student id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating student ids: %w", err)
	}
	return ids, nil
}
