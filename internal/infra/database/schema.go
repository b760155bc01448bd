package database

import (
	"database/sql"
	"fmt"
)

// EnsureSchema creates the tables and indexes the bot needs if they do not
// exist yet. Foreign keys cascade on delete, which is what makes a single
// student DELETE remove their submissions and miss reasons atomically.
func EnsureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS students (
			telegram_id BIGINT PRIMARY KEY,
			username TEXT,
			first_name TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS submissions (
			id BIGSERIAL PRIMARY KEY,
			student_id BIGINT NOT NULL REFERENCES students(telegram_id) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			section TEXT NOT NULL,
			topic_id TEXT NOT NULL,
			topic_title TEXT NOT NULL,
			content_type TEXT NOT NULL,
			content_summary TEXT NOT NULL DEFAULT '',
			file_refs TEXT NOT NULL DEFAULT '',
			message_id INTEGER NOT NULL DEFAULT 0,
			date TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_date ON submissions (date)`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_student_date ON submissions (student_id, date)`,
		`CREATE TABLE IF NOT EXISTS miss_reasons (
			student_id BIGINT NOT NULL REFERENCES students(telegram_id) ON DELETE CASCADE,
			date TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (student_id, date)
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("error ensuring schema: %w", err)
		}
	}
	return nil
}
