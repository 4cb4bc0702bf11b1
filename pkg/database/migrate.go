package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is portable between SQLite and PostgreSQL. JSON encoded list and map
// columns are plain TEXT.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS student_groups (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    color TEXT NOT NULL DEFAULT '',
    emoji TEXT NOT NULL DEFAULT '',
    normalized_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    completeness DOUBLE PRECISION NOT NULL DEFAULT 0,
    quality DOUBLE PRECISION NOT NULL DEFAULT 0,
    xp INTEGER NOT NULL DEFAULT 0,
    streak INTEGER NOT NULL DEFAULT 0,
    badges TEXT NOT NULL DEFAULT '[]',
    daily_scores TEXT NOT NULL DEFAULT '[0,0,0,0,0,0,0,0]',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS students (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    group_id TEXT REFERENCES student_groups(id),
    avatar TEXT NOT NULL DEFAULT '',
    xp INTEGER NOT NULL DEFAULT 0,
    streak INTEGER NOT NULL DEFAULT 0,
    professionality_scores TEXT NOT NULL DEFAULT '{}',
    average_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    achievements TEXT NOT NULL DEFAULT '[]',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_students_group_id ON students (group_id)`,
	`CREATE TABLE IF NOT EXISTS group_members (
    group_id TEXT NOT NULL REFERENCES student_groups(id) ON DELETE CASCADE,
    student_id TEXT NOT NULL UNIQUE REFERENCES students(id) ON DELETE CASCADE,
    PRIMARY KEY (group_id, student_id)
)`,
	`CREATE TABLE IF NOT EXISTS assignments (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    due_date TIMESTAMP NOT NULL,
    closed BOOLEAN NOT NULL DEFAULT FALSE,
    total_groups INTEGER NOT NULL DEFAULT 0,
    xp_reward INTEGER NOT NULL DEFAULT 100,
    difficulty TEXT NOT NULL DEFAULT 'Medium',
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS submissions (
    id TEXT PRIMARY KEY,
    assignment_id TEXT NOT NULL REFERENCES assignments(id) ON DELETE CASCADE,
    group_id TEXT NOT NULL REFERENCES student_groups(id) ON DELETE CASCADE,
    submitted_at TIMESTAMP NOT NULL,
    scores TEXT NOT NULL DEFAULT '{}',
    feedback TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMP NOT NULL,
    UNIQUE (assignment_id, group_id)
)`,
	`CREATE TABLE IF NOT EXISTS uploads (
    id TEXT PRIMARY KEY,
    submission_id TEXT NOT NULL REFERENCES submissions(id) ON DELETE CASCADE,
    file_name TEXT NOT NULL,
    file_path TEXT NOT NULL,
    file_size BIGINT NOT NULL DEFAULT 0,
    mime_type TEXT NOT NULL DEFAULT '',
    uploaded_by TEXT NOT NULL DEFAULT '',
    uploaded_at TIMESTAMP NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_uploads_submission_id ON uploads (submission_id)`,
	`CREATE TABLE IF NOT EXISTS achievements (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT '',
    icon TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    xp_reward INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS student_achievements (
    student_id TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    achievement_id TEXT NOT NULL REFERENCES achievements(id) ON DELETE CASCADE,
    awarded_at TIMESTAMP NOT NULL,
    PRIMARY KEY (student_id, achievement_id)
)`,
}

// Migrate creates missing tables and indexes. It is safe to run on every boot.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
