package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classquest-api/pkg/config"
)

func openMemory(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := Open(config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(context.Background(), db))
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openMemory(t)
	require.NoError(t, Migrate(context.Background(), db))

	var count int
	require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('students', 'student_groups', 'group_members', 'assignments', 'submissions', 'uploads', 'achievements', 'student_achievements')"))
	assert.Equal(t, 8, count)
}

func TestOpenFileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dashboard.db")
	db, err := NewSQLite(config.DatabaseConfig{Path: path})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Ping())
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestForeignKeyViolationIsDetected(t *testing.T) {
	db := openMemory(t)

	_, err := db.Exec(`INSERT INTO students (id, name, group_id, created_at, updated_at) VALUES ('s1', 'Emma', 'missing', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`)
	require.Error(t, err)
	assert.True(t, IsForeignKeyViolation(err))
	assert.False(t, IsUniqueViolation(err))
}

func TestUniqueViolationIsDetected(t *testing.T) {
	db := openMemory(t)

	const insert = `INSERT INTO achievements (id, name, created_at) VALUES (?, 'First Upload', CURRENT_TIMESTAMP)`
	_, err := db.Exec(insert, "a1")
	require.NoError(t, err)
	_, err = db.Exec(insert, "a2")
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := openMemory(t)
	boom := errors.New("boom")

	err := WithTx(context.Background(), db, func(tx *sqlx.Tx) error {
		if _, err := tx.Exec(`INSERT INTO achievements (id, name, created_at) VALUES ('a1', 'Streak', CURRENT_TIMESTAMP)`); err != nil {
			return err
		}
		return boom
	})
	assert.Same(t, boom, err)

	var count int
	require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM achievements"))
	assert.Zero(t, count)
}

func TestWithTxCommits(t *testing.T) {
	db := openMemory(t)

	err := WithTx(context.Background(), db, func(tx *sqlx.Tx) error {
		_, err := tx.Exec(`INSERT INTO achievements (id, name, created_at) VALUES ('a1', 'Streak', CURRENT_TIMESTAMP)`)
		return err
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM achievements"))
	assert.Equal(t, 1, count)
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	db := openMemory(t)

	assert.Panics(t, func() {
		_ = WithTx(context.Background(), db, func(tx *sqlx.Tx) error {
			_, _ = tx.Exec(`INSERT INTO achievements (id, name, created_at) VALUES ('a1', 'Streak', CURRENT_TIMESTAMP)`)
			panic("unexpected")
		})
	})

	var count int
	require.NoError(t, db.Get(&count, "SELECT COUNT(*) FROM achievements"))
	assert.Zero(t, count)
}
