package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/pkg/config"
	"github.com/noah-isme/classquest-api/pkg/database"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

// newStore opens a migrated in-memory SQLite database.
func newStore(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

func strPtr(s string) *string { return &s }

func seedGroup(t *testing.T, db *sqlx.DB, name string, members ...string) *models.Group {
	t.Helper()
	group := &models.Group{Name: name, Color: "blue", Emoji: "🚀"}
	require.NoError(t, NewGroupRepository(db).Create(context.Background(), group, members))
	return group
}

func seedStudent(t *testing.T, db *sqlx.DB, name string, groupID *string) *models.Student {
	t.Helper()
	student := &models.Student{Name: name, GroupID: groupID}
	require.NoError(t, NewStudentRepository(db).Create(context.Background(), student))
	return student
}
