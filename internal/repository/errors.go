package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/classquest-api/pkg/database"
)

var (
	// ErrForeignKey signals a reference to a record that does not exist.
	ErrForeignKey = errors.New("referenced record does not exist")
	// ErrDuplicate signals a primary key or unique constraint clash.
	ErrDuplicate = errors.New("record already exists")
	// ErrInUse signals a delete blocked by records that still point at the row.
	ErrInUse = errors.New("record is still referenced")
)

// storeError wraps err with op and tags constraint failures with a sentinel.
func storeError(op string, err error) error {
	switch {
	case database.IsForeignKeyViolation(err):
		return fmt.Errorf("%s: %w: %w", op, ErrForeignKey, err)
	case database.IsUniqueViolation(err):
		return fmt.Errorf("%s: %w: %w", op, ErrDuplicate, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// requireAffected turns a zero-row write into sql.ErrNoRows.
func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// execer is satisfied by both *sqlx.DB and *sqlx.Tx.
type execer interface {
	sqlx.ExtContext
}

func exec(ctx context.Context, q execer, query string, args ...interface{}) (sql.Result, error) {
	return q.ExecContext(ctx, q.Rebind(query), args...)
}
