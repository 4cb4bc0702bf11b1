package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/pkg/database"
)

const assignmentSelect = `SELECT a.id, a.title, a.description, a.due_date, a.closed, a.total_groups, a.xp_reward, a.difficulty, a.created_at, a.updated_at,
        (SELECT COUNT(*) FROM submissions s WHERE s.assignment_id = a.id) AS submission_count
        FROM assignments a`

// AssignmentRepository persists assignments. Submission counts are read live.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs an AssignmentRepository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// List returns every assignment ordered by due date.
func (r *AssignmentRepository) List(ctx context.Context) ([]models.AssignmentDetail, error) {
	var assignments []models.AssignmentDetail
	if err := r.db.SelectContext(ctx, &assignments, assignmentSelect+" ORDER BY a.due_date ASC, a.id ASC"); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// FindByID fetches one assignment. sql.ErrNoRows is returned untouched.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.AssignmentDetail, error) {
	var assignment models.AssignmentDetail
	if err := r.db.GetContext(ctx, &assignment, r.db.Rebind(assignmentSelect+" WHERE a.id = ?"), id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// Create inserts an assignment and refreshes every group's completeness.
func (r *AssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	assignment.CreatedAt = now
	assignment.UpdatedAt = now
	assignment.DueDate = assignment.DueDate.UTC()

	const query = `INSERT INTO assignments (id, title, description, due_date, closed, total_groups, xp_reward, difficulty, created_at, updated_at)
        VALUES (:id, :title, :description, :due_date, :closed, :total_groups, :xp_reward, :difficulty, :created_at, :updated_at)`
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, query, assignment); err != nil {
			return storeError("create assignment", err)
		}
		return refreshAllStandings(ctx, tx)
	})
}

// Update persists every editable assignment field.
func (r *AssignmentRepository) Update(ctx context.Context, assignment *models.Assignment) error {
	assignment.UpdatedAt = time.Now().UTC()
	assignment.DueDate = assignment.DueDate.UTC()

	const query = `UPDATE assignments SET title = :title, description = :description, due_date = :due_date, closed = :closed,
        total_groups = :total_groups, xp_reward = :xp_reward, difficulty = :difficulty, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, assignment)
	if err != nil {
		return storeError("update assignment", err)
	}
	return requireAffected(res, "update assignment")
}

// Delete removes an assignment together with its submissions and uploads.
func (r *AssignmentRepository) Delete(ctx context.Context, id string) ([]string, error) {
	var files []string
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var err error
		if files, err = cascadedFiles(ctx, tx, `s.assignment_id = ?`, id); err != nil {
			return err
		}
		res, err := exec(ctx, tx, `DELETE FROM assignments WHERE id = ?`, id)
		if err != nil {
			return storeError("delete assignment", err)
		}
		if err := requireAffected(res, "delete assignment"); err != nil {
			return err
		}
		return refreshAllStandings(ctx, tx)
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
