package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/pkg/database"
)

const submissionSelect = `SELECT s.id, s.assignment_id, s.group_id, s.submitted_at, s.scores, s.feedback, s.updated_at,
        a.title AS assignment_title, g.name AS group_name,
        (SELECT COUNT(*) FROM group_members gm WHERE gm.group_id = s.group_id) AS member_count
        FROM submissions s
        JOIN assignments a ON a.id = s.assignment_id
        JOIN student_groups g ON g.id = s.group_id`

// SubmissionRepository persists submissions and applies their side effects
// on group and student scores.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs a SubmissionRepository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// List returns submissions, newest first.
func (r *SubmissionRepository) List(ctx context.Context, filter models.SubmissionFilter) ([]models.SubmissionDetail, error) {
	var conditions []string
	var args []interface{}
	if filter.AssignmentID != "" {
		conditions = append(conditions, "s.assignment_id = ?")
		args = append(args, filter.AssignmentID)
	}
	if filter.GroupID != "" {
		conditions = append(conditions, "s.group_id = ?")
		args = append(args, filter.GroupID)
	}

	query := submissionSelect
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY s.submitted_at DESC, s.id ASC"

	var submissions []models.SubmissionDetail
	if err := r.db.SelectContext(ctx, &submissions, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return submissions, nil
}

// FindByID fetches a submission. sql.ErrNoRows is returned untouched.
func (r *SubmissionRepository) FindByID(ctx context.Context, id string) (*models.SubmissionDetail, error) {
	var submission models.SubmissionDetail
	if err := r.db.GetContext(ctx, &submission, r.db.Rebind(submissionSelect+" WHERE s.id = ?"), id); err != nil {
		return nil, err
	}
	return &submission, nil
}

// Create records a submission and awards the assignment's XP to the group and
// each of its members. A second submission for the same assignment and group
// fails with ErrDuplicate.
func (r *SubmissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = now
	}
	submission.SubmittedAt = submission.SubmittedAt.UTC()
	submission.UpdatedAt = now
	if submission.Scores == nil {
		submission.Scores = models.ScoreSheet{}
	}

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const query = `INSERT INTO submissions (id, assignment_id, group_id, submitted_at, scores, feedback, updated_at)
        VALUES (:id, :assignment_id, :group_id, :submitted_at, :scores, :feedback, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, submission); err != nil {
			return storeError("create submission", err)
		}

		var reward int
		if err := tx.GetContext(ctx, &reward, tx.Rebind(`SELECT xp_reward FROM assignments WHERE id = ?`), submission.AssignmentID); err != nil {
			return fmt.Errorf("load assignment reward: %w", err)
		}
		if reward > 0 {
			if _, err := exec(ctx, tx, `UPDATE student_groups SET xp = xp + ?, updated_at = ? WHERE id = ?`, reward, now, submission.GroupID); err != nil {
				return storeError("award group xp", err)
			}
			if _, err := exec(ctx, tx, `UPDATE students SET xp = xp + ?, updated_at = ? WHERE group_id = ?`, reward, now, submission.GroupID); err != nil {
				return storeError("award member xp", err)
			}
		}
		return refreshStanding(ctx, tx, submission.GroupID)
	})
}

// UpdateAssessment stores scores and feedback, then recomputes the members'
// professionality and the group's standing.
func (r *SubmissionRepository) UpdateAssessment(ctx context.Context, id string, scores models.ScoreSheet, feedback string) error {
	if scores == nil {
		scores = models.ScoreSheet{}
	}

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var groupID string
		if err := tx.GetContext(ctx, &groupID, tx.Rebind(`SELECT group_id FROM submissions WHERE id = ?`), id); err != nil {
			return err
		}
		if _, err := exec(ctx, tx, `UPDATE submissions SET scores = ?, feedback = ?, updated_at = ? WHERE id = ?`,
			scores, feedback, time.Now().UTC(), id); err != nil {
			return storeError("update submission", err)
		}
		if err := refreshProfessionality(ctx, tx, groupID); err != nil {
			return err
		}
		return refreshStanding(ctx, tx, groupID)
	})
}

// Delete removes a submission and its uploads. Awarded XP is kept. The
// stored paths of the removed uploads are returned so the files can follow.
func (r *SubmissionRepository) Delete(ctx context.Context, id string) ([]string, error) {
	var files []string
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var groupID string
		if err := tx.GetContext(ctx, &groupID, tx.Rebind(`SELECT group_id FROM submissions WHERE id = ?`), id); err != nil {
			return err
		}
		var err error
		if files, err = cascadedFiles(ctx, tx, `s.id = ?`, id); err != nil {
			return err
		}
		if _, err := exec(ctx, tx, `DELETE FROM submissions WHERE id = ?`, id); err != nil {
			return storeError("delete submission", err)
		}
		if err := refreshProfessionality(ctx, tx, groupID); err != nil {
			return err
		}
		return refreshStanding(ctx, tx, groupID)
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

