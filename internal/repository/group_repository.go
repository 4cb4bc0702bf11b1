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

const groupSelect = `SELECT id, name, color, emoji, normalized_score, completeness, quality, xp, streak, badges, daily_scores, created_at, updated_at FROM student_groups`

type memberRow struct {
	GroupID   string `db:"group_id"`
	StudentID string `db:"student_id"`
}

// GroupRepository persists groups and the member links that mirror students.group_id.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository constructs a GroupRepository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

// List returns all groups with their member IDs.
func (r *GroupRepository) List(ctx context.Context) ([]models.GroupDetail, error) {
	var groups []models.GroupDetail
	if err := r.db.SelectContext(ctx, &groups, groupSelect+" ORDER BY created_at ASC, id ASC"); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}

	var links []memberRow
	const membersQuery = `SELECT gm.group_id, gm.student_id FROM group_members gm JOIN students s ON s.id = gm.student_id ORDER BY s.name ASC, s.id ASC`
	if err := r.db.SelectContext(ctx, &links, membersQuery); err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}

	byGroup := make(map[string][]string, len(groups))
	for _, link := range links {
		byGroup[link.GroupID] = append(byGroup[link.GroupID], link.StudentID)
	}
	for i := range groups {
		groups[i].Members = byGroup[groups[i].ID]
		if groups[i].Members == nil {
			groups[i].Members = []string{}
		}
	}
	return groups, nil
}

// FindByID fetches a group with its members. sql.ErrNoRows is returned untouched.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.GroupDetail, error) {
	var group models.GroupDetail
	if err := r.db.GetContext(ctx, &group, r.db.Rebind(groupSelect+" WHERE id = ?"), id); err != nil {
		return nil, err
	}
	members, err := r.MemberIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	group.Members = members
	return &group, nil
}

// FindByName looks a group up by case-insensitive name.
func (r *GroupRepository) FindByName(ctx context.Context, name string) (*models.Group, error) {
	var group models.Group
	query := r.db.Rebind(groupSelect + " WHERE LOWER(name) = ? ORDER BY created_at ASC LIMIT 1")
	if err := r.db.GetContext(ctx, &group, query, strings.ToLower(strings.TrimSpace(name))); err != nil {
		return nil, err
	}
	return &group, nil
}

// Count returns the number of groups.
func (r *GroupRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM student_groups`); err != nil {
		return 0, fmt.Errorf("count groups: %w", err)
	}
	return count, nil
}

// MemberIDs lists the students linked to a group.
func (r *GroupRepository) MemberIDs(ctx context.Context, groupID string) ([]string, error) {
	return memberIDs(ctx, r.db, groupID)
}

func memberIDs(ctx context.Context, q execer, groupID string) ([]string, error) {
	ids := []string{}
	const query = `SELECT gm.student_id FROM group_members gm JOIN students s ON s.id = gm.student_id WHERE gm.group_id = ? ORDER BY s.name ASC, s.id ASC`
	if err := sqlx.SelectContext(ctx, q, &ids, q.Rebind(query), groupID); err != nil {
		return nil, fmt.Errorf("list group members: %w", err)
	}
	return ids, nil
}

// Create inserts a group and attaches the given students to it.
func (r *GroupRepository) Create(ctx context.Context, group *models.Group, members []string) error {
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	group.CreatedAt = now
	group.UpdatedAt = now
	if group.Badges == nil {
		group.Badges = models.StringList{}
	}
	if len(group.DailyScores) != models.DailyScoreDays {
		group.DailyScores = models.EmptyDailyScores()
	}

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const query = `INSERT INTO student_groups (id, name, color, emoji, normalized_score, completeness, quality, xp, streak, badges, daily_scores, created_at, updated_at)
        VALUES (:id, :name, :color, :emoji, :normalized_score, :completeness, :quality, :xp, :streak, :badges, :daily_scores, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, group); err != nil {
			return storeError("create group", err)
		}
		return attachMembers(ctx, tx, group.ID, members)
	})
}

// Update persists group fields. A non-nil members slice replaces the member set.
func (r *GroupRepository) Update(ctx context.Context, group *models.Group, members []string) error {
	group.UpdatedAt = time.Now().UTC()

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const query = `UPDATE student_groups SET name = :name, color = :color, emoji = :emoji, normalized_score = :normalized_score,
        completeness = :completeness, quality = :quality, xp = :xp, streak = :streak, badges = :badges, updated_at = :updated_at WHERE id = :id`
		res, err := tx.NamedExecContext(ctx, query, group)
		if err != nil {
			return storeError("update group", err)
		}
		if err := requireAffected(res, "update group"); err != nil {
			return err
		}
		if members == nil {
			return nil
		}

		if _, err := exec(ctx, tx, `UPDATE students SET group_id = NULL, updated_at = ? WHERE group_id = ?`, group.UpdatedAt, group.ID); err != nil {
			return storeError("release group members", err)
		}
		if _, err := exec(ctx, tx, `DELETE FROM group_members WHERE group_id = ?`, group.ID); err != nil {
			return storeError("release group members", err)
		}
		return attachMembers(ctx, tx, group.ID, members)
	})
}

// Delete removes a group. Groups that still have students are kept and
// ErrInUse is returned.
func (r *GroupRepository) Delete(ctx context.Context, id string) ([]string, error) {
	var files []string
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var members int
		if err := tx.GetContext(ctx, &members, tx.Rebind(`SELECT COUNT(*) FROM students WHERE group_id = ?`), id); err != nil {
			return fmt.Errorf("count group students: %w", err)
		}
		if members > 0 {
			return fmt.Errorf("delete group: %w", ErrInUse)
		}

		var err error
		if files, err = cascadedFiles(ctx, tx, `s.group_id = ?`, id); err != nil {
			return err
		}
		res, err := exec(ctx, tx, `DELETE FROM student_groups WHERE id = ?`, id)
		if err != nil {
			return storeError("delete group", err)
		}
		return requireAffected(res, "delete group")
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// UpdateDailyScores stores a new score window and streak.
func (r *GroupRepository) UpdateDailyScores(ctx context.Context, id string, scores models.FloatList, streak int) error {
	res, err := exec(ctx, r.db, `UPDATE student_groups SET daily_scores = ?, streak = ?, updated_at = ? WHERE id = ?`, scores, streak, time.Now().UTC(), id)
	if err != nil {
		return storeError("update daily scores", err)
	}
	return requireAffected(res, "update daily scores")
}

// attachMembers moves each student into groupID, keeping students.group_id
// and group_members in step.
func attachMembers(ctx context.Context, tx *sqlx.Tx, groupID string, members []string) error {
	now := time.Now().UTC()
	for _, studentID := range members {
		res, err := exec(ctx, tx, `UPDATE students SET group_id = ?, updated_at = ? WHERE id = ?`, groupID, now, studentID)
		if err != nil {
			return storeError("attach group member", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("attach group member %s: %w", studentID, ErrForeignKey)
		}
		if err := linkMember(ctx, tx, groupID, studentID); err != nil {
			return err
		}
	}
	return nil
}
