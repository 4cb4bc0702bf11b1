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

const achievementSelect = `SELECT id, name, description, icon, category, xp_reward, created_at FROM achievements`

// AchievementRepository persists badge definitions and awards.
type AchievementRepository struct {
	db *sqlx.DB
}

// NewAchievementRepository constructs an AchievementRepository.
func NewAchievementRepository(db *sqlx.DB) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// List returns all achievement definitions.
func (r *AchievementRepository) List(ctx context.Context) ([]models.Achievement, error) {
	var achievements []models.Achievement
	if err := r.db.SelectContext(ctx, &achievements, achievementSelect+" ORDER BY name ASC"); err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	return achievements, nil
}

// FindByID fetches one achievement. sql.ErrNoRows is returned untouched.
func (r *AchievementRepository) FindByID(ctx context.Context, id string) (*models.Achievement, error) {
	var achievement models.Achievement
	if err := r.db.GetContext(ctx, &achievement, r.db.Rebind(achievementSelect+" WHERE id = ?"), id); err != nil {
		return nil, err
	}
	return &achievement, nil
}

// ListForStudent returns the awards a student holds, oldest first.
func (r *AchievementRepository) ListForStudent(ctx context.Context, studentID string) ([]models.StudentAchievement, error) {
	var awards []models.StudentAchievement
	const query = `SELECT student_id, achievement_id, awarded_at FROM student_achievements WHERE student_id = ? ORDER BY awarded_at ASC`
	if err := r.db.SelectContext(ctx, &awards, r.db.Rebind(query), studentID); err != nil {
		return nil, fmt.Errorf("list student achievements: %w", err)
	}
	return awards, nil
}

// Create inserts an achievement definition. Names are unique.
func (r *AchievementRepository) Create(ctx context.Context, achievement *models.Achievement) error {
	if achievement.ID == "" {
		achievement.ID = uuid.NewString()
	}
	achievement.CreatedAt = time.Now().UTC()

	const query = `INSERT INTO achievements (id, name, description, icon, category, xp_reward, created_at)
        VALUES (:id, :name, :description, :icon, :category, :xp_reward, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, achievement); err != nil {
		return storeError("create achievement", err)
	}
	return nil
}

// Delete removes an achievement definition and its award links. Badges
// already copied onto students stay.
func (r *AchievementRepository) Delete(ctx context.Context, id string) error {
	res, err := exec(ctx, r.db, `DELETE FROM achievements WHERE id = ?`, id)
	if err != nil {
		return storeError("delete achievement", err)
	}
	return requireAffected(res, "delete achievement")
}

// Award grants an achievement to a student: the link is recorded, the badge
// icon appended and the XP reward credited. Awarding twice is a no-op and
// reports false.
func (r *AchievementRepository) Award(ctx context.Context, studentID, achievementID string) (bool, error) {
	awarded := false
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var achievement models.Achievement
		if err := tx.GetContext(ctx, &achievement, tx.Rebind(achievementSelect+" WHERE id = ?"), achievementID); err != nil {
			return err
		}

		now := time.Now().UTC()
		res, err := exec(ctx, tx, `INSERT INTO student_achievements (student_id, achievement_id, awarded_at) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
			studentID, achievementID, now)
		if err != nil {
			return storeError("award achievement", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return fmt.Errorf("award achievement: %w", err)
		} else if n == 0 {
			return nil
		}

		var badges models.StringList
		if err := tx.GetContext(ctx, &badges, tx.Rebind(`SELECT achievements FROM students WHERE id = ?`), studentID); err != nil {
			return fmt.Errorf("load student badges: %w", err)
		}
		if achievement.Icon != "" {
			badges = append(badges, achievement.Icon)
		}
		if _, err := exec(ctx, tx, `UPDATE students SET achievements = ?, xp = xp + ?, updated_at = ? WHERE id = ?`,
			badges, achievement.XPReward, now, studentID); err != nil {
			return storeError("update student badges", err)
		}
		awarded = true
		return nil
	})
	return awarded, err
}
