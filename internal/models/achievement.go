package models

import "time"

// Achievement defines a badge that can be awarded to students.
type Achievement struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Icon        string    `db:"icon" json:"icon"`
	Category    string    `db:"category" json:"category"`
	XPReward    int       `db:"xp_reward" json:"xpReward"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// StudentAchievement records that a student earned an achievement.
type StudentAchievement struct {
	StudentID     string    `db:"student_id" json:"studentId"`
	AchievementID string    `db:"achievement_id" json:"achievementId"`
	AwardedAt     time.Time `db:"awarded_at" json:"awardedAt"`
}
