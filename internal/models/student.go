package models

import "time"

// Student is a learner taking part in group work.
type Student struct {
	ID                    string     `db:"id" json:"id"`
	Name                  string     `db:"name" json:"name"`
	GroupID               *string    `db:"group_id" json:"groupId"`
	Avatar                string     `db:"avatar" json:"avatar"`
	XP                    int        `db:"xp" json:"xp"`
	Streak                int        `db:"streak" json:"streak"`
	ProfessionalityScores ScoreMap   `db:"professionality_scores" json:"professionalityScores"`
	AverageScore          float64    `db:"average_score" json:"averageScore"`
	Achievements          StringList `db:"achievements" json:"achievements"`
	CreatedAt             time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt             time.Time  `db:"updated_at" json:"updatedAt"`
}

// StudentDetail enriches a student with its group name and level metrics.
// Level fields are computed from XP when the record is read.
type StudentDetail struct {
	Student
	GroupName     *string `db:"group_name" json:"groupName,omitempty"`
	Level         int     `db:"-" json:"level"`
	XPToNextLevel int     `db:"-" json:"xpToNextLevel"`
	LevelProgress float64 `db:"-" json:"levelProgress"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search   string
	GroupID  string
	Page     int
	PageSize int
}
