package models

import "time"

// DailyScoreDays is the width of the rolling daily score window.
const DailyScoreDays = 8

// Group is a team of students working on assignments together.
type Group struct {
	ID              string     `db:"id" json:"id"`
	Name            string     `db:"name" json:"name"`
	Color           string     `db:"color" json:"color"`
	Emoji           string     `db:"emoji" json:"emoji"`
	NormalizedScore float64    `db:"normalized_score" json:"normalizedScore"`
	Completeness    float64    `db:"completeness" json:"completeness"`
	Quality         float64    `db:"quality" json:"quality"`
	XP              int        `db:"xp" json:"xp"`
	Streak          int        `db:"streak" json:"streak"`
	Badges          StringList `db:"badges" json:"badges"`
	DailyScores     FloatList  `db:"daily_scores" json:"dailyScores"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updatedAt"`
}

// GroupDetail carries the member set and derived level metrics.
type GroupDetail struct {
	Group
	Members       []string `db:"-" json:"members"`
	Level         int      `db:"-" json:"level"`
	XPToNextLevel int      `db:"-" json:"xpToNextLevel"`
}

// EmptyDailyScores returns the initial all-zero score window.
func EmptyDailyScores() FloatList {
	return make(FloatList, DailyScoreDays)
}
