package models

import "time"

// AssignmentStatus is derived from the due date, submissions and the manual close flag.
type AssignmentStatus string

const (
	AssignmentStatusOpen          AssignmentStatus = "Open"
	AssignmentStatusAlmostClosing AssignmentStatus = "AlmostClosing"
	AssignmentStatusOverdue       AssignmentStatus = "Overdue"
	AssignmentStatusClosed        AssignmentStatus = "Closed"
)

// Difficulty tiers assignments.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
	DifficultyExpert Difficulty = "Expert"
)

// DefaultXPReward applies when an assignment is created without a reward.
const DefaultXPReward = 100

// Assignment is a task handed out to every group.
type Assignment struct {
	ID          string     `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Description string     `db:"description" json:"description"`
	DueDate     time.Time  `db:"due_date" json:"dueDate"`
	Closed      bool       `db:"closed" json:"closed"`
	TotalGroups int        `db:"total_groups" json:"totalGroups"`
	XPReward    int        `db:"xp_reward" json:"xpReward"`
	Difficulty  Difficulty `db:"difficulty" json:"difficulty"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

// AssignmentDetail adds the live submission count and computed status.
type AssignmentDetail struct {
	Assignment
	SubmissionCount int              `db:"submission_count" json:"submissionCount"`
	Status          AssignmentStatus `db:"-" json:"status"`
}
