package dto

import (
	"time"

	"github.com/noah-isme/classquest-api/internal/models"
)

// GroupRanking is one row of the group leaderboard.
type GroupRanking struct {
	Rank  int                `json:"rank"`
	Group models.GroupDetail `json:"group"`
}

// GroupLeaderboard ranks groups by normalized score.
type GroupLeaderboard struct {
	Entries      []GroupRanking `json:"entries"`
	AverageScore float64        `json:"averageScore"`
	GeneratedAt  time.Time      `json:"generatedAt"`
}

// StudentRanking is one row of the student leaderboard.
type StudentRanking struct {
	Rank    int                  `json:"rank"`
	Student models.StudentDetail `json:"student"`
}

// StudentLeaderboard ranks students by average score or XP.
type StudentLeaderboard struct {
	SortBy      string           `json:"sortBy"`
	Entries     []StudentRanking `json:"entries"`
	GeneratedAt time.Time        `json:"generatedAt"`
}

// ChartSeries is one group's daily score line.
type ChartSeries struct {
	GroupID string           `json:"groupId"`
	Name    string           `json:"name"`
	Color   string           `json:"color"`
	Emoji   string           `json:"emoji"`
	Scores  models.FloatList `json:"scores"`
}

// ScoreChart plots the daily score window of the strongest groups.
type ScoreChart struct {
	Days   []string      `json:"days"`
	Series []ChartSeries `json:"series"`
}

// TeacherDashboard is the teacher's overview of the class.
type TeacherDashboard struct {
	TotalStudents      int                       `json:"totalStudents"`
	TotalGroups        int                       `json:"totalGroups"`
	TotalAssignments   int                       `json:"totalAssignments"`
	PendingAssessments int                       `json:"pendingAssessments"`
	AverageGroupScore  float64                   `json:"averageGroupScore"`
	TodayUploads       int                       `json:"todayUploads"`
	TopPerformers      []models.StudentDetail    `json:"topPerformers"`
	NeedsAttention     []models.StudentDetail    `json:"needsAttention"`
	AlmostClosing      []models.AssignmentDetail `json:"almostClosing"`
	Overdue            []models.AssignmentDetail `json:"overdue"`
	Missing            []models.AssignmentDetail `json:"missingSubmissions"`
	Chart              ScoreChart                `json:"chart"`
	GeneratedAt        time.Time                 `json:"generatedAt"`
}

// StudentDashboard is a single student's progress view.
type StudentDashboard struct {
	Student      models.StudentDetail      `json:"student"`
	Group        *models.GroupDetail       `json:"group,omitempty"`
	GroupRank    int                       `json:"groupRank"`
	GroupCount   int                       `json:"groupCount"`
	StudentRank  int                       `json:"studentRank"`
	StudentCount int                       `json:"studentCount"`
	OpenWork     []models.AssignmentDetail `json:"openAssignments"`
	Submissions  []models.SubmissionDetail `json:"submissions"`
	ScoreHistory models.FloatList          `json:"scoreHistory"`
	GeneratedAt  time.Time                 `json:"generatedAt"`
}
