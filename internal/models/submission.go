package models

import "time"

// SubmissionStatus reflects how far the assessment of a submission has progressed.
type SubmissionStatus string

const (
	SubmissionStatusNotAssessed       SubmissionStatus = "NotAssessed"
	SubmissionStatusPartiallyAssessed SubmissionStatus = "PartiallyAssessed"
	SubmissionStatusAssessed          SubmissionStatus = "Assessed"
)

// Assessment categories scored per student on every submission.
const (
	CategoryCommunication   = "communication"
	CategoryTaskDivision    = "taskDivision"
	CategoryDocumentation   = "documentation"
	CategoryProfessionalism = "professionalism"
)

// AssessmentCategories lists the categories in display order.
var AssessmentCategories = []string{
	CategoryCommunication,
	CategoryTaskDivision,
	CategoryDocumentation,
	CategoryProfessionalism,
}

// Score bounds for a single category score.
const (
	MinScore = 0.0
	MaxScore = 10.0
)

// Submission is one group's hand-in for an assignment.
type Submission struct {
	ID           string     `db:"id" json:"id"`
	AssignmentID string     `db:"assignment_id" json:"assignmentId"`
	GroupID      string     `db:"group_id" json:"groupId"`
	SubmittedAt  time.Time  `db:"submitted_at" json:"submittedAt"`
	Scores       ScoreSheet `db:"scores" json:"scores"`
	Feedback     string     `db:"feedback" json:"feedback"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

// SubmissionDetail joins display names and the derived assessment state.
type SubmissionDetail struct {
	Submission
	AssignmentTitle string           `db:"assignment_title" json:"assignmentTitle"`
	GroupName       string           `db:"group_name" json:"groupName"`
	MemberCount     int              `db:"member_count" json:"memberCount"`
	Progress        float64          `db:"-" json:"progress"`
	Status          SubmissionStatus `db:"-" json:"status"`
}

// SubmissionFilter narrows submission listings.
type SubmissionFilter struct {
	AssignmentID string
	GroupID      string
}
