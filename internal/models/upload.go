package models

import "time"

// Upload is descriptive metadata for a file attached to a submission.
type Upload struct {
	ID           string    `db:"id" json:"id"`
	SubmissionID string    `db:"submission_id" json:"submissionId"`
	FileName     string    `db:"file_name" json:"fileName"`
	FilePath     string    `db:"file_path" json:"filePath"`
	FileSize     int64     `db:"file_size" json:"fileSize"`
	MimeType     string    `db:"mime_type" json:"mimeType"`
	UploadedBy   string    `db:"uploaded_by" json:"uploadedBy"`
	UploadedAt   time.Time `db:"uploaded_at" json:"uploadedAt"`
}

// UploadDetail adds the owning assignment and group for display.
type UploadDetail struct {
	Upload
	AssignmentID    string `db:"assignment_id" json:"assignmentId"`
	AssignmentTitle string `db:"assignment_title" json:"assignmentTitle"`
	GroupID         string `db:"group_id" json:"groupId"`
	GroupName       string `db:"group_name" json:"groupName"`
}

// UploadFilter narrows upload listings.
type UploadFilter struct {
	SubmissionID string
	GroupID      string
	AssignmentID string
}
