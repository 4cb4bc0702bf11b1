package dto

import (
	"time"

	"github.com/noah-isme/classquest-api/internal/models"
)

// BulkResult reports a batch in which every record succeeds or fails on its own.
type BulkResult struct {
	Created  int              `json:"created"`
	Students []models.Student `json:"students"`
	Errors   []string         `json:"errors"`
}

// UploadLink is a time-limited download token.
type UploadLink struct {
	UploadID  string    `json:"uploadId"`
	Token     string    `json:"token"`
	URL       string    `json:"url,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AwardResult tells whether an achievement was newly granted.
type AwardResult struct {
	StudentID     string `json:"studentId"`
	AchievementID string `json:"achievementId"`
	Awarded       bool   `json:"awarded"`
}

// ExportFile is a rendered report ready to be sent.
type ExportFile struct {
	FileName    string
	ContentType string
	Data        []byte
}
