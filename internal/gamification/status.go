package gamification

import (
	"time"

	"github.com/noah-isme/classquest-api/internal/models"
)

// AssignmentStatus derives the display status at the instant now.
func AssignmentStatus(due, now time.Time, closed bool, submissions, totalGroups int, window time.Duration) models.AssignmentStatus {
	if closed {
		return models.AssignmentStatusClosed
	}
	if now.After(due) {
		if submissions < totalGroups {
			return models.AssignmentStatusOverdue
		}
		return models.AssignmentStatusClosed
	}
	if due.Sub(now) <= window {
		return models.AssignmentStatusAlmostClosing
	}
	return models.AssignmentStatusOpen
}

// ShiftDailyScores appends score as today's entry and drops the oldest one,
// keeping the window at models.DailyScoreDays entries.
func ShiftDailyScores(window models.FloatList, score float64) models.FloatList {
	out := make(models.FloatList, models.DailyScoreDays)
	// right-align whatever history exists, padding missing days with zero
	start := len(window) - (models.DailyScoreDays - 1)
	dst := 0
	if start < 0 {
		dst = -start
		start = 0
	}
	copy(out[dst:models.DailyScoreDays-1], window[start:])
	out[models.DailyScoreDays-1] = score
	return out
}
