package gamification

import (
	"math"

	"github.com/noah-isme/classquest-api/internal/models"
)

// AssessmentProgress is the percentage of score cells filled in.
func AssessmentProgress(categories, members, filled int) float64 {
	total := categories * members
	if total <= 0 || filled <= 0 {
		return 0
	}
	if filled >= total {
		return 100
	}
	return float64(filled) / float64(total) * 100
}

// AssessmentStatus buckets a progress percentage.
func AssessmentStatus(progress float64) models.SubmissionStatus {
	switch {
	case progress <= 0:
		return models.SubmissionStatusNotAssessed
	case progress >= 100:
		return models.SubmissionStatusAssessed
	default:
		return models.SubmissionStatusPartiallyAssessed
	}
}

// CountFilledScores counts the cells of sheet that belong to the given
// categories and members. Scores for unknown students are ignored.
func CountFilledScores(sheet models.ScoreSheet, categories, members []string) int {
	memberSet := make(map[string]struct{}, len(members))
	for _, id := range members {
		memberSet[id] = struct{}{}
	}

	filled := 0
	for _, category := range categories {
		for studentID := range sheet[category] {
			if _, ok := memberSet[studentID]; ok {
				filled++
			}
		}
	}
	return filled
}

// Professionality is a student's per-category mean plus the overall mean.
type Professionality struct {
	Scores  models.ScoreMap
	Average float64
}

// AggregateProfessionality averages every score a student received across
// the given sheets. Categories without any score are omitted.
func AggregateProfessionality(sheets []models.ScoreSheet, studentID string) Professionality {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, sheet := range sheets {
		for category, byStudent := range sheet {
			if score, ok := byStudent[studentID]; ok {
				sums[category] += score
				counts[category]++
			}
		}
	}

	result := Professionality{Scores: models.ScoreMap{}}
	if len(sums) == 0 {
		return result
	}

	var total float64
	for category, sum := range sums {
		mean := round2(sum / float64(counts[category]))
		result.Scores[category] = mean
		total += mean
	}
	result.Average = round2(total / float64(len(sums)))
	return result
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
