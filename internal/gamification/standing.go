package gamification

import "github.com/noah-isme/classquest-api/internal/models"

// Standing is a group's comparable performance snapshot.
type Standing struct {
	Completeness    float64
	Quality         float64
	NormalizedScore float64
}

// GroupStanding summarises a group's submissions. Completeness is the share
// of assignments handed in, quality the mean of every score received, and the
// normalized score their product on the 0-10 scale.
func GroupStanding(sheets []models.ScoreSheet, submitted, assignments int) Standing {
	var standing Standing
	if assignments > 0 {
		standing.Completeness = float64(submitted) / float64(assignments)
		if standing.Completeness > 1 {
			standing.Completeness = 1
		}
		standing.Completeness = round2(standing.Completeness)
	}

	var total float64
	var cells int
	for _, sheet := range sheets {
		for _, byStudent := range sheet {
			for _, score := range byStudent {
				total += score
				cells++
			}
		}
	}
	if cells > 0 {
		standing.Quality = round2(total / float64(cells))
	}
	standing.NormalizedScore = round2(standing.Quality * standing.Completeness)
	return standing
}
