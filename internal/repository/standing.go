package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/classquest-api/internal/gamification"
	"github.com/noah-isme/classquest-api/internal/models"
)

// groupSheets returns the score sheets of every submission made by a group.
func groupSheets(ctx context.Context, q execer, groupID string) ([]models.ScoreSheet, error) {
	var sheets []models.ScoreSheet
	if err := sqlx.SelectContext(ctx, q, &sheets, q.Rebind(`SELECT scores FROM submissions WHERE group_id = ? ORDER BY submitted_at ASC`), groupID); err != nil {
		return nil, fmt.Errorf("list score sheets: %w", err)
	}
	return sheets, nil
}

// refreshStanding recomputes completeness, quality and normalized score of a group.
func refreshStanding(ctx context.Context, q execer, groupID string) error {
	sheets, err := groupSheets(ctx, q, groupID)
	if err != nil {
		return err
	}
	var assignments int
	if err := sqlx.GetContext(ctx, q, &assignments, `SELECT COUNT(*) FROM assignments`); err != nil {
		return fmt.Errorf("count assignments: %w", err)
	}

	standing := gamification.GroupStanding(sheets, len(sheets), assignments)
	if _, err := exec(ctx, q, `UPDATE student_groups SET completeness = ?, quality = ?, normalized_score = ?, updated_at = ? WHERE id = ?`,
		standing.Completeness, standing.Quality, standing.NormalizedScore, time.Now().UTC(), groupID); err != nil {
		return storeError("update group standing", err)
	}
	return nil
}

// refreshAllStandings is needed whenever the number of assignments changes.
func refreshAllStandings(ctx context.Context, q execer) error {
	var ids []string
	if err := sqlx.SelectContext(ctx, q, &ids, `SELECT id FROM student_groups`); err != nil {
		return fmt.Errorf("list group ids: %w", err)
	}
	for _, id := range ids {
		if err := refreshStanding(ctx, q, id); err != nil {
			return err
		}
	}
	return nil
}

// refreshProfessionality recomputes the professionality scores of every
// current member of a group from the group's score sheets.
func refreshProfessionality(ctx context.Context, q execer, groupID string) error {
	sheets, err := groupSheets(ctx, q, groupID)
	if err != nil {
		return err
	}
	members, err := memberIDs(ctx, q, groupID)
	if err != nil {
		return err
	}
	for _, studentID := range members {
		agg := gamification.AggregateProfessionality(sheets, studentID)
		if err := updateProfessionality(ctx, q, studentID, agg.Scores, agg.Average); err != nil {
			return err
		}
	}
	return nil
}
