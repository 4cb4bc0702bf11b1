// Package seed loads a small demo class into an empty store.
package seed

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/internal/service"
)

type groupStore interface {
	List(ctx context.Context) ([]models.GroupDetail, error)
	Create(ctx context.Context, req service.CreateGroupRequest) (*models.GroupDetail, error)
}

type studentStore interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error)
	Create(ctx context.Context, req service.CreateStudentRequest) (*models.StudentDetail, error)
}

type assignmentStore interface {
	Create(ctx context.Context, req service.CreateAssignmentRequest) (*models.AssignmentDetail, error)
}

type achievementStore interface {
	Create(ctx context.Context, req service.CreateAchievementRequest) (*models.Achievement, error)
}

// Seeder inserts demo data through the regular services so every
// validation and derived field applies.
type Seeder struct {
	Groups       groupStore
	Students     studentStore
	Assignments  assignmentStore
	Achievements achievementStore
	Logger       *zap.Logger
	Now          func() time.Time
}

type demoGroup struct {
	id, name, color, emoji string
	xp                     int
	badges                 []string
	students               []demoStudent
}

type demoStudent struct {
	name, avatar string
	xp, streak   int
}

var demoGroups = []demoGroup{
	{id: "group-aurora", name: "Aurora Builders", color: "#f97316", emoji: "🔥", xp: 1450, badges: []string{"🏆", "⚡"}, students: []demoStudent{
		{name: "Noor de Vries", avatar: "🦊", xp: 1320, streak: 6},
		{name: "Milan Bakker", avatar: "🐼", xp: 980, streak: 4},
		{name: "Sara Visser", avatar: "🦉", xp: 1105, streak: 5},
	}},
	{id: "group-nebula", name: "Nebula Squad", color: "#8b5cf6", emoji: "🚀", xp: 1210, badges: []string{"🚀"}, students: []demoStudent{
		{name: "Daan Smit", avatar: "🐯", xp: 860, streak: 2},
		{name: "Lotte Meijer", avatar: "🐨", xp: 1240, streak: 7},
	}},
	{id: "group-tidal", name: "Tidal Minds", color: "#0ea5e9", emoji: "🌊", xp: 640, students: []demoStudent{
		{name: "Finn Mulder", avatar: "🐬", xp: 410, streak: 0},
		{name: "Yara Bos", avatar: "🦄", xp: 530, streak: 1},
		{name: "Sem de Boer", avatar: "🐢", xp: 120, streak: 0},
	}},
}

var demoAchievements = []service.CreateAchievementRequest{
	{ID: "first-submission", Name: "First Submission", Description: "Handed in the first piece of group work", Icon: "🎯", Category: "progress", XPReward: 50},
	{ID: "streak-week", Name: "On a Roll", Description: "Kept a seven day streak", Icon: "🔥", Category: "consistency", XPReward: 100},
	{ID: "team-player", Name: "Team Player", Description: "Scored 9 or higher on collaboration", Icon: "🤝", Category: "professionality", XPReward: 75},
}

// Run seeds the store unless it already holds groups or students.
// It reports whether anything was inserted.
func (s *Seeder) Run(ctx context.Context) (bool, error) {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	groups, err := s.Groups.List(ctx)
	if err != nil {
		return false, fmt.Errorf("check groups: %w", err)
	}
	students, _, err := s.Students.List(ctx, models.StudentFilter{})
	if err != nil {
		return false, fmt.Errorf("check students: %w", err)
	}
	if len(groups) > 0 || len(students) > 0 {
		logger.Info("demo seed skipped, store not empty", zap.Int("groups", len(groups)), zap.Int("students", len(students)))
		return false, nil
	}

	studentCount := 0
	for _, g := range demoGroups {
		if _, err := s.Groups.Create(ctx, service.CreateGroupRequest{
			ID:     g.id,
			Name:   g.name,
			Color:  g.color,
			Emoji:  g.emoji,
			XP:     g.xp,
			Badges: g.badges,
		}); err != nil {
			return false, fmt.Errorf("seed group %s: %w", g.id, err)
		}
		groupID := g.id
		for _, st := range g.students {
			if _, err := s.Students.Create(ctx, service.CreateStudentRequest{
				Name:    st.name,
				GroupID: &groupID,
				Avatar:  st.avatar,
				XP:      st.xp,
				Streak:  st.streak,
			}); err != nil {
				return false, fmt.Errorf("seed student %s: %w", st.name, err)
			}
			studentCount++
		}
	}

	today := now().UTC().Truncate(24 * time.Hour)
	assignments := []service.CreateAssignmentRequest{
		{ID: "assign-prototype", Title: "Web App Prototype", Description: "Build a clickable prototype of your group's web app", DueDate: today.Add(10 * 24 * time.Hour), XPReward: intRef(500), Difficulty: "Hard"},
		{ID: "assign-database", Title: "Database Design", Description: "Document the data model with an ER diagram", DueDate: today.Add(36 * time.Hour), XPReward: intRef(300), Difficulty: "Medium"},
		{ID: "assign-testing", Title: "Testing Report", Description: "Write unit tests and summarise the results", DueDate: today.Add(-3 * 24 * time.Hour), XPReward: intRef(200), Difficulty: "Easy"},
	}
	for _, a := range assignments {
		if _, err := s.Assignments.Create(ctx, a); err != nil {
			return false, fmt.Errorf("seed assignment %s: %w", a.ID, err)
		}
	}

	for _, a := range demoAchievements {
		if _, err := s.Achievements.Create(ctx, a); err != nil {
			return false, fmt.Errorf("seed achievement %s: %w", a.ID, err)
		}
	}

	logger.Info("demo data seeded",
		zap.Int("groups", len(demoGroups)),
		zap.Int("students", studentCount),
		zap.Int("assignments", len(assignments)),
		zap.Int("achievements", len(demoAchievements)))
	return true, nil
}

func intRef(v int) *int {
	return &v
}
