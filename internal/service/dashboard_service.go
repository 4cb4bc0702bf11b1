package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/classquest-api/internal/dto"
	"github.com/noah-isme/classquest-api/internal/gamification"
	"github.com/noah-isme/classquest-api/internal/models"
	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
)

// Leaderboard sort keys for students.
const (
	SortByScore = "score"
	SortByXP    = "xp"
)

type studentLister interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error)
}

type groupLister interface {
	List(ctx context.Context) ([]models.GroupDetail, error)
}

type assignmentLister interface {
	List(ctx context.Context) ([]models.AssignmentDetail, error)
}

type submissionLister interface {
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.SubmissionDetail, error)
}

type uploadCounter interface {
	CountSince(ctx context.Context, since time.Time) (int, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	TopPerformers     int
	NeedsAttention    int
	ChartGroups       int
	MaxLeaderboardLen int
}

// DashboardService composes leaderboards and dashboard views from the other services.
type DashboardService struct {
	students    studentLister
	groups      groupLister
	assignments assignmentLister
	submissions submissionLister
	uploads     uploadCounter
	cache       *CacheService
	logger      *zap.Logger
	now         func() time.Time
	cfg         DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Students    studentLister
	Groups      groupLister
	Assignments assignmentLister
	Submissions submissionLister
	Uploads     uploadCounter
	Cache       *CacheService
	Logger      *zap.Logger
	Config      DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.TopPerformers <= 0 {
		cfg.TopPerformers = 5
	}
	if cfg.NeedsAttention <= 0 {
		cfg.NeedsAttention = 3
	}
	if cfg.ChartGroups <= 0 {
		cfg.ChartGroups = 5
	}
	if cfg.MaxLeaderboardLen <= 0 {
		cfg.MaxLeaderboardLen = 100
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		students:    params.Students,
		groups:      params.Groups,
		assignments: params.Assignments,
		submissions: params.Submissions,
		uploads:     params.Uploads,
		cache:       params.Cache,
		logger:      logger,
		now:         time.Now,
		cfg:         cfg,
	}
}

// GroupLeaderboard ranks every group by normalized score and reports cache usage.
func (s *DashboardService) GroupLeaderboard(ctx context.Context) (*dto.GroupLeaderboard, bool, error) {
	board, hit, err := cached(ctx, s.cache, "dash:leaderboard:groups", func() (*dto.GroupLeaderboard, error) {
		groups, err := s.groups.List(ctx)
		if err != nil {
			return nil, err
		}
		return s.composeGroupLeaderboard(groups), nil
	})
	return board, hit, err
}

// StudentLeaderboard ranks students by average score or XP. A limit of zero
// returns every student up to the configured maximum.
func (s *DashboardService) StudentLeaderboard(ctx context.Context, sortBy string, limit int) (*dto.StudentLeaderboard, bool, error) {
	if sortBy == "" {
		sortBy = SortByScore
	}
	if sortBy != SortByScore && sortBy != SortByXP {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "sortBy must be one of [score xp]")
	}
	if limit < 0 {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "limit must not be negative")
	}
	if limit == 0 || limit > s.cfg.MaxLeaderboardLen {
		limit = s.cfg.MaxLeaderboardLen
	}

	key := fmt.Sprintf("dash:leaderboard:students:%s:%d", sortBy, limit)
	return cached(ctx, s.cache, key, func() (*dto.StudentLeaderboard, error) {
		students, _, err := s.students.List(ctx, models.StudentFilter{})
		if err != nil {
			return nil, err
		}
		ranked := gamification.Rank(students, studentScore(sortBy))
		if len(ranked) > limit {
			ranked = ranked[:limit]
		}
		entries := make([]dto.StudentRanking, 0, len(ranked))
		for _, r := range ranked {
			entries = append(entries, dto.StudentRanking{Rank: r.Rank, Student: r.Item})
		}
		return &dto.StudentLeaderboard{SortBy: sortBy, Entries: entries, GeneratedAt: s.now().UTC()}, nil
	})
}

// Teacher returns the class overview for today.
func (s *DashboardService) Teacher(ctx context.Context) (*dto.TeacherDashboard, bool, error) {
	now := s.now().UTC()
	key := fmt.Sprintf("dash:teacher:%s", now.Format("2006-01-02"))
	return cached(ctx, s.cache, key, func() (*dto.TeacherDashboard, error) {
		return s.composeTeacher(ctx, now)
	})
}

// Student returns one student's progress view.
func (s *DashboardService) Student(ctx context.Context, studentID string) (*dto.StudentDashboard, bool, error) {
	if studentID == "" {
		return nil, false, appErrors.Clone(appErrors.ErrValidation, "studentId is required")
	}
	key := fmt.Sprintf("dash:student:%s", studentID)
	return cached(ctx, s.cache, key, func() (*dto.StudentDashboard, error) {
		return s.composeStudent(ctx, studentID)
	})
}

func (s *DashboardService) composeGroupLeaderboard(groups []models.GroupDetail) *dto.GroupLeaderboard {
	ranked := gamification.Rank(groups, groupScore)
	entries := make([]dto.GroupRanking, 0, len(ranked))
	for _, r := range ranked {
		entries = append(entries, dto.GroupRanking{Rank: r.Rank, Group: r.Item})
	}
	return &dto.GroupLeaderboard{
		Entries:      entries,
		AverageScore: round2(gamification.Average(groups, groupScore)),
		GeneratedAt:  s.now().UTC(),
	}
}

func (s *DashboardService) composeTeacher(ctx context.Context, now time.Time) (*dto.TeacherDashboard, error) {
	students, _, err := s.students.List(ctx, models.StudentFilter{})
	if err != nil {
		return nil, err
	}
	groups, err := s.groups.List(ctx)
	if err != nil {
		return nil, err
	}
	assignments, err := s.assignments.List(ctx)
	if err != nil {
		return nil, err
	}
	submissions, err := s.submissions.List(ctx, models.SubmissionFilter{})
	if err != nil {
		return nil, err
	}
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	todayUploads, err := s.uploads.CountSince(ctx, startOfDay)
	if err != nil {
		return nil, err
	}

	summary := &dto.TeacherDashboard{
		TotalStudents:     len(students),
		TotalGroups:       len(groups),
		TotalAssignments:  len(assignments),
		AverageGroupScore: round2(gamification.Average(groups, groupScore)),
		TodayUploads:      todayUploads,
		TopPerformers:     firstStudents(gamification.Rank(students, studentScore(SortByScore)), s.cfg.TopPerformers),
		NeedsAttention: firstStudents(gamification.Rank(students, func(st models.StudentDetail) float64 {
			return -st.AverageScore
		}), s.cfg.NeedsAttention),
		AlmostClosing: []models.AssignmentDetail{},
		Overdue:       []models.AssignmentDetail{},
		Missing:       []models.AssignmentDetail{},
		Chart:         s.scoreChart(groups),
		GeneratedAt:   now,
	}
	for _, sub := range submissions {
		if sub.Status != models.SubmissionStatusAssessed {
			summary.PendingAssessments++
		}
	}
	for _, a := range assignments {
		switch a.Status {
		case models.AssignmentStatusAlmostClosing:
			summary.AlmostClosing = append(summary.AlmostClosing, a)
		case models.AssignmentStatusOverdue:
			summary.Overdue = append(summary.Overdue, a)
		}
		if a.SubmissionCount < a.TotalGroups {
			summary.Missing = append(summary.Missing, a)
		}
	}

	s.logger.Debug("teacher dashboard composed",
		zap.Int("students", summary.TotalStudents),
		zap.Int("groups", summary.TotalGroups),
		zap.Int("pending", summary.PendingAssessments))
	return summary, nil
}

func (s *DashboardService) composeStudent(ctx context.Context, studentID string) (*dto.StudentDashboard, error) {
	students, _, err := s.students.List(ctx, models.StudentFilter{})
	if err != nil {
		return nil, err
	}
	rankedStudents := gamification.Rank(students, studentScore(SortByXP))
	position := gamification.PositionOf(rankedStudents, func(st models.StudentDetail) bool { return st.ID == studentID })
	if position == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	view := &dto.StudentDashboard{
		Student:      rankedStudents[position-1].Item,
		StudentRank:  position,
		StudentCount: len(students),
		OpenWork:     []models.AssignmentDetail{},
		Submissions:  []models.SubmissionDetail{},
		ScoreHistory: models.EmptyDailyScores(),
		GeneratedAt:  s.now().UTC(),
	}

	groups, err := s.groups.List(ctx)
	if err != nil {
		return nil, err
	}
	view.GroupCount = len(groups)
	if view.Student.GroupID == nil {
		return view, nil
	}
	groupID := *view.Student.GroupID
	rankedGroups := gamification.Rank(groups, groupScore)
	view.GroupRank = gamification.PositionOf(rankedGroups, func(g models.GroupDetail) bool { return g.ID == groupID })
	if view.GroupRank > 0 {
		group := rankedGroups[view.GroupRank-1].Item
		view.Group = &group
		view.ScoreHistory = group.DailyScores
	}

	submissions, err := s.submissions.List(ctx, models.SubmissionFilter{GroupID: groupID})
	if err != nil {
		return nil, err
	}
	view.Submissions = submissions
	submitted := make(map[string]struct{}, len(submissions))
	for _, sub := range submissions {
		submitted[sub.AssignmentID] = struct{}{}
	}

	assignments, err := s.assignments.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, a := range assignments {
		if a.Status == models.AssignmentStatusClosed {
			continue
		}
		if _, done := submitted[a.ID]; !done {
			view.OpenWork = append(view.OpenWork, a)
		}
	}
	return view, nil
}

// scoreChart plots the daily score window of the strongest groups.
func (s *DashboardService) scoreChart(groups []models.GroupDetail) dto.ScoreChart {
	chart := dto.ScoreChart{Days: make([]string, models.DailyScoreDays), Series: []dto.ChartSeries{}}
	for i := range chart.Days {
		chart.Days[i] = fmt.Sprintf("Day %d", i+1)
	}
	for _, r := range gamification.Rank(groups, groupScore) {
		if len(chart.Series) == s.cfg.ChartGroups {
			break
		}
		chart.Series = append(chart.Series, dto.ChartSeries{
			GroupID: r.Item.ID,
			Name:    r.Item.Name,
			Color:   r.Item.Color,
			Emoji:   r.Item.Emoji,
			Scores:  r.Item.DailyScores,
		})
	}
	return chart
}

func groupScore(g models.GroupDetail) float64 {
	return g.NormalizedScore
}

func studentScore(sortBy string) func(models.StudentDetail) float64 {
	if sortBy == SortByXP {
		return func(st models.StudentDetail) float64 { return float64(st.XP) }
	}
	return func(st models.StudentDetail) float64 { return st.AverageScore }
}

func firstStudents(ranked []gamification.Ranked[models.StudentDetail], n int) []models.StudentDetail {
	out := make([]models.StudentDetail, 0, n)
	for _, r := range ranked {
		if len(out) == n {
			break
		}
		out = append(out, r.Item)
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
