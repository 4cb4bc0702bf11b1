package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/classquest-api/internal/dto"
	"github.com/noah-isme/classquest-api/internal/models"
)

type achievementRepository interface {
	List(ctx context.Context) ([]models.Achievement, error)
	FindByID(ctx context.Context, id string) (*models.Achievement, error)
	ListForStudent(ctx context.Context, studentID string) ([]models.StudentAchievement, error)
	Create(ctx context.Context, achievement *models.Achievement) error
	Delete(ctx context.Context, id string) error
	Award(ctx context.Context, studentID, achievementID string) (bool, error)
}

type studentLookup interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

// CreateAchievementRequest defines a new badge.
type CreateAchievementRequest struct {
	ID          string `json:"id" validate:"omitempty,max=64"`
	Name        string `json:"name" validate:"required,max=80"`
	Description string `json:"description" validate:"max=500"`
	Icon        string `json:"icon" validate:"required,max=32"`
	Category    string `json:"category" validate:"max=40"`
	XPReward    int    `json:"xpReward" validate:"gte=0"`
}

// AwardAchievementRequest grants a badge to a student.
type AwardAchievementRequest struct {
	AchievementID string `json:"achievementId" validate:"required,max=64"`
}

// AchievementService manages badge definitions and awards.
type AchievementService struct {
	repo      achievementRepository
	students  studentLookup
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewAchievementService constructs the achievement service.
func NewAchievementService(repo achievementRepository, students studentLookup, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *AchievementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AchievementService{repo: repo, students: students, validator: validate, metrics: metrics, logger: logger}
}

// List returns every achievement definition.
func (s *AchievementService) List(ctx context.Context) ([]models.Achievement, error) {
	achievements, err := s.repo.List(ctx)
	if err != nil {
		return nil, storeFailure(err, "", "", "failed to list achievements")
	}
	if achievements == nil {
		achievements = []models.Achievement{}
	}
	return achievements, nil
}

// ListForStudent returns the awards a student holds.
func (s *AchievementService) ListForStudent(ctx context.Context, studentID string) ([]models.StudentAchievement, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		return nil, storeFailure(err, "student not found", "", "failed to load student")
	}
	awards, err := s.repo.ListForStudent(ctx, studentID)
	if err != nil {
		return nil, storeFailure(err, "", "", "failed to list student achievements")
	}
	if awards == nil {
		awards = []models.StudentAchievement{}
	}
	return awards, nil
}

// Create defines a new achievement.
func (s *AchievementService) Create(ctx context.Context, req CreateAchievementRequest) (*models.Achievement, error) {
	req.Name = sanitizeText(req.Name)
	req.Description = sanitizeText(req.Description)
	req.Icon = strings.TrimSpace(req.Icon)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid achievement payload")
	}

	achievement := &models.Achievement{
		ID:          strings.TrimSpace(req.ID),
		Name:        req.Name,
		Description: req.Description,
		Icon:        req.Icon,
		Category:    sanitizeText(req.Category),
		XPReward:    req.XPReward,
	}
	if err := s.repo.Create(ctx, achievement); err != nil {
		return nil, storeFailure(err, "", "an achievement with this name or id already exists", "failed to create achievement")
	}
	return achievement, nil
}

// Delete removes a definition. Badges already earned stay on the students.
func (s *AchievementService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeFailure(err, "achievement not found", "", "failed to delete achievement")
	}
	return nil
}

// Award grants an achievement once. Repeated awards report awarded=false.
func (s *AchievementService) Award(ctx context.Context, studentID string, req AwardAchievementRequest) (*dto.AwardResult, error) {
	req.AchievementID = strings.TrimSpace(req.AchievementID)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid award payload")
	}
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		return nil, storeFailure(err, "student not found", "", "failed to load student")
	}

	awarded, err := s.repo.Award(ctx, studentID, req.AchievementID)
	if err != nil {
		return nil, storeFailure(err, "achievement not found", "student or achievement no longer exists", "failed to award achievement")
	}
	if awarded {
		s.metrics.RecordEvent(EventAward)
		s.logger.Info("achievement awarded", zap.String("student_id", studentID), zap.String("achievement_id", req.AchievementID))
	}
	return &dto.AwardResult{StudentID: studentID, AchievementID: req.AchievementID, Awarded: awarded}, nil
}
