package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/classquest-api/internal/gamification"
	"github.com/noah-isme/classquest-api/internal/models"
)

// DefaultClosingWindow marks assignments as almost closing this long before the due date.
const DefaultClosingWindow = 48 * time.Hour

type assignmentRepository interface {
	List(ctx context.Context) ([]models.AssignmentDetail, error)
	FindByID(ctx context.Context, id string) (*models.AssignmentDetail, error)
	Create(ctx context.Context, assignment *models.Assignment) error
	Update(ctx context.Context, assignment *models.Assignment) error
	Delete(ctx context.Context, id string) ([]string, error)
}

type groupCounter interface {
	Count(ctx context.Context) (int, error)
}

// CreateAssignmentRequest holds payload for creating an assignment. When
// totalGroups is omitted the current number of groups is used.
type CreateAssignmentRequest struct {
	ID          string            `json:"id" validate:"omitempty,max=64"`
	Title       string            `json:"title" validate:"required,max=200"`
	Description string            `json:"description" validate:"max=5000"`
	DueDate     time.Time         `json:"dueDate" validate:"required"`
	TotalGroups *int              `json:"totalGroups" validate:"omitempty,gte=0"`
	XPReward    *int              `json:"xpReward" validate:"omitempty,gte=0"`
	Difficulty  models.Difficulty `json:"difficulty" validate:"omitempty,oneof=Easy Medium Hard Expert"`
	Closed      bool              `json:"closed"`
}

// UpdateAssignmentRequest is a partial update including the manual close flag.
type UpdateAssignmentRequest struct {
	Title       *string            `json:"title" validate:"omitempty,max=200"`
	Description *string            `json:"description" validate:"omitempty,max=5000"`
	DueDate     *time.Time         `json:"dueDate"`
	TotalGroups *int               `json:"totalGroups" validate:"omitempty,gte=0"`
	XPReward    *int               `json:"xpReward" validate:"omitempty,gte=0"`
	Difficulty  *models.Difficulty `json:"difficulty" validate:"omitempty,oneof=Easy Medium Hard Expert"`
	Closed      *bool              `json:"closed"`
}

// AssignmentServiceConfig tunes status derivation.
type AssignmentServiceConfig struct {
	ClosingWindow time.Duration
}

// AssignmentService handles assignment use-cases.
type AssignmentService struct {
	repo      assignmentRepository
	groups    groupCounter
	files     fileRemover
	validator *validator.Validate
	logger    *zap.Logger
	cfg       AssignmentServiceConfig
	now       func() time.Time
}

// NewAssignmentService constructs the assignment service.
func NewAssignmentService(repo assignmentRepository, groups groupCounter, files fileRemover, validate *validator.Validate, logger *zap.Logger, cfg AssignmentServiceConfig) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ClosingWindow <= 0 {
		cfg.ClosingWindow = DefaultClosingWindow
	}
	return &AssignmentService{repo: repo, groups: groups, files: files, validator: validate, logger: logger, cfg: cfg, now: time.Now}
}

// List returns assignments with their live status.
func (s *AssignmentService) List(ctx context.Context) ([]models.AssignmentDetail, error) {
	assignments, err := s.repo.List(ctx)
	if err != nil {
		return nil, storeFailure(err, "", "", "failed to list assignments")
	}
	if assignments == nil {
		assignments = []models.AssignmentDetail{}
	}
	now := s.now()
	for i := range assignments {
		s.decorate(&assignments[i], now)
	}
	return assignments, nil
}

// Get returns a single assignment.
func (s *AssignmentService) Get(ctx context.Context, id string) (*models.AssignmentDetail, error) {
	assignment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeFailure(err, "assignment not found", "", "failed to load assignment")
	}
	s.decorate(assignment, s.now())
	return assignment, nil
}

// Create registers an assignment, applying reward and difficulty defaults.
func (s *AssignmentService) Create(ctx context.Context, req CreateAssignmentRequest) (*models.AssignmentDetail, error) {
	req.Title = sanitizeText(req.Title)
	req.Description = sanitizeText(req.Description)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid assignment payload")
	}

	assignment := &models.Assignment{
		ID:          strings.TrimSpace(req.ID),
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Closed:      req.Closed,
		XPReward:    models.DefaultXPReward,
		Difficulty:  models.DifficultyMedium,
	}
	if req.XPReward != nil {
		assignment.XPReward = *req.XPReward
	}
	if req.Difficulty != "" {
		assignment.Difficulty = req.Difficulty
	}
	if req.TotalGroups != nil {
		assignment.TotalGroups = *req.TotalGroups
	} else if s.groups != nil {
		total, err := s.groups.Count(ctx)
		if err != nil {
			return nil, storeFailure(err, "", "", "failed to count groups")
		}
		assignment.TotalGroups = total
	}

	if err := s.repo.Create(ctx, assignment); err != nil {
		return nil, storeFailure(err, "", "assignment id is already taken", "failed to create assignment")
	}
	return s.Get(ctx, assignment.ID)
}

// Update applies a partial update.
func (s *AssignmentService) Update(ctx context.Context, id string, req UpdateAssignmentRequest) (*models.AssignmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid assignment payload")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeFailure(err, "assignment not found", "", "failed to load assignment")
	}

	assignment := detail.Assignment
	if req.Title != nil {
		title := sanitizeText(*req.Title)
		if title == "" {
			return nil, invalid("title must not be empty")
		}
		assignment.Title = title
	}
	if req.Description != nil {
		assignment.Description = sanitizeText(*req.Description)
	}
	if req.DueDate != nil {
		if req.DueDate.IsZero() {
			return nil, invalid("dueDate must be a valid timestamp")
		}
		assignment.DueDate = *req.DueDate
	}
	if req.TotalGroups != nil {
		assignment.TotalGroups = *req.TotalGroups
	}
	if req.XPReward != nil {
		assignment.XPReward = *req.XPReward
	}
	if req.Difficulty != nil {
		assignment.Difficulty = *req.Difficulty
	}
	if req.Closed != nil {
		assignment.Closed = *req.Closed
	}

	if err := s.repo.Update(ctx, &assignment); err != nil {
		return nil, storeFailure(err, "assignment not found", "", "failed to update assignment")
	}
	return s.Get(ctx, id)
}

// Delete removes an assignment and everything submitted for it.
func (s *AssignmentService) Delete(ctx context.Context, id string) error {
	files, err := s.repo.Delete(ctx, id)
	if err != nil {
		return storeFailure(err, "assignment not found", "", "failed to delete assignment")
	}
	removeFiles(s.files, s.logger, files)
	return nil
}

func (s *AssignmentService) decorate(assignment *models.AssignmentDetail, now time.Time) {
	assignment.Status = gamification.AssignmentStatus(assignment.DueDate, now, assignment.Closed,
		assignment.SubmissionCount, assignment.TotalGroups, s.cfg.ClosingWindow)
}
