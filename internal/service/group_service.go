package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/classquest-api/internal/gamification"
	"github.com/noah-isme/classquest-api/internal/models"
)

type groupRepository interface {
	List(ctx context.Context) ([]models.GroupDetail, error)
	FindByID(ctx context.Context, id string) (*models.GroupDetail, error)
	FindByName(ctx context.Context, name string) (*models.Group, error)
	Count(ctx context.Context) (int, error)
	MemberIDs(ctx context.Context, groupID string) ([]string, error)
	Create(ctx context.Context, group *models.Group, members []string) error
	Update(ctx context.Context, group *models.Group, members []string) error
	Delete(ctx context.Context, id string) ([]string, error)
	UpdateDailyScores(ctx context.Context, id string, scores models.FloatList, streak int) error
}

// CreateGroupRequest holds payload for creating a group.
type CreateGroupRequest struct {
	ID      string   `json:"id" validate:"omitempty,max=64"`
	Name    string   `json:"name" validate:"required,max=80"`
	Color   string   `json:"color" validate:"max=32"`
	Emoji   string   `json:"emoji" validate:"max=16"`
	Members []string `json:"members" validate:"omitempty,dive,required"`
	XP      int      `json:"xp" validate:"gte=0"`
	Badges  []string `json:"badges" validate:"omitempty,dive,max=32"`
}

// UpdateGroupRequest is a partial update. A members array replaces the
// member set; omitting it keeps the current members.
type UpdateGroupRequest struct {
	Name    *string   `json:"name" validate:"omitempty,max=80"`
	Color   *string   `json:"color" validate:"omitempty,max=32"`
	Emoji   *string   `json:"emoji" validate:"omitempty,max=16"`
	Members *[]string `json:"members" validate:"omitempty,dive,required"`
	XP      *int      `json:"xp" validate:"omitempty,gte=0"`
	Badges  *[]string `json:"badges" validate:"omitempty,dive,max=32"`
}

// DailyScoreRequest records today's score for a group.
type DailyScoreRequest struct {
	Score *float64 `json:"score" validate:"required,gte=0,lte=10"`
}

// GroupService handles group use-cases.
type GroupService struct {
	repo      groupRepository
	files     fileRemover
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGroupService constructs the group service.
func NewGroupService(repo groupRepository, files fileRemover, validate *validator.Validate, logger *zap.Logger) *GroupService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupService{repo: repo, files: files, validator: validate, logger: logger}
}

// List returns all groups with their members.
func (s *GroupService) List(ctx context.Context) ([]models.GroupDetail, error) {
	groups, err := s.repo.List(ctx)
	if err != nil {
		return nil, storeFailure(err, "", "", "failed to list groups")
	}
	if groups == nil {
		groups = []models.GroupDetail{}
	}
	for i := range groups {
		decorateGroup(&groups[i])
	}
	return groups, nil
}

// Get returns a single group.
func (s *GroupService) Get(ctx context.Context, id string) (*models.GroupDetail, error) {
	group, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeFailure(err, "group not found", "", "failed to load group")
	}
	decorateGroup(group)
	return group, nil
}

// FindByID satisfies the group lookup used by other services.
func (s *GroupService) FindByID(ctx context.Context, id string) (*models.GroupDetail, error) {
	return s.repo.FindByID(ctx, id)
}

// FindByName satisfies the group lookup used by other services.
func (s *GroupService) FindByName(ctx context.Context, name string) (*models.Group, error) {
	return s.repo.FindByName(ctx, name)
}

// Create registers a group and moves the listed students into it.
func (s *GroupService) Create(ctx context.Context, req CreateGroupRequest) (*models.GroupDetail, error) {
	req.Name = sanitizeText(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid group payload")
	}

	group := &models.Group{
		ID:          strings.TrimSpace(req.ID),
		Name:        req.Name,
		Color:       strings.TrimSpace(req.Color),
		Emoji:       strings.TrimSpace(req.Emoji),
		XP:          req.XP,
		Badges:      models.StringList(cleanList(req.Badges)),
		DailyScores: models.EmptyDailyScores(),
	}
	if err := s.repo.Create(ctx, group, cleanList(req.Members)); err != nil {
		return nil, storeFailure(err, "group not found", "group id is taken or a member does not exist", "failed to create group")
	}
	return s.Get(ctx, group.ID)
}

// Update applies a partial update.
func (s *GroupService) Update(ctx context.Context, id string, req UpdateGroupRequest) (*models.GroupDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid group payload")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeFailure(err, "group not found", "", "failed to load group")
	}

	group := detail.Group
	if req.Name != nil {
		name := sanitizeText(*req.Name)
		if name == "" {
			return nil, invalid("name must not be empty")
		}
		group.Name = name
	}
	if req.Color != nil {
		group.Color = strings.TrimSpace(*req.Color)
	}
	if req.Emoji != nil {
		group.Emoji = strings.TrimSpace(*req.Emoji)
	}
	if req.XP != nil {
		if *req.XP < group.XP {
			return nil, invalid("xp cannot decrease")
		}
		group.XP = *req.XP
	}
	if req.Badges != nil {
		group.Badges = models.StringList(cleanList(*req.Badges))
	}
	var members []string
	if req.Members != nil {
		members = cleanList(*req.Members)
	}

	if err := s.repo.Update(ctx, &group, members); err != nil {
		return nil, storeFailure(err, "group not found", "a member does not exist", "failed to update group")
	}
	return s.Get(ctx, id)
}

// Delete removes a group that no longer has members.
func (s *GroupService) Delete(ctx context.Context, id string) error {
	files, err := s.repo.Delete(ctx, id)
	if err != nil {
		return storeFailure(err, "group not found", "group still has members", "failed to delete group")
	}
	removeFiles(s.files, s.logger, files)
	return nil
}

// RecordDailyScore appends today's score to the rolling window. A positive
// score extends the streak, zero resets it.
func (s *GroupService) RecordDailyScore(ctx context.Context, id string, req DailyScoreRequest) (*models.GroupDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid daily score")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeFailure(err, "group not found", "", "failed to load group")
	}

	score := *req.Score
	window := gamification.ShiftDailyScores(detail.DailyScores, score)
	streak := 0
	if score > 0 {
		streak = detail.Streak + 1
	}
	if err := s.repo.UpdateDailyScores(ctx, id, window, streak); err != nil {
		return nil, storeFailure(err, "group not found", "", "failed to record daily score")
	}
	s.logger.Debug("daily score recorded", zap.String("group_id", id), zap.Float64("score", score), zap.Int("streak", streak))
	return s.Get(ctx, id)
}

func decorateGroup(group *models.GroupDetail) {
	group.Level = gamification.LevelFromXP(group.XP)
	group.XPToNextLevel = gamification.XPToNextLevel(group.XP)
	if group.Members == nil {
		group.Members = []string{}
	}
	if group.Badges == nil {
		group.Badges = models.StringList{}
	}
	if len(group.DailyScores) != models.DailyScoreDays {
		window := models.EmptyDailyScores()
		src := group.DailyScores
		if len(src) > len(window) {
			src = src[len(src)-len(window):]
		}
		copy(window[len(window)-len(src):], src)
		group.DailyScores = window
	}
}

// cleanList trims entries, dropping blanks and duplicates.
func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
