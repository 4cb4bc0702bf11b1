package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/classquest-api/internal/gamification"
	"github.com/noah-isme/classquest-api/internal/models"
)

type submissionRepository interface {
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.SubmissionDetail, error)
	FindByID(ctx context.Context, id string) (*models.SubmissionDetail, error)
	Create(ctx context.Context, submission *models.Submission) error
	UpdateAssessment(ctx context.Context, id string, scores models.ScoreSheet, feedback string) error
	Delete(ctx context.Context, id string) ([]string, error)
}

type groupMembers interface {
	List(ctx context.Context) ([]models.GroupDetail, error)
	MemberIDs(ctx context.Context, groupID string) ([]string, error)
}

// CreateSubmissionRequest records a group's hand-in.
type CreateSubmissionRequest struct {
	ID           string     `json:"id" validate:"omitempty,max=64"`
	AssignmentID string     `json:"assignmentId" validate:"required,max=64"`
	GroupID      string     `json:"groupId" validate:"required,max=64"`
	SubmittedAt  *time.Time `json:"submittedAt"`
	Feedback     string     `json:"feedback" validate:"max=5000"`
}

// AssessSubmissionRequest replaces the score sheet and, when present, the
// feedback. Scores are keyed by category and then by student id.
type AssessSubmissionRequest struct {
	Scores   models.ScoreSheet `json:"scores"`
	Feedback *string           `json:"feedback" validate:"omitempty,max=5000"`
}

// SubmissionService handles submissions and their assessment.
type SubmissionService struct {
	repo      submissionRepository
	groups    groupMembers
	files     fileRemover
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewSubmissionService constructs the submission service.
func NewSubmissionService(repo submissionRepository, groups groupMembers, files fileRemover, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *SubmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{repo: repo, groups: groups, files: files, validator: validate, metrics: metrics, logger: logger}
}

// List returns submissions with their assessment progress.
func (s *SubmissionService) List(ctx context.Context, filter models.SubmissionFilter) ([]models.SubmissionDetail, error) {
	submissions, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, storeFailure(err, "", "", "failed to list submissions")
	}
	if submissions == nil {
		return []models.SubmissionDetail{}, nil
	}

	groups, err := s.groups.List(ctx)
	if err != nil {
		return nil, storeFailure(err, "", "", "failed to load group members")
	}
	members := make(map[string][]string, len(groups))
	for _, g := range groups {
		members[g.ID] = g.Members
	}
	for i := range submissions {
		decorateSubmission(&submissions[i], members[submissions[i].GroupID])
	}
	return submissions, nil
}

// Get returns one submission with its assessment progress.
func (s *SubmissionService) Get(ctx context.Context, id string) (*models.SubmissionDetail, error) {
	submission, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeFailure(err, "submission not found", "", "failed to load submission")
	}
	members, err := s.groups.MemberIDs(ctx, submission.GroupID)
	if err != nil {
		return nil, storeFailure(err, "", "", "failed to load group members")
	}
	decorateSubmission(submission, members)
	return submission, nil
}

// Create records a submission. The assignment's XP reward goes to the group
// and its members.
func (s *SubmissionService) Create(ctx context.Context, req CreateSubmissionRequest) (*models.SubmissionDetail, error) {
	req.AssignmentID = strings.TrimSpace(req.AssignmentID)
	req.GroupID = strings.TrimSpace(req.GroupID)
	req.Feedback = sanitizeText(req.Feedback)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid submission payload")
	}

	submission := &models.Submission{
		ID:           strings.TrimSpace(req.ID),
		AssignmentID: req.AssignmentID,
		GroupID:      req.GroupID,
		Feedback:     req.Feedback,
		Scores:       models.ScoreSheet{},
	}
	if req.SubmittedAt != nil {
		submission.SubmittedAt = *req.SubmittedAt
	}

	if err := s.repo.Create(ctx, submission); err != nil {
		return nil, storeFailure(err, "assignment not found",
			"assignment or group does not exist, or the group already submitted this assignment",
			"failed to create submission")
	}
	s.metrics.RecordEvent(EventSubmission)
	s.logger.Info("submission created",
		zap.String("submission_id", submission.ID),
		zap.String("assignment_id", submission.AssignmentID),
		zap.String("group_id", submission.GroupID))
	return s.Get(ctx, submission.ID)
}

// Assess stores scores and feedback. A nil scores object keeps the current
// sheet; a nil feedback keeps the current feedback.
func (s *SubmissionService) Assess(ctx context.Context, id string, req AssessSubmissionRequest) (*models.SubmissionDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid assessment payload")
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeFailure(err, "submission not found", "", "failed to load submission")
	}

	scores := current.Scores
	if req.Scores != nil {
		members, err := s.groups.MemberIDs(ctx, current.GroupID)
		if err != nil {
			return nil, storeFailure(err, "", "", "failed to load group members")
		}
		if err := validateScoreSheet(req.Scores, members); err != nil {
			return nil, err
		}
		scores = req.Scores
	}
	feedback := current.Feedback
	if req.Feedback != nil {
		feedback = sanitizeText(*req.Feedback)
	}

	if err := s.repo.UpdateAssessment(ctx, id, scores, feedback); err != nil {
		return nil, storeFailure(err, "submission not found", "", "failed to save assessment")
	}
	s.metrics.RecordEvent(EventAssessment)
	s.logger.Info("submission assessed", zap.String("submission_id", id), zap.Int("scores", scores.Count()))
	return s.Get(ctx, id)
}

// Delete removes a submission and its uploads.
func (s *SubmissionService) Delete(ctx context.Context, id string) error {
	files, err := s.repo.Delete(ctx, id)
	if err != nil {
		return storeFailure(err, "submission not found", "", "failed to delete submission")
	}
	removeFiles(s.files, s.logger, files)
	return nil
}

// validateScoreSheet accepts only known categories, members of the group and
// scores in the allowed range.
func validateScoreSheet(sheet models.ScoreSheet, members []string) error {
	known := make(map[string]struct{}, len(models.AssessmentCategories))
	for _, category := range models.AssessmentCategories {
		known[category] = struct{}{}
	}
	memberSet := make(map[string]struct{}, len(members))
	for _, id := range members {
		memberSet[id] = struct{}{}
	}

	var problems []string
	for category, scores := range sheet {
		if _, ok := known[category]; !ok {
			problems = append(problems, fmt.Sprintf("unknown category %q", category))
			continue
		}
		for studentID, score := range scores {
			if _, ok := memberSet[studentID]; !ok {
				problems = append(problems, fmt.Sprintf("student %q is not a member of the group", studentID))
				continue
			}
			if math.IsNaN(score) || score < models.MinScore || score > models.MaxScore {
				problems = append(problems, fmt.Sprintf("%s score for %q must be between %g and %g", category, studentID, models.MinScore, models.MaxScore))
			}
		}
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return invalid("invalid assessment: " + strings.Join(problems, "; "))
}

func decorateSubmission(submission *models.SubmissionDetail, members []string) {
	if submission.Scores == nil {
		submission.Scores = models.ScoreSheet{}
	}
	submission.MemberCount = len(members)
	filled := gamification.CountFilledScores(submission.Scores, models.AssessmentCategories, members)
	submission.Progress = gamification.AssessmentProgress(len(models.AssessmentCategories), len(members), filled)
	submission.Status = gamification.AssessmentStatus(submission.Progress)
}
