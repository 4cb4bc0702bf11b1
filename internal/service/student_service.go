package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/classquest-api/internal/dto"
	"github.com/noah-isme/classquest-api/internal/gamification"
	"github.com/noah-isme/classquest-api/internal/models"
	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
)

// MaxBulkStudents caps a single bulk or import request.
const MaxBulkStudents = 500

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	UpdateAvatar(ctx context.Context, id, avatar string) error
	Delete(ctx context.Context, id string) error
}

type groupResolver interface {
	FindByID(ctx context.Context, id string) (*models.GroupDetail, error)
	FindByName(ctx context.Context, name string) (*models.Group, error)
}

// CreateStudentRequest holds payload for creating students. ID is optional;
// the server generates one when it is empty.
type CreateStudentRequest struct {
	ID      string  `json:"id" validate:"omitempty,max=64"`
	Name    string  `json:"name" validate:"required,max=120"`
	GroupID *string `json:"groupId" validate:"omitempty,min=1,max=64"`
	Avatar  string  `json:"avatar" validate:"max=512"`
	XP      int     `json:"xp" validate:"gte=0"`
	Streak  int     `json:"streak" validate:"gte=0"`
}

// UpdateStudentRequest is a partial update. A null groupId removes the
// student from its group.
type UpdateStudentRequest struct {
	Name    *string        `json:"name" validate:"omitempty,max=120"`
	GroupID NullableString `json:"groupId"`
	Avatar  *string        `json:"avatar" validate:"omitempty,max=512"`
	XP      *int           `json:"xp" validate:"omitempty,gte=0"`
	Streak  *int           `json:"streak" validate:"omitempty,gte=0"`
}

// UpdateAvatarRequest replaces a student's avatar.
type UpdateAvatarRequest struct {
	Avatar string `json:"avatar" validate:"required,max=512"`
}

// StudentService handles student use-cases.
type StudentService struct {
	repo      studentRepository
	groups    groupResolver
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, groups groupResolver, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, groups: groups, validator: validate, metrics: metrics, logger: logger}
}

// List returns students. Pagination is only reported when a page size is requested.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list students")
	}
	for i := range students {
		decorateStudent(&students[i])
	}
	if students == nil {
		students = []models.StudentDetail{}
	}
	if filter.PageSize <= 0 {
		return students, nil, nil
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	return students, &models.Pagination{Page: page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns a student with level metrics.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeFailure(err, "student not found", "", "failed to load student")
	}
	decorateStudent(student)
	return student, nil
}

// Create registers a new student, joining the given group when set.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.StudentDetail, error) {
	student, err := s.newStudent(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, storeFailure(err, "student not found", createConstraintMessage(student), "failed to create student")
	}
	return s.Get(ctx, student.ID)
}

// BulkCreate creates each record independently. Failures are reported per
// record and never abort the rest of the batch.
func (s *StudentService) BulkCreate(ctx context.Context, reqs []CreateStudentRequest) (*dto.BulkResult, error) {
	if len(reqs) == 0 {
		return nil, invalid("at least one student is required")
	}
	if len(reqs) > MaxBulkStudents {
		return nil, invalid(fmt.Sprintf("at most %d students per request", MaxBulkStudents))
	}

	result := &dto.BulkResult{Students: []models.Student{}, Errors: []string{}}
	for i, req := range reqs {
		student, err := s.newStudent(req)
		if err == nil {
			if err = s.repo.Create(ctx, student); err != nil {
				err = storeFailure(err, "", createConstraintMessage(student), "failed to create student")
			}
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("record %d (%s): %s", i+1, recordLabel(req), appErrors.FromError(err).Message))
			if appErrors.FromError(err).Status >= 500 {
				s.logger.Error("bulk student create failed", zap.Int("record", i+1), zap.Error(err))
			}
			continue
		}
		result.Created++
		result.Students = append(result.Students, *student)
	}
	return result, nil
}

// ImportCSV reads students from a CSV file with a name column (name or
// Naam) and an optional group column (group or Groep) holding a group id or
// name. Rows are created through BulkCreate semantics.
func (s *StudentService) ImportCSV(ctx context.Context, r io.Reader) (*dto.BulkResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, invalid("csv file is empty")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "malformed csv file")
	}
	nameCol, groupCol := -1, -1
	for i, column := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(column, "\ufeff"))) {
		case "name", "naam":
			nameCol = i
		case "group", "groep":
			groupCol = i
		}
	}
	if nameCol < 0 {
		return nil, invalid("csv file needs a name or Naam column")
	}

	var reqs []CreateStudentRequest
	var rowErrors []string
	groupIDs := map[string]*string{}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("malformed csv at line %d", line))
		}
		name := cell(record, nameCol)
		if name == "" {
			continue
		}
		req := CreateStudentRequest{Name: name}
		if ref := cell(record, groupCol); ref != "" {
			groupID, ok := groupIDs[ref]
			if !ok {
				groupID, err = s.resolveGroup(ctx, ref)
				if err != nil {
					return nil, err
				}
				groupIDs[ref] = groupID
			}
			if groupID == nil {
				rowErrors = append(rowErrors, fmt.Sprintf("line %d (%s): group %q not found", line, name, ref))
				continue
			}
			req.GroupID = groupID
		}
		reqs = append(reqs, req)
	}
	if len(reqs) == 0 && len(rowErrors) == 0 {
		return nil, invalid("csv file contains no students")
	}

	result := &dto.BulkResult{Students: []models.Student{}, Errors: []string{}}
	if len(reqs) > 0 {
		result, err = s.BulkCreate(ctx, reqs)
		if err != nil {
			return nil, err
		}
	}
	result.Errors = append(rowErrors, result.Errors...)
	s.metrics.RecordEvent(EventImport)
	s.logger.Info("students imported", zap.Int("created", result.Created), zap.Int("failed", len(result.Errors)))
	return result, nil
}

// Update applies a partial update.
func (s *StudentService) Update(ctx context.Context, id string, req UpdateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student payload")
	}
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, storeFailure(err, "student not found", "", "failed to load student")
	}

	student := detail.Student
	if req.Name != nil {
		name := sanitizeText(*req.Name)
		if name == "" {
			return nil, invalid("name must not be empty")
		}
		student.Name = name
	}
	if req.GroupID.Set {
		student.GroupID = req.GroupID.Value
		if student.GroupID != nil && strings.TrimSpace(*student.GroupID) == "" {
			student.GroupID = nil
		}
	}
	if req.Avatar != nil {
		student.Avatar = strings.TrimSpace(*req.Avatar)
	}
	if req.XP != nil {
		if *req.XP < student.XP {
			return nil, invalid("xp cannot decrease")
		}
		student.XP = *req.XP
	}
	if req.Streak != nil {
		student.Streak = *req.Streak
	}

	if err := s.repo.Update(ctx, &student); err != nil {
		return nil, storeFailure(err, "student not found", createConstraintMessage(&student), "failed to update student")
	}
	return s.Get(ctx, id)
}

// UpdateAvatar replaces only the avatar.
func (s *StudentService) UpdateAvatar(ctx context.Context, id string, req UpdateAvatarRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid avatar payload")
	}
	if err := s.repo.UpdateAvatar(ctx, id, strings.TrimSpace(req.Avatar)); err != nil {
		return nil, storeFailure(err, "student not found", "", "failed to update avatar")
	}
	return s.Get(ctx, id)
}

// Delete removes a student and its group membership.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return storeFailure(err, "student not found", "student is still referenced", "failed to delete student")
	}
	return nil
}

func (s *StudentService) newStudent(req CreateStudentRequest) (*models.Student, error) {
	req.Name = sanitizeText(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid student payload")
	}
	groupID := req.GroupID
	if groupID != nil && strings.TrimSpace(*groupID) == "" {
		groupID = nil
	}
	return &models.Student{
		ID:                    strings.TrimSpace(req.ID),
		Name:                  req.Name,
		GroupID:               groupID,
		Avatar:                strings.TrimSpace(req.Avatar),
		XP:                    req.XP,
		Streak:                req.Streak,
		ProfessionalityScores: models.ScoreMap{},
		Achievements:          models.StringList{},
	}, nil
}

// resolveGroup finds a group by id first and by name second. A nil id with
// a nil error means no such group.
func (s *StudentService) resolveGroup(ctx context.Context, ref string) (*string, error) {
	if s.groups == nil {
		return nil, appErrors.Internal(errors.New("group lookup not configured"), "failed to resolve group")
	}
	if group, err := s.groups.FindByID(ctx, ref); err == nil {
		return &group.ID, nil
	} else if !isNoRows(err) {
		return nil, appErrors.Internal(err, "failed to resolve group")
	}
	group, err := s.groups.FindByName(ctx, ref)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, appErrors.Internal(err, "failed to resolve group")
	}
	return &group.ID, nil
}

func decorateStudent(student *models.StudentDetail) {
	student.Level = gamification.LevelFromXP(student.XP)
	student.XPToNextLevel = gamification.XPToNextLevel(student.XP)
	student.LevelProgress = gamification.LevelProgress(student.XP)
	if student.Achievements == nil {
		student.Achievements = models.StringList{}
	}
	if student.ProfessionalityScores == nil {
		student.ProfessionalityScores = models.ScoreMap{}
	}
}

func createConstraintMessage(student *models.Student) string {
	if student.GroupID != nil {
		return fmt.Sprintf("group %s does not exist or student id is taken", *student.GroupID)
	}
	return "student id is already taken"
}

func recordLabel(req CreateStudentRequest) string {
	if name := strings.TrimSpace(req.Name); name != "" {
		return name
	}
	return "unnamed"
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
