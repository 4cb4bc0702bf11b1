package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/internal/repository"
	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
)

type mockAssignmentRepo struct {
	assignments map[string]models.AssignmentDetail
	order       []string
	err         error
}

func newMockAssignmentRepo(items ...models.AssignmentDetail) *mockAssignmentRepo {
	m := &mockAssignmentRepo{assignments: map[string]models.AssignmentDetail{}}
	for _, a := range items {
		m.assignments[a.ID] = a
		m.order = append(m.order, a.ID)
	}
	return m
}

func (m *mockAssignmentRepo) List(ctx context.Context) ([]models.AssignmentDetail, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]models.AssignmentDetail, 0, len(m.order))
	for _, id := range m.order {
		if a, ok := m.assignments[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAssignmentRepo) FindByID(ctx context.Context, id string) (*models.AssignmentDetail, error) {
	if a, ok := m.assignments[id]; ok {
		return &a, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssignmentRepo) Create(ctx context.Context, assignment *models.Assignment) error {
	if assignment.ID == "" {
		assignment.ID = fmt.Sprintf("a%d", len(m.assignments)+1)
	}
	if _, exists := m.assignments[assignment.ID]; exists {
		return fmt.Errorf("create assignment: %w", repository.ErrDuplicate)
	}
	m.assignments[assignment.ID] = models.AssignmentDetail{Assignment: *assignment}
	m.order = append(m.order, assignment.ID)
	return nil
}

func (m *mockAssignmentRepo) Update(ctx context.Context, assignment *models.Assignment) error {
	current, ok := m.assignments[assignment.ID]
	if !ok {
		return sql.ErrNoRows
	}
	current.Assignment = *assignment
	m.assignments[assignment.ID] = current
	return nil
}

func (m *mockAssignmentRepo) Delete(ctx context.Context, id string) ([]string, error) {
	if _, ok := m.assignments[id]; !ok {
		return nil, sql.ErrNoRows
	}
	delete(m.assignments, id)
	return []string{id + "/brief.pdf"}, nil
}

type staticGroupCounter int

func (c staticGroupCounter) Count(ctx context.Context) (int, error) { return int(c), nil }

var fixedNow = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func newAssignmentService(repo *mockAssignmentRepo, groups int) *AssignmentService {
	svc := NewAssignmentService(repo, staticGroupCounter(groups), nil, validator.New(), zap.NewNop(), AssignmentServiceConfig{})
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestAssignmentServiceCreateDefaults(t *testing.T) {
	svc := newAssignmentService(newMockAssignmentRepo(), 4)

	assignment, err := svc.Create(context.Background(), CreateAssignmentRequest{
		Title:   "Poster",
		DueDate: fixedNow.Add(7 * 24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultXPReward, assignment.XPReward)
	assert.Equal(t, models.DifficultyMedium, assignment.Difficulty)
	assert.Equal(t, 4, assignment.TotalGroups)
	assert.Equal(t, 0, assignment.SubmissionCount)
	assert.Equal(t, models.AssignmentStatusOpen, assignment.Status)
}

func TestAssignmentServiceCreateValidates(t *testing.T) {
	svc := newAssignmentService(newMockAssignmentRepo(), 4)

	_, err := svc.Create(context.Background(), CreateAssignmentRequest{Title: "Poster"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dueDate is required")

	_, err = svc.Create(context.Background(), CreateAssignmentRequest{Title: "Poster", DueDate: fixedNow, Difficulty: "Impossible"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAssignmentServiceDerivesStatus(t *testing.T) {
	repo := newMockAssignmentRepo(
		models.AssignmentDetail{Assignment: models.Assignment{ID: "soon", DueDate: fixedNow.Add(12 * time.Hour), TotalGroups: 3}},
		models.AssignmentDetail{Assignment: models.Assignment{ID: "late", DueDate: fixedNow.Add(-time.Hour), TotalGroups: 3}, SubmissionCount: 1},
		models.AssignmentDetail{Assignment: models.Assignment{ID: "done", DueDate: fixedNow.Add(-time.Hour), TotalGroups: 3}, SubmissionCount: 3},
		models.AssignmentDetail{Assignment: models.Assignment{ID: "manual", DueDate: fixedNow.Add(240 * time.Hour), Closed: true}},
	)
	svc := newAssignmentService(repo, 3)

	assignments, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, assignments, 4)
	assert.Equal(t, models.AssignmentStatusAlmostClosing, assignments[0].Status)
	assert.Equal(t, models.AssignmentStatusOverdue, assignments[1].Status)
	assert.Equal(t, models.AssignmentStatusClosed, assignments[2].Status)
	assert.Equal(t, models.AssignmentStatusClosed, assignments[3].Status)
}

func TestAssignmentServiceUpdateClosesManually(t *testing.T) {
	repo := newMockAssignmentRepo(models.AssignmentDetail{Assignment: models.Assignment{
		ID: "a1", Title: "Poster", DueDate: fixedNow.Add(240 * time.Hour), XPReward: 150,
	}})
	svc := newAssignmentService(repo, 3)

	closed := true
	assignment, err := svc.Update(context.Background(), "a1", UpdateAssignmentRequest{Closed: &closed})
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentStatusClosed, assignment.Status)
	assert.Equal(t, "Poster", assignment.Title)
	assert.Equal(t, 150, assignment.XPReward)

	_, err = svc.Update(context.Background(), "missing", UpdateAssignmentRequest{Closed: &closed})
	assert.Equal(t, appErrors.ErrNotFound.Status, appErrors.FromError(err).Status)
}

func TestAssignmentServiceDelete(t *testing.T) {
	repo := newMockAssignmentRepo(models.AssignmentDetail{Assignment: models.Assignment{ID: "a1"}})
	svc := newAssignmentService(repo, 3)
	files := &recordingFiles{}
	svc.files = files

	require.NoError(t, svc.Delete(context.Background(), "a1"))
	assert.Equal(t, []string{"a1/brief.pdf"}, files.removed)
	err := svc.Delete(context.Background(), "a1")
	assert.Equal(t, appErrors.ErrNotFound.Status, appErrors.FromError(err).Status)
}
