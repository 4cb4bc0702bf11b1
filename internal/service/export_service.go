package service

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/classquest-api/internal/dto"
	"github.com/noah-isme/classquest-api/internal/models"
	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
	"github.com/noah-isme/classquest-api/pkg/export"
)

// Exportable entities.
const (
	ExportStudents    = "students"
	ExportGroups      = "groups"
	ExportAssignments = "assignments"
	ExportSubmissions = "submissions"
)

// ExportServiceParams groups constructor dependencies.
type ExportServiceParams struct {
	Students    studentLister
	Groups      groupLister
	Assignments assignmentLister
	Submissions submissionLister
	Logger      *zap.Logger
}

// ExportService renders entity listings as downloadable CSV or PDF reports.
type ExportService struct {
	students    studentLister
	groups      groupLister
	assignments assignmentLister
	submissions submissionLister
	logger      *zap.Logger
	now         func() time.Time
}

// NewExportService constructs the export service.
func NewExportService(params ExportServiceParams) *ExportService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		students:    params.Students,
		groups:      params.Groups,
		assignments: params.Assignments,
		submissions: params.Submissions,
		logger:      logger,
		now:         time.Now,
	}
}

// Export renders entity in the requested format.
func (s *ExportService) Export(ctx context.Context, entity, rawFormat string) (*dto.ExportFile, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be one of [csv pdf]")
	}

	var table export.Table
	switch strings.ToLower(strings.TrimSpace(entity)) {
	case ExportStudents:
		table, err = s.studentTable(ctx)
	case ExportGroups:
		table, err = s.groupTable(ctx)
	case ExportAssignments:
		table, err = s.assignmentTable(ctx)
	case ExportSubmissions:
		table, err = s.submissionTable(ctx)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "entity must be one of [students groups assignments submissions]")
	}
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := export.RendererFor(format).Render(&buf, table); err != nil {
		return nil, appErrors.Internal(err, "failed to render export")
	}

	name := fmt.Sprintf("classquest-%s-%s.%s", strings.ToLower(entity), s.now().UTC().Format("20060102"), format)
	s.logger.Info("export rendered", zap.String("entity", entity), zap.String("format", string(format)), zap.Int("rows", len(table.Rows)))
	return &dto.ExportFile{FileName: name, ContentType: format.ContentType(), Data: buf.Bytes()}, nil
}

func (s *ExportService) studentTable(ctx context.Context) (export.Table, error) {
	students, _, err := s.students.List(ctx, models.StudentFilter{})
	if err != nil {
		return export.Table{}, err
	}
	table := export.Table{
		Title:   "Students",
		Columns: []string{"ID", "Name", "Group", "Level", "XP", "Streak", "Average score", "Badges"},
	}
	for _, st := range students {
		group := ""
		if st.GroupName != nil {
			group = *st.GroupName
		}
		table.Rows = append(table.Rows, []string{
			st.ID, st.Name, group, strconv.Itoa(st.Level), strconv.Itoa(st.XP), strconv.Itoa(st.Streak),
			formatScore(st.AverageScore), strings.Join(st.Achievements, " "),
		})
	}
	return table, nil
}

func (s *ExportService) groupTable(ctx context.Context) (export.Table, error) {
	groups, err := s.groups.List(ctx)
	if err != nil {
		return export.Table{}, err
	}
	table := export.Table{
		Title:   "Groups",
		Columns: []string{"ID", "Name", "Members", "Normalized score", "Completeness", "Quality", "XP", "Level", "Streak"},
	}
	for _, g := range groups {
		table.Rows = append(table.Rows, []string{
			g.ID, g.Name, strconv.Itoa(len(g.Members)), formatScore(g.NormalizedScore),
			formatScore(g.Completeness), formatScore(g.Quality), strconv.Itoa(g.XP), strconv.Itoa(g.Level), strconv.Itoa(g.Streak),
		})
	}
	return table, nil
}

func (s *ExportService) assignmentTable(ctx context.Context) (export.Table, error) {
	assignments, err := s.assignments.List(ctx)
	if err != nil {
		return export.Table{}, err
	}
	table := export.Table{
		Title:   "Assignments",
		Columns: []string{"ID", "Title", "Due", "Status", "Submissions", "Groups", "XP reward", "Difficulty"},
	}
	for _, a := range assignments {
		table.Rows = append(table.Rows, []string{
			a.ID, a.Title, a.DueDate.UTC().Format(time.RFC3339), string(a.Status),
			strconv.Itoa(a.SubmissionCount), strconv.Itoa(a.TotalGroups), strconv.Itoa(a.XPReward), string(a.Difficulty),
		})
	}
	return table, nil
}

func (s *ExportService) submissionTable(ctx context.Context) (export.Table, error) {
	submissions, err := s.submissions.List(ctx, models.SubmissionFilter{})
	if err != nil {
		return export.Table{}, err
	}
	table := export.Table{
		Title:   "Submissions",
		Columns: []string{"ID", "Assignment", "Group", "Submitted", "Status", "Progress", "Feedback"},
	}
	for _, sub := range submissions {
		table.Rows = append(table.Rows, []string{
			sub.ID, sub.AssignmentTitle, sub.GroupName, sub.SubmittedAt.UTC().Format(time.RFC3339),
			string(sub.Status), formatScore(sub.Progress) + "%", sub.Feedback,
		})
	}
	return table, nil
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
