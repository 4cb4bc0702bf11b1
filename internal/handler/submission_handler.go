package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/internal/service"
	"github.com/noah-isme/classquest-api/pkg/response"
)

type submissionService interface {
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.SubmissionDetail, error)
	Get(ctx context.Context, id string) (*models.SubmissionDetail, error)
	Create(ctx context.Context, req service.CreateSubmissionRequest) (*models.SubmissionDetail, error)
	Assess(ctx context.Context, id string, req service.AssessSubmissionRequest) (*models.SubmissionDetail, error)
	Delete(ctx context.Context, id string) error
}

// SubmissionHandler exposes submission endpoints.
type SubmissionHandler struct {
	submissions submissionService
}

// NewSubmissionHandler constructs SubmissionHandler.
func NewSubmissionHandler(submissions submissionService) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions}
}

// List godoc
// @Summary List submissions
// @Tags Submissions
// @Produce json
// @Param assignmentId query string false "Filter by assignment"
// @Param groupId query string false "Filter by group"
// @Success 200 {object} response.Envelope
// @Router /submissions [get]
func (h *SubmissionHandler) List(c *gin.Context) {
	filter := models.SubmissionFilter{
		AssignmentID: strings.TrimSpace(c.Query("assignmentId")),
		GroupID:      strings.TrimSpace(c.Query("groupId")),
	}
	submissions, err := h.submissions.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submissions, nil)
}

// Get godoc
// @Summary Get submission with assessment progress
// @Tags Submissions
// @Produce json
// @Param id path string true "Submission ID"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id} [get]
func (h *SubmissionHandler) Get(c *gin.Context) {
	submission, err := h.submissions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// Create godoc
// @Summary Hand in work for a group
// @Tags Submissions
// @Accept json
// @Produce json
// @Param payload body service.CreateSubmissionRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /submissions [post]
func (h *SubmissionHandler) Create(c *gin.Context) {
	var req service.CreateSubmissionRequest
	if !bindJSON(c, &req) {
		return
	}
	submission, err := h.submissions.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, submission)
}

// Assess godoc
// @Summary Record professionality scores and feedback
// @Tags Submissions
// @Accept json
// @Produce json
// @Param id path string true "Submission ID"
// @Param payload body service.AssessSubmissionRequest true "Scores per category and student"
// @Success 200 {object} response.Envelope
// @Router /submissions/{id} [put]
func (h *SubmissionHandler) Assess(c *gin.Context) {
	var req service.AssessSubmissionRequest
	if !bindJSON(c, &req) {
		return
	}
	submission, err := h.submissions.Assess(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, submission, nil)
}

// Delete godoc
// @Summary Delete submission
// @Tags Submissions
// @Param id path string true "Submission ID"
// @Success 204
// @Router /submissions/{id} [delete]
func (h *SubmissionHandler) Delete(c *gin.Context) {
	if err := h.submissions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
