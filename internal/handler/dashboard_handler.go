package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classquest-api/internal/dto"
	"github.com/noah-isme/classquest-api/internal/middleware"
	"github.com/noah-isme/classquest-api/internal/service"
	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
	"github.com/noah-isme/classquest-api/pkg/response"
)

type dashboardService interface {
	GroupLeaderboard(ctx context.Context) (*dto.GroupLeaderboard, bool, error)
	StudentLeaderboard(ctx context.Context, sortBy string, limit int) (*dto.StudentLeaderboard, bool, error)
	Teacher(ctx context.Context) (*dto.TeacherDashboard, bool, error)
	Student(ctx context.Context, studentID string) (*dto.StudentDashboard, bool, error)
}

// DashboardHandler wires leaderboards and dashboards to HTTP endpoints.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// GroupLeaderboard godoc
// @Summary Group leaderboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /leaderboard/groups [get]
func (h *DashboardHandler) GroupLeaderboard(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	board, hit, err := h.service.GroupLeaderboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, start, hit, board)
}

// StudentLeaderboard godoc
// @Summary Student leaderboard
// @Tags Dashboard
// @Produce json
// @Param sortBy query string false "score (default) or xp"
// @Param limit query int false "Maximum entries"
// @Success 200 {object} response.Envelope
// @Router /leaderboard/students [get]
func (h *DashboardHandler) StudentLeaderboard(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	sortBy := strings.ToLower(strings.TrimSpace(c.DefaultQuery("sortBy", service.SortByScore)))
	limit, _, ok := queryInt(c, "limit")
	if !ok {
		invalidQuery(c, "limit")
		return
	}
	start := time.Now()
	board, hit, err := h.service.StudentLeaderboard(c.Request.Context(), sortBy, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, start, hit, board)
}

// Teacher godoc
// @Summary Teacher dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /dashboard/teacher [get]
func (h *DashboardHandler) Teacher(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	summary, hit, err := h.service.Teacher(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, start, hit, summary)
}

// Student godoc
// @Summary Student dashboard
// @Tags Dashboard
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /dashboard/students/{id} [get]
func (h *DashboardHandler) Student(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	start := time.Now()
	summary, hit, err := h.service.Student(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, start, hit, summary)
}

func respondWithMeta(c *gin.Context, start time.Time, cacheHit bool, data interface{}) {
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, data, nil, meta)
}
