package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classquest-api/internal/dto"
	"github.com/noah-isme/classquest-api/internal/models"
	"github.com/noah-isme/classquest-api/internal/service"
	"github.com/noah-isme/classquest-api/pkg/response"
)

type achievementService interface {
	List(ctx context.Context) ([]models.Achievement, error)
	ListForStudent(ctx context.Context, studentID string) ([]models.StudentAchievement, error)
	Create(ctx context.Context, req service.CreateAchievementRequest) (*models.Achievement, error)
	Delete(ctx context.Context, id string) error
	Award(ctx context.Context, studentID string, req service.AwardAchievementRequest) (*dto.AwardResult, error)
}

// AchievementHandler exposes the badge catalogue and awards.
type AchievementHandler struct {
	achievements achievementService
}

// NewAchievementHandler constructs AchievementHandler.
func NewAchievementHandler(achievements achievementService) *AchievementHandler {
	return &AchievementHandler{achievements: achievements}
}

// List godoc
// @Summary List achievements
// @Tags Achievements
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /achievements [get]
func (h *AchievementHandler) List(c *gin.Context) {
	items, err := h.achievements.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Create godoc
// @Summary Create achievement
// @Tags Achievements
// @Accept json
// @Produce json
// @Param payload body service.CreateAchievementRequest true "Achievement payload"
// @Success 201 {object} response.Envelope
// @Router /achievements [post]
func (h *AchievementHandler) Create(c *gin.Context) {
	var req service.CreateAchievementRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := h.achievements.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Delete godoc
// @Summary Delete achievement
// @Tags Achievements
// @Param id path string true "Achievement ID"
// @Success 204
// @Router /achievements/{id} [delete]
func (h *AchievementHandler) Delete(c *gin.Context) {
	if err := h.achievements.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListForStudent godoc
// @Summary List a student's achievements
// @Tags Achievements
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/achievements [get]
func (h *AchievementHandler) ListForStudent(c *gin.Context) {
	items, err := h.achievements.ListForStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Award godoc
// @Summary Award an achievement to a student
// @Description Awarding twice is a no-op; awarded reports whether anything changed.
// @Tags Achievements
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.AwardAchievementRequest true "Achievement"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/achievements [post]
func (h *AchievementHandler) Award(c *gin.Context) {
	var req service.AwardAchievementRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.achievements.Award(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
