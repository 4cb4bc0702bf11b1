package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classquest-api/internal/dto"
	"github.com/noah-isme/classquest-api/pkg/response"
)

type exportService interface {
	Export(ctx context.Context, entity, format string) (*dto.ExportFile, error)
}

// ExportHandler streams CSV and PDF reports.
type ExportHandler struct {
	exports exportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports exportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Export godoc
// @Summary Export a report
// @Tags Exports
// @Produce octet-stream
// @Param entity path string true "students, groups, assignments or submissions"
// @Param format query string false "csv (default) or pdf"
// @Success 200 {file} binary
// @Router /exports/{entity} [get]
func (h *ExportHandler) Export(c *gin.Context) {
	file, err := h.exports.Export(c.Request.Context(), c.Param("entity"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.FileName))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
