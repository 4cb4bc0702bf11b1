package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
	"github.com/noah-isme/classquest-api/pkg/response"
)

// bindJSON decodes the request body into dest, answering 400 on failure.
func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return false
	}
	return true
}

// queryInt parses an optional positive integer query parameter.
// ok is false when the parameter is present but malformed.
func queryInt(c *gin.Context, name string) (value int, present bool, ok bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, false, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, true, false
	}
	return n, true, true
}

func invalidQuery(c *gin.Context, name string) {
	response.Error(c, appErrors.Clone(appErrors.ErrValidation, name+" must be a positive integer"))
}
