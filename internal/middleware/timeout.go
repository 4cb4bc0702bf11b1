package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
	"github.com/noah-isme/classquest-api/pkg/response"
)

// Timeout bounds every request with a context deadline. Handlers that have
// not written a response when the deadline passes get a 504.
func Timeout(d time.Duration) gin.HandlerFunc {
	if d <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if !c.Writer.Written() && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			response.Error(c, appErrors.ErrTimeout)
		}
	}
}
