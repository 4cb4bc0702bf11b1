// Package router assembles the HTTP surface of the dashboard API.
package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/classquest-api/internal/handler"
	"github.com/noah-isme/classquest-api/internal/middleware"
	"github.com/noah-isme/classquest-api/internal/service"
	"github.com/noah-isme/classquest-api/pkg/config"
	appErrors "github.com/noah-isme/classquest-api/pkg/errors"
	"github.com/noah-isme/classquest-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/classquest-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/classquest-api/pkg/middleware/requestid"
	"github.com/noah-isme/classquest-api/pkg/response"
)

// Handlers bundles every HTTP handler mounted by the router.
type Handlers struct {
	Students     *handler.StudentHandler
	Groups       *handler.GroupHandler
	Assignments  *handler.AssignmentHandler
	Submissions  *handler.SubmissionHandler
	Uploads      *handler.UploadHandler
	Achievements *handler.AchievementHandler
	Dashboard    *handler.DashboardHandler
	Exports      *handler.ExportHandler
	Metrics      *handler.MetricsHandler
}

// Options carries the cross-cutting settings applied to every route.
type Options struct {
	Env            string
	APIPrefix      string
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
	RequestTimeout time.Duration
	Metrics        *service.MetricsService
	Cache          middleware.CacheInvalidator
	Logger         *zap.Logger
}

// New builds the gin engine with middleware and routes.
func New(h Handlers, opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	prefix := "/" + strings.Trim(opts.APIPrefix, "/")
	if prefix == "/" {
		prefix = ""
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Metrics))

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "route not found"))
	})

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if opts.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(prefix)
	api.Use(middleware.RateLimit(opts.RateLimitRPS, opts.RateLimitBurst))
	api.Use(middleware.Timeout(opts.RequestTimeout))
	api.Use(middleware.WithResponseMeta())
	if opts.Cache != nil {
		api.Use(middleware.InvalidateOnWrite(opts.Cache, service.DashboardCachePattern, opts.Logger))
	}

	students := api.Group("/students")
	students.GET("", h.Students.List)
	students.POST("", h.Students.Create)
	students.POST("/bulk", h.Students.BulkCreate)
	students.POST("/import", h.Students.Import)
	students.GET("/:id", h.Students.Get)
	students.PUT("/:id", h.Students.Update)
	students.DELETE("/:id", h.Students.Delete)
	students.PATCH("/:id/avatar", h.Students.UpdateAvatar)
	students.GET("/:id/achievements", h.Achievements.ListForStudent)
	students.POST("/:id/achievements", h.Achievements.Award)

	groups := api.Group("/groups")
	groups.GET("", h.Groups.List)
	groups.POST("", h.Groups.Create)
	groups.GET("/:id", h.Groups.Get)
	groups.PUT("/:id", h.Groups.Update)
	groups.DELETE("/:id", h.Groups.Delete)
	groups.POST("/:id/daily-scores", h.Groups.RecordDailyScore)

	assignments := api.Group("/assignments")
	assignments.GET("", h.Assignments.List)
	assignments.POST("", h.Assignments.Create)
	assignments.GET("/:id", h.Assignments.Get)
	assignments.PUT("/:id", h.Assignments.Update)
	assignments.DELETE("/:id", h.Assignments.Delete)

	submissions := api.Group("/submissions")
	submissions.GET("", h.Submissions.List)
	submissions.POST("", h.Submissions.Create)
	submissions.GET("/:id", h.Submissions.Get)
	submissions.PUT("/:id", h.Submissions.Assess)
	submissions.DELETE("/:id", h.Submissions.Delete)

	uploads := api.Group("/uploads")
	uploads.GET("", h.Uploads.List)
	uploads.POST("", h.Uploads.Upload)
	uploads.GET("/download", h.Uploads.Download)
	uploads.GET("/:id", h.Uploads.Get)
	uploads.GET("/:id/link", h.Uploads.Link)
	uploads.DELETE("/:id", h.Uploads.Delete)

	achievements := api.Group("/achievements")
	achievements.GET("", h.Achievements.List)
	achievements.POST("", h.Achievements.Create)
	achievements.DELETE("/:id", h.Achievements.Delete)

	api.GET("/leaderboard/groups", h.Dashboard.GroupLeaderboard)
	api.GET("/leaderboard/students", h.Dashboard.StudentLeaderboard)
	api.GET("/dashboard/teacher", h.Dashboard.Teacher)
	api.GET("/dashboard/students/:id", h.Dashboard.Student)

	api.GET("/exports/:entity", h.Exports.Export)

	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		response.Error(c, appErrors.New("METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed, "method not allowed"))
	})
	return r
}
