// Package app wires repositories, services and handlers into a runnable API.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/classquest-api/internal/handler"
	"github.com/noah-isme/classquest-api/internal/repository"
	"github.com/noah-isme/classquest-api/internal/router"
	"github.com/noah-isme/classquest-api/internal/seed"
	"github.com/noah-isme/classquest-api/internal/service"
	"github.com/noah-isme/classquest-api/pkg/config"
	"github.com/noah-isme/classquest-api/pkg/storage"
)

// App holds the assembled HTTP engine and the services behind it.
type App struct {
	Engine       *gin.Engine
	Metrics      *service.MetricsService
	Cache        *service.CacheService
	Students     *service.StudentService
	Groups       *service.GroupService
	Assignments  *service.AssignmentService
	Submissions  *service.SubmissionService
	Uploads      *service.UploadService
	Achievements *service.AchievementService
	Dashboard    *service.DashboardService
	Exports      *service.ExportService
}

// New builds the application on an open, migrated database. redisClient may
// be nil, in which case dashboard caching always misses.
func New(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := validator.New()
	metrics := service.NewMetricsService()

	store, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("init upload storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	studentRepo := repository.NewStudentRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	uploadRepo := repository.NewUploadRepository(db)
	achievementRepo := repository.NewAchievementRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logger)

	a := &App{Metrics: metrics}
	a.Cache = service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logger, cfg.Dashboard.CacheEnabled && redisClient != nil)
	a.Groups = service.NewGroupService(groupRepo, store, validate, logger)
	a.Students = service.NewStudentService(studentRepo, a.Groups, validate, metrics, logger)
	a.Assignments = service.NewAssignmentService(assignmentRepo, groupRepo, store, validate, logger, service.AssignmentServiceConfig{
		ClosingWindow: cfg.Assignments.ClosingWindow,
	})
	a.Submissions = service.NewSubmissionService(submissionRepo, groupRepo, store, validate, metrics, logger)
	a.Uploads = service.NewUploadService(uploadRepo, submissionRepo, store, signer, metrics, logger, service.UploadServiceConfig{
		MaxFileSize:  cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Uploads.AllowedMIMEs,
	})
	a.Achievements = service.NewAchievementService(achievementRepo, studentRepo, validate, metrics, logger)
	a.Dashboard = service.NewDashboardService(service.DashboardServiceParams{
		Students:    a.Students,
		Groups:      a.Groups,
		Assignments: a.Assignments,
		Submissions: a.Submissions,
		Uploads:     a.Uploads,
		Cache:       a.Cache,
		Logger:      logger,
	})
	a.Exports = service.NewExportService(service.ExportServiceParams{
		Students:    a.Students,
		Groups:      a.Groups,
		Assignments: a.Assignments,
		Submissions: a.Submissions,
		Logger:      logger,
	})

	a.Engine = router.New(router.Handlers{
		Students:     handler.NewStudentHandler(a.Students),
		Groups:       handler.NewGroupHandler(a.Groups),
		Assignments:  handler.NewAssignmentHandler(a.Assignments),
		Submissions:  handler.NewSubmissionHandler(a.Submissions),
		Uploads:      handler.NewUploadHandler(a.Uploads, cfg.Uploads.MaxFileSizeBytes, cfg.APIPrefix),
		Achievements: handler.NewAchievementHandler(a.Achievements),
		Dashboard:    handler.NewDashboardHandler(a.Dashboard),
		Exports:      handler.NewExportHandler(a.Exports),
		Metrics:      handler.NewMetricsHandler(metrics, db),
	}, router.Options{
		Env:            cfg.Env,
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RateLimitRPS:   cfg.RateLimit.RPS,
		RateLimitBurst: cfg.RateLimit.Burst,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		Metrics:        metrics,
		Cache:          a.Cache,
		Logger:         logger,
	})
	return a, nil
}

// SeedDemo inserts the demo class when the store is empty.
func (a *App) SeedDemo(ctx context.Context, logger *zap.Logger) (bool, error) {
	seeder := &seed.Seeder{
		Groups:       a.Groups,
		Students:     a.Students,
		Assignments:  a.Assignments,
		Achievements: a.Achievements,
		Logger:       logger,
	}
	return seeder.Run(ctx)
}
