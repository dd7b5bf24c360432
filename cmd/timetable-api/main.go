package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/timetable-engine/api/swagger"
	"github.com/noah-isme/timetable-engine/internal/handler"
	"github.com/noah-isme/timetable-engine/internal/middleware"
	"github.com/noah-isme/timetable-engine/internal/models"
	"github.com/noah-isme/timetable-engine/internal/repository"
	"github.com/noah-isme/timetable-engine/internal/service"
	"github.com/noah-isme/timetable-engine/pkg/cache"
	"github.com/noah-isme/timetable-engine/pkg/config"
	"github.com/noah-isme/timetable-engine/pkg/database"
	"github.com/noah-isme/timetable-engine/pkg/jobs"
	"github.com/noah-isme/timetable-engine/pkg/logger"
	corsmiddleware "github.com/noah-isme/timetable-engine/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/timetable-engine/pkg/middleware/requestid"
)

// @title Timetable Engine API
// @version 1.0.0
// @description Course timetable generation and optimization
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg, "timetable-api")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, solve cache disabled", "error", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	metrics := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Scheduler.ResultCacheTTL, logr, redisClient != nil)

	jobRepo := repository.NewTimetableJobRepository(db)
	assignmentRepo := repository.NewTimetableAssignmentRepository(db)
	sourceRepo := repository.NewTimetableSourceRepository(db)

	runner := service.NewTimetableRunner(service.OptimizerSettings(cfg.Scheduler), metrics, logr)
	worker := service.NewTimetableWorker(jobRepo, assignmentRepo, runner, metrics, cfg.Scheduler.RequireComplete, logr)

	queue := jobs.NewQueue("timetable", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Jobs.Workers,
		BufferSize: cfg.Jobs.Buffer,
		MaxRetries: cfg.Jobs.Retries,
		Logger:     logr,
	})
	if err := metrics.TrackQueueDepth("timetable", queue.Pending); err != nil {
		return fmt.Errorf("register queue metrics: %w", err)
	}
	queue.Start(ctx)
	defer queue.Stop()

	timetableSvc := service.NewTimetableService(
		jobRepo,
		assignmentRepo,
		sourceRepo,
		queue,
		runner,
		cacheSvc,
		service.NewExportService(logr, nil, nil),
		metrics,
		validator.New(),
		logr,
		service.TimetableServiceConfig{
			Seed:            cfg.Scheduler.Seed,
			RequireComplete: cfg.Scheduler.RequireComplete,
			CacheTTL:        cfg.Scheduler.ResultCacheTTL,
		},
	)
	timetableSvc.RecoverInterruptedJobs(ctx)

	checks := map[string]handler.HealthCheck{"database": database.Ping(db)}
	if redisClient != nil {
		checks["redis"] = cache.Ping(redisClient)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	registerRoutes(r, cfg, handler.NewTimetableHandler(timetableSvc), handler.NewMetricsHandler(metrics, checks))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func registerRoutes(r *gin.Engine, cfg *config.Config, timetables *handler.TimetableHandler, ops *handler.MetricsHandler) {
	r.GET("/health", ops.Health)
	r.GET("/metrics", ops.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	writers := []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin, models.RoleScheduler}
	readers := append([]models.UserRole{models.RoleViewer}, writers...)

	api := r.Group(cfg.APIPrefix, middleware.JWT(cfg.JWT.Secret))
	api.POST("/timetables/solve", middleware.RequireRoles(writers...), timetables.Solve)
	api.POST("/timetable-jobs", middleware.RequireRoles(writers...), timetables.CreateJob)
	api.POST("/terms/:termId/timetable-jobs", middleware.RequireRoles(writers...), timetables.CreateTermJob)
	api.GET("/timetable-jobs/:id", middleware.RequireRoles(readers...), timetables.GetJob)
	api.GET("/timetable-jobs/:id/assignments", middleware.RequireRoles(readers...), timetables.Assignments)
	api.GET("/timetable-jobs/:id/export", middleware.RequireRoles(readers...), timetables.Export)
}
