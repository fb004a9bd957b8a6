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
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/brightpath-app/scheduling-api/api/swagger"
	"github.com/brightpath-app/scheduling-api/internal/handler"
	"github.com/brightpath-app/scheduling-api/internal/middleware"
	"github.com/brightpath-app/scheduling-api/internal/models"
	"github.com/brightpath-app/scheduling-api/internal/repository"
	"github.com/brightpath-app/scheduling-api/internal/service"
	"github.com/brightpath-app/scheduling-api/pkg/cache"
	"github.com/brightpath-app/scheduling-api/pkg/config"
	"github.com/brightpath-app/scheduling-api/pkg/database"
	"github.com/brightpath-app/scheduling-api/pkg/jobs"
	"github.com/brightpath-app/scheduling-api/pkg/logger"
	corsmiddleware "github.com/brightpath-app/scheduling-api/pkg/middleware/cors"
	reqidmiddleware "github.com/brightpath-app/scheduling-api/pkg/middleware/requestid"
	"github.com/brightpath-app/scheduling-api/pkg/storage"
)

// @title BrightPath Scheduling API
// @version 0.1.0
// @description Adaptive weekly schedule generation for homeschooling families
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if client, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Sugar().Warnw("redis unavailable, schedule cache disabled", "error", err)
	} else {
		redisClient = client
		defer redisClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	childRepo := repository.NewChildRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	commitmentRepo := repository.NewCommitmentRepository(db)
	preferenceRepo := repository.NewPreferenceRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	modelRepo := repository.NewEvaluatorModelRepository(db)
	scheduleCache := repository.NewScheduleCacheRepository(redisClient, cfg.Generator.CacheTTL)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	preferenceSvc := service.NewPreferenceService(preferenceRepo, validate, logr)
	profileSvc := service.NewProfileService(childRepo, subjectRepo, commitmentRepo, validate, logr)
	constraintSvc := service.NewConstraintService(commitmentRepo, subjectRepo, logr)
	evaluatorSvc := service.NewEvaluatorService(modelRepo, db, logr)
	generatorDefaults := models.DefaultGeneratorParams()
	if cfg.Generator.MinBlockMinutes > 0 {
		generatorDefaults.MinBlockMinutes = cfg.Generator.MinBlockMinutes
	}
	if cfg.Generator.MaxBlockMinutes > 0 {
		generatorDefaults.MaxBlockMinutes = cfg.Generator.MaxBlockMinutes
	}
	if cfg.Generator.BreakMinutes > 0 {
		generatorDefaults.BreakMinutes = cfg.Generator.BreakMinutes
	}
	generatorSvc := service.NewGeneratorService(
		childRepo, preferenceSvc, constraintSvc, scheduleRepo, modelRepo,
		scheduleCache, db, repository.IsUniqueViolation, metricsSvc,
		generatorDefaults, logr,
	)
	activitySvc := service.NewActivityService(scheduleRepo, activityRepo, scheduleCache, db, validate, logr)
	feedbackSvc := service.NewFeedbackService(
		feedbackRepo, scheduleRepo, activityRepo, evaluatorSvc,
		jobs.QueueConfig{Workers: cfg.Retraining.Workers, Logger: logr},
		metricsSvc, validate, logr,
		service.RetrainingConfig{
			Enabled:    cfg.Retraining.Enabled,
			Interval:   cfg.Retraining.Interval,
			Timeout:    cfg.Retraining.Timeout,
			MinSamples: cfg.Retraining.MinSamples,
		},
	)
	feedbackSvc.Start(ctx)
	defer feedbackSvc.Stop()

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init export storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportSvc = service.NewExportService(generatorSvc, files, signer, service.ExportConfig{
			ResultTTL:       cfg.Exports.SignedURLTTL,
			CleanupInterval: cfg.Exports.CleanupInterval,
		}, logr, nil, nil)
		exportSvc.StartCleanup(ctx)
	}

	preferenceHandler := handler.NewPreferenceHandler(preferenceSvc)
	profileHandler := handler.NewProfileHandler(profileSvc)
	scheduleHandler := handler.NewScheduleHandler(generatorSvc, exportSvc)
	activityHandler := handler.NewActivityHandler(activitySvc)
	feedbackHandler := handler.NewFeedbackHandler(feedbackSvc, evaluatorSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/families/:familyId/preferences", preferenceHandler.Submit)
		api.GET("/families/:familyId/preferences", preferenceHandler.Latest)
		api.POST("/families/:familyId/children", profileHandler.CreateChild)
		api.POST("/families/:familyId/commitments", profileHandler.CreateCommitment)
		api.GET("/families/:familyId/commitments", profileHandler.ListCommitments)

		api.GET("/children/:childId", profileHandler.GetChild)
		api.PUT("/children/:childId", profileHandler.UpdateChild)
		api.POST("/children/:childId/subjects", profileHandler.CreateSubject)
		api.GET("/children/:childId/subjects", profileHandler.ListSubjects)
		api.DELETE("/subjects/:id", profileHandler.DeleteSubject)
		api.DELETE("/commitments/:id", profileHandler.DeleteCommitment)

		api.POST("/children/:childId/schedule/generate", scheduleHandler.Generate)
		api.GET("/children/:childId/schedule/active", scheduleHandler.Active)
		api.GET("/children/:childId/schedule/export", scheduleHandler.Export)
		api.GET("/exports/:token", scheduleHandler.Download)

		api.POST("/schedule-items/:id/complete", activityHandler.Complete)
		api.POST("/schedule-items/:id/reschedule", activityHandler.Reschedule)
		api.POST("/schedule-items/:id/skip", activityHandler.Skip)
		api.GET("/schedules/:id/activity", activityHandler.History)
		api.GET("/schedules/:id/items", scheduleHandler.Items)

		api.POST("/schedules/:id/feedback", feedbackHandler.Submit)
		api.POST("/evaluator/retrain", feedbackHandler.Retrain)
		api.GET("/evaluator/models", feedbackHandler.Models)
		api.POST("/evaluator/models/:id/activate", feedbackHandler.ActivateModel)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
