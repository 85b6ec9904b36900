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

	_ "github.com/Sebxs22/Proyecto-de-Grado/api/swagger"
	"github.com/Sebxs22/Proyecto-de-Grado/internal/handler"
	"github.com/Sebxs22/Proyecto-de-Grado/internal/middleware"
	"github.com/Sebxs22/Proyecto-de-Grado/internal/repository"
	"github.com/Sebxs22/Proyecto-de-Grado/internal/service"
	"github.com/Sebxs22/Proyecto-de-Grado/pkg/cache"
	"github.com/Sebxs22/Proyecto-de-Grado/pkg/classifier"
	"github.com/Sebxs22/Proyecto-de-Grado/pkg/config"
	"github.com/Sebxs22/Proyecto-de-Grado/pkg/database"
	"github.com/Sebxs22/Proyecto-de-Grado/pkg/export"
	"github.com/Sebxs22/Proyecto-de-Grado/pkg/logger"
	corsmiddleware "github.com/Sebxs22/Proyecto-de-Grado/pkg/middleware/cors"
	reqidmiddleware "github.com/Sebxs22/Proyecto-de-Grado/pkg/middleware/requestid"
)

// @title Tutoring Risk API
// @version 1.0.0
// @description Academic risk scoring and proactive tutoring interventions
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, rating cache disabled", zap.Error(err))
	}

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	var cachePinger *repository.CacheRepository
	if redisClient != nil {
		cachePinger = repository.NewCacheRepository(redisClient, logr)
		cacheRepo = cachePinger
		defer cachePinger.Close() //nolint:errcheck
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.RatingCacheTTL, logr, cacheRepo != nil)

	enrollments := repository.NewEnrollmentRepository(db)
	grades := repository.NewGradeRepository(db)
	sessions := repository.NewSessionRepository(db)
	evaluations := repository.NewEvaluationRepository(db)
	locker := repository.NewEnrollmentLocker(db)

	var model classifier.Classifier
	if cfg.Risk.ModelPath != "" {
		loaded, loadErr := classifier.Load(cfg.Risk.ModelPath)
		if loadErr != nil {
			logr.Error("failed to load risk model, using rules only", zap.String("path", cfg.Risk.ModelPath), zap.Error(loadErr))
		} else {
			model = loaded
		}
	}

	validate := validator.New()

	estimator := service.NewRiskEstimator(service.RiskEstimatorParams{
		Policy:     cfg.Risk,
		Classifier: model,
		Metrics:    metrics,
		Logger:     logr,
	})
	guard := service.NewInterventionGuard(service.InterventionGuardParams{
		Locker:   locker,
		Sessions: sessions,
		Config:   cfg.Intervention,
		Metrics:  metrics,
		Logger:   logr,
	})
	riskSvc := service.NewRiskService(service.RiskServiceParams{
		Features:    service.NewFeatureExtractor(enrollments, grades, sessions),
		Estimator:   estimator,
		Guard:       guard,
		Enrollments: enrollments,
		Metrics:     metrics,
		Logger:      logr,
		Concurrency: cfg.Risk.BatchConcurrency,
	})
	sessionSvc := service.NewSessionService(service.SessionServiceParams{
		Sessions:  sessions,
		Locker:    locker,
		Validator: validate,
		Logger:    logr,
	})
	evaluationSvc := service.NewEvaluationService(service.EvaluationServiceParams{
		Sessions:      sessions,
		Evaluations:   evaluations,
		Cache:         cacheSvc,
		CacheTTL:      cfg.Dashboard.RatingCacheTTL,
		DefaultRating: cfg.Dashboard.DefaultRating,
		Validator:     validate,
		Logger:        logr,
	})
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Enrollments:   enrollments,
		Risk:          riskSvc,
		Sessions:      sessions,
		Ratings:       evaluationSvc,
		DefaultRating: cfg.Dashboard.DefaultRating,
		Logger:        logr,
	})
	exportSvc := service.NewExportService(dashboardSvc, logr, export.NewCSVExporter(), export.NewPDFExporter())

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(middleware.Actor())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	checks := map[string]handler.HealthCheck{"database": db.PingContext}
	if cachePinger != nil {
		checks["cache"] = cachePinger.Ping
	}
	metricsHandler := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction && cfg.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Handlers{
		Risk:      handler.NewRiskHandler(riskSvc),
		Sessions:  handler.NewSessionHandler(sessionSvc, evaluationSvc),
		Dashboard: handler.NewDashboardHandler(dashboardSvc, exportSvc),
	}.Register(r.Group(cfg.APIPrefix))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "model", model != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
