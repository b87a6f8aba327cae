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
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-presensi-api/api/swagger"
	"github.com/noah-isme/sma-presensi-api/internal/handler"
	"github.com/noah-isme/sma-presensi-api/internal/middleware"
	"github.com/noah-isme/sma-presensi-api/internal/models"
	"github.com/noah-isme/sma-presensi-api/internal/repository"
	"github.com/noah-isme/sma-presensi-api/internal/service"
	"github.com/noah-isme/sma-presensi-api/pkg/cache"
	"github.com/noah-isme/sma-presensi-api/pkg/config"
	"github.com/noah-isme/sma-presensi-api/pkg/database"
	"github.com/noah-isme/sma-presensi-api/pkg/logger"
	"github.com/noah-isme/sma-presensi-api/pkg/messaging"
	corsmiddleware "github.com/noah-isme/sma-presensi-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-presensi-api/pkg/middleware/requestid"
)

// @title SMA Presensi API
// @version 0.1.0
// @description Session presence tracking and attendance reminder service
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
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if redisClient, err = cache.NewRedis(cfg.Redis); err != nil {
		logr.Warn("redis unavailable, score caching disabled", zap.Error(err))
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()

	transport, err := buildTransport(cfg, logr)
	if err != nil {
		logr.Fatal("failed to configure message transport", zap.Error(err))
	}

	meetingRepo := repository.NewMeetingRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	presenceRepo := repository.NewPresenceRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	reminderRepo := repository.NewReminderRepository(db)

	validate := validator.New()
	metrics := service.NewMetricsService()

	scoreTable := models.StandardTable
	if cfg.Reminder.ScoreTable == config.ScoreTableLecture {
		scoreTable = models.LectureTable
	}

	authService := service.NewAuthService(cfg.JWT)
	sessionService := service.NewSessionService(sessionRepo, meetingRepo, presenceRepo, validate, logr)
	scoreService := service.NewScoreService(sessionRepo, meetingRepo, presenceRepo, enrollmentRepo, cacheRepo, metrics, service.ScoreServiceConfig{
		Table:         scoreTable,
		PassThreshold: cfg.Reminder.PassThreshold,
		CacheTTL:      cfg.Scores.CacheTTL,
	}, logr)
	dedup := service.NewDeduplicator(reminderRepo, cfg.Reminder.Cooldown, logr)
	reminderService := service.NewReminderService(sessionRepo, enrollmentRepo, presenceRepo, scoreService, dedup, transport, metrics, logr, service.ReminderServiceConfig{
		Lookback:        cfg.Reminder.Lookback,
		DispatchDelay:   cfg.Reminder.DispatchDelay,
		DispatchTimeout: cfg.Reminder.DispatchTimeout,
		PassThreshold:   cfg.Reminder.PassThreshold,
		Table:           scoreTable,
	})
	reminderLogService := service.NewReminderLogService(reminderRepo, logr)

	scheduler := service.NewScheduler(reminderService, service.SystemClock{}, service.NewRealTicker, metrics, logr)
	if cfg.Reminder.Enabled {
		if err := scheduler.Start(cfg.Reminder.TickInterval, cfg.Reminder.Lookback); err != nil {
			logr.Fatal("failed to start scheduler", zap.Error(err))
		}
	}

	sessionHandler := handler.NewSessionHandler(sessionService, scoreService, service.SystemClock{})
	reminderHandler := handler.NewReminderHandler(reminderLogService, scheduler, scheduler, service.SystemClock{})
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metrics))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/sessions/scan", sessionHandler.Scan)

	authed := api.Group("")
	authed.Use(middleware.JWT(authService))
	authed.POST("/sessions", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), sessionHandler.Open)
	authed.GET("/sessions/:id", sessionHandler.Get)
	authed.POST("/sessions/:id/windows", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), sessionHandler.AppendWindow)
	authed.GET("/sessions/:id/scores", sessionHandler.Scores)
	authed.GET("/students/:id/standing", sessionHandler.Standing)
	authed.GET("/reminders", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), reminderHandler.List)
	authed.POST("/reminders/run", middleware.RequireRoles(models.RoleAdmin), reminderHandler.Run)
	authed.GET("/reminders/scheduler", middleware.RequireRoles(models.RoleAdmin), reminderHandler.SchedulerStatus)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	// Stop the trigger first so no new scan starts while HTTP drains.
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
}

// buildTransport selects the outbound transport. A configured gateway wins;
// development falls back to the console transport. Production with reminders
// enabled but no gateway credentials refuses to start.
func buildTransport(cfg *config.Config, logr *zap.Logger) (messaging.Transport, error) {
	if cfg.Gateway.BaseURL != "" || cfg.Gateway.Token != "" {
		return messaging.NewGatewayTransport(cfg.Gateway, cfg.Reminder.DispatchTimeout, logr)
	}
	if cfg.Env == config.EnvProduction && cfg.Reminder.Enabled {
		return nil, fmt.Errorf("reminders are enabled but no message gateway is configured")
	}
	logr.Warn("no message gateway configured, using console transport")
	return messaging.NewConsoleTransport(logr), nil
}
