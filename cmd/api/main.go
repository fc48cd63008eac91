// Package main is the entry point for the Campus Cart API server.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/campuscart/backend/internal/api"
	"github.com/campuscart/backend/internal/audit"
	"github.com/campuscart/backend/internal/auth"
	"github.com/campuscart/backend/internal/config"
	"github.com/campuscart/backend/internal/db"
	"github.com/campuscart/backend/internal/health"
	"github.com/campuscart/backend/internal/idempotency"
	"github.com/campuscart/backend/internal/jobs"
	"github.com/campuscart/backend/internal/listing"
	"github.com/campuscart/backend/internal/message"
	"github.com/campuscart/backend/internal/middleware"
	"github.com/campuscart/backend/internal/notification"
	"github.com/campuscart/backend/internal/ranking"
	"github.com/campuscart/backend/internal/report"
	"github.com/campuscart/backend/internal/review"
	"github.com/campuscart/backend/internal/roommate"
	"github.com/campuscart/backend/internal/tracing"
	"github.com/campuscart/backend/internal/upload"
)

// repositories bundles the storage layer behind the HTTP handlers. All six
// have Postgres and in-memory implementations; the in-memory set backs
// development without a database.
type repositories struct {
	listings      listing.Repository
	roommates     roommate.Repository
	messages      message.Repository
	reviews       review.Repository
	reports       report.Repository
	notifications notification.Repository
}

func newPostgresRepositories(database *sql.DB) repositories {
	return repositories{
		listings:      listing.NewPostgresRepository(database),
		roommates:     roommate.NewPostgresRepository(database),
		messages:      message.NewPostgresRepository(database),
		reviews:       review.NewPostgresRepository(database),
		reports:       report.NewPostgresRepository(database),
		notifications: notification.NewPostgresRepository(database),
	}
}

func newInMemoryRepositories() repositories {
	return repositories{
		listings:      listing.NewInMemoryRepository(),
		roommates:     roommate.NewInMemoryRepository(),
		messages:      message.NewInMemoryRepository(),
		reviews:       review.NewInMemoryRepository(),
		reports:       report.NewInMemoryRepository(),
		notifications: notification.NewInMemoryRepository(),
	}
}

func main() {
	help := flag.Bool("help", false, "display help message")
	configFile := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	if *help {
		fmt.Println("Campus Cart API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configFile)
	if cfg == nil {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "configuration error:", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	if len(errs) > 0 {
		for _, err := range errs {
			logger.Error("configuration error", "error", err)
		}
		if cfg.Env == "production" {
			os.Exit(1)
		}
		logger.Warn("continuing with degraded configuration (non-production)")
	}
	logger.Info("configuration loaded", "settings", cfg.LogSummary())

	// Storage layer. Without DATABASE_URL the server runs entirely in
	// memory, which is enough for local development.
	var database *sql.DB
	repos := newInMemoryRepositories()
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		opened, err := db.Open(ctx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		database = opened
		defer database.Close()
		repos = newPostgresRepositories(database)
		logger.Info("connected to database")
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
	}

	// Ranking calibration overrides are optional; defaults apply otherwise.
	scoreCfg := ranking.DefaultScoreConfig()
	if cfg.RankingCalibrationPath != "" {
		loaded, err := ranking.LoadCalibration(cfg.RankingCalibrationPath)
		if err != nil {
			logger.Error("failed to load ranking calibration", "path", cfg.RankingCalibrationPath, "error", err)
			os.Exit(1)
		}
		scoreCfg = loaded
		logger.Info("loaded ranking calibration", "path", cfg.RankingCalibrationPath)
	}

	jwtService := auth.NewJWTServiceWithRotation(cfg.JWTSecret, cfg.JWTSecretPrevious)

	// Redis backs distributed rate limiting; without it each instance
	// falls back to local counters.
	var redisClient *redis.Client
	var rateLimitStore middleware.RateLimitStore = middleware.NewInMemoryRateLimitStore()
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		defer redisClient.Close()
		rateLimitStore = middleware.NewRedisRateLimitStore(redisClient)
		logger.Info("using redis rate limiting", "addr", cfg.RedisAddr)
	}

	// Email delivery is optional; a nil sender keeps notifications in-app only.
	var emailSender notification.EmailSender
	if cfg.SESFromAddress != "" {
		sender, err := notification.NewSESSender(context.Background(), cfg.SESRegion, cfg.SESFromAddress)
		if err != nil {
			logger.Error("failed to initialize SES sender", "error", err)
			os.Exit(1)
		}
		emailSender = sender
		logger.Info("email notifications enabled", "from", cfg.SESFromAddress)
	}
	notifier := notification.NewNotifier(repos.notifications, emailSender, logger)
	if database != nil {
		notifier = notifier.WithDirectory(notification.NewPostgresDirectory(database))
	}

	// Audit trail for moderation actions and sensitive data access.
	auditRepo := audit.NewInMemoryRepository()

	// Photo uploads need a configured bucket; skipped otherwise.
	var uploadService *upload.Service
	if cfg.S3BucketName != "" {
		svc, err := upload.NewService(upload.ServiceConfig{
			BucketName:      cfg.S3BucketName,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Endpoint:        cfg.S3Endpoint,
			MaxSizeMB:       cfg.S3MaxUploadSizeMB,
		})
		if err != nil {
			logger.Error("failed to initialize upload service", "error", err)
			os.Exit(1)
		}
		uploadService = svc
	} else {
		logger.Warn("S3_BUCKET_NAME not set, photo uploads disabled")
	}

	// Metrics.
	metrics := middleware.NewMetrics()
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	// Tracing.
	var tracingProvider *tracing.Provider
	if cfg.TracingEnabled {
		exporterType := "otlp-grpc"
		if cfg.TracingProtocol == "http" {
			exporterType = "otlp-http"
		}
		provider, err := tracing.NewProvider(tracing.Config{
			ServiceName:  "campuscart-api",
			Enabled:      true,
			Environment:  cfg.Env,
			ExporterType: exporterType,
			OTLPEndpoint: cfg.TracingEndpoint,
			SamplingRate: 0.1,
			InsecureMode: cfg.Env != "production",
		})
		if err != nil {
			logger.Error("failed to initialize tracing", "error", err)
			os.Exit(1)
		}
		tracingProvider = provider
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracingProvider.Shutdown(ctx); err != nil {
				logger.Error("tracing shutdown error", "error", err)
			}
		}()
	}

	// Canary routing.
	canary := middleware.NewCanaryRouter(middleware.CanaryConfig{
		Enabled:          cfg.CanaryEnabled,
		TrafficPercent:   float64(cfg.CanaryTrafficPercent),
		ErrorThreshold:   5.0,
		LatencyThreshold: 1.0,
		AutoRollback:     true,
		MonitoringWindow: 60,
		Version:          cfg.CanaryVersion,
	}, logger)
	canary.SetPrometheusMetrics(metrics)

	// Handlers.
	authMW := api.NewAuthMiddleware(jwtService)
	authHandlers := api.NewAuthHandlers(jwtService, nil)
	listingHandlers := api.NewListingHandlers(repos.listings, scoreCfg)
	roommateHandlers := api.NewRoommateHandlers(repos.roommates, scoreCfg)
	conversationHandlers := api.NewConversationHandlers(repos.messages).WithNotifier(notifier)
	reviewHandlers := api.NewReviewHandlers(repos.reviews, repos.listings).WithNotifier(notifier)
	reportHandlers := api.NewReportHandlers(repos.reports).WithNotifier(notifier).WithAuditLog(auditRepo)
	auditHandlers := api.NewAuditHandlers(auditRepo)
	notificationHandlers := api.NewNotificationHandlers(repos.notifications)
	statsHandlers := api.NewStatsHandlers(repos.listings, repos.reports, repos.messages, repos.reviews)
	canaryHandler := api.NewCanaryHandler(canary, logger)

	healthConfig := api.HealthHandlersConfig{MetricsEnabled: true}
	if database != nil {
		healthConfig.DBChecker = health.NewDBChecker(database)
	}
	if redisClient != nil {
		healthConfig.RedisChecker = health.NewRedisChecker(redisClient)
	}
	if cfg.S3Endpoint != "" {
		healthConfig.StorageChecker = health.NewHTTPChecker("storage", cfg.S3Endpoint)
	}
	healthHandlers := api.NewHealthHandlers(healthConfig)

	searchLimiter := middleware.RateLimiter(rateLimitStore, middleware.DefaultSearchLimit(), middleware.IPKeyFunc())
	authLimiter := middleware.RateLimiter(rateLimitStore, middleware.DefaultAuthLimit(), middleware.IPKeyFunc())

	// Photo upload signing is registered only when S3 is configured.
	var uploadHandlers *api.UploadHandlers
	if uploadService != nil {
		uploadHandlers = api.NewUploadHandlers(uploadService)
	}

	mux := newMux(routeDeps{
		authMW:        authMW,
		auth:          authHandlers,
		listings:      listingHandlers,
		roommates:     roommateHandlers,
		conversations: conversationHandlers,
		reviews:       reviewHandlers,
		reports:       reportHandlers,
		audits:        auditHandlers,
		notifications: notificationHandlers,
		stats:         statsHandlers,
		canary:        canaryHandler,
		health:        healthHandlers,
		uploads:       uploadHandlers,
		searchLimiter: searchLimiter,
		authLimiter:   authLimiter,
	})

	// Middleware chain, outermost first: request ID, logging, metrics,
	// tracing, CORS, canary routing, global rate limit, idempotency.
	var handler http.Handler = mux

	idempotencyRoutes := map[string]bool{
		"/listings":      true,
		"/reviews":       true,
		"/reports":       true,
		"/conversations": true,
	}
	handler = middleware.IdempotencyMiddleware(idempotency.NewInMemoryRepository(), idempotencyRoutes)(handler)

	handler = middleware.RateLimiter(rateLimitStore, middleware.DefaultGlobalLimit(), middleware.IPKeyFunc())(handler)

	if cfg.CanaryEnabled {
		handler = canary.Middleware(handler)
	}

	handler = middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})(handler)

	if cfg.TracingEnabled {
		handler = middleware.Tracing("campuscart-api")(handler)
	}

	handler = middleware.HTTPMetrics(metrics)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RequestID(handler)

	if cfg.Env == "development" {
		handler = middleware.Profiling(middleware.ProfilingConfig{
			Enabled:     true,
			Environment: cfg.Env,
		})(handler)
	}

	// Background job: anonymize IPs on audit logs past the retention window.
	jobCtx, jobCancel := context.WithCancel(context.Background())
	defer jobCancel()
	jobMetrics := jobs.NewMetrics()
	if err := jobMetrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register job metrics", "error", err)
		os.Exit(1)
	}
	anonymizationJob := audit.NewAnonymizationJob(audit.AnonymizationJobConfig{
		Anonymizer: auditRepo,
		Logger:     logger,
		Metrics:    jobMetrics,
	})
	go anonymizationJob.Start(jobCtx)

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Create context with timeout for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}



