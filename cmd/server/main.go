package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"therapytrack/internal/config"
	"therapytrack/internal/database"
	"therapytrack/internal/handlers"
	"therapytrack/internal/logging"
	"therapytrack/internal/metrics"
	"therapytrack/internal/repository"
	"therapytrack/internal/scoring"
	"therapytrack/internal/security"
	"therapytrack/internal/service"
	"therapytrack/migrations"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	policy, err := scoring.ParsePolicy(cfg.ScorePolicy)
	if err != nil {
		return err
	}

	startup := handlers.NewStartupStatus()
	m := metrics.New()

	// Initialize database with config (supports sqlite, postgres, mysql)
	startup.SetCurrentStep(handlers.StepDatabase)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	startup.CompleteStep(handlers.StepDatabase)
	logger.Info("database connection established", zap.String("type", cfg.DatabaseType))

	startup.SetCurrentStep(handlers.StepMigrations)
	var migrationsFS fs.FS = migrations.FS
	if cfg.MigrationsPath != "" {
		migrationsFS = os.DirFS(cfg.MigrationsPath)
	}
	if err := db.RunMigrations(ctx, migrationsFS, logger); err != nil {
		return err
	}
	startup.CompleteStep(handlers.StepMigrations)
	logger.Info("migrations completed successfully")

	startup.SetCurrentStep(handlers.StepServices)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	childRepo := repository.NewChildRepository(db)
	therapyRepo := repository.NewTherapyRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)

	// Initialize services
	tokens := security.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
	authService := service.NewAuthService(userRepo, tokens, cfg.SessionDuration)
	notifier, err := service.NewNotificationService(ctx, service.NotificationConfig{
		AWSRegion:  cfg.AWSRegion,
		FromEmail:  cfg.SESFromEmail,
		FromName:   cfg.SESFromName,
		AppBaseURL: cfg.AppBaseURL,
	}, logger)
	if err != nil {
		return err
	}
	childService := service.NewChildService(childRepo)
	therapyService := service.NewTherapyService(therapyRepo, childRepo, cfg.PageSize)
	assessmentService := service.NewAssessmentService(assessmentRepo, therapyRepo, userRepo, policy, notifier, m, logger)
	reportService := service.NewReportService(therapyRepo, assessmentRepo)
	activityService := service.NewActivityService(therapyRepo, assessmentRepo, cfg.PageSize)

	oauthProviders := map[string]handlers.OAuthProvider{}
	if google, ok := handlers.GoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret); ok {
		oauthProviders["google"] = google
	}

	clientIP, err := security.NewClientIPResolver(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	authLimiter := security.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	defer authLimiter.Stop()

	// Initialize handlers
	csrf := security.NewCSRFGenerator(cfg.CSRFSecret)
	router := &handlers.Router{
		Middleware:  handlers.NewMiddleware(authService, csrf, clientIP, logger),
		Auth:        handlers.NewAuthHandler(authService, csrf, oauthProviders, cfg.OAuthRedirectBaseURL, logger),
		Children:    handlers.NewChildHandler(childService, logger),
		Therapies:   handlers.NewTherapyHandler(therapyService, reportService, logger),
		Assessments: handlers.NewAssessmentHandler(assessmentService, logger),
		Activities:  handlers.NewActivityHandler(activityService, logger),
		Startup:     startup,
		AuthLimiter: authLimiter,
		Metrics:     m,
		Logger:      logger,
	}
	startup.CompleteStep(handlers.StepServices)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start background session cleanup
	go cleanupExpiredSessions(ctx, authService, logger)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr), zap.String("score_policy", policy.String()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()
	startup.MarkReady()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// cleanupExpiredSessions periodically removes expired sessions until ctx ends
func cleanupExpiredSessions(ctx context.Context, authService *service.AuthService, logger *zap.Logger) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := authService.CleanupExpiredSessions(ctx)
			if err != nil {
				logger.Error("failed to clean up expired sessions", zap.Error(err))
				continue
			}
			logger.Info("expired sessions cleaned up", zap.Int64("removed", n))
		}
	}
}
