package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/proposal-review-api/internal/config"
	"github.com/noah-isme/proposal-review-api/internal/database"
	"github.com/noah-isme/proposal-review-api/internal/handler"
	"github.com/noah-isme/proposal-review-api/internal/middleware"
	"github.com/noah-isme/proposal-review-api/internal/observability"
	"github.com/noah-isme/proposal-review-api/internal/repository"
	"github.com/noah-isme/proposal-review-api/internal/router"
	"github.com/noah-isme/proposal-review-api/internal/service"
	"github.com/noah-isme/proposal-review-api/internal/utils"
	cloud "github.com/noah-isme/proposal-review-api/pkg/cloudinary"
	"github.com/noah-isme/proposal-review-api/pkg/pdf"
	"github.com/noah-isme/proposal-review-api/pkg/scoring"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL, database.PostgresOptions{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		SlowQuery:       cfg.DBSlowQuery,
		Logger:          &logger,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(context.Background(), cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	var uploader service.FileUploader
	if cfg.CloudinaryConfigured() {
		archive, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		uploader = archive
	} else {
		logger.Warn().Msg("cloudinary not configured; archiving disabled")
	}

	var scorer scoring.Scorer = scoring.Disabled{}
	if cfg.OpenAIAPIKey != "" {
		openAIScorer, err := scoring.NewOpenAIScorer(scoring.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.ScoringBaseURL,
			Model:   cfg.ScoringModel,
			Logger:  logger,
		})
		if err != nil {
			log.Fatalf("failed to create similarity scorer: %v", err)
		}
		scorer = openAIScorer
	} else {
		logger.Warn().Msg("similarity scorer not configured; submissions will be unscored")
	}

	var renderer service.DocumentRenderer
	if pdf.Available() {
		renderer = pdf.NewChromeRenderer(cfg.PDFTimeout, logger)
	} else {
		logger.Warn().Msg("chromium not found; pdf rendering disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	userRepo := repository.NewUserRepository(db)
	assignmentRepo := repository.NewSupervisorAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	policyRepo := repository.NewSimilarityPolicyRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	// One bus only, otherwise replicas would see each event twice. NATS wins when configured.
	var buses []service.NotificationBus
	switch {
	case cfg.NotificationChannel == "":
	case natsConn != nil:
		buses = append(buses, service.NewNATSNotificationBus(natsConn, cfg.NotificationChannel, logger))
	default:
		buses = append(buses, service.NewRedisNotificationBus(redisClient, cfg.NotificationChannel, logger))
	}
	notificationService := service.NewNotificationService(notificationRepo, validate, logger, buses...)
	notifier := service.NewWorkflowNotifier(notificationService, logger)

	accountService := service.NewAccountService(userRepo, assignmentRepo, validate, activityService, notifier, logger)
	assignmentService := service.NewAssignmentService(userRepo, assignmentRepo, validate, activityService, logger)
	policyService := service.NewSimilarityPolicyService(policyRepo, redisClient, cfg.PolicyCacheTTL, validate, activityService, logger)
	submissionService := service.NewSubmissionService(submissionRepo, assignmentRepo, policyService, scorer, validate, notifier, logger, service.SubmissionOptions{
		HighSimilarityAlert: cfg.HighSimilarityAlert,
	})
	reviewService := service.NewReviewService(submissionRepo, assignmentRepo, validate, activityService, notifier, logger, cfg.AutoDecideThreshold)
	documentService := service.NewDocumentService(submissionRepo, assignmentRepo, renderer, uploader, activityService, logger)
	exportService := service.NewExportService(submissionRepo, assignmentRepo, logger)
	dashboardService := service.NewDashboardService(userRepo, assignmentRepo, submissionRepo, redisClient, cfg.DashboardCacheTTL, logger)
	seedService := service.NewSeedService(userRepo, assignmentRepo, policyRepo, validate, cfg.SeedEnabled, cfg.SeedToken, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	notificationService.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		ErrorHandler: utils.ErrorHandler,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.CORSAllowOrigins,
		StackTraces:  !cfg.IsProduction(),
	})
	app.Get("/metrics", observability.MetricsHandler())

	router.Register(app, cfg, router.Dependencies{
		AccountHandler:      handler.NewAccountHandler(accountService, logger),
		AssignmentHandler:   handler.NewAssignmentHandler(assignmentService, logger),
		SubmissionHandler:   handler.NewSubmissionHandler(submissionService, logger),
		ReviewHandler:       handler.NewReviewHandler(reviewService, logger),
		DocumentHandler:     handler.NewDocumentHandler(documentService, exportService, logger),
		PolicyHandler:       handler.NewPolicyHandler(policyService, logger),
		ActivityHandler:     handler.NewActivityHandler(activityService, logger),
		DashboardHandler:    handler.NewDashboardHandler(dashboardService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger, cfg.NotificationKeepAlive),
		SeedHandler:         handler.NewSeedHandler(seedService, logger),
		HealthProbes: []handler.HealthProbe{
			{Name: "database", Check: func(ctx context.Context) error { return database.Ping(ctx, db) }},
			{Name: "redis", Check: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
		},
		JWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret),
		IdentityMiddleware:  middleware.RequireApprovedIdentity(accountService),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
