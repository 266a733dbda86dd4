package main

import (
	"context"
	"os"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"certtrack/internal/authclient"
	"certtrack/internal/captcha"
	"certtrack/internal/config"
	"certtrack/internal/database"
	"certtrack/internal/database/migration"
	handlers "certtrack/internal/http/handler"
	"certtrack/internal/http/middleware"
	"certtrack/internal/otel"
	"certtrack/internal/repository/postgres"
	"certtrack/internal/service"
	"certtrack/internal/storage"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "certtrack").Logger()

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// Optional OTLP tracing, controlled by OTEL_* environment variables
	shutdownTracing, err := otel.Init(context.Background(), time.UTC)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracing")
	}
	defer shutdownTracing(context.Background())

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := migration.EnsureMigrated(context.Background(), db, log, cfg.Database.Host); err != nil {
		log.Fatal().Err(err).Msg("database migration failed")
	}

	// Initialize reusable S3-compatible object storage client (MinIO-supported)
	objStore, err := storage.NewMinIO(cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize object storage")
	}

	// Auth platform client, CAPTCHA verifier, repositories and services
	authAPI, err := authclient.New(cfg.Auth, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize auth client")
	}
	verifier := captcha.New(cfg.Captcha, log)
	if !verifier.Enabled() {
		log.Warn().Msg("CAPTCHA verification disabled, no secret configured")
	}

	profileRepo := postgres.NewProfilePostgres(db)
	attachmentRepo := postgres.NewAttachmentPostgres(db)
	authSvc := service.NewAuthService(authAPI, profileRepo, verifier, cfg.Auth, log)
	uploadSvc := service.NewUploadService(objStore, attachmentRepo, profileRepo)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger(log))
	// Per-request tracing spans, exported when OTEL_TRACES_EXPORTER is set
	app.Use(otelfiber.Middleware())

	promMW, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register metrics")
	}
	app.Use(promMW.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Register HTTP routes with injected services
	handlers.RegisterRoutes(app, db, authSvc, uploadSvc, cfg.Auth.JWTSecret)

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Msg("starting server")

	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}
