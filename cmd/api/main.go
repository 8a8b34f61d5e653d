package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fileportal/internal/auth"
	"fileportal/internal/config"
	"fileportal/internal/dashboard"
	"fileportal/internal/database"
	"fileportal/internal/database/migration"
	handlers "fileportal/internal/http/handler"
	"fileportal/internal/http/middleware"
	"fileportal/internal/otel"
	"fileportal/internal/repository/postgres"
	"fileportal/internal/service"
	"fileportal/internal/storage"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	ctx := context.Background()

	shutdownTracing, err := otel.Init(ctx, time.UTC)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer shutdownTracing(ctx)

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, time.UTC, cfg.Database.Host); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	// Initialize reusable S3-compatible object storage client (MinIO-supported)
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatalf("failed to initialize object storage: %v", err)
	}

	// Repositories
	companyRepo := postgres.NewCompanyPostgres(db)
	fileRepo := postgres.NewFilePostgres(db)
	profileRepo := postgres.NewProfilePostgres(db)
	accountRepo := postgres.NewAccountPostgres(db)

	// Services
	authSvc := auth.NewService(accountRepo, profileRepo, cfg.Auth)
	companySvc := service.NewCompanyService(companyRepo)
	fileSvc := service.NewFileService(objStore, fileRepo, cfg.Upload)
	userSvc := service.NewUserService(authSvc, profileRepo)

	// The dashboard controller follows session changes for the lifetime of
	// the process.
	controller := dashboard.NewController(authSvc, fileSvc)
	controller.Attach(authSvc)
	defer controller.Close()

	app := fiber.New(handlers.AppConfig(cfg.Upload))

	// Register global middleware
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger())

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}
	app.Use(promMiddleware.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Register HTTP routes with injected services
	handlers.RegisterRoutes(app, handlers.Deps{
		DB:        db,
		Auth:      authSvc,
		Companies: companySvc,
		Users:     userSvc,
		Files:     fileSvc,
	})

	addr := ":" + cfg.Port

	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
