package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"invofi/internal/chain"
	"invofi/internal/config"
	"invofi/internal/database"
	"invofi/internal/database/migration"
	handlers "invofi/internal/http/handler"
	"invofi/internal/http/middleware"
	"invofi/internal/ocr"
	"invofi/internal/otel"
	"invofi/internal/repository/postgres"
	"invofi/internal/risk"
	"invofi/internal/service"
	"invofi/internal/session"
	"invofi/internal/storage"
)

func main() {
	loc := time.UTC

	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	// Tracing first so every later init is observable.
	shutdownTracing, err := otel.Init(context.Background(), loc)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(ctx)
	}()

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	// Apply the invoices schema on a fresh database
	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelMigrate()
	if err := migration.EnsureMigrated(migrateCtx, db, loc, cfg.Database.Host); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Raw invoice documents go to S3-compatible object storage (MinIO)
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatalf("failed to initialize object storage: %v", err)
	}

	// Verification sessions live in Redis with a TTL
	sessions, err := session.NewRedis(cfg.Redis)
	if err != nil {
		log.Fatalf("failed to initialize session store: %v", err)
	}

	// External collaborators: recognizer and chain
	recognizer, err := ocr.NewAzure(cfg.OCR)
	if err != nil {
		log.Fatalf("failed to initialize recognizer: %v", err)
	}
	activity, err := chain.NewHorizon(cfg.Horizon)
	if err != nil {
		log.Fatalf("failed to initialize chain activity client: %v", err)
	}
	tokenizer := chain.NewSimTokenizer()

	// Repositories, pricing, and the invoice service
	invRepo := postgres.NewInvoicePostgres(db)
	engine := risk.NewEngine(activity)
	invSvc := service.NewInvoiceService(objStore, invRepo, sessions, recognizer, engine, tokenizer)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger())
	app.Use(otelfiber.Middleware())

	promMW, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}
	app.Use(promMW.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Register HTTP routes with injected service
	handlers.RegisterRoutes(app, db, invSvc)

	addr := ":" + cfg.Port

	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
