package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redisv9 "github.com/redis/go-redis/v9"

	"formfill/internal/cache"
	"formfill/internal/config"
	"formfill/internal/database"
	"formfill/internal/database/migration"
	"formfill/internal/fill"
	handlers "formfill/internal/http/handler"
	"formfill/internal/http/middleware"
	"formfill/internal/otel"
	"formfill/internal/repository/postgres"
	"formfill/internal/service"
	"formfill/internal/storage"
	"formfill/internal/worker"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	loc := time.UTC
	ctx := context.Background()

	shutdownTracing, err := otel.Init(ctx, loc)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, loc, cfg.Database.Host); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var store storage.Storage
	switch cfg.Storage.Backend {
	case "minio":
		store, err = storage.NewMinIO(cfg.Storage.MinIO)
	default:
		store, err = storage.NewLocal(cfg.Storage)
	}
	if err != nil {
		log.Fatalf("failed to initialize storage: %v", err)
	}

	// The result cache is optional; without REDIS_ADDR every status lookup
	// goes to Postgres.
	var resultCache service.ResultCache
	if cfg.Redis.Addr != "" {
		rdb := redisv9.NewClient(&redisv9.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		resultCache = cache.NewResultCache(rdb, time.Duration(cfg.Redis.ResultTTLSec)*time.Second)
	}

	subRepo := postgres.NewSubmissionPostgres(db)
	resultRepo := postgres.NewResultPostgres(db)

	engine := fill.NewEngine(store, subRepo, resultRepo, cfg.Fill.PDFPasswords)
	pool := worker.NewFillWorker(engine, resultRepo, cfg.Fill.Workers, cfg.Fill.QueueSize)
	if err := pool.Start(ctx); err != nil {
		log.Fatalf("failed to start fill workers: %v", err)
	}

	intakeSvc := service.NewIntakeService(store, subRepo, resultRepo, pool, cfg.MaxUploadBytes)
	deliverySvc := service.NewDeliveryService(store, resultRepo, resultCache)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		// The body carries two files, each capped by MaxUploadBytes.
		BodyLimit:   int(cfg.MaxUploadBytes)*2 + 1<<20,
		ReadTimeout: 120 * time.Second,
	})

	app.Use(middleware.RequestID())
	app.Use(middleware.Logger())
	app.Use(otelfiber.Middleware(otelfiber.WithServerName("formfill")))

	promMiddleware, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatalf("failed to register metrics: %v", err)
	}
	app.Use(promMiddleware.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	handlers.RegisterRoutes(app, db, intakeSvc, deliverySvc)

	// Shut down in order: stop accepting requests, drain the pool, flush traces.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}

	pool.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Printf("tracing shutdown: %v", err)
	}
}
