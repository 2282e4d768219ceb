package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/commlogs-systems/commlogs-collector/internal/auth"
	"github.com/commlogs-systems/commlogs-collector/internal/config"
	"github.com/commlogs-systems/commlogs-collector/internal/dlq"
	"github.com/commlogs-systems/commlogs-collector/internal/handlers"
	"github.com/commlogs-systems/commlogs-collector/internal/logging"
	"github.com/commlogs-systems/commlogs-collector/internal/ratelimit"
	"github.com/commlogs-systems/commlogs-collector/internal/server"
	"github.com/commlogs-systems/commlogs-collector/internal/store"
	"github.com/commlogs-systems/commlogs-collector/internal/writer"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	printConfig := flag.Bool("print-config", false, "print effective configuration and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *printConfig {
		out, err := cfg.YAML()
		if err != nil {
			log.Fatalf("Failed to render config: %v", err)
		}
		fmt.Print(string(out))
		return
	}

	logger := logging.New(
		logging.ParseLevel(cfg.Logging.Level),
		cfg.Logging.Format,
	).With(logging.Service("collector"))
	logging.SetDefault(logger)

	slog.Info("Starting collector",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Logging.Level),
		slog.String("log_format", cfg.Logging.Format),
	)
	if *configPath != "" {
		slog.Info("Loaded configuration", slog.String("config_path", *configPath))
	}

	// Run database migrations
	if cfg.Database.AutoMigrate {
		slog.Info("Running database migrations", slog.String("path", cfg.Database.MigrationsPath))
		m, err := migrate.New("file://"+cfg.Database.MigrationsPath, cfg.Database.URL)
		if err != nil {
			log.Fatalf("Failed to initialize migrations: %v", err)
		}
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		slog.Info("Database migrations completed")
	}

	// Storage pool: the one shared resource every component goes through.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	st, err := store.New(ctx, cfg.Database.URL, cfg.Database.MinConns, cfg.Database.MaxConns)
	cancel()
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer st.Close()
	slog.Info("Storage pool ready",
		slog.Int("min_conns", int(cfg.Database.MinConns)),
		slog.Int("max_conns", int(cfg.Database.MaxConns)),
	)

	// Dead-letter queue for batches that exhaust write retries
	var dlqWriter dlq.Writer
	if cfg.DLQ.Enabled {
		switch cfg.DLQ.Backend {
		case "jetstream":
			jsCtx, jsCancel := context.WithTimeout(context.Background(), 15*time.Second)
			jsDLQ, err := dlq.NewJetStreamQueue(jsCtx, cfg.DLQ.NatsURL)
			jsCancel()
			if err != nil {
				log.Fatalf("Failed to initialize JetStream DLQ: %v", err)
			}
			dlqWriter = jsDLQ
			slog.Info("Dead-letter queue enabled", slog.String("backend", "jetstream"), slog.String("nats_url", cfg.DLQ.NatsURL))
		case "file", "":
			fileDLQ, err := dlq.NewFileQueue(cfg.DLQ.BasePath)
			if err != nil {
				log.Fatalf("Failed to initialize file DLQ: %v", err)
			}
			dlqWriter = fileDLQ
			slog.Info("Dead-letter queue enabled", slog.String("backend", "file"), slog.String("path", cfg.DLQ.BasePath))
		default:
			log.Fatalf("Unknown DLQ backend: %s (supported: file, jetstream)", cfg.DLQ.Backend)
		}
		defer dlqWriter.Close()
	} else {
		slog.Warn("Dead-letter queue disabled; batches that exhaust write retries are dropped")
	}

	// Async persistence engine
	wr := writer.New(st, dlqWriter, logger, writer.Config{
		QueueSize:     cfg.Writer.QueueSize,
		Workers:       cfg.Writer.Workers,
		MaxAttempts:   cfg.Writer.MaxAttempts,
		RetryBackoff:  cfg.Writer.RetryBackoff,
		InsertTimeout: cfg.Writer.InsertTimeout,
	})

	// Rate limiter (optional)
	var limiter ratelimit.RateLimiter = ratelimit.NoOpRateLimiter{}
	if cfg.RateLimit.Enabled {
		rl, err := ratelimit.NewRedisRateLimiter(cfg.RateLimit.RedisURL, cfg.RateLimit.Requests, cfg.RateLimit.Window)
		if err != nil {
			slog.Warn("Failed to initialize rate limiter, continuing without", logging.Error(err))
		} else {
			limiter = rl
			slog.Info("Rate limiting enabled",
				slog.Int("requests", cfg.RateLimit.Requests),
				slog.Duration("window", cfg.RateLimit.Window),
			)
		}
	}
	defer limiter.Close()

	// Authentication gate
	gate := auth.NewGate(cfg.Auth.APIKey)
	if !gate.Enabled() {
		slog.Warn("No ingestion API key configured; any non-empty X-API-KEY will be accepted")
	}

	ingestHandler := handlers.NewIngestHandler(gate, wr, limiter, logger)
	metricsHandler := handlers.NewMetricsHandler(st, logger)
	healthHandler := handlers.NewHealthHandler(st, logger)
	router := server.NewRouter(ingestHandler, metricsHandler, healthHandler)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Collector listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", logging.Error(err))
	}

	// Drain pending detached writes before releasing the pool.
	wr.Close()

	slog.Info("Collector stopped")
}
