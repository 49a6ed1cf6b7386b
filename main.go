package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"golang.org/x/sync/errgroup"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	database "github.com/diszexuf/streamlive/app/db"
	appLogger "github.com/diszexuf/streamlive/app/logger"
	"github.com/diszexuf/streamlive/app/observability/metrics"
	"github.com/diszexuf/streamlive/config"
	"github.com/diszexuf/streamlive/internal/api/auth"
	"github.com/diszexuf/streamlive/internal/api/stream"
	"github.com/diszexuf/streamlive/internal/api/streamkey"
	"github.com/diszexuf/streamlive/internal/api/user"
	apiRouter "github.com/diszexuf/streamlive/internal/router"
)

func main() {
	// Use standard log until slog is configured, in case godotenv fails.
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := setupLogger(cfg.Mode)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Metrics provider (prometheus-backed otel meter) ---
	promExporter, err := otelprom.New()
	if err != nil {
		logger.Error("Failed to create prometheus exporter", slog.Any("error", err))
		os.Exit(1)
	}
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(promExporter)))
	metrics.Get()

	// --- Database ---
	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		os.Exit(1)
	}

	if err = database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
		logger.Error("Failed to run database migrations", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if !database.WaitForDB(ctx, pool, logger) {
		logger.Error("Database not ready after waiting, exiting.")
		os.Exit(1)
	}

	// --- Dependency wiring ---
	tokenCodec := auth.NewTokenCodec(cfg.JWT)

	authRepo := auth.NewPostgresAuthRepo(pool, logger)
	authService := auth.NewAuthService(authRepo, tokenCodec, cfg.Auth, logger)
	authHandler := auth.NewAuthHandler(authService, logger)

	userRepo := user.NewPostgresUserRepo(pool, logger)
	userService := user.NewUserService(userRepo, logger)
	userHandler := user.NewUserHandler(userService, logger)

	streamRepo := stream.NewPostgresStreamRepo(pool, logger)
	streamService := stream.NewStreamService(streamRepo, authRepo, logger)
	streamHandler := stream.NewStreamHandler(streamService, logger)

	keyRepo := streamkey.NewPostgresStreamKeyRepo(pool, logger)
	keyService := streamkey.NewStreamKeyService(keyRepo, logger)
	keyHandler := streamkey.NewStreamKeyHandler(keyService, logger)

	routerConfig := &apiRouter.Config{
		AuthHandler:            authHandler,
		UserHandler:            userHandler,
		StreamHandler:          streamHandler,
		StreamKeyHandler:       keyHandler,
		AuthenticateMiddleware: auth.Authenticate(logger, tokenCodec, authRepo),
	}
	mainRouter := apiRouter.SetupRouter(routerConfig)

	router := chi.NewMux()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(appLogger.StructuredLogger(logger))
	router.Use(chimiddleware.Recoverer)
	router.Use(chimiddleware.StripSlashes)
	router.Use(chimiddleware.Timeout(cfg.Server.Timeout))
	router.Use(chimiddleware.Compress(5, "application/json"))
	router.Mount("/", mainRouter)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.HTTPPort),
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Metrics.Port),
		Handler: metricsMux,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("Starting metrics server", slog.String("address", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()

		logger.Info("Shutdown signal received, starting graceful shutdown...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
		}
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server graceful shutdown failed", slog.Any("error", err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Application shut down complete.")
}

// setupLogger configures and returns the application logger.
func setupLogger(mode string) *slog.Logger {
	if mode == "development" || mode == "" {
		tintOpts := &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}
		return slog.New(tint.NewHandler(os.Stdout, tintOpts))
	}

	jsonOpts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, jsonOpts))
}
