package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/cricket-slots/config"
	"github.com/Dosada05/cricket-slots/db"
	_ "github.com/Dosada05/cricket-slots/docs"
	"github.com/Dosada05/cricket-slots/handlers"
	"github.com/Dosada05/cricket-slots/logging"
	"github.com/Dosada05/cricket-slots/middleware"
	"github.com/Dosada05/cricket-slots/realtime"
	"github.com/Dosada05/cricket-slots/repositories"
	"github.com/Dosada05/cricket-slots/routes"
	"github.com/Dosada05/cricket-slots/services"
	"github.com/Dosada05/cricket-slots/storage"
	"github.com/Dosada05/cricket-slots/workers"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 15 * time.Second

// @title						Cricket Slots API
// @version					1.0
// @description				Слоты турниров по крикету и лист ожидания.
// @BasePath					/
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// Настройка логгера
	logger, logCloser, err := logging.New(logging.Options{
		Level:     cfg.LogLevel,
		File:      cfg.LogFile,
		MaxSizeMB: cfg.LogMaxSizeMB,
	})
	if err != nil {
		slog.Error("failed to configure logger", slog.Any("error", err))
		os.Exit(1)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	if err := run(cfg, logger); err != nil {
		logger.Error("application stopped with error", slog.Any("error", err))
		logCloser.Close()
		os.Exit(1)
	}
	logger.Info("application exited")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	if cfg.DBAutoMigrate {
		if err := db.ApplySchema(ctx, dbConn); err != nil {
			return err
		}
		logger.Info("database schema applied")
	}

	// Инициализация загрузчика файлов (Cloudflare R2)
	var uploader storage.FileUploader
	r2Config := storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	}
	if r2Config.Enabled() {
		uploader, err = storage.NewCloudflareR2Uploader(ctx, r2Config)
		if err != nil {
			return fmt.Errorf("failed to initialize Cloudflare R2 uploader: %w", err)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("Cloudflare R2 is not configured, schedule image uploads are disabled")
	}

	// Инициализация WebSocket Hub
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	wsHub := realtime.NewHub(logger)
	go wsHub.Run(hubCtx)
	logger.Info("WebSocket Hub started")

	// Метрики
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(registry)

	// Инициализация репозиториев
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	slotRepo := repositories.NewPostgresSlotRepository(dbConn)
	notificationRepo := repositories.NewPostgresNotificationRepository(dbConn)
	logger.Info("Repositories initialized")

	// Инициализация сервисов
	retry := services.RetryPolicy{Attempts: cfg.PromotionRetryAttempts, Backoff: cfg.PromotionRetryBackoff}
	guard := services.NewAccessGuard(tournamentRepo)
	notificationService := services.NewNotificationService(notificationRepo, wsHub, logger)
	waitlistService := services.NewWaitlistService(slotRepo, tournamentRepo, guard, notificationService, metrics, retry, logger)
	slotService := services.NewSlotService(tournamentRepo, slotRepo, guard, waitlistService, notificationService, wsHub, retry, logger)
	scheduleService := services.NewScheduleService(tournamentRepo, guard, uploader, retry, logger)
	logger.Info("Services initialized")

	// Периодическое продвижение из листа ожидания
	if cfg.WaitlistSweepInterval > 0 {
		sweeper := workers.NewWaitlistSweeper(tournamentRepo, waitlistService, cfg.WaitlistSweepInterval, logger)
		if err := sweeper.Start(ctx); err != nil {
			return err
		}
		defer func() {
			if err := sweeper.Stop(); err != nil {
				logger.Error("failed to stop waitlist sweeper", slog.Any("error", err))
			}
		}()
	}

	// Настройка маршрутизатора
	router := chi.NewRouter()
	routes.SetupRoutes(router, routes.Handlers{
		Waitlist:      handlers.NewWaitlistHandler(waitlistService),
		Slots:         handlers.NewSlotHandler(slotService),
		Schedule:      handlers.NewScheduleHandler(scheduleService),
		Notifications: handlers.NewNotificationHandler(notificationService),
		WebSocket:     handlers.NewWebSocketHandler(wsHub, cfg.CORSAllowedOrigins),
	}, routes.Options{
		JWTSecret:      []byte(cfg.JWTSecretKey),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Metrics:        metrics,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		HealthCheck:    dbConn.PingContext,
	})
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("server stopped gracefully")
	case <-ctx.Done():
		logger.Info("shutdown signal received")

		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			// Graceful shutdown не удался, закрываем принудительно.
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		logger.Info("server shutdown complete")
	}
	return nil
}
