package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/fair-measure/cache"
	"github.com/Dosada05/fair-measure/config"
	"github.com/Dosada05/fair-measure/db"
	"github.com/Dosada05/fair-measure/handlers"
	"github.com/Dosada05/fair-measure/realtime"
	"github.com/Dosada05/fair-measure/repositories"
	api "github.com/Dosada05/fair-measure/routes"
	"github.com/Dosada05/fair-measure/services"
	"github.com/Dosada05/fair-measure/storage"
	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("application failed", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("application exited")
}

func run(logger *slog.Logger) error {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second, logger)
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

	if cfg.RunMigrations {
		if err := db.RunMigrations(dbConn, logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	// Кэш поиска (опционально)
	var searchCache cache.SearchCache
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisSearchCache(ctx, cfg.RedisURL, cfg.SearchCacheTTL, logger)
		if err != nil {
			logger.Warn("search cache disabled", slog.Any("error", err))
		} else {
			defer redisCache.Close()
			searchCache = redisCache
			logger.Info("search cache enabled", slog.Duration("ttl", cfg.SearchCacheTTL))
		}
	}

	// Хранилище аватаров (Cloudflare R2, опционально)
	var uploader storage.FileUploader
	if cfg.R2Enabled() {
		uploader, err = storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize Cloudflare R2 uploader: %w", err)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Info("avatar storage disabled: R2 is not configured")
	}

	// Инициализация WebSocket Hub
	wsHub := realtime.NewHub(logger)

	// Инициализация репозиториев
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	competitionRepo := repositories.NewPostgresCompetitionRepository(dbConn)
	memberRepo := repositories.NewPostgresMemberRepository(dbConn)

	inTx := func(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
		return db.InTx(ctx, dbConn, func(tx *sql.Tx) error { return fn(tx) })
	}

	// Инициализация сервисов
	authService := services.NewAuthService(userRepo, cfg.JWTSecretKey, cfg.JWTTTL)
	profileService := services.NewProfileService(userRepo, searchCache, uploader, logger)
	competitionService := services.NewCompetitionService(inTx, competitionRepo, memberRepo, userRepo, uploader, logger)
	memberService := services.NewMemberService(memberRepo, competitionRepo, userRepo, uploader, wsHub, logger)

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Auth:        handlers.NewAuthHandler(authService),
		Profile:     handlers.NewProfileHandler(profileService),
		Competition: handlers.NewCompetitionHandler(competitionService),
		Member:      handlers.NewMemberHandler(memberService),
		WebSocket:   handlers.NewWebSocketHandler(wsHub, competitionService, cfg.CORSAllowedOrigins, logger),
		Health:      handlers.HealthCheck(dbConn),
	}, api.Options{
		JWTSecret:      cfg.JWTSecretKey,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		wsHub.Run(gCtx)
		return nil
	})
	g.Go(func() error {
		logger.Info("starting server", slog.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			return server.Close()
		}
		logger.Info("server shutdown complete")
		return nil
	})
	return g.Wait()
}
