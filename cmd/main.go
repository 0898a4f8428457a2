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

	"github.com/go-chi/chi/v5"

	"github.com/matchgrid/matchgrid/config"
	"github.com/matchgrid/matchgrid/db"
	"github.com/matchgrid/matchgrid/handlers"
	"github.com/matchgrid/matchgrid/live"
	"github.com/matchgrid/matchgrid/repositories"
	api "github.com/matchgrid/matchgrid/routes"
	"github.com/matchgrid/matchgrid/services"
	"github.com/matchgrid/matchgrid/storage"
)

const statusRolloverInterval = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	if err := db.Migrate(dbConn); err != nil {
		logger.Error("failed to apply database migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database migrations applied")

	uploader, err := storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2AccountID,
		AccessKeyID:     cfg.R2AccessKeyID,
		SecretAccessKey: cfg.R2SecretAccessKey,
		BucketName:      cfg.R2BucketName,
		PublicBaseURL:   cfg.R2PublicBaseURL,
	})
	if err != nil {
		logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Cloudflare R2 uploader initialized")

	hub := live.NewHub(logger)
	go hub.Run()
	logger.Info("live hub started")

	sportRepo := repositories.NewPostgresSportRepository()
	profileRepo := repositories.NewPostgresProfileRepository()
	eventRepo := repositories.NewPostgresEventRepository()
	divisionRepo := repositories.NewPostgresDivisionRepository()
	teamRepo := repositories.NewPostgresTeamRepository()
	matchRepo := repositories.NewPostgresMatchRepository()
	fieldRepo := repositories.NewPostgresFieldRepository()
	bookingRepo := repositories.NewPostgresBookingRepository()

	sportService := services.NewSportService(dbConn, sportRepo, profileRepo, uploader, logger)
	eventService := services.NewEventService(dbConn, eventRepo, divisionRepo, teamRepo, profileRepo, sportRepo, uploader, logger)
	fieldService := services.NewFieldService(dbConn, fieldRepo, uploader, logger)
	matchService := services.NewMatchService(dbConn, matchRepo, divisionRepo, profileRepo, bookingRepo, hub, logger)
	bracketService := services.NewBracketService(dbConn, eventRepo, divisionRepo, teamRepo, matchRepo, hub, logger)
	standingsService := services.NewStandingsService(dbConn, divisionRepo, teamRepo, matchRepo, profileRepo, hub, logger)
	bookingService := services.NewBookingService(dbConn, fieldRepo, matchRepo, bookingRepo, logger)
	logger.Info("services initialized")

	go func() {
		ticker := time.NewTicker(statusRolloverInterval)
		defer ticker.Stop()
		logger.Info("event status rollover scheduler started", slog.Duration("interval", statusRolloverInterval))

		if err := eventService.AutoUpdateStatusesByDates(context.Background()); err != nil {
			logger.Error("status rollover: initial run failed", slog.Any("error", err))
		}
		for range ticker.C {
			if err := eventService.AutoUpdateStatusesByDates(context.Background()); err != nil {
				logger.Error("status rollover: periodic run failed", slog.Any("error", err))
			}
		}
	}()

	eventHandler := handlers.NewEventHandler(eventService)
	matchHandler := handlers.NewMatchHandler(matchService, bracketService)
	standingsHandler := handlers.NewStandingsHandler(standingsService)
	bookingHandler := handlers.NewBookingHandler(bookingService)
	sportHandler := handlers.NewSportHandler(sportService)
	fieldHandler := handlers.NewFieldHandler(fieldService)
	webSocketHandler := handlers.NewWebSocketHandler(hub, logger)

	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		[]byte(cfg.JWTSecretKey),
		eventHandler,
		matchHandler,
		standingsHandler,
		bookingHandler,
		sportHandler,
		fieldHandler,
		webSocketHandler,
	)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", 15*time.Second))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
