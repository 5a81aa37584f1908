package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Pesokrava/game_catalog/internal/config"
	"github.com/Pesokrava/game_catalog/internal/delivery/events"
	httpDelivery "github.com/Pesokrava/game_catalog/internal/delivery/http"
	"github.com/Pesokrava/game_catalog/internal/delivery/http/handler"
	"github.com/Pesokrava/game_catalog/internal/pkg/cache"
	"github.com/Pesokrava/game_catalog/internal/pkg/database"
	"github.com/Pesokrava/game_catalog/internal/pkg/logger"
	cacheRepo "github.com/Pesokrava/game_catalog/internal/repository/cache"
	"github.com/Pesokrava/game_catalog/internal/repository/postgres"
	"github.com/Pesokrava/game_catalog/internal/usecase/catalog"

	_ "github.com/Pesokrava/game_catalog/docs"
)

// @title Game Catalog API
// @version 1.0
// @description Game catalog with per-user reviews, play statuses, caching and event notifications.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// @tag.name Reviews
// @tag.description The caller's reviews

// @tag.name Games
// @tag.description Play status and game import

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Env).WithLevel(cfg.LogLevel)
	appLogger.Info("Starting Game Catalog API...")

	appLogger.Info("Connecting to PostgreSQL...")
	db, err := database.WaitForDB(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", err)
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL successfully")

	if err := database.RunMigrations(db); err != nil {
		appLogger.Fatal("Failed to run migrations", err)
	}

	appLogger.Info("Connecting to Redis...")
	redisClient, err := cache.WaitForRedis(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", err)
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis successfully")

	appLogger.Info("Connecting to NATS...")
	publisher, err := events.NewPublisher(cfg, "catalog-api", appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create NATS publisher", err)
	}
	defer publisher.Close()

	if err := publisher.EnsureStreams(events.ReviewsStream); err != nil {
		appLogger.Fatal("Failed to ensure JetStream stream", err)
	}

	reviewRepo := postgres.NewReviewRepository(db)
	gameRepo := postgres.NewGameRepository(db)
	userRepo := postgres.NewUserRepository(db)
	redisCache := cacheRepo.NewRedisCache(redisClient, cfg.Cache.ReviewTTL)

	service := catalog.NewService(reviewRepo, gameRepo, redisCache, publisher, appLogger)

	reviewHandler := handler.NewReviewHandler(service, appLogger)
	gameHandler := handler.NewGameHandler(service, appLogger)

	router := httpDelivery.NewRouter(reviewHandler, gameHandler, userRepo, cfg, appLogger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		appLogger.Infof("HTTP server listening on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", err)
	}

	appLogger.Info("Server stopped gracefully")
}
