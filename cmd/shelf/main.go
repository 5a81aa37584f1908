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

	catalogClient "github.com/Pesokrava/game_catalog/internal/client/catalog"
	"github.com/Pesokrava/game_catalog/internal/config"
	"github.com/Pesokrava/game_catalog/internal/delivery/events"
	httpDelivery "github.com/Pesokrava/game_catalog/internal/delivery/http"
	"github.com/Pesokrava/game_catalog/internal/delivery/http/handler"
	"github.com/Pesokrava/game_catalog/internal/pkg/cache"
	"github.com/Pesokrava/game_catalog/internal/pkg/logger"
	"github.com/Pesokrava/game_catalog/internal/pkg/metrics"
	cacheRepo "github.com/Pesokrava/game_catalog/internal/repository/cache"
	"github.com/Pesokrava/game_catalog/internal/usecase/review"
	"github.com/Pesokrava/game_catalog/internal/usecase/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Env).WithLevel(cfg.LogLevel)
	appLogger.Info("Starting shelf session server...")

	appLogger.Info("Connecting to Redis...")
	redisClient, err := cache.WaitForRedis(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to Redis", err)
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis successfully")

	appLogger.Info("Connecting to NATS...")
	publisher, err := events.NewPublisher(cfg, "shelf", appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create NATS publisher", err)
	}
	defer publisher.Close()

	if err := publisher.EnsureStreams(events.ShelfStream); err != nil {
		appLogger.Fatal("Failed to ensure JetStream stream", err)
	}

	api := catalogClient.NewClient(cfg.Shelf.CatalogAPIURL, cfg.Shelf.CatalogAPITimeout, appLogger)
	recorder := metrics.NewRecorder()

	registry := session.NewRegistry(session.Deps{
		Connect: func(creds catalogClient.Credentials) session.API {
			return api.WithCredentials(creds)
		},
		Tokens:    cacheRepo.NewTokenStore(redisClient, cfg.Shelf.SessionTokenTTL),
		Publisher: publisher,
		Metrics:   recorder,
		Logger:    appLogger,
		ReviewOptions: review.Options{
			AutosaveDelay:             cfg.Shelf.AutosaveDelay,
			RollbackOnAutosaveFailure: cfg.Shelf.RollbackOnAutosaveFailure,
		},
		IdleTTL: cfg.Shelf.SessionIdleTTL,
	})
	defer registry.Stop()

	sessionHandler := handler.NewSessionHandler(registry, appLogger)
	router := httpDelivery.NewShelfRouter(sessionHandler, recorder.Handler(), cfg, appLogger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Shelf.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		appLogger.Infof("Shelf server listening on port %s, catalog API at %s", cfg.Shelf.Port, cfg.Shelf.CatalogAPIURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down shelf server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", err)
	}

	appLogger.WithFields(map[string]any{
		"open_sessions": registry.Len(),
	}).Info("Shelf server stopped, closing sessions")
}
