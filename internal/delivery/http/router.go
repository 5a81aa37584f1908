package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/Pesokrava/game_catalog/internal/config"
	"github.com/Pesokrava/game_catalog/internal/delivery/http/handler"
	"github.com/Pesokrava/game_catalog/internal/delivery/http/middleware"
	"github.com/Pesokrava/game_catalog/internal/delivery/http/response"
	"github.com/Pesokrava/game_catalog/internal/domain"
	"github.com/Pesokrava/game_catalog/internal/pkg/logger"
)

const requestTimeout = 30 * time.Second

// Router holds the catalog API handlers and router configuration
type Router struct {
	reviewHandler *handler.ReviewHandler
	gameHandler   *handler.GameHandler
	users         domain.UserRepository
	logger        *logger.Logger
	cfg           *config.Config
}

// NewRouter creates a new catalog API router
func NewRouter(
	reviewHandler *handler.ReviewHandler,
	gameHandler *handler.GameHandler,
	users domain.UserRepository,
	cfg *config.Config,
	log *logger.Logger,
) *Router {
	return &Router{
		reviewHandler: reviewHandler,
		gameHandler:   gameHandler,
		users:         users,
		logger:        log,
		cfg:           cfg,
	}
}

// Setup configures and returns the HTTP router
func (rt *Router) Setup() http.Handler {
	r := newBaseRouter(rt.cfg, rt.logger)

	r.Get("/swagger/*", httpSwagger.WrapHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(rt.users, rt.logger))

		r.Route("/reviews", func(r chi.Router) {
			r.Get("/me", rt.reviewHandler.GetMine)
			r.Post("/game/{game_id}", rt.reviewHandler.Create)
			r.Put("/{id}", rt.reviewHandler.Update)
		})

		r.Route("/games", func(r chi.Router) {
			r.Post("/upsert-status", rt.gameHandler.UpsertStatus)
		})
	})

	return r
}

// ShelfRouter holds the session server handlers
type ShelfRouter struct {
	sessionHandler *handler.SessionHandler
	metrics        http.Handler
	logger         *logger.Logger
	cfg            *config.Config
}

// NewShelfRouter creates a router for the session server. metrics may be nil.
func NewShelfRouter(
	sessionHandler *handler.SessionHandler,
	metrics http.Handler,
	cfg *config.Config,
	log *logger.Logger,
) *ShelfRouter {
	return &ShelfRouter{
		sessionHandler: sessionHandler,
		metrics:        metrics,
		logger:         log,
		cfg:            cfg,
	}
}

// Setup configures and returns the HTTP router
func (rt *ShelfRouter) Setup() http.Handler {
	r := newBaseRouter(rt.cfg, rt.logger)

	if rt.metrics != nil {
		r.Handle("/metrics", rt.metrics)
	}

	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.Post("/", rt.sessionHandler.Open)
		r.Get("/{id}", rt.sessionHandler.Get)
		r.Delete("/{id}", rt.sessionHandler.Close)
		r.Put("/{id}/draft", rt.sessionHandler.UpdateDraft)
		r.Post("/{id}/rating", rt.sessionHandler.ChangeRating)
		r.Post("/{id}/review", rt.sessionHandler.SaveReview)
		r.Post("/{id}/status", rt.sessionHandler.ChangeStatus)
	})

	return r
}

func newBaseRouter(cfg *config.Config, log *logger.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log))
	r.Use(chimw.Timeout(requestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", healthCheck)
	return r
}

// healthCheck handles health check requests
func healthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
