package handler

import (
	"errors"
	"net/http"

	"github.com/Pesokrava/game_catalog/internal/delivery/http/middleware"
	"github.com/Pesokrava/game_catalog/internal/delivery/http/request"
	"github.com/Pesokrava/game_catalog/internal/delivery/http/response"
	"github.com/Pesokrava/game_catalog/internal/domain"
	"github.com/Pesokrava/game_catalog/internal/pkg/logger"
	"github.com/Pesokrava/game_catalog/internal/usecase/catalog"
)

// GameHandler handles HTTP requests for games
type GameHandler struct {
	service *catalog.Service
	logger  *logger.Logger
}

// NewGameHandler creates a new game handler
func NewGameHandler(service *catalog.Service, log *logger.Logger) *GameHandler {
	return &GameHandler{
		service: service,
		logger:  log,
	}
}

// UpsertStatus handles POST /api/v1/games/upsert-status
// @Summary Set the caller's status for a game
// @Description Set the play status of an imported game by id, or import a provider game by external_guid with an initial status.
// @Tags Games
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body domain.UpsertStatusInput true "Game identity and status"
// @Success 200 {object} map[string]interface{} "Game with the persisted status"
// @Failure 400 {object} map[string]string "Invalid status or missing identity"
// @Failure 404 {object} map[string]string "Game not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /games/upsert-status [post]
func (h *GameHandler) UpsertStatus(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req domain.UpsertStatusInput
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	game, err := h.service.UpsertStatus(r.Context(), userID, req)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, game)
}

// handleError handles service layer errors and returns appropriate HTTP responses
func (h *GameHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.Error(w, http.StatusNotFound, "Game not found")
	case errors.Is(err, domain.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, "Invalid status")
	case errors.Is(err, domain.ErrMissingIdentity):
		response.Error(w, http.StatusBadRequest, "id or external_guid is required")
	default:
		h.logger.Error("Internal error in game handler", err)
		response.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
