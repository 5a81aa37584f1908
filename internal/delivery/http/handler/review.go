package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Pesokrava/game_catalog/internal/delivery/http/middleware"
	"github.com/Pesokrava/game_catalog/internal/delivery/http/request"
	"github.com/Pesokrava/game_catalog/internal/delivery/http/response"
	"github.com/Pesokrava/game_catalog/internal/domain"
	"github.com/Pesokrava/game_catalog/internal/pkg/logger"
	"github.com/Pesokrava/game_catalog/internal/usecase/catalog"
)

// ReviewHandler handles HTTP requests for reviews
type ReviewHandler struct {
	service *catalog.Service
	logger  *logger.Logger
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(service *catalog.Service, log *logger.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		logger:  log,
	}
}

// ReviewRequest represents the request body for creating or updating a review
type ReviewRequest struct {
	Rating     *int    `json:"rating" example:"7"`
	ReviewText *string `json:"review_text" example:"Tight combat, great soundtrack"`
	IsPublic   *bool   `json:"is_public" example:"true"`
}

func (req ReviewRequest) input() domain.ReviewInput {
	in := domain.ReviewInput{
		Rating:     req.Rating,
		ReviewText: req.ReviewText,
		IsPublic:   true,
	}
	if req.IsPublic != nil {
		in.IsPublic = *req.IsPublic
	}
	return in
}

// GetMine handles GET /api/v1/reviews/me
// @Summary Get the caller's review of a game
// @Description Look up the authenticated user's review by catalog game id or by provider guid. Results are cached.
// @Tags Reviews
// @Produce json
// @Security BearerAuth
// @Param game_id query int false "Catalog game ID"
// @Param external_guid query string false "Provider game GUID"
// @Success 200 {object} map[string]interface{} "The review"
// @Failure 400 {object} map[string]string "Neither game_id nor external_guid given"
// @Failure 401 {object} map[string]string "Missing or invalid token"
// @Failure 404 {object} map[string]string "No review yet"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /reviews/me [get]
func (h *ReviewHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	gameID, hasID, err := request.GetInt64Query(r, "game_id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid game ID")
		return
	}

	var ref domain.GameRef
	switch guid := strings.TrimSpace(r.URL.Query().Get("external_guid")); {
	case hasID:
		ref = domain.RefByID(gameID)
	case guid != "":
		ref = domain.RefByGUID(guid)
	default:
		response.Error(w, http.StatusBadRequest, "game_id or external_guid is required")
		return
	}

	review, err := h.service.GetMyReview(r.Context(), userID, ref)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, review)
}

// Create handles POST /api/v1/reviews/game/:game_id
// @Summary Create a review
// @Description Create the caller's review of an imported game. Publishes a review.created event.
// @Tags Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param game_id path int true "Catalog game ID"
// @Param review body ReviewRequest true "Review details"
// @Success 201 {object} map[string]interface{} "Review created successfully"
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 404 {object} map[string]string "Game not found"
// @Failure 409 {object} map[string]string "Review already exists"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /reviews/game/{game_id} [post]
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	gameID, err := request.GetInt64Param(r, "game_id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid game ID")
		return
	}

	var req ReviewRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	review, err := h.service.CreateReview(r.Context(), userID, gameID, req.input())
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Created(w, review)
}

// Update handles PUT /api/v1/reviews/:id
// @Summary Update a review
// @Description Replace rating, text and visibility of one of the caller's reviews. Publishes a review.updated event.
// @Tags Reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Review ID"
// @Param review body ReviewRequest true "Updated review details"
// @Success 200 {object} map[string]interface{} "Review updated successfully"
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 404 {object} map[string]string "Review not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /reviews/{id} [put]
func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	id, err := request.GetInt64Param(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid review ID")
		return
	}

	var req ReviewRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	review, err := h.service.UpdateReview(r.Context(), userID, id, req.input())
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, review)
}

// handleError handles service layer errors and returns appropriate HTTP responses
func (h *ReviewHandler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		response.Error(w, http.StatusNotFound, "Review or game not found")
	case errors.Is(err, domain.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, "Invalid input")
	case errors.Is(err, domain.ErrConflict):
		response.Error(w, http.StatusConflict, "Review already exists")
	case errors.Is(err, domain.ErrMissingIdentity):
		response.Error(w, http.StatusBadRequest, "game_id or external_guid is required")
	default:
		h.logger.Error("Internal error in review handler", err)
		response.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
