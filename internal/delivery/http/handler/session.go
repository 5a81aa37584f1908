package handler

import (
	"errors"
	"net/http"

	"github.com/Pesokrava/game_catalog/internal/delivery/http/request"
	"github.com/Pesokrava/game_catalog/internal/delivery/http/response"
	"github.com/Pesokrava/game_catalog/internal/domain"
	"github.com/Pesokrava/game_catalog/internal/pkg/logger"
	"github.com/Pesokrava/game_catalog/internal/usecase/review"
	"github.com/Pesokrava/game_catalog/internal/usecase/session"
)

// SessionHandler exposes workflow sessions of the shelf server
type SessionHandler struct {
	registry *session.Registry
	logger   *logger.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(registry *session.Registry, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		registry: registry,
		logger:   log,
	}
}

// DraftRequest edits the draft. Editing true enters editing mode, false cancels it.
type DraftRequest struct {
	Editing    *bool   `json:"editing,omitempty" example:"true"`
	ReviewText *string `json:"review_text,omitempty" example:"Still thinking about that ending"`
	IsPublic   *bool   `json:"is_public,omitempty" example:"false"`
}

// RatingRequest is the star widget value
type RatingRequest struct {
	Rating float64 `json:"rating" example:"7.5"`
}

// StatusRequest is the requested play status
type StatusRequest struct {
	Status domain.Status `json:"status" example:"on_going"`
}

// Open handles POST /api/v1/sessions
// @Summary Open a workflow session
// @Description Open a review and status session for a game detail view. The caller's bearer token is kept for the session's calls to the catalog API.
// @Tags Sessions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param game body domain.Game true "Game as displayed (id or external_guid required)"
// @Success 201 {object} map[string]interface{} "Session snapshot"
// @Failure 400 {object} map[string]string "Invalid game"
// @Failure 401 {object} map[string]string "Missing token"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /sessions [post]
func (h *SessionHandler) Open(w http.ResponseWriter, r *http.Request) {
	token := request.BearerToken(r)
	if token == "" {
		response.Error(w, http.StatusUnauthorized, "Missing bearer token")
		return
	}

	var game domain.Game
	if err := request.DecodeJSON(r, &game); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s, err := h.registry.Open(r.Context(), token, game)
	if err != nil {
		h.handleError(w, err)
		return
	}

	response.Created(w, s.Snapshot())
}

// Get handles GET /api/v1/sessions/:id
// @Summary Get a session snapshot
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} map[string]interface{} "Session snapshot"
// @Failure 404 {object} map[string]string "Session not found"
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	response.Success(w, s.Snapshot())
}

// Close handles DELETE /api/v1/sessions/:id
// @Summary Close a session
// @Description Cancel pending autosaves and discard in-flight responses of the session
// @Tags Sessions
// @Param id path string true "Session ID"
// @Success 204 "Session closed"
// @Failure 404 {object} map[string]string "Session not found"
// @Router /sessions/{id} [delete]
func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := request.GetStringParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	if err := h.registry.Close(id); err != nil {
		h.handleError(w, err)
		return
	}

	response.NoContent(w)
}

// UpdateDraft handles PUT /api/v1/sessions/:id/draft
// @Summary Edit the review draft
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param draft body DraftRequest true "Draft changes"
// @Success 200 {object} map[string]interface{} "Session snapshot"
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 404 {object} map[string]string "Session not found"
// @Router /sessions/{id}/draft [put]
func (h *SessionHandler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req DraftRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	reviews := s.Reviews()
	if req.Editing != nil {
		if *req.Editing {
			reviews.StartEditing()
		} else {
			reviews.CancelEditing()
		}
	}
	if req.ReviewText != nil {
		reviews.SetDraftText(*req.ReviewText)
	}
	if req.IsPublic != nil {
		reviews.SetDraftIsPublic(*req.IsPublic)
	}

	response.Success(w, s.Snapshot())
}

// ChangeRating handles POST /api/v1/sessions/:id/rating
// @Summary Pick a star rating
// @Description Apply the rating to the draft and schedule a debounced autosave
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param rating body RatingRequest true "Star value"
// @Success 202 {object} map[string]interface{} "Session snapshot"
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 404 {object} map[string]string "Session not found"
// @Router /sessions/{id}/rating [post]
func (h *SessionHandler) ChangeRating(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req RatingRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.Reviews().HandleStarsChange(req.Rating)

	response.Accepted(w, s.Snapshot())
}

// SaveReview handles POST /api/v1/sessions/:id/review
// @Summary Save the review draft
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} map[string]interface{} "Session snapshot"
// @Failure 400 {object} map[string]string "Game has no catalog id"
// @Failure 404 {object} map[string]string "Session not found"
// @Failure 502 {object} map[string]string "Catalog API call failed"
// @Router /sessions/{id}/review [post]
func (h *SessionHandler) SaveReview(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	if err := s.Reviews().HandleSaveReview(r.Context()); err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, s.Snapshot())
}

// ChangeStatus handles POST /api/v1/sessions/:id/status
// @Summary Change the play status
// @Description Apply the status optimistically and persist it. A game without a catalog id is imported first.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param status body StatusRequest true "Requested status"
// @Success 200 {object} map[string]interface{} "Session snapshot"
// @Failure 400 {object} map[string]string "Unknown status"
// @Failure 404 {object} map[string]string "Session not found"
// @Failure 502 {object} map[string]string "Catalog API call failed"
// @Router /sessions/{id}/status [post]
func (h *SessionHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req StatusRequest
	if err := request.DecodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := s.Statuses().ChangeStatus(r.Context(), req.Status); err != nil {
		h.handleError(w, err)
		return
	}

	response.Success(w, s.Snapshot())
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id, err := request.GetStringParam(r, "id")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid session ID")
		return nil, false
	}

	s, err := h.registry.Get(id)
	if err != nil {
		h.handleError(w, err)
		return nil, false
	}
	return s, true
}

// handleError maps workflow errors to HTTP responses
func (h *SessionHandler) handleError(w http.ResponseWriter, err error) {
	var opErr *domain.OpError
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		response.Error(w, http.StatusUnauthorized, "Session expired, please log in again")
	case errors.Is(err, domain.ErrMissingIdentity), errors.Is(err, domain.ErrMissingGameID):
		response.Error(w, http.StatusBadRequest, "Game has no catalog id or external guid")
	case errors.Is(err, domain.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, "Invalid input")
	case errors.As(err, &opErr):
		response.Error(w, http.StatusBadGateway, "Catalog API request failed")
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, review.ErrNoSession):
		response.Error(w, http.StatusNotFound, "Session not found")
	default:
		h.logger.Error("Internal error in session handler", err)
		response.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
