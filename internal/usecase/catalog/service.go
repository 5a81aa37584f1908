// Package catalog implements the catalog API's review and status operations.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Pesokrava/game_catalog/internal/domain"
	"github.com/Pesokrava/game_catalog/internal/pkg/logger"
	validatorpkg "github.com/Pesokrava/game_catalog/internal/pkg/validator"
)

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// ReviewCache caches the (user, game) review lookup
type ReviewCache interface {
	GetReview(ctx context.Context, userID, gameID int64) (*domain.Review, error)
	SetReview(ctx context.Context, userID, gameID int64, review *domain.Review) error
	InvalidateReview(ctx context.Context, userID, gameID int64) error
}

// Service handles review and status business logic with caching and event publishing
type Service struct {
	reviews   domain.ReviewRepository
	games     domain.GameRepository
	cache     ReviewCache
	publisher EventPublisher
	validate  *validator.Validate
	logger    *logger.Logger
}

// NewService creates a new catalog service
func NewService(
	reviews domain.ReviewRepository,
	games domain.GameRepository,
	cache ReviewCache,
	publisher EventPublisher,
	log *logger.Logger,
) *Service {
	return &Service{
		reviews:   reviews,
		games:     games,
		cache:     cache,
		publisher: publisher,
		validate:  validatorpkg.Get(),
		logger:    log.Component("catalog-service"),
	}
}

// resolveGameID returns the catalog ID of ref. A guid that was never imported is not found.
func (s *Service) resolveGameID(ctx context.Context, ref domain.GameRef) (int64, error) {
	if ref.HasID {
		return ref.ID, nil
	}
	if ref.ExternalGUID == "" {
		return 0, domain.ErrMissingIdentity
	}
	return s.games.GetIDByExternalGUID(ctx, ref.ExternalGUID)
}

// GetMyReview returns the user's review of the referenced game
func (s *Service) GetMyReview(ctx context.Context, userID int64, ref domain.GameRef) (*domain.Review, error) {
	gameID, err := s.resolveGameID(ctx, ref)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debugf("Game %q is not imported yet", ref.ExternalGUID)
		}
		return nil, err
	}

	if cached, err := s.cache.GetReview(ctx, userID, gameID); err == nil {
		s.logger.Debugf("Cache hit for review of user %d, game %d", userID, gameID)
		return cached, nil
	}

	review, err := s.reviews.GetForUserGame(ctx, userID, gameID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debugf("No review of game %d by user %d", gameID, userID)
		} else {
			s.logger.Error("Failed to get review", err)
		}
		return nil, err
	}

	if err := s.cache.SetReview(ctx, userID, gameID, review); err != nil {
		s.logger.Warnf("Failed to cache review of user %d, game %d: %v", userID, gameID, err)
	}

	return review, nil
}

func (s *Service) validateInput(in domain.ReviewInput) (domain.ReviewInput, error) {
	in = in.Normalize()
	if err := s.validate.Struct(in); err != nil {
		s.logger.Error("Review validation failed", err)
		return in, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	return in, nil
}

// CreateReview creates the user's review of a game
func (s *Service) CreateReview(ctx context.Context, userID, gameID int64, in domain.ReviewInput) (*domain.Review, error) {
	in, err := s.validateInput(in)
	if err != nil {
		return nil, err
	}

	review, err := s.reviews.Create(ctx, userID, gameID, in)
	if err != nil {
		s.logger.Error("Failed to create review", err)
		return nil, err
	}

	s.invalidate(ctx, userID, gameID)
	s.publishEvent(domain.ReviewEvent{
		EventType: domain.EventReviewCreated,
		UserID:    userID,
		GameID:    gameID,
		Review:    review,
	})

	s.logger.WithFields(map[string]interface{}{
		"review_id": *review.ID,
		"game_id":   gameID,
		"user_id":   userID,
	}).Info("Review created successfully")

	return review, nil
}

// UpdateReview updates a review owned by userID. Reviews of other users are not found.
func (s *Service) UpdateReview(ctx context.Context, userID, reviewID int64, in domain.ReviewInput) (*domain.Review, error) {
	in, err := s.validateInput(in)
	if err != nil {
		return nil, err
	}

	owner, err := s.reviews.GetOwnerID(ctx, reviewID)
	if err != nil {
		s.logger.Error("Failed to get review owner", err)
		return nil, err
	}
	if owner != userID {
		s.logger.Warnf("User %d tried to update review %d of user %d", userID, reviewID, owner)
		return nil, domain.ErrNotFound
	}

	review, err := s.reviews.Update(ctx, reviewID, in)
	if err != nil {
		s.logger.Error("Failed to update review", err)
		return nil, err
	}

	var gameID int64
	if review.GameID != nil {
		gameID = *review.GameID
	}
	s.invalidate(ctx, userID, gameID)
	s.publishEvent(domain.ReviewEvent{
		EventType: domain.EventReviewUpdated,
		UserID:    userID,
		GameID:    gameID,
		Review:    review,
	})

	s.logger.WithFields(map[string]interface{}{
		"review_id": reviewID,
		"game_id":   gameID,
		"user_id":   userID,
	}).Info("Review updated successfully")

	return review, nil
}

// UpsertStatus sets the user's status for a game. A game referenced only by
// its provider guid is imported first. It returns the game as the user sees it.
func (s *Service) UpsertStatus(ctx context.Context, userID int64, in domain.UpsertStatusInput) (*domain.Game, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	status, err := domain.ParseStatus(string(in.Status))
	if err != nil {
		return nil, err
	}

	var gameID int64
	switch {
	case in.ID != nil:
		gameID = *in.ID
	case in.ExternalGUID != nil && *in.ExternalGUID != "":
		gameID, err = s.games.Import(ctx, *in.ExternalGUID, in.Name, in.CoverURL)
		if err != nil {
			s.logger.Error("Failed to import game", err)
			return nil, err
		}
	default:
		return nil, domain.ErrMissingIdentity
	}

	persisted, err := s.games.UpsertStatus(ctx, userID, gameID, status)
	if err != nil {
		s.logger.Error("Failed to upsert status", err)
		return nil, err
	}

	game, err := s.games.GetForUser(ctx, userID, gameID)
	if err != nil {
		s.logger.Error("Failed to reload game", err)
		return nil, err
	}
	game.Status = &persisted

	s.publishEvent(domain.ReviewEvent{
		EventType: domain.EventGameStatusChanged,
		UserID:    userID,
		GameID:    gameID,
		Status:    &persisted,
	})

	s.logger.WithFields(map[string]interface{}{
		"game_id": gameID,
		"user_id": userID,
		"status":  string(persisted),
	}).Info("Status updated successfully")

	return game, nil
}

func (s *Service) invalidate(ctx context.Context, userID, gameID int64) {
	// Stale cache would keep serving the previous draft to the review lookup
	if err := s.cache.InvalidateReview(ctx, userID, gameID); err != nil {
		s.logger.Warnf("Failed to invalidate cache for user %d, game %d: %v", userID, gameID, err)
	}
}

// publishEvent publishes a review event (non-blocking)
func (s *Service) publishEvent(event domain.ReviewEvent) {
	event.Timestamp = time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Errorf(err, "Failed to marshal %s event for game %d", event.EventType, event.GameID)
		return
	}

	// Publish in background to avoid blocking
	go func() {
		if err := s.publisher.Publish(context.Background(), domain.SubjectReviewEvents, data); err != nil {
			s.logger.Errorf(err, "Failed to publish %s event for game %d", event.EventType, event.GameID)
		}
	}()
}
