package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/Pesokrava/game_catalog/internal/domain"
)

const reviewColumns = `id, game_id, rating, review_text, is_public, created_at, updated_at`

// ReviewRepository implements domain.ReviewRepository for PostgreSQL
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository creates a new PostgreSQL review repository
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// GetForUserGame retrieves the user's review of a game
func (r *ReviewRepository) GetForUserGame(ctx context.Context, userID, gameID int64) (*domain.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE user_id = $1 AND game_id = $2`

	var review domain.Review
	if err := r.db.GetContext(ctx, &review, query, userID, gameID); err != nil {
		return nil, mapError(err)
	}
	return &review, nil
}

// GetOwnerID returns the user that wrote the review
func (r *ReviewRepository) GetOwnerID(ctx context.Context, reviewID int64) (int64, error) {
	var userID int64
	err := r.db.GetContext(ctx, &userID, `SELECT user_id FROM reviews WHERE id = $1`, reviewID)
	if err != nil {
		return 0, mapError(err)
	}
	return userID, nil
}

// Create creates a new review. A missing game yields domain.ErrNotFound and a
// second review of the same game domain.ErrConflict.
func (r *ReviewRepository) Create(ctx context.Context, userID, gameID int64, in domain.ReviewInput) (*domain.Review, error) {
	// Return domain.ErrNotFound instead of cryptic foreign key constraint violation
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM games WHERE id = $1)`, gameID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrNotFound
	}

	query := `
		INSERT INTO reviews (user_id, game_id, rating, review_text, is_public)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + reviewColumns

	var review domain.Review
	err = r.db.QueryRowxContext(ctx, query, userID, gameID, in.Rating, in.ReviewText, in.IsPublic).StructScan(&review)
	if err != nil {
		return nil, mapError(err)
	}
	return &review, nil
}

// Update replaces the rating, text and visibility of a review
func (r *ReviewRepository) Update(ctx context.Context, reviewID int64, in domain.ReviewInput) (*domain.Review, error) {
	query := `
		UPDATE reviews
		SET rating = $1, review_text = $2, is_public = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING ` + reviewColumns

	var review domain.Review
	err := r.db.QueryRowxContext(ctx, query, in.Rating, in.ReviewText, in.IsPublic, reviewID).StructScan(&review)
	if err != nil {
		return nil, mapError(err)
	}
	return &review, nil
}
