package worker

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Pesokrava/game_catalog/internal/pkg/logger"
)

// Calculator recomputes the community rating of a game
type Calculator struct {
	db     *sqlx.DB
	logger *logger.Logger
}

// NewCalculator creates a new rating calculator
func NewCalculator(db *sqlx.DB, log *logger.Logger) *Calculator {
	return &Calculator{
		db:     db,
		logger: log.Component("rating-calculator"),
	}
}

// CalculateAndUpdate recalculates the average rating of a game from all rated
// reviews. A game without rated reviews has no average.
func (c *Calculator) CalculateAndUpdate(ctx context.Context, gameID int64) error {
	query := `
		UPDATE games
		SET
			avg_rating = (
				SELECT ROUND(AVG(rating)::numeric, 1)
				FROM reviews
				WHERE game_id = $1 AND rating IS NOT NULL
			),
			updated_at = $2
		WHERE id = $1
	`

	result, err := c.db.ExecContext(ctx, query, gameID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update game rating: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		c.logger.WithFields(map[string]any{
			"game_id": gameID,
		}).Info("Game not found, skipping rating update")
		return nil
	}

	c.logger.WithFields(map[string]any{
		"game_id": gameID,
	}).Info("Updated game rating")

	return nil
}

// GetCurrentRating returns the stored average rating, or 0 when there is none
func (c *Calculator) GetCurrentRating(ctx context.Context, gameID int64) (float64, error) {
	var rating sql.NullFloat64
	query := `SELECT avg_rating FROM games WHERE id = $1`

	if err := c.db.GetContext(ctx, &rating, query, gameID); err != nil {
		return 0, fmt.Errorf("failed to get current rating: %w", err)
	}

	if !rating.Valid {
		return 0, nil
	}
	return rating.Float64, nil
}
