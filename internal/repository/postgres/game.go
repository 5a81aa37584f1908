package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/Pesokrava/game_catalog/internal/domain"
)

// GameRepository implements domain.GameRepository for PostgreSQL
type GameRepository struct {
	db *sqlx.DB
}

// NewGameRepository creates a new PostgreSQL game repository
func NewGameRepository(db *sqlx.DB) *GameRepository {
	return &GameRepository{db: db}
}

// GetForUser retrieves a game with the user's status and rating attached
func (r *GameRepository) GetForUser(ctx context.Context, userID, gameID int64) (*domain.Game, error) {
	query := `
		SELECT g.id, g.external_guid, g.name, g.cover_url, g.avg_rating, ug.status, rv.rating
		FROM games g
		LEFT JOIN user_games ug ON ug.game_id = g.id AND ug.user_id = $1
		LEFT JOIN reviews rv ON rv.game_id = g.id AND rv.user_id = $1
		WHERE g.id = $2
	`

	var game domain.Game
	if err := r.db.GetContext(ctx, &game, query, userID, gameID); err != nil {
		return nil, mapError(err)
	}
	return &game, nil
}

// GetIDByExternalGUID resolves an imported game's catalog ID from its provider guid
func (r *GameRepository) GetIDByExternalGUID(ctx context.Context, guid string) (int64, error) {
	var id int64
	if err := r.db.GetContext(ctx, &id, `SELECT id FROM games WHERE external_guid = $1`, guid); err != nil {
		return 0, mapError(err)
	}
	return id, nil
}

// Import creates a game from provider metadata. Importing a known guid
// returns the existing ID and only fills in a missing name or cover.
func (r *GameRepository) Import(ctx context.Context, guid, name string, coverURL *string) (int64, error) {
	query := `
		INSERT INTO games (external_guid, name, cover_url)
		VALUES ($1, $2, $3)
		ON CONFLICT (external_guid) DO UPDATE
		SET name = COALESCE(NULLIF(games.name, ''), EXCLUDED.name),
			cover_url = COALESCE(games.cover_url, EXCLUDED.cover_url),
			updated_at = NOW()
		RETURNING id
	`

	var id int64
	if err := r.db.QueryRowxContext(ctx, query, guid, name, coverURL).Scan(&id); err != nil {
		return 0, mapError(err)
	}
	return id, nil
}

// UpsertStatus sets the user's status for a game and returns the persisted value
func (r *GameRepository) UpsertStatus(ctx context.Context, userID, gameID int64, status domain.Status) (domain.Status, error) {
	query := `
		INSERT INTO user_games (user_id, game_id, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, game_id) DO UPDATE
		SET status = EXCLUDED.status, updated_at = NOW()
		RETURNING status
	`

	var persisted string
	if err := r.db.QueryRowxContext(ctx, query, userID, gameID, string(status)).Scan(&persisted); err != nil {
		return "", mapError(err)
	}
	return domain.Status(persisted), nil
}
