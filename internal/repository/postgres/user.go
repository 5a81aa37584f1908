package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// UserRepository implements domain.UserRepository for PostgreSQL
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetIDByToken resolves an API bearer token to its user
func (r *UserRepository) GetIDByToken(ctx context.Context, token string) (int64, error) {
	var id int64
	if err := r.db.GetContext(ctx, &id, `SELECT id FROM users WHERE api_token = $1`, token); err != nil {
		return 0, mapError(err)
	}
	return id, nil
}
