package domain

import "context"

// UserRepository resolves API bearer tokens to users
type UserRepository interface {
	// GetIDByToken returns ErrNotFound for unknown tokens
	GetIDByToken(ctx context.Context, token string) (int64, error)
}
