package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Pesokrava/game_catalog/internal/client/catalog"
	"github.com/Pesokrava/game_catalog/internal/domain"
)

// TokenStore keeps the bearer token of each shelf session in Redis
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTokenStore creates a token store whose entries expire after ttl
func NewTokenStore(client *redis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{client: client, ttl: ttl}
}

func tokenKey(sessionID string) string {
	return fmt.Sprintf("shelf:session:%s:token", sessionID)
}

// Save stores the token of a session
func (s *TokenStore) Save(ctx context.Context, sessionID, token string) error {
	if token == "" {
		return domain.ErrUnauthorized
	}
	return s.client.Set(ctx, tokenKey(sessionID), token, s.ttl).Err()
}

// Delete removes the token of a session
func (s *TokenStore) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, tokenKey(sessionID)).Err()
}

// Credentials returns a catalog token source bound to one session
func (s *TokenStore) Credentials(sessionID string) catalog.Credentials {
	return &sessionToken{store: s, sessionID: sessionID}
}

type sessionToken struct {
	store     *TokenStore
	sessionID string
}

// Token returns ErrUnauthorized once the token expired or was cleared
func (t *sessionToken) Token(ctx context.Context) (string, error) {
	token, err := t.store.client.Get(ctx, tokenKey(t.sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrUnauthorized
		}
		return "", err
	}
	return token, nil
}

func (t *sessionToken) Clear(ctx context.Context) error {
	return t.store.Delete(ctx, t.sessionID)
}
