package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/Pesokrava/game_catalog/internal/delivery/http/request"
	"github.com/Pesokrava/game_catalog/internal/delivery/http/response"
	"github.com/Pesokrava/game_catalog/internal/domain"
	"github.com/Pesokrava/game_catalog/internal/pkg/logger"
)

type contextKey string

const userIDKey contextKey = "user_id"

// Auth resolves the bearer token to a user. Requests without a known token get 401.
func Auth(users domain.UserRepository, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := request.BearerToken(r)
			if token == "" {
				response.Error(w, http.StatusUnauthorized, "Missing bearer token")
				return
			}

			userID, err := users.GetIDByToken(r.Context(), token)
			if err != nil {
				if !errors.Is(err, domain.ErrNotFound) {
					log.Error("Failed to resolve bearer token", err)
					response.Error(w, http.StatusInternalServerError, "Internal server error")
					return
				}
				response.Error(w, http.StatusUnauthorized, "Invalid bearer token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// WithUserID returns ctx carrying the authenticated user
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID returns the authenticated user set by Auth
func UserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}
