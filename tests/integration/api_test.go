//go:build integration
// +build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogClient "github.com/Pesokrava/game_catalog/internal/client/catalog"
	"github.com/Pesokrava/game_catalog/internal/config"
	"github.com/Pesokrava/game_catalog/internal/delivery/events"
	httpDelivery "github.com/Pesokrava/game_catalog/internal/delivery/http"
	"github.com/Pesokrava/game_catalog/internal/delivery/http/handler"
	"github.com/Pesokrava/game_catalog/internal/domain"
	"github.com/Pesokrava/game_catalog/internal/pkg/cache"
	"github.com/Pesokrava/game_catalog/internal/pkg/database"
	"github.com/Pesokrava/game_catalog/internal/pkg/logger"
	"github.com/Pesokrava/game_catalog/internal/pkg/metrics"
	cacheRepo "github.com/Pesokrava/game_catalog/internal/repository/cache"
	"github.com/Pesokrava/game_catalog/internal/repository/postgres"
	"github.com/Pesokrava/game_catalog/internal/usecase/catalog"
	"github.com/Pesokrava/game_catalog/internal/usecase/review"
	"github.com/Pesokrava/game_catalog/internal/usecase/session"
)

type stack struct {
	cfg     *config.Config
	catalog http.Handler
	redis   *redis.Client
	token   string
}

func setupTestServer(t *testing.T) *stack {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	log := logger.New(cfg.Env)

	db, err := database.WaitForDB(cfg, 5, 2*time.Second)
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(db))
	t.Cleanup(func() { _ = db.Close() })

	redisClient, err := cache.WaitForRedis(cfg, 5, 2*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = redisClient.Close() })

	publisher, err := events.NewPublisher(cfg, "integration-test", log)
	require.NoError(t, err)
	require.NoError(t, publisher.EnsureStreams(events.ReviewsStream, events.ShelfStream))
	t.Cleanup(publisher.Close)

	service := catalog.NewService(
		postgres.NewReviewRepository(db),
		postgres.NewGameRepository(db),
		cacheRepo.NewRedisCache(redisClient, cfg.Cache.ReviewTTL),
		publisher,
		log,
	)
	router := httpDelivery.NewRouter(
		handler.NewReviewHandler(service, log),
		handler.NewGameHandler(service, log),
		postgres.NewUserRepository(db),
		cfg,
		log,
	)

	_, token := createUser(t, db)
	return &stack{cfg: cfg, catalog: router.Setup(), redis: redisClient, token: token}
}

func (s *stack) call(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.catalog.ServeHTTP(w, req)

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func TestHealthCheck(t *testing.T) {
	s := setupTestServer(t)

	w, resp := s.call(t, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", resp["status"])
}

func TestUnauthorized(t *testing.T) {
	s := setupTestServer(t)

	w, _ := s.call(t, http.MethodGet, "/api/v1/reviews/me?game_id=1", "not-a-token", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestImportReviewAndUpdate(t *testing.T) {
	s := setupTestServer(t)
	guid := "it-" + uuid.NewString()

	// importing by guid with an initial status
	w, resp := s.call(t, http.MethodPost, "/api/v1/games/upsert-status", s.token, map[string]interface{}{
		"external_guid": guid,
		"name":          "Outer Wilds",
		"status":        "Wishlist",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	game := resp["data"].(map[string]interface{})
	assert.Equal(t, "wishlist", game["status"])
	gameID := int64(game["id"].(float64))

	w, _ = s.call(t, http.MethodGet, "/api/v1/reviews/me?external_guid="+guid, s.token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, resp = s.call(t, http.MethodPost, fmt.Sprintf("/api/v1/reviews/game/%d", gameID), s.token, map[string]interface{}{
		"rating":      9,
		"review_text": "  A perfect loop  ",
		"is_public":   true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := resp["data"].(map[string]interface{})
	assert.Equal(t, "A perfect loop", created["review_text"])
	reviewID := int64(created["id"].(float64))

	w, _ = s.call(t, http.MethodPost, fmt.Sprintf("/api/v1/reviews/game/%d", gameID), s.token, map[string]interface{}{"rating": 1})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, resp = s.call(t, http.MethodPut, fmt.Sprintf("/api/v1/reviews/%d", reviewID), s.token, map[string]interface{}{
		"rating":    10,
		"is_public": false,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// the update invalidated the cached lookup
	w, resp = s.call(t, http.MethodGet, fmt.Sprintf("/api/v1/reviews/me?game_id=%d", gameID), s.token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	mine := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(10), mine["rating"])
	assert.Equal(t, false, mine["is_public"])

	w, resp = s.call(t, http.MethodPost, "/api/v1/games/upsert-status", s.token, map[string]interface{}{
		"id":     gameID,
		"status": "completed",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", resp["data"].(map[string]interface{})["status"])
}

func TestShelfSessionAgainstCatalog(t *testing.T) {
	s := setupTestServer(t)
	catalogServer := httptest.NewServer(s.catalog)
	t.Cleanup(catalogServer.Close)

	api := catalogClient.NewClient(catalogServer.URL+"/api/v1", 5*time.Second, logger.Nop())
	registry := session.NewRegistry(session.Deps{
		Connect: func(creds catalogClient.Credentials) session.API { return api.WithCredentials(creds) },
		Tokens:  cacheRepo.NewTokenStore(s.redis, time.Hour),
		Metrics: metrics.NewRecorder(),
		Logger:  logger.Nop(),
		ReviewOptions: review.Options{
			AutosaveDelay: 100 * time.Millisecond,
		},
	})
	t.Cleanup(registry.Stop)

	guid := "it-" + uuid.NewString()
	sess, err := registry.Open(t.Context(), s.token, domain.Game{ExternalGUID: &guid, Name: "Celeste"})
	require.NoError(t, err)
	assert.Nil(t, sess.Snapshot().Review.Review)

	// the status change imports the game, which lets the rating autosave create a review
	require.NoError(t, sess.Statuses().ChangeStatus(t.Context(), domain.StatusOnGoing))
	require.True(t, sess.Game().HasID())

	sess.Reviews().HandleStarsChange(8)
	assert.Eventually(t, func() bool {
		st := sess.Reviews().State()
		return st.Review != nil && st.Review.ID != nil && st.AutoSaveSuccess
	}, 5*time.Second, 50*time.Millisecond)

	registry.Close(sess.ID)
}
