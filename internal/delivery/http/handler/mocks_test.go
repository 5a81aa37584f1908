package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"

	"github.com/Pesokrava/game_catalog/internal/delivery/http/middleware"
	"github.com/Pesokrava/game_catalog/internal/domain"
)

// MockReviewRepository is a mock implementation of domain.ReviewRepository
type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) GetForUserGame(ctx context.Context, userID, gameID int64) (*domain.Review, error) {
	args := m.Called(ctx, userID, gameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *MockReviewRepository) GetOwnerID(ctx context.Context, reviewID int64) (int64, error) {
	args := m.Called(ctx, reviewID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReviewRepository) Create(ctx context.Context, userID, gameID int64, in domain.ReviewInput) (*domain.Review, error) {
	args := m.Called(ctx, userID, gameID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *MockReviewRepository) Update(ctx context.Context, reviewID int64, in domain.ReviewInput) (*domain.Review, error) {
	args := m.Called(ctx, reviewID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

// MockGameRepository is a mock implementation of domain.GameRepository
type MockGameRepository struct {
	mock.Mock
}

func (m *MockGameRepository) GetForUser(ctx context.Context, userID, gameID int64) (*domain.Game, error) {
	args := m.Called(ctx, userID, gameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Game), args.Error(1)
}

func (m *MockGameRepository) GetIDByExternalGUID(ctx context.Context, guid string) (int64, error) {
	args := m.Called(ctx, guid)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockGameRepository) Import(ctx context.Context, guid, name string, coverURL *string) (int64, error) {
	args := m.Called(ctx, guid, name, coverURL)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockGameRepository) UpsertStatus(ctx context.Context, userID, gameID int64, status domain.Status) (domain.Status, error) {
	args := m.Called(ctx, userID, gameID, status)
	return args.Get(0).(domain.Status), args.Error(1)
}

// MockReviewCache is a mock implementation of catalog.ReviewCache
type MockReviewCache struct {
	mock.Mock
}

func (m *MockReviewCache) GetReview(ctx context.Context, userID, gameID int64) (*domain.Review, error) {
	args := m.Called(ctx, userID, gameID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *MockReviewCache) SetReview(ctx context.Context, userID, gameID int64, review *domain.Review) error {
	args := m.Called(ctx, userID, gameID, review)
	return args.Error(0)
}

func (m *MockReviewCache) InvalidateReview(ctx context.Context, userID, gameID int64) error {
	args := m.Called(ctx, userID, gameID)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of catalog.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

// withRoute attaches chi URL params and an authenticated user to the request
func withRoute(r *http.Request, userID int64, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	ctx = middleware.WithUserID(ctx, userID)
	return r.WithContext(ctx)
}
