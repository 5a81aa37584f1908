package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/game_catalog/internal/client/catalog"
	"github.com/Pesokrava/game_catalog/internal/domain"
	"github.com/Pesokrava/game_catalog/internal/pkg/logger"
	"github.com/Pesokrava/game_catalog/internal/pkg/metrics"
	"github.com/Pesokrava/game_catalog/internal/usecase/review"
)

// MockAPI is a mock implementation of API
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) FetchMyReview(ctx context.Context, ref domain.GameRef) (*domain.Review, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *MockAPI) CreateReview(ctx context.Context, gameID int64, in domain.ReviewInput) (*domain.Review, error) {
	args := m.Called(ctx, gameID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *MockAPI) UpdateReview(ctx context.Context, reviewID int64, in domain.ReviewInput) (*domain.Review, error) {
	args := m.Called(ctx, reviewID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *MockAPI) UpdateStatus(ctx context.Context, gameID int64, st domain.Status) (*domain.Game, error) {
	args := m.Called(ctx, gameID, st)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Game), args.Error(1)
}

func (m *MockAPI) CreateWithStatus(ctx context.Context, guid string, st domain.Status) (*domain.Game, error) {
	args := m.Called(ctx, guid, st)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Game), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

// memoryTokens is an in-memory TokenStore
type memoryTokens struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newMemoryTokens() *memoryTokens {
	return &memoryTokens{tokens: make(map[string]string)}
}

func (m *memoryTokens) Save(_ context.Context, id, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[id] = token
	return nil
}

func (m *memoryTokens) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, id)
	return nil
}

func (m *memoryTokens) Credentials(id string) catalog.Credentials {
	m.mu.Lock()
	defer m.mu.Unlock()
	return catalog.NewStaticToken(m.tokens[id])
}

func (m *memoryTokens) has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tokens[id]
	return ok
}

func newRegistry(t *testing.T, api *MockAPI, publisher EventPublisher, ttl time.Duration) (*Registry, *memoryTokens) {
	t.Helper()
	tokens := newMemoryTokens()
	reg := NewRegistry(Deps{
		Connect:       func(catalog.Credentials) API { return api },
		Tokens:        tokens,
		Publisher:     publisher,
		Metrics:       metrics.NewRecorder(),
		Logger:        logger.Nop(),
		ReviewOptions: review.Options{AutosaveDelay: 20 * time.Millisecond},
		IdleTTL:       ttl,
	})
	t.Cleanup(reg.Stop)
	return reg, tokens
}

func TestRegistry_OpenLoadsReview(t *testing.T) {
	api := new(MockAPI)
	reg, tokens := newRegistry(t, api, nil, time.Minute)

	api.On("FetchMyReview", mock.Anything, domain.RefByID(42)).
		Return(&domain.Review{ID: domain.Int64Ptr(7), Rating: domain.IntPtr(6), IsPublic: true}, nil)

	s, err := reg.Open(context.Background(), "token-1", domain.Game{
		ID:     domain.Int64Ptr(42),
		Name:   "Hades",
		Status: domain.StatusPtr(domain.StatusOnGoing),
	})
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, s.ID, snap.ID)
	require.NotNil(t, snap.Review.Review)
	assert.Equal(t, 6, snap.Review.DraftRating)
	assert.Equal(t, domain.StatusOnGoing, *snap.Status.Status)
	assert.True(t, tokens.has(s.ID))
	assert.Equal(t, 1, reg.Len())

	got, err := reg.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)
}

func TestRegistry_OpenRejectsUnidentifiedGame(t *testing.T) {
	api := new(MockAPI)
	reg, _ := newRegistry(t, api, nil, time.Minute)

	_, err := reg.Open(context.Background(), "token-1", domain.Game{Name: "?"})

	assert.ErrorIs(t, err, domain.ErrMissingIdentity)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_GetUnknown(t *testing.T) {
	reg, _ := newRegistry(t, new(MockAPI), nil, time.Minute)

	_, err := reg.Get("missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, reg.Close("missing"), domain.ErrNotFound)
}

func TestRegistry_CloseTearsDownSession(t *testing.T) {
	api := new(MockAPI)
	reg, tokens := newRegistry(t, api, nil, time.Minute)

	api.On("FetchMyReview", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)

	s, err := reg.Open(context.Background(), "token-1", domain.Game{ID: domain.Int64Ptr(42)})
	require.NoError(t, err)
	s.Reviews().HandleStarsChange(5)

	require.NoError(t, reg.Close(s.ID))
	assert.False(t, tokens.has(s.ID), "token is deleted before Close returns")
	assert.False(t, s.Reviews().AutosavePending(), "autosave is cancelled before Close returns")
	time.Sleep(60 * time.Millisecond)

	api.AssertNotCalled(t, "CreateReview", mock.Anything, mock.Anything, mock.Anything)
	_, err = reg.Get(s.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegistry_StopClosesOpenSessions(t *testing.T) {
	api := new(MockAPI)
	tokens := newMemoryTokens()
	reg := NewRegistry(Deps{
		Connect: func(catalog.Credentials) API { return api },
		Tokens:  tokens,
		Logger:  logger.Nop(),
		IdleTTL: time.Minute,
	})

	api.On("FetchMyReview", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)

	first, err := reg.Open(context.Background(), "token-1", domain.Game{ID: domain.Int64Ptr(1)})
	require.NoError(t, err)
	second, err := reg.Open(context.Background(), "token-2", domain.Game{ID: domain.Int64Ptr(2)})
	require.NoError(t, err)
	second.Reviews().HandleStarsChange(3)

	reg.Stop()

	assert.False(t, tokens.has(first.ID))
	assert.False(t, tokens.has(second.ID))
	assert.False(t, second.Reviews().AutosavePending())
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_IdleSessionExpires(t *testing.T) {
	api := new(MockAPI)
	reg, tokens := newRegistry(t, api, nil, 50*time.Millisecond)

	api.On("FetchMyReview", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)

	s, err := reg.Open(context.Background(), "token-1", domain.Game{ID: domain.Int64Ptr(42)})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return !tokens.has(s.ID) }, 2*time.Second, 10*time.Millisecond)
	_, err = reg.Get(s.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSession_StatusImportFeedsReviewController(t *testing.T) {
	api := new(MockAPI)
	publisher := new(MockEventPublisher)
	reg, _ := newRegistry(t, api, publisher, time.Minute)

	published := make(chan []byte, 4)
	publisher.On("Publish", mock.Anything, domain.SubjectShelfEvents, mock.Anything).
		Run(func(args mock.Arguments) { published <- args.Get(2).([]byte) }).
		Return(nil)
	api.On("FetchMyReview", mock.Anything, domain.GameRef{ExternalGUID: "rawg-1"}).Return(nil, domain.ErrNotFound)
	api.On("CreateWithStatus", mock.Anything, "rawg-1", domain.StatusWishlist).
		Return(&domain.Game{ID: domain.Int64Ptr(900), Status: domain.StatusPtr(domain.StatusWishlist)}, nil)
	api.On("CreateReview", mock.Anything, int64(900), mock.Anything).
		Return(&domain.Review{ID: domain.Int64Ptr(1), Rating: domain.IntPtr(8), IsPublic: true}, nil)

	s, err := reg.Open(context.Background(), "token-1", domain.Game{ExternalGUID: domain.StringPtr("rawg-1"), Name: "Hollow Knight"})
	require.NoError(t, err)

	_, err = s.Reviews().SaveReview(context.Background(), review.Overrides{Rating: domain.IntPtr(8)})
	require.ErrorIs(t, err, domain.ErrMissingGameID)

	require.NoError(t, s.Statuses().ChangeStatus(context.Background(), domain.StatusWishlist))
	assert.Equal(t, int64(900), *s.Game().ID)

	_, err = s.Reviews().SaveReview(context.Background(), review.Overrides{Rating: domain.IntPtr(8)})
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, 8.0, *snap.Game.Rating)
	assert.Equal(t, domain.StatusWishlist, *snap.Game.Status)
	assert.Len(t, snap.Notices, 1, "status success notice")

	for i := 0; i < 2; i++ {
		select {
		case data := <-published:
			assert.Contains(t, string(data), s.ID)
		case <-time.After(time.Second):
			t.Fatal("shelf event not published")
		}
	}
}
