package worker

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Pesokrava/game_catalog/internal/domain"
	"github.com/Pesokrava/game_catalog/internal/pkg/logger"
)

const testWindow = 50 * time.Millisecond

// MockRatingUpdater is a mock implementation of RatingUpdater
type MockRatingUpdater struct {
	mock.Mock
	calls atomic.Int32
}

func (m *MockRatingUpdater) CalculateAndUpdate(ctx context.Context, gameID int64) error {
	defer m.calls.Add(1)
	args := m.Called(ctx, gameID)
	return args.Error(0)
}

func (m *MockRatingUpdater) count() int {
	return int(m.calls.Load())
}

func setupTestWorker(t *testing.T) (*RatingWorker, *MockRatingUpdater) {
	t.Helper()
	updater := new(MockRatingUpdater)
	return NewRatingWorker(updater, logger.Nop(), testWindow), updater
}

func reviewEvent(t *testing.T, eventType string, gameID int64, ts time.Time) []byte {
	t.Helper()
	data, err := json.Marshal(domain.ReviewEvent{
		EventType: eventType,
		UserID:    1,
		GameID:    gameID,
		Timestamp: ts,
	})
	require.NoError(t, err)
	return data
}

func TestRatingWorker_HandleEvent_Success(t *testing.T) {
	worker, updater := setupTestWorker(t)
	updater.On("CalculateAndUpdate", mock.Anything, int64(42)).Return(nil).Once()

	err := worker.HandleEvent(reviewEvent(t, domain.EventReviewCreated, 42, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, 1, worker.GetPendingCount())

	assert.Eventually(t, func() bool {
		return worker.GetPendingCount() == 0 && updater.count() == 1
	}, time.Second, 10*time.Millisecond)
	updater.AssertExpectations(t)
}

func TestRatingWorker_HandleEvent_InvalidJSON(t *testing.T) {
	worker, _ := setupTestWorker(t)

	err := worker.HandleEvent([]byte(`{invalid json}`))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}

func TestRatingWorker_HandleEvent_IgnoresStatusEvents(t *testing.T) {
	worker, updater := setupTestWorker(t)

	err := worker.HandleEvent(reviewEvent(t, domain.EventGameStatusChanged, 42, time.Now()))

	assert.NoError(t, err)
	assert.Equal(t, 0, worker.GetPendingCount())
	updater.AssertNotCalled(t, "CalculateAndUpdate", mock.Anything, mock.Anything)
}

func TestRatingWorker_HandleEvent_IgnoresMissingGame(t *testing.T) {
	worker, _ := setupTestWorker(t)

	err := worker.HandleEvent(reviewEvent(t, domain.EventReviewUpdated, 0, time.Now()))

	assert.NoError(t, err)
	assert.Equal(t, 0, worker.GetPendingCount())
}

func TestRatingWorker_Debouncing_MultipleEvents(t *testing.T) {
	worker, updater := setupTestWorker(t)
	updater.On("CalculateAndUpdate", mock.Anything, int64(42)).Return(nil).Once()

	for i := 0; i < 5; i++ {
		require.NoError(t, worker.HandleEvent(reviewEvent(t, domain.EventReviewUpdated, 42, time.Now())))
		time.Sleep(testWindow / 5)
	}
	assert.Equal(t, 1, worker.GetPendingCount())

	time.Sleep(testWindow * 4)

	assert.Equal(t, 0, worker.GetPendingCount())
	updater.AssertNumberOfCalls(t, "CalculateAndUpdate", 1)
}

func TestRatingWorker_EventOrdering_IgnoreStaleEvents(t *testing.T) {
	worker, updater := setupTestWorker(t)
	updater.On("CalculateAndUpdate", mock.Anything, int64(42)).Return(nil).Once()
	now := time.Now()

	require.NoError(t, worker.HandleEvent(reviewEvent(t, domain.EventReviewCreated, 42, now.Add(10*time.Second))))
	require.NoError(t, worker.HandleEvent(reviewEvent(t, domain.EventReviewUpdated, 42, now)))
	assert.Equal(t, 1, worker.GetPendingCount())

	time.Sleep(testWindow * 4)

	updater.AssertNumberOfCalls(t, "CalculateAndUpdate", 1)
}

func TestRatingWorker_MultipleGames(t *testing.T) {
	worker, updater := setupTestWorker(t)
	for _, id := range []int64{1, 2, 3} {
		updater.On("CalculateAndUpdate", mock.Anything, id).Return(nil).Once()
		require.NoError(t, worker.HandleEvent(reviewEvent(t, domain.EventReviewCreated, id, time.Now())))
	}
	assert.Equal(t, 3, worker.GetPendingCount())

	assert.Eventually(t, func() bool {
		return worker.GetPendingCount() == 0 && updater.count() == 3
	}, time.Second, 10*time.Millisecond)
	updater.AssertExpectations(t)
}

func TestRatingWorker_GracefulShutdown(t *testing.T) {
	worker, updater := setupTestWorker(t)
	started := make(chan struct{})
	updater.On("CalculateAndUpdate", mock.Anything, int64(42)).
		Run(func(mock.Arguments) {
			close(started)
			time.Sleep(50 * time.Millisecond)
		}).
		Return(nil).Once()

	require.NoError(t, worker.HandleEvent(reviewEvent(t, domain.EventReviewCreated, 42, time.Now())))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.NoError(t, worker.Shutdown(ctx))
	assert.Equal(t, 0, worker.GetPendingCount())
	updater.AssertExpectations(t)
}

func TestRatingWorker_ShutdownCancelsPendingUpdates(t *testing.T) {
	worker, updater := setupTestWorker(t)

	require.NoError(t, worker.HandleEvent(reviewEvent(t, domain.EventReviewCreated, 42, time.Now())))
	assert.Equal(t, 1, worker.GetPendingCount())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.NoError(t, worker.Shutdown(ctx))
	assert.Equal(t, 0, worker.GetPendingCount())

	time.Sleep(testWindow * 2)
	updater.AssertNotCalled(t, "CalculateAndUpdate", mock.Anything, mock.Anything)
}

func TestRatingWorker_ShutdownRejectsNewEvents(t *testing.T) {
	worker, _ := setupTestWorker(t)
	require.NoError(t, worker.Shutdown(context.Background()))

	require.NoError(t, worker.HandleEvent(reviewEvent(t, domain.EventReviewCreated, 42, time.Now())))

	assert.Equal(t, 0, worker.GetPendingCount())
}

func TestRatingWorker_ShutdownTimeout(t *testing.T) {
	worker, updater := setupTestWorker(t)
	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	updater.On("CalculateAndUpdate", mock.Anything, int64(42)).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(nil).Once()

	require.NoError(t, worker.HandleEvent(reviewEvent(t, domain.EventReviewCreated, 42, time.Now())))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := worker.Shutdown(ctx)
	assert.Equal(t, context.DeadlineExceeded, err)
}

func TestRatingWorker_RetryLogic(t *testing.T) {
	worker, updater := setupTestWorker(t)
	updater.On("CalculateAndUpdate", mock.Anything, int64(42)).Return(assert.AnError).Twice()
	updater.On("CalculateAndUpdate", mock.Anything, int64(42)).Return(nil).Once()

	require.NoError(t, worker.HandleEvent(reviewEvent(t, domain.EventReviewCreated, 42, time.Now())))

	// debounce window plus backoffs of 100ms and 200ms
	assert.Eventually(t, func() bool {
		return updater.count() == 3
	}, 2*time.Second, 20*time.Millisecond)
	updater.AssertExpectations(t)
}

func TestRatingWorker_GivesUpAfterMaxRetries(t *testing.T) {
	worker, updater := setupTestWorker(t)
	updater.On("CalculateAndUpdate", mock.Anything, int64(42)).Return(assert.AnError)

	require.NoError(t, worker.HandleEvent(reviewEvent(t, domain.EventReviewCreated, 42, time.Now())))

	time.Sleep(testWindow + 500*time.Millisecond)
	updater.AssertNumberOfCalls(t, "CalculateAndUpdate", maxRetries)
}
