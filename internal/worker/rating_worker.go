package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Pesokrava/game_catalog/internal/domain"
	"github.com/Pesokrava/game_catalog/internal/pkg/logger"
)

const (
	// DefaultDebounceWindow groups events for the same game into one recalculation
	DefaultDebounceWindow = 1 * time.Second

	maxRetries     = 3
	initialBackoff = 100 * time.Millisecond
	attemptTimeout = 5 * time.Second
)

// RatingUpdater recalculates the rating of one game
type RatingUpdater interface {
	CalculateAndUpdate(ctx context.Context, gameID int64) error
}

// RatingWorker consumes review events and keeps game ratings up to date
type RatingWorker struct {
	updater RatingUpdater
	logger  *logger.Logger
	window  time.Duration

	mu       sync.Mutex
	pending  map[int64]*pendingUpdate
	shutdown bool
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

type pendingUpdate struct {
	gameID    int64
	timestamp time.Time
	timer     *time.Timer
}

// NewRatingWorker creates a worker that debounces per game for window.
// A non-positive window uses DefaultDebounceWindow.
func NewRatingWorker(updater RatingUpdater, log *logger.Logger, window time.Duration) *RatingWorker {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &RatingWorker{
		updater: updater,
		logger:  log.Component("rating-worker"),
		window:  window,
		pending: make(map[int64]*pendingUpdate),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// HandleEvent decodes a review event and schedules a rating update for its game.
// Events that cannot change a rating are acknowledged and ignored.
func (w *RatingWorker) HandleEvent(data []byte) error {
	var event domain.ReviewEvent
	if err := json.Unmarshal(data, &event); err != nil {
		w.logger.Error("Failed to unmarshal review event", err)
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	switch event.EventType {
	case domain.EventReviewCreated, domain.EventReviewUpdated:
	default:
		w.logger.Debugf("Ignoring %s event for game %d", event.EventType, event.GameID)
		return nil
	}

	if event.GameID <= 0 {
		w.logger.Warnf("Ignoring %s event without a game id", event.EventType)
		return nil
	}

	w.logger.WithFields(map[string]any{
		"event_type": event.EventType,
		"game_id":    event.GameID,
		"timestamp":  event.Timestamp,
	}).Info("Received review event")

	w.scheduleUpdate(event.GameID, event.Timestamp)
	return nil
}

// scheduleUpdate restarts the game's debounce timer. Events older than the
// pending one are dropped.
func (w *RatingWorker) scheduleUpdate(gameID int64, timestamp time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.shutdown {
		w.logger.Info("Worker shutting down, ignoring new event")
		return
	}

	if existing, found := w.pending[gameID]; found {
		if timestamp.Before(existing.timestamp) {
			w.logger.WithFields(map[string]any{
				"game_id":     gameID,
				"existing_ts": existing.timestamp,
				"event_ts":    timestamp,
			}).Debug("Ignoring stale event")
			return
		}
		if existing.timer.Stop() {
			w.wg.Done()
		}
	}

	p := &pendingUpdate{gameID: gameID, timestamp: timestamp}
	w.wg.Add(1)
	p.timer = time.AfterFunc(w.window, func() {
		w.processUpdate(p)
	})
	w.pending[gameID] = p
}

// processUpdate runs the recalculation with exponential backoff between attempts
func (w *RatingWorker) processUpdate(p *pendingUpdate) {
	defer w.wg.Done()

	w.mu.Lock()
	if w.pending[p.gameID] != p {
		w.mu.Unlock()
		return
	}
	delete(w.pending, p.gameID)
	w.mu.Unlock()

	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			w.logger.WithFields(map[string]any{
				"game_id":    p.gameID,
				"attempt":    attempt + 1,
				"backoff_ms": backoff.Milliseconds(),
			}).Warn("Retrying rating update")

			select {
			case <-time.After(backoff):
			case <-w.ctx.Done():
				w.logger.Info("Worker context cancelled, aborting retry")
				return
			}
			backoff *= 2
		}

		ctx, cancel := context.WithTimeout(w.ctx, attemptTimeout)
		err := w.updater.CalculateAndUpdate(ctx, p.gameID)
		cancel()

		if err == nil {
			return
		}
		lastErr = err
		w.logger.Errorf(err, "Failed to update rating of game %d (attempt %d)", p.gameID, attempt+1)
	}

	w.logger.WithFields(map[string]any{
		"game_id":     p.gameID,
		"max_retries": maxRetries,
	}).Error("Rating update failed after all retries", lastErr)
}

// Shutdown stops accepting events, drops pending updates and waits for
// in-flight ones until ctx is done
func (w *RatingWorker) Shutdown(ctx context.Context) error {
	w.logger.Info("Shutting down rating worker...")

	w.mu.Lock()
	w.shutdown = true
	cancelled := 0
	for id, p := range w.pending {
		if p.timer.Stop() {
			w.wg.Done()
			cancelled++
		}
		delete(w.pending, id)
	}
	w.mu.Unlock()

	w.cancel()

	w.logger.WithFields(map[string]any{
		"cancelled_updates": cancelled,
	}).Info("Cancelled pending updates")

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("All in-flight updates completed")
		return nil
	case <-ctx.Done():
		w.logger.Warn("Shutdown timeout reached, forcing exit")
		return ctx.Err()
	}
}

// GetPendingCount returns the number of games waiting for a recalculation
func (w *RatingWorker) GetPendingCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}
