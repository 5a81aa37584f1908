// Package session hosts the review and status workflows of open game-detail
// views on the shelf server. Each view gets one Session.
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Pesokrava/game_catalog/internal/domain"
	"github.com/Pesokrava/game_catalog/internal/pkg/logger"
	"github.com/Pesokrava/game_catalog/internal/usecase/review"
	"github.com/Pesokrava/game_catalog/internal/usecase/status"
)

const maxNotices = 20

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// API is the catalog capability both controllers consume
type API interface {
	review.API
	status.API
}

// Snapshot is everything a view renders for one session
type Snapshot struct {
	ID      string          `json:"id"`
	Game    domain.Game     `json:"game"`
	Review  review.State    `json:"review"`
	Status  status.State    `json:"status"`
	Notices []domain.Notice `json:"notices"`
}

// Session is one open game-detail view
type Session struct {
	ID        string
	CreatedAt time.Time

	reviews   *review.Controller
	statuses  *status.Controller
	publisher EventPublisher
	logger    *logger.Logger

	mu      sync.Mutex
	game    domain.Game
	notices []domain.Notice

	closeOnce sync.Once
	onClose   func()
}

func newSession(id string, api API, publisher EventPublisher, deps Deps) *Session {
	base := deps.Logger.With("session_id", id)
	s := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		publisher: publisher,
		logger:    base.Component("session"),
	}

	notifier := domain.NotifierFunc(s.notify)
	s.reviews = review.NewController(api, notifier, review.Callbacks{
		OnStatusChange: func(fragment domain.Game) { s.applyFragment(fragment) },
		OnSavedReview:  s.onSavedReview,
	}, deps.ReviewOptions, deps.Metrics, base)
	s.statuses = status.NewController(api, notifier, s.onStatusChange, deps.Metrics, base)

	return s
}

// open binds both controllers to game and loads the review
func (s *Session) open(game domain.Game) error {
	s.mu.Lock()
	s.game = game
	s.mu.Unlock()

	s.statuses.Reset(game)
	return s.reviews.Open(game)
}

// Close tears both workflows down. It is idempotent.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.reviews.Close()
		s.statuses.Close()
		if s.onClose != nil {
			s.onClose()
		}
		s.logger.Debug("Session closed")
	})
}

// Reviews returns the review workflow
func (s *Session) Reviews() *review.Controller {
	return s.reviews
}

// Statuses returns the status workflow
func (s *Session) Statuses() *status.Controller {
	return s.statuses
}

// Game returns the session's view of the game
func (s *Session) Game() domain.Game {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game
}

// Snapshot returns the full view state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	game := s.game
	notices := make([]domain.Notice, len(s.notices))
	copy(notices, s.notices)
	s.mu.Unlock()

	return Snapshot{
		ID:      s.ID,
		Game:    game,
		Review:  s.reviews.State(),
		Status:  s.statuses.State(),
		Notices: notices,
	}
}

func (s *Session) notify(level domain.NoticeLevel, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notices = append(s.notices, domain.Notice{Level: level, Message: message, At: time.Now()})
	if len(s.notices) > maxNotices {
		s.notices = s.notices[len(s.notices)-maxNotices:]
	}
}

// applyFragment merges a game fragment into the session and both controllers
func (s *Session) applyFragment(fragment domain.Game) domain.Game {
	s.mu.Lock()
	s.game = s.game.Merge(fragment)
	game := s.game
	s.mu.Unlock()

	s.reviews.UpdateGame(fragment)
	s.statuses.UpdateGame(fragment)
	return game
}

func (s *Session) onStatusChange(fragment domain.Game) {
	game := s.applyFragment(fragment)
	s.publish(domain.ShelfEvent{
		EventType: domain.EventShelfStatusChanged,
		Game:      &game,
	})
}

func (s *Session) onSavedReview(saved domain.Review, wasCreating bool) {
	game := s.Game()
	s.publish(domain.ShelfEvent{
		EventType:   domain.EventShelfReviewSaved,
		Game:        &game,
		Review:      &saved,
		WasCreating: wasCreating,
	})
}

// publish sends a shelf event in the background. Failures are logged only.
func (s *Session) publish(event domain.ShelfEvent) {
	if s.publisher == nil {
		return
	}

	event.EventID = uuid.New()
	event.Timestamp = time.Now()
	event.SessionID = s.ID

	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Errorf(err, "Failed to marshal %s event", event.EventType)
		return
	}

	go func() {
		if err := s.publisher.Publish(context.Background(), domain.SubjectShelfEvents, data); err != nil {
			s.logger.Errorf(err, "Failed to publish %s event", event.EventType)
		}
	}()
}
