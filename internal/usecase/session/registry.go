package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"

	"github.com/Pesokrava/game_catalog/internal/client/catalog"
	"github.com/Pesokrava/game_catalog/internal/domain"
	"github.com/Pesokrava/game_catalog/internal/pkg/logger"
	"github.com/Pesokrava/game_catalog/internal/pkg/metrics"
	"github.com/Pesokrava/game_catalog/internal/usecase/review"
)

// DefaultIdleTTL is how long an untouched session stays open
const DefaultIdleTTL = 30 * time.Minute

// TokenStore keeps the bearer token of each session
type TokenStore interface {
	Save(ctx context.Context, sessionID, token string) error
	Delete(ctx context.Context, sessionID string) error

	// Credentials returns the session's token source. Clearing it logs the session out.
	Credentials(sessionID string) catalog.Credentials
}

// Connector builds the catalog API used by one session
type Connector func(creds catalog.Credentials) API

// Deps are the collaborators shared by every session
type Deps struct {
	Connect       Connector
	Tokens        TokenStore
	Publisher     EventPublisher
	Metrics       *metrics.Recorder
	Logger        *logger.Logger
	ReviewOptions review.Options
	IdleTTL       time.Duration
}

// Registry owns the open sessions. Idle sessions expire and are closed.
type Registry struct {
	deps     Deps
	sessions *ttlcache.Cache[string, *Session]
	logger   *logger.Logger
}

// NewRegistry creates a registry and starts its expiry loop. Call Stop to release it.
func NewRegistry(deps Deps) *Registry {
	if deps.IdleTTL <= 0 {
		deps.IdleTTL = DefaultIdleTTL
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}

	r := &Registry{
		deps: deps,
		sessions: ttlcache.New(
			ttlcache.WithTTL[string, *Session](deps.IdleTTL),
		),
		logger: deps.Logger.Component("session-registry"),
	}

	// Eviction callbacks run on their own goroutine. Close and Stop therefore
	// close sessions themselves; here it only matters for expiry.
	r.sessions.OnEviction(func(ctx context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *Session]) {
		if reason == ttlcache.EvictionReasonExpired {
			r.logger.Infof("Session %s expired after %s idle", item.Key(), deps.IdleTTL)
		}
		item.Value().Close()
	})

	go r.sessions.Start()
	return r
}

// Open creates a session for game, authenticated with token, and loads the
// caller's review before returning
func (r *Registry) Open(ctx context.Context, token string, game domain.Game) (*Session, error) {
	if _, err := game.Ref(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	if err := r.deps.Tokens.Save(ctx, id, token); err != nil {
		return nil, fmt.Errorf("failed to store session token: %w", err)
	}

	api := r.deps.Connect(r.deps.Tokens.Credentials(id))
	s := newSession(id, api, r.deps.Publisher, r.deps)
	s.onClose = func() {
		if err := r.deps.Tokens.Delete(context.Background(), id); err != nil {
			r.logger.Warnf("Failed to delete token of session %s: %v", id, err)
		}
		r.deps.Metrics.SessionClosed()
	}

	r.sessions.Set(id, s, ttlcache.DefaultTTL)
	r.deps.Metrics.SessionOpened()

	if err := s.open(game); err != nil {
		s.Close()
		r.sessions.Delete(id)
		return nil, err
	}

	r.logger.WithFields(map[string]interface{}{
		"session_id": id,
		"game":       game.Name,
	}).Info("Session opened")

	return s, nil
}

// Get returns an open session and extends its idle deadline
func (r *Registry) Get(id string) (*Session, error) {
	item := r.sessions.Get(id)
	if item == nil {
		return nil, domain.ErrNotFound
	}
	return item.Value(), nil
}

// Close forgets a session and tears it down before returning
func (r *Registry) Close(id string) error {
	item, ok := r.sessions.GetAndDelete(id)
	if !ok || item == nil {
		return domain.ErrNotFound
	}
	item.Value().Close()
	return nil
}

// Len returns the number of open sessions
func (r *Registry) Len() int {
	return r.sessions.Len()
}

// Stop closes every session and halts the expiry loop
func (r *Registry) Stop() {
	for _, item := range r.sessions.Items() {
		item.Value().Close()
	}
	r.sessions.DeleteAll()
	r.sessions.Stop()
}
