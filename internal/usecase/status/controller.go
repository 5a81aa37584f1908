// Package status manages optimistic play-status transitions for one open game.
package status

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Pesokrava/game_catalog/internal/domain"
	"github.com/Pesokrava/game_catalog/internal/pkg/logger"
	"github.com/Pesokrava/game_catalog/internal/pkg/metrics"
	"github.com/Pesokrava/game_catalog/internal/pkg/optimistic"
	"github.com/Pesokrava/game_catalog/internal/pkg/safecall"
)

// API is the subset of the catalog API the controller needs
type API interface {
	UpdateStatus(ctx context.Context, gameID int64, status domain.Status) (*domain.Game, error)
	CreateWithStatus(ctx context.Context, guid string, status domain.Status) (*domain.Game, error)
}

// State is a snapshot of the status control
type State struct {
	Status           *domain.Status `json:"status"`
	UpdatingStatusTo *domain.Status `json:"updating_status_to"`
}

// Controller owns the status field of the open game. Overlapping changes are
// allowed; only the most recent one reconciles, rolls back or clears the
// in-flight marker.
type Controller struct {
	api            API
	notifier       domain.Notifier
	onStatusChange func(fragment domain.Game)
	metrics        *metrics.Recorder
	logger         *logger.Logger

	mu       sync.Mutex
	game     domain.Game
	status   *domain.Status
	updating *domain.Status
	seq      uint64
	epoch    uint64
}

// NewController creates a status controller. notifier, onStatusChange and rec may be nil.
func NewController(
	api API,
	notifier domain.Notifier,
	onStatusChange func(fragment domain.Game),
	rec *metrics.Recorder,
	log *logger.Logger,
) *Controller {
	if notifier == nil {
		notifier = domain.NotifierFunc(func(domain.NoticeLevel, string) {})
	}
	return &Controller{
		api:            api,
		notifier:       notifier,
		onStatusChange: onStatusChange,
		metrics:        rec,
		logger:         log.Component("status-workflow"),
	}
}

// Reset binds the controller to game and reads its current status
func (c *Controller) Reset(game domain.Game) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	c.game = game
	c.status = nil
	if game.Status != nil {
		s := *game.Status
		c.status = &s
	}
	c.updating = nil
}

// Close drops the bound game. Responses still in flight are discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	c.game = domain.Game{}
	c.status = nil
	c.updating = nil
}

// State returns a snapshot of the status control
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{Status: copyStatus(c.status), UpdatingStatusTo: copyStatus(c.updating)}
}

// Game returns the bound game including identity learned from the server
func (c *Controller) Game() domain.Game {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.game
}

// UpdateGame merges a fragment published by a sibling controller
func (c *Controller) UpdateGame(fragment domain.Game) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fragment.Status = nil
	c.game = c.game.Merge(fragment)
}

// ChangeStatus optimistically applies next and confirms it with the server.
// Equal statuses are a no-op. On failure the previous status is restored, the
// user is notified and the error is returned.
func (c *Controller) ChangeStatus(ctx context.Context, next domain.Status) error {
	parsed, err := domain.ParseStatus(string(next))
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.status != nil && c.status.Equal(parsed) {
		c.mu.Unlock()
		return nil
	}
	game := c.game
	ref, err := game.Ref()
	if err != nil {
		c.mu.Unlock()
		return err
	}

	c.seq++
	seq, epoch := c.seq, c.epoch
	prev := copyStatus(c.status)
	c.updating = domain.StatusPtr(parsed)
	c.mu.Unlock()

	// current reports whether this call is still the one allowed to write state
	current := func() bool { return c.seq == seq && c.epoch == epoch }

	defer func() {
		c.mu.Lock()
		if current() {
			c.updating = nil
		}
		c.mu.Unlock()
	}()

	var confirmedGame *domain.Game
	set := func(s *domain.Status) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if current() {
			c.status = copyStatus(s)
		}
	}

	persisted, err := optimistic.Apply(ctx, prev, domain.StatusPtr(parsed), set, func(ctx context.Context) (*domain.Status, error) {
		var g *domain.Game
		var err error
		if game.HasID() {
			g, err = c.api.UpdateStatus(ctx, ref.ID, parsed)
		} else {
			g, err = c.api.CreateWithStatus(ctx, ref.ExternalGUID, parsed)
		}
		if err != nil {
			return nil, err
		}
		if g == nil {
			return nil, fmt.Errorf("%w: empty status response", domain.ErrInternal)
		}
		confirmedGame = g
		got := parsed
		if g.Status != nil {
			got = *g.Status
		}
		return &got, nil
	})
	c.metrics.StatusChanged(err)

	if err != nil {
		opErr := &domain.OpError{Op: domain.OpUpdateStatus, Err: err}
		c.logger.Error("Failed to update status", opErr)

		c.mu.Lock()
		live := c.epoch == epoch
		c.mu.Unlock()
		if live {
			c.notifier.Notify(domain.NoticeError, statusErrorMessage(err))
		}
		return opErr
	}

	fragment := *confirmedGame
	if fragment.ID == nil {
		fragment.ID = game.ID
	}
	fragment.Status = copyStatus(persisted)

	c.mu.Lock()
	live := c.epoch == epoch
	if live {
		c.game = c.game.Merge(fragment)
	}
	c.mu.Unlock()

	if !live {
		c.logger.Debug("Status confirmed after the game was closed; local state left untouched")
		return nil
	}

	safecall.Do(c.logger, "on_status_change", func() {
		if c.onStatusChange != nil {
			c.onStatusChange(fragment)
		}
	})
	c.notifier.Notify(domain.NoticeSuccess, "Status updated")

	c.logger.WithFields(map[string]interface{}{
		"game_id": derefID(fragment.ID),
		"status":  string(*fragment.Status),
	}).Info("Status updated")

	return nil
}

func statusErrorMessage(err error) string {
	if errors.Is(err, domain.ErrUnauthorized) {
		return "Your session has expired, please log in again"
	}
	return "Could not update the game status"
}

func copyStatus(s *domain.Status) *domain.Status {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func derefID(id *int64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}
