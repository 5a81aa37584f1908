// Package review manages the current user's review of one open game: loading
// it, editing a draft, explicit saves and debounced rating autosaves.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Pesokrava/game_catalog/internal/domain"
	"github.com/Pesokrava/game_catalog/internal/pkg/debounce"
	"github.com/Pesokrava/game_catalog/internal/pkg/logger"
	"github.com/Pesokrava/game_catalog/internal/pkg/metrics"
	"github.com/Pesokrava/game_catalog/internal/pkg/safecall"
	validatorpkg "github.com/Pesokrava/game_catalog/internal/pkg/validator"
)

// DefaultAutosaveDelay is the debounce window between the last rating change and its autosave
const DefaultAutosaveDelay = 800 * time.Millisecond

// ErrNoSession is returned by actions invoked while no game is open
var ErrNoSession = errors.New("no game session is open")

// errSuperseded drops an autosave whose rating was replaced before it could be sent
var errSuperseded = errors.New("autosave superseded by a newer rating")

// API is the subset of the catalog API the controller needs
type API interface {
	FetchMyReview(ctx context.Context, ref domain.GameRef) (*domain.Review, error)
	CreateReview(ctx context.Context, gameID int64, in domain.ReviewInput) (*domain.Review, error)
	UpdateReview(ctx context.Context, reviewID int64, in domain.ReviewInput) (*domain.Review, error)
}

// Callbacks notify the host view. Both are best-effort: panics are recovered
// and logged, never propagated.
type Callbacks struct {
	// OnStatusChange receives the game fields a save may have changed (rating)
	OnStatusChange func(fragment domain.Game)

	// OnSavedReview receives every saved review and whether it was created
	OnSavedReview func(review domain.Review, wasCreating bool)
}

// Options tune the controller
type Options struct {
	AutosaveDelay time.Duration

	// RollbackOnAutosaveFailure reverts the draft rating to the last saved
	// rating when an autosave fails. When false the user's pick is kept so
	// they can retry.
	RollbackOnAutosaveFailure bool
}

// Overrides replace draft fields for one save. Nil fields use the draft.
type Overrides struct {
	Rating     *int
	ReviewText *string
	IsPublic   *bool
}

// State is a snapshot of everything the view renders
type State struct {
	Loading         bool           `json:"loading"`
	Review          *domain.Review `json:"review"`
	Error           string         `json:"error,omitempty"`
	Editing         bool           `json:"editing"`
	DraftRating     int            `json:"draft_rating"`
	DraftText       string         `json:"draft_text"`
	DraftIsPublic   bool           `json:"draft_is_public"`
	Saving          bool           `json:"saving"`
	AutoSaving      bool           `json:"auto_saving"`
	AutoSaveSuccess bool           `json:"auto_save_success"`
}

func initialState() State {
	return State{DraftIsPublic: true}
}

// session is the cancellation token of one open game. Responses are applied
// only while their session is still the controller's current one.
type session struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func newSession() *session {
	ctx, cancel := context.WithCancel(context.Background())
	return &session{ctx: ctx, cancel: cancel}
}

// Controller owns the review workflow of a single game detail view
type Controller struct {
	api       API
	notifier  domain.Notifier
	callbacks Callbacks
	opts      Options
	validate  *validator.Validate
	metrics   *metrics.Recorder
	logger    *logger.Logger
	autosave  *debounce.Debouncer

	// saveMu runs saves one at a time, so a follow-up save sees the review
	// ID assigned by the previous one and responses land in dispatch order.
	saveMu sync.Mutex

	mu    sync.Mutex
	sess  *session
	game  domain.Game
	state State
	// autosaveGen identifies the latest star pick; older autosaves neither
	// dispatch nor touch the draft once it moves on.
	autosaveGen uint64
}

// NewController creates a review workflow controller. notifier and rec may be nil.
func NewController(
	api API,
	notifier domain.Notifier,
	callbacks Callbacks,
	opts Options,
	rec *metrics.Recorder,
	log *logger.Logger,
) *Controller {
	if opts.AutosaveDelay <= 0 {
		opts.AutosaveDelay = DefaultAutosaveDelay
	}
	if notifier == nil {
		notifier = domain.NotifierFunc(func(domain.NoticeLevel, string) {})
	}

	return &Controller{
		api:       api,
		notifier:  notifier,
		callbacks: callbacks,
		opts:      opts,
		validate:  validatorpkg.Get(),
		metrics:   rec,
		logger:    log.Component("review-workflow"),
		autosave:  debounce.New(opts.AutosaveDelay),
		state:     initialState(),
	}
}

// Open starts a session for game and loads the caller's review. It blocks
// until the lookup settles or the session is superseded. Lookup failures are
// reported through State, not returned; only an unresolvable identity is.
func (c *Controller) Open(game domain.Game) error {
	ref, err := game.Ref()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.teardownLocked()
	sess := newSession()
	c.sess = sess
	c.game = game
	c.state = initialState()
	c.state.Loading = true
	c.mu.Unlock()

	found, err := c.api.FetchMyReview(sess.ctx, ref)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess != sess {
		c.logger.Debugf("Discarding review lookup for closed session (game %+v)", ref)
		return nil
	}

	c.state.Loading = false
	switch {
	case err == nil && found != nil:
		normalized := domain.NormalizeReview(*found)
		c.state.Review = &normalized
		c.seedDraftLocked()
	case err == nil || errors.Is(err, domain.ErrNotFound):
		// No review yet; the draft keeps its defaults.
	default:
		opErr := &domain.OpError{Op: domain.OpFetchReview, Err: err}
		c.state.Error = "Could not load your review"
		c.logger.Error("Failed to load review", opErr)
	}

	return nil
}

// Close ends the current session. It is idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.teardownLocked()
	c.sess = nil
	c.game = domain.Game{}
	c.state = initialState()
}

// teardownLocked cancels the in-flight lookup and any pending autosave
func (c *Controller) teardownLocked() {
	c.autosave.Cancel()
	if c.sess != nil {
		c.sess.cancel()
	}
}

// State returns a snapshot of the view state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state
	if st.Review != nil {
		r := *st.Review
		st.Review = &r
	}
	return st
}

// Game returns the game of the open session
func (c *Controller) Game() domain.Game {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.game
}

// UpdateGame merges a fragment published by a sibling controller, e.g. the
// catalog ID assigned when a status change imported the game
func (c *Controller) UpdateGame(fragment domain.Game) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess == nil {
		return
	}
	c.game = c.game.Merge(fragment)
}

// StartEditing lets the user diverge the draft from the saved review
func (c *Controller) StartEditing() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess != nil {
		c.state.Editing = true
	}
}

// CancelEditing discards draft changes and mirrors the saved review again
func (c *Controller) CancelEditing() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sess == nil {
		return
	}
	c.state.Editing = false
	if c.state.Review != nil {
		c.seedDraftLocked()
	} else {
		c.state.DraftRating = initialState().DraftRating
		c.state.DraftText = ""
		c.state.DraftIsPublic = true
	}
}

// SetDraftText updates the draft text. Text is only saved on explicit submit.
func (c *Controller) SetDraftText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess != nil {
		c.state.DraftText = text
	}
}

// SetDraftIsPublic updates the draft visibility
func (c *Controller) SetDraftIsPublic(public bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess != nil {
		c.state.DraftIsPublic = public
	}
}

// seedDraftLocked copies the saved review into the draft fields
func (c *Controller) seedDraftLocked() {
	r := c.state.Review
	c.state.DraftRating = 0
	if r.Rating != nil {
		c.state.DraftRating = *r.Rating
	}
	c.state.DraftText = ""
	if r.ReviewText != nil {
		c.state.DraftText = *r.ReviewText
	}
	c.state.DraftIsPublic = r.IsPublic
}

// SaveReview creates or updates the review from the draft plus overrides and
// returns the normalized server result. Errors are returned to the caller.
func (c *Controller) SaveReview(ctx context.Context, ov Overrides) (domain.Review, error) {
	c.mu.Lock()
	sess := c.sess
	c.mu.Unlock()

	return c.saveReview(ctx, sess, ov, 0)
}

// saveReview sends one save. gen is the autosave generation that triggered
// it, zero for explicit saves.
func (c *Controller) saveReview(ctx context.Context, sess *session, ov Overrides, gen uint64) (domain.Review, error) {
	c.saveMu.Lock()
	locked := true
	defer func() {
		if locked {
			c.saveMu.Unlock()
		}
	}()

	c.mu.Lock()
	if sess == nil || c.sess != sess {
		c.mu.Unlock()
		return domain.Review{}, ErrNoSession
	}
	if gen != 0 && gen != c.autosaveGen {
		c.mu.Unlock()
		return domain.Review{}, errSuperseded
	}

	game := c.game
	var reviewID *int64
	if c.state.Review != nil {
		reviewID = c.state.Review.ID
	}
	creating := reviewID == nil

	rating := c.state.DraftRating
	if ov.Rating != nil {
		rating = *ov.Rating
	}
	text := c.state.DraftText
	if ov.ReviewText != nil {
		text = *ov.ReviewText
	} else if gen != 0 && strings.TrimSpace(text) == "" && c.state.Review != nil && c.state.Review.ReviewText != nil {
		text = *c.state.Review.ReviewText
	}
	public := c.state.DraftIsPublic
	if ov.IsPublic != nil {
		public = *ov.IsPublic
	}
	c.mu.Unlock()

	if creating && !game.HasID() {
		return domain.Review{}, domain.ErrMissingGameID
	}

	in := domain.ReviewInput{
		Rating:     &rating,
		ReviewText: &text,
		IsPublic:   public,
	}.Normalize()
	if err := c.validate.Struct(in); err != nil {
		c.logger.Error("Review validation failed", err)
		return domain.Review{}, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	var (
		saved *domain.Review
		err   error
	)
	if creating {
		saved, err = c.api.CreateReview(ctx, *game.ID, in)
	} else {
		saved, err = c.api.UpdateReview(ctx, *reviewID, in)
	}
	if err == nil && saved == nil {
		err = fmt.Errorf("%w: empty save response", domain.ErrInternal)
	}
	c.metrics.ReviewSaved(creating, err)
	if err != nil {
		return domain.Review{}, &domain.OpError{Op: domain.OpSaveReview, Err: err}
	}

	normalized := domain.NormalizeReview(*saved)
	if normalized.GameID == nil {
		normalized.GameID = game.ID
	}

	c.mu.Lock()
	if c.sess == sess {
		r := normalized
		c.state.Review = &r
		c.reseedAfterSaveLocked(gen)
	} else {
		c.logger.Debug("Review saved after its session closed; local state left untouched")
	}
	c.mu.Unlock()

	c.saveMu.Unlock()
	locked = false

	fragment := domain.Game{ID: game.ID}
	if normalized.Rating != nil {
		v := float64(*normalized.Rating)
		fragment.Rating = &v
	}
	safecall.Do(c.logger, "on_status_change", func() {
		if c.callbacks.OnStatusChange != nil {
			c.callbacks.OnStatusChange(fragment)
		}
	})
	safecall.Do(c.logger, "on_saved_review", func() {
		if c.callbacks.OnSavedReview != nil {
			c.callbacks.OnSavedReview(normalized, creating)
		}
	})

	c.logger.WithFields(map[string]interface{}{
		"review_id": derefID(normalized.ID),
		"game_id":   derefID(game.ID),
		"creating":  creating,
	}).Info("Review saved")

	return normalized, nil
}

// reseedAfterSaveLocked mirrors the saved review into the draft. A stale
// autosave leaves the draft alone, and while editing only the rating is
// taken from the server so text typed during the save survives.
func (c *Controller) reseedAfterSaveLocked(gen uint64) {
	if gen != 0 && gen != c.autosaveGen {
		return
	}
	if !c.state.Editing {
		c.seedDraftLocked()
		return
	}
	c.state.DraftRating = 0
	if c.state.Review.Rating != nil {
		c.state.DraftRating = *c.state.Review.Rating
	}
}

// HandleSaveReview is the explicit save action. It tracks Saving, surfaces
// failures inline and leaves editing mode on success.
func (c *Controller) HandleSaveReview(ctx context.Context) error {
	c.mu.Lock()
	sess := c.sess
	if sess == nil {
		c.mu.Unlock()
		return ErrNoSession
	}
	c.state.Saving = true
	c.state.Error = ""
	c.mu.Unlock()

	_, err := c.saveReview(ctx, sess, Overrides{}, 0)

	c.mu.Lock()
	current := c.sess == sess
	if current {
		c.state.Saving = false
		if err == nil {
			c.state.Editing = false
			if c.state.Review != nil {
				c.seedDraftLocked()
			}
		} else {
			c.state.Error = saveErrorMessage(err)
		}
	}
	c.mu.Unlock()

	if !current {
		return err
	}
	if err != nil {
		c.logger.Error("Failed to save review", err)
		c.notifier.Notify(domain.NoticeError, saveErrorMessage(err))
		return err
	}
	c.notifier.Notify(domain.NoticeSuccess, "Review saved")
	return nil
}

// HandleStarsChange applies a rating to the draft immediately and schedules a
// debounced autosave. Later calls inside the window replace the pending one.
// Text and visibility are read from the draft when the autosave is sent.
func (c *Controller) HandleStarsChange(value float64) {
	rating := domain.ClampRating(value)

	c.mu.Lock()
	defer c.mu.Unlock()

	sess := c.sess
	if sess == nil {
		return
	}
	c.state.DraftRating = rating
	c.state.AutoSaveSuccess = false
	c.autosaveGen++
	gen := c.autosaveGen

	c.autosave.Schedule(func() {
		c.runAutosave(sess, gen, rating)
	})
}

// AutosavePending reports whether a debounced autosave is waiting to fire
func (c *Controller) AutosavePending() bool {
	return c.autosave.Pending()
}

func (c *Controller) runAutosave(sess *session, gen uint64, rating int) {
	c.mu.Lock()
	if c.sess != sess || c.autosaveGen != gen {
		c.mu.Unlock()
		return
	}
	c.state.AutoSaving = true
	c.state.AutoSaveSuccess = false
	c.mu.Unlock()

	// Autosave is detached from any caller; the HTTP client timeout bounds it.
	_, err := c.saveReview(context.Background(), sess, Overrides{Rating: &rating}, gen)
	if errors.Is(err, ErrNoSession) || errors.Is(err, errSuperseded) {
		return
	}
	c.metrics.Autosaved(err)

	c.mu.Lock()
	current := c.sess == sess && c.autosaveGen == gen
	if current {
		c.state.AutoSaving = false
		c.state.AutoSaveSuccess = err == nil
		if err != nil && c.opts.RollbackOnAutosaveFailure {
			c.state.DraftRating = 0
			if c.state.Review != nil && c.state.Review.Rating != nil {
				c.state.DraftRating = *c.state.Review.Rating
			}
		}
	}
	c.mu.Unlock()

	if err != nil && current {
		c.logger.Error("Autosave failed", err)
		c.notifier.Notify(domain.NoticeError, "Could not save your rating")
	}
}

func saveErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingGameID):
		return "Add this game to your catalog before reviewing it"
	case errors.Is(err, domain.ErrInvalidInput):
		return "Rating must be between 0 and 10"
	case errors.Is(err, domain.ErrUnauthorized):
		return "Your session has expired, please log in again"
	default:
		return "Could not save your review"
	}
}

func derefID(id *int64) interface{} {
	if id == nil {
		return nil
	}
	return *id
}
