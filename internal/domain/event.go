package domain

import (
	"time"

	"github.com/google/uuid"
)

// NATS subjects
const (
	SubjectReviewEvents = "reviews.events"
	SubjectShelfEvents  = "shelf.events"
)

// Event types published on SubjectReviewEvents
const (
	EventReviewCreated     = "review.created"
	EventReviewUpdated     = "review.updated"
	EventGameStatusChanged = "game.status_changed"
)

// Event types published on SubjectShelfEvents
const (
	EventShelfReviewSaved   = "shelf.review_saved"
	EventShelfStatusChanged = "shelf.status_changed"
)

// ReviewEvent is emitted by the catalog API after a write
type ReviewEvent struct {
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	UserID    int64     `json:"user_id"`
	GameID    int64     `json:"game_id"`
	Review    *Review   `json:"review,omitempty"`
	Status    *Status   `json:"status,omitempty"`
}

// ShelfEvent is emitted by the shelf server when a session's host callbacks fire
type ShelfEvent struct {
	EventID     uuid.UUID `json:"event_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	SessionID   string    `json:"session_id"`
	Game        *Game     `json:"game,omitempty"`
	Review      *Review   `json:"review,omitempty"`
	WasCreating bool      `json:"was_creating,omitempty"`
}
