package domain

import (
	"context"
	"strings"
)

// Game is a catalog entry as seen by the current user. It is identified either
// by its catalog ID (already imported) or by the metadata provider's guid.
type Game struct {
	ID           *int64   `json:"id,omitempty" db:"id"`
	ExternalGUID *string  `json:"external_guid,omitempty" db:"external_guid"`
	Name         string   `json:"name" db:"name"`
	Status       *Status  `json:"status,omitempty" db:"status"`
	CoverURL     *string  `json:"cover_url,omitempty" db:"cover_url"`
	Rating       *float64 `json:"rating,omitempty" db:"rating"`
	AvgRating    *float64 `json:"avg_rating,omitempty" db:"avg_rating"`
}

// GameRef is the resolved identity of a game: a catalog ID when HasID is
// set, the external guid otherwise
type GameRef struct {
	ID           int64
	HasID        bool
	ExternalGUID string
}

// RefByID references an imported game
func RefByID(id int64) GameRef {
	return GameRef{ID: id, HasID: true}
}

// RefByGUID references a game by its external catalog guid
func RefByGUID(guid string) GameRef {
	return GameRef{ExternalGUID: guid}
}

// HasID reports whether the game has been imported into the catalog
func (g Game) HasID() bool {
	return g.ID != nil
}

// GUID returns the trimmed external guid, or "" when there is none
func (g Game) GUID() string {
	if g.ExternalGUID == nil {
		return ""
	}
	return strings.TrimSpace(*g.ExternalGUID)
}

// Ref resolves the game identity, preferring the catalog ID
func (g Game) Ref() (GameRef, error) {
	if g.ID != nil {
		return RefByID(*g.ID), nil
	}
	if guid := g.GUID(); guid != "" {
		return RefByGUID(guid), nil
	}
	return GameRef{}, ErrMissingIdentity
}

// Merge returns g with every non-nil field of fragment applied on top
func (g Game) Merge(fragment Game) Game {
	if fragment.ID != nil {
		g.ID = fragment.ID
	}
	if fragment.ExternalGUID != nil {
		g.ExternalGUID = fragment.ExternalGUID
	}
	if fragment.Name != "" {
		g.Name = fragment.Name
	}
	if fragment.Status != nil {
		g.Status = fragment.Status
	}
	if fragment.CoverURL != nil {
		g.CoverURL = fragment.CoverURL
	}
	if fragment.Rating != nil {
		g.Rating = fragment.Rating
	}
	if fragment.AvgRating != nil {
		g.AvgRating = fragment.AvgRating
	}
	return g
}

// UpsertStatusInput is the body of POST /games/upsert-status
type UpsertStatusInput struct {
	ID           *int64  `json:"id,omitempty"`
	ExternalGUID *string `json:"external_guid,omitempty"`
	Name         string  `json:"name,omitempty" validate:"max=255"`
	CoverURL     *string `json:"cover_url,omitempty"`
	Status       Status  `json:"status" validate:"required,game_status"`
}

// GameRepository defines the interface for game data access
type GameRepository interface {
	// GetForUser retrieves a game with the user's status attached
	GetForUser(ctx context.Context, userID, gameID int64) (*Game, error)

	// GetIDByExternalGUID resolves an imported game's catalog ID from its provider guid
	GetIDByExternalGUID(ctx context.Context, guid string) (int64, error)

	// Import creates a game from provider metadata, or returns the existing ID for the guid
	Import(ctx context.Context, guid, name string, coverURL *string) (int64, error)

	// UpsertStatus sets the user's status for a game and returns the persisted value
	UpsertStatus(ctx context.Context, userID, gameID int64, status Status) (Status, error)
}

// Int64Ptr returns a pointer to v
func Int64Ptr(v int64) *int64 {
	return &v
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}
