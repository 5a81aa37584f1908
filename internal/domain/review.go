package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	MinRating = 0
	MaxRating = 10
)

// Review is the current user's review of one game
type Review struct {
	ID         *int64     `json:"id,omitempty" db:"id"`
	GameID     *int64     `json:"game_id,omitempty" db:"game_id"`
	Rating     *int       `json:"rating" db:"rating"`
	ReviewText *string    `json:"review_text" db:"review_text"`
	IsPublic   bool       `json:"is_public" db:"is_public"`
	CreatedAt  *time.Time `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// ReviewInput is the body of review create and update calls
type ReviewInput struct {
	Rating     *int    `json:"rating" validate:"omitempty,min=0,max=10"`
	ReviewText *string `json:"review_text" validate:"omitempty,max=5000"`
	IsPublic   bool    `json:"is_public"`
}

// NormalizeText trims s and maps the empty string to nil
func NormalizeText(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// ClampRating rounds v to the nearest integer inside [MinRating, MaxRating]
func ClampRating(v float64) int {
	if math.IsNaN(v) {
		return MinRating
	}
	// clamp before converting: int() of an out-of-range float is undefined
	r := math.Round(v)
	if r < MinRating {
		return MinRating
	}
	if r > MaxRating {
		return MaxRating
	}
	return int(r)
}

// NormalizeReview applies the rating and text rules. It is idempotent.
func NormalizeReview(r Review) Review {
	if r.Rating != nil {
		v := ClampRating(float64(*r.Rating))
		r.Rating = &v
	}
	r.ReviewText = NormalizeText(r.ReviewText)
	return r
}

// Normalize returns a copy of in with its text normalized and its rating clamped
func (in ReviewInput) Normalize() ReviewInput {
	if in.Rating != nil {
		v := ClampRating(float64(*in.Rating))
		in.Rating = &v
	}
	in.ReviewText = NormalizeText(in.ReviewText)
	return in
}

// FlexRating decodes a rating sent as a number, a numeric string or null
type FlexRating struct {
	Value *float64
}

func (f *FlexRating) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		f.Value = nil
		return nil
	}
	s = strings.Trim(s, `"`)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid rating %s: %w", data, err)
	}
	f.Value = &v
	return nil
}

// RawReview is a review payload as returned by the server, before normalization
type RawReview struct {
	ID         *int64     `json:"id"`
	GameID     *int64     `json:"game_id"`
	Rating     FlexRating `json:"rating"`
	ReviewText *string    `json:"review_text"`
	IsPublic   *bool      `json:"is_public"`
	CreatedAt  *time.Time `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
}

// Normalize converts the payload into a Review. Missing visibility defaults to public.
func (p RawReview) Normalize() Review {
	r := Review{
		ID:         p.ID,
		GameID:     p.GameID,
		ReviewText: p.ReviewText,
		IsPublic:   true,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
	if p.IsPublic != nil {
		r.IsPublic = *p.IsPublic
	}
	if p.Rating.Value != nil {
		v := ClampRating(*p.Rating.Value)
		r.Rating = &v
	}
	return NormalizeReview(r)
}

// DecodeReview parses a server review payload and normalizes it
func DecodeReview(data []byte) (Review, error) {
	var raw RawReview
	if err := json.Unmarshal(data, &raw); err != nil {
		return Review{}, fmt.Errorf("failed to decode review: %w", err)
	}
	return raw.Normalize(), nil
}

// ReviewRepository defines the interface for review data access
type ReviewRepository interface {
	// GetForUserGame retrieves the user's review of a game
	GetForUserGame(ctx context.Context, userID, gameID int64) (*Review, error)

	// GetOwnerID returns the user that wrote the review
	GetOwnerID(ctx context.Context, reviewID int64) (int64, error)

	// Create creates a new review
	Create(ctx context.Context, userID, gameID int64, in ReviewInput) (*Review, error)

	// Update updates an existing review
	Update(ctx context.Context, reviewID int64, in ReviewInput) (*Review, error)
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}
