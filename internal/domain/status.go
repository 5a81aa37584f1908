package domain

import (
	"fmt"
	"strings"
)

// Status is a user's play status for a game
type Status string

const (
	StatusWishlist  Status = "wishlist"
	StatusOnGoing   Status = "on_going"
	StatusStandBy   Status = "stand_by"
	StatusDropped   Status = "dropped"
	StatusCompleted Status = "completed"
)

// Statuses lists every known status in display order
var Statuses = []Status{
	StatusWishlist,
	StatusOnGoing,
	StatusStandBy,
	StatusDropped,
	StatusCompleted,
}

// ParseStatus accepts mixed casing and "-" or " " separators ("On-Going", "stand by")
func ParseStatus(s string) (Status, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)

	for _, st := range Statuses {
		if string(st) == key {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, s)
}

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// Equal compares two statuses ignoring case and separator style
func (s Status) Equal(other Status) bool {
	a, errA := ParseStatus(string(s))
	b, errB := ParseStatus(string(other))
	if errA != nil || errB != nil {
		return strings.EqualFold(string(s), string(other))
	}
	return a == b
}

// StatusPtr returns a pointer to s
func StatusPtr(s Status) *Status {
	return &s
}
