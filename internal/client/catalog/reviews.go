package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Pesokrava/game_catalog/internal/domain"
)

// FetchMyReview returns the caller's review of the game, or domain.ErrNotFound
func (c *Client) FetchMyReview(ctx context.Context, ref domain.GameRef) (*domain.Review, error) {
	q := url.Values{}
	if ref.HasID {
		q.Set("game_id", strconv.FormatInt(ref.ID, 10))
	} else {
		q.Set("external_guid", ref.ExternalGUID)
	}

	payload, err := c.do(ctx, http.MethodGet, "/reviews/me?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return decodeOneReview(payload)
}

// CreateReview creates the caller's review for an imported game
func (c *Client) CreateReview(ctx context.Context, gameID int64, in domain.ReviewInput) (*domain.Review, error) {
	payload, err := c.do(ctx, http.MethodPost, fmt.Sprintf("/reviews/game/%d", gameID), in)
	if err != nil {
		return nil, err
	}
	return decodeOneReview(payload)
}

// UpdateReview updates an existing review
func (c *Client) UpdateReview(ctx context.Context, reviewID int64, in domain.ReviewInput) (*domain.Review, error) {
	payload, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/reviews/%d", reviewID), in)
	if err != nil {
		return nil, err
	}
	return decodeOneReview(payload)
}

// decodeOneReview accepts a single object or a list holding one review
func decodeOneReview(payload json.RawMessage) (*domain.Review, error) {
	if isEmpty(payload) {
		return nil, domain.ErrNotFound
	}

	if payload[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(payload, &list); err != nil {
			return nil, fmt.Errorf("failed to decode review list: %w", err)
		}
		if len(list) == 0 || isEmpty(list[0]) {
			return nil, domain.ErrNotFound
		}
		payload = list[0]
	}

	review, err := domain.DecodeReview(payload)
	if err != nil {
		return nil, err
	}
	return &review, nil
}
