package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Pesokrava/game_catalog/internal/domain"
)

// UpdateStatus sets the status of an imported game
func (c *Client) UpdateStatus(ctx context.Context, gameID int64, status domain.Status) (*domain.Game, error) {
	return c.upsertStatus(ctx, domain.UpsertStatusInput{ID: &gameID, Status: status})
}

// CreateWithStatus imports a provider game into the catalog with an initial status
func (c *Client) CreateWithStatus(ctx context.Context, externalGUID string, status domain.Status) (*domain.Game, error) {
	return c.upsertStatus(ctx, domain.UpsertStatusInput{ExternalGUID: &externalGUID, Status: status})
}

func (c *Client) upsertStatus(ctx context.Context, in domain.UpsertStatusInput) (*domain.Game, error) {
	payload, err := c.do(ctx, http.MethodPost, "/games/upsert-status", in)
	if err != nil {
		return nil, err
	}
	if isEmpty(payload) {
		return &domain.Game{}, nil
	}

	var game domain.Game
	if err := json.Unmarshal(payload, &game); err != nil {
		return nil, fmt.Errorf("failed to decode game: %w", err)
	}
	if game.Status != nil {
		if st, err := domain.ParseStatus(string(*game.Status)); err == nil {
			game.Status = &st
		}
	}
	return &game, nil
}
