package roblox

import (
	"context"
	"fmt"
	"net/http"
)

// Presences fetches the presence classification for all given user IDs in a
// single batched call.
func (c *Client) Presences(ctx context.Context, userIDs []int64) ([]UserPresence, error) {
	if len(userIDs) == 0 {
		return nil, fmt.Errorf("no user IDs to check")
	}

	req := struct {
		UserIDs []int64 `json:"userIds"`
	}{UserIDs: userIDs}

	var resp struct {
		UserPresences []UserPresence `json:"userPresences"`
	}

	if err := c.execute(ctx, http.MethodPost, c.presenceURL, req, &resp); err != nil {
		return nil, fmt.Errorf("presence lookup failed: %w", err)
	}

	return resp.UserPresences, nil
}

// Username resolves a numeric user ID to the account's current username.
func (c *Client) Username(ctx context.Context, userID int64) (string, error) {
	var resp struct {
		Name string `json:"name"`
	}

	rawURL := fmt.Sprintf("%s/%d", c.usersBaseURL, userID)
	if err := c.execute(ctx, http.MethodGet, rawURL, nil, &resp); err != nil {
		return "", fmt.Errorf("username lookup failed for user %d: %w", userID, err)
	}

	return resp.Name, nil
}

// PlaceDetails fetches the display metadata for one place ID. Returns
// nil, nil when the provider knows nothing about the place.
func (c *Client) PlaceDetails(ctx context.Context, placeID int64) (*PlaceDetails, error) {
	var resp []PlaceDetails

	rawURL := fmt.Sprintf("%s?placeIds=%d", c.placeDetailsURL, placeID)
	if err := c.execute(ctx, http.MethodGet, rawURL, nil, &resp); err != nil {
		return nil, fmt.Errorf("place details lookup failed for place %d: %w", placeID, err)
	}

	if len(resp) == 0 {
		return nil, nil
	}

	return &resp[0], nil
}
