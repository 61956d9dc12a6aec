package roblox

import "fmt"

// PresenceType is the provider's presence classification for a user.
type PresenceType int

// Presence classifications as reported by the presence API.
const (
	PresenceOffline  PresenceType = 0
	PresenceOnline   PresenceType = 1
	PresenceInGame   PresenceType = 2
	PresenceInStudio PresenceType = 3
)

// Active reports whether the user is in an active session (in-game or in
// Studio). Both count as "playing" for notification purposes.
func (t PresenceType) Active() bool {
	return t == PresenceInGame || t == PresenceInStudio
}

// UserPresence is one user's presence record from a batch presence call.
// GameID is an opaque session token shared by everyone in the same server
// instance; PlaceID identifies the place and is stable across instances.
// Both may be absent when the user is not in a session.
type UserPresence struct {
	UserID           int64        `json:"userId"`
	UserPresenceType PresenceType `json:"userPresenceType"`
	GameID           string       `json:"gameId"`
	PlaceID          int64        `json:"placeId"`
}

// PlaceDetails is the subset of the place details response the cache keeps.
type PlaceDetails struct {
	PlaceID     int64  `json:"placeId"`
	Name        string `json:"name"`
	UniverseID  int64  `json:"universeId"`
	CreatorName string `json:"creatorName"`
	CreatorType string `json:"creatorType"`
}

// APIError is a terminal, non-retriable API response: any status outside
// 2xx that is neither a rate limit nor a server error. It signals a
// caller-side defect for this cycle, not transience.
type APIError struct {
	StatusCode int
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("roblox API request failed: %s returned status %d", e.URL, e.StatusCode)
}
