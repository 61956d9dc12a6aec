// Package places resolves opaque numeric Roblox identifiers into
// human-readable names. Place names are cached write-through to the
// database and survive restarts; usernames are cached in memory only.
// Resolution never fails: callers always get a usable display pair, at
// worst a fallback built from the raw identifier.
package places

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okarv/presencebot/internal/database"
	"github.com/okarv/presencebot/internal/roblox"
)

const placeURLBase = "https://www.roblox.com/games"

// client is the slice of the Roblox API the resolver consumes.
type client interface {
	PlaceDetails(ctx context.Context, placeID int64) (*roblox.PlaceDetails, error)
	Username(ctx context.Context, userID int64) (string, error)
}

// Resolver maps place and user IDs to display names. A place entry that
// resolved successfully is permanent (place names do not change); an
// unresolved entry is re-attempted after the cooldown elapses.
type Resolver struct {
	client   client
	store    database.Store
	logger   *slog.Logger
	cooldown time.Duration
	now      func() time.Time

	group singleflight.Group

	mu          sync.Mutex
	places      map[int64]*database.Place
	lastAttempt map[int64]time.Time
	usernames   map[int64]string
}

// NewResolver creates a resolver and warms it from the persisted cache.
// A store that cannot be read degrades to an empty cache rather than
// failing startup.
func NewResolver(ctx context.Context, c client, store database.Store, cooldown time.Duration, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "place_resolver")

	cached, err := store.GetAllPlaces(ctx)
	if err != nil {
		log.Warn("Failed to load persisted place cache, starting empty", "error", err)
		cached = make(map[int64]*database.Place)
	} else {
		log.Info("Place cache loaded", "entries", len(cached))
	}

	return &Resolver{
		client:      c,
		store:       store,
		logger:      log,
		cooldown:    cooldown,
		now:         time.Now,
		places:      cached,
		lastAttempt: make(map[int64]time.Time),
		usernames:   make(map[int64]string),
	}
}

// Resolve returns the display name and canonical URL for a place ID. A
// cached resolved entry returns immediately; a miss or a cooled-down
// unresolved entry triggers a provider lookup. Concurrent lookups of the
// same ID are collapsed into one call.
func (r *Resolver) Resolve(ctx context.Context, placeID int64) (string, string) {
	if placeID == 0 {
		// No place reported with the session; nothing to look up.
		return database.UnresolvedName, ""
	}

	if name, url, ok := r.cachedPlace(placeID); ok {
		return name, url
	}

	key := fmt.Sprintf("place:%d", placeID)
	result, _, _ := r.group.Do(key, func() (any, error) {
		if name, url, ok := r.cachedPlace(placeID); ok {
			return [2]string{name, url}, nil
		}
		name, url := r.lookupPlace(ctx, placeID)
		return [2]string{name, url}, nil
	})

	pair := result.([2]string)
	return pair[0], pair[1]
}

// Username returns the display username for a user ID, falling back to
// User_<id> when the lookup fails. Successful lookups are cached for the
// process lifetime.
func (r *Resolver) Username(ctx context.Context, userID int64) string {
	r.mu.Lock()
	if name, ok := r.usernames[userID]; ok {
		r.mu.Unlock()
		return name
	}
	r.mu.Unlock()

	key := fmt.Sprintf("user:%d", userID)
	result, _, _ := r.group.Do(key, func() (any, error) {
		r.mu.Lock()
		if name, ok := r.usernames[userID]; ok {
			r.mu.Unlock()
			return name, nil
		}
		r.mu.Unlock()

		name, err := r.client.Username(ctx, userID)
		if err != nil || name == "" {
			r.logger.WarnContext(ctx, "Username lookup failed, using fallback",
				"user_id", userID, "error", err)
			return fmt.Sprintf("User_%d", userID), nil
		}

		r.mu.Lock()
		r.usernames[userID] = name
		r.mu.Unlock()
		return name, nil
	})

	return result.(string)
}

// cachedPlace returns the cached display pair when the entry is resolved,
// or when it is unresolved but still inside the re-lookup cooldown.
func (r *Resolver) cachedPlace(placeID int64) (string, string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.places[placeID]
	if !ok {
		return "", "", false
	}
	if entry.Resolved() {
		return entry.Name, entry.URL, true
	}
	if r.cooldown > 0 {
		if last, attempted := r.lastAttempt[placeID]; attempted && r.now().Sub(last) < r.cooldown {
			return entry.Name, entry.URL, true
		}
	}
	return "", "", false
}

// lookupPlace performs the provider call and commits the result to memory
// and to the persisted store. Store write failures are logged and swallowed;
// the in-memory entry stands regardless.
func (r *Resolver) lookupPlace(ctx context.Context, placeID int64) (string, string) {
	details, err := r.client.PlaceDetails(ctx, placeID)

	var entry *database.Place
	now := r.now().UTC()

	if err != nil || details == nil {
		if err != nil {
			r.logger.WarnContext(ctx, "Place lookup failed, caching unresolved entry",
				"place_id", placeID, "error", err)
		} else {
			r.logger.WarnContext(ctx, "Place lookup returned no data, caching unresolved entry",
				"place_id", placeID)
		}
		entry = &database.Place{
			PlaceID:    placeID,
			Name:       database.UnresolvedName,
			URL:        fmt.Sprintf("%s/%d", placeURLBase, placeID),
			ResolvedAt: now,
		}
	} else {
		name := details.Name
		if name == "" {
			name = database.UnresolvedName
		}
		entry = &database.Place{
			PlaceID:    placeID,
			Name:       name,
			URL:        placeURL(placeID, name),
			ResolvedAt: now,
		}
		entry.UniverseID.Int64, entry.UniverseID.Valid = details.UniverseID, details.UniverseID != 0
		entry.CreatorName.String, entry.CreatorName.Valid = details.CreatorName, details.CreatorName != ""
		entry.CreatorType.String, entry.CreatorType.Valid = details.CreatorType, details.CreatorType != ""
	}

	r.mu.Lock()
	r.places[placeID] = entry
	r.lastAttempt[placeID] = now
	r.mu.Unlock()

	if saveErr := r.store.SavePlace(ctx, entry); saveErr != nil {
		r.logger.WarnContext(ctx, "Failed to persist place cache entry",
			"place_id", placeID, "error", saveErr)
	}

	return entry.Name, entry.URL
}

// placeURL builds the canonical display URL with a slug derived from the
// place name: spaces and path separators become hyphens.
func placeURL(placeID int64, name string) string {
	slug := strings.NewReplacer(" ", "-", "/", "-").Replace(name)
	if slug == "" || name == database.UnresolvedName {
		return fmt.Sprintf("%s/%d", placeURLBase, placeID)
	}
	return fmt.Sprintf("%s/%d/%s", placeURLBase, placeID, slug)
}
