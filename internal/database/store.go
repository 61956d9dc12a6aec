package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for place cache persistence. Methods accept
// context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// GetPlace retrieves a cached place by ID. Returns nil, nil if not found.
	GetPlace(ctx context.Context, placeID int64) (*Place, error)

	// GetAllPlaces retrieves every cached place, keyed by place ID.
	GetAllPlaces(ctx context.Context) (map[int64]*Place, error)

	// SavePlace inserts or updates a place entry.
	SavePlace(ctx context.Context, place *Place) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// noopStore is the degraded fallback used when the cache database is corrupt
// or unreadable at startup. Reads see an empty cache and writes are dropped,
// so the process keeps running with in-memory resolution only.
type noopStore struct {
	logger *slog.Logger
}

// NewNoopStore creates a Store that persists nothing.
func NewNoopStore(logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &noopStore{logger: logger.With("component", "noop_store")}
}

func (s *noopStore) Ping(context.Context) error { return nil }

func (s *noopStore) GetPlace(context.Context, int64) (*Place, error) { return nil, nil }

func (s *noopStore) GetAllPlaces(context.Context) (map[int64]*Place, error) {
	return map[int64]*Place{}, nil
}

func (s *noopStore) SavePlace(ctx context.Context, place *Place) error {
	if place == nil {
		return fmt.Errorf("cannot save nil place")
	}
	s.logger.DebugContext(ctx, "Dropping place cache write, persistence disabled",
		"place_id", place.PlaceID)
	return nil
}

func (s *sqlxStore) GetPlace(ctx context.Context, placeID int64) (*Place, error) {
	if placeID == 0 {
		return nil, fmt.Errorf("place_id cannot be zero")
	}

	var place Place
	query := `
        SELECT place_id, name, url, universe_id, creator_name, creator_type, resolved_at, created_at, updated_at
        FROM places
        WHERE place_id = ?;
    `

	err := s.db.GetContext(ctx, &place, query, placeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting place", "place_id", placeID, "error", err)
		return nil, fmt.Errorf("failed to get place %d: %w", placeID, err)
	}

	return &place, nil
}

func (s *sqlxStore) GetAllPlaces(ctx context.Context) (map[int64]*Place, error) {
	var places []Place
	query := `
        SELECT place_id, name, url, universe_id, creator_name, creator_type, resolved_at, created_at, updated_at
        FROM places;
    `

	if err := s.db.SelectContext(ctx, &places, query); err != nil {
		s.logger.ErrorContext(ctx, "Error loading place cache", "error", err)
		return nil, fmt.Errorf("failed to load place cache: %w", err)
	}

	result := make(map[int64]*Place, len(places))
	for i := range places {
		result[places[i].PlaceID] = &places[i]
	}

	s.logger.DebugContext(ctx, "Loaded place cache", "count", len(result))
	return result, nil
}

func (s *sqlxStore) SavePlace(ctx context.Context, place *Place) error {
	if place == nil {
		return fmt.Errorf("cannot save nil place")
	}
	if place.PlaceID == 0 {
		return fmt.Errorf("place must have a non-zero place_id")
	}
	if place.Name == "" {
		return fmt.Errorf("place must have a non-empty name")
	}

	now := time.Now().UTC()
	if place.CreatedAt.IsZero() {
		place.CreatedAt = now
	}
	place.UpdatedAt = now

	query := `
        INSERT INTO places (place_id, name, url, universe_id, creator_name, creator_type, resolved_at, created_at, updated_at)
        VALUES (:place_id, :name, :url, :universe_id, :creator_name, :creator_type, :resolved_at, :created_at, :updated_at)
        ON CONFLICT (place_id) DO UPDATE SET
            name         = excluded.name,
            url          = excluded.url,
            universe_id  = excluded.universe_id,
            creator_name = excluded.creator_name,
            creator_type = excluded.creator_type,
            resolved_at  = excluded.resolved_at,
            updated_at   = excluded.updated_at;
    `

	if _, err := s.db.NamedExecContext(ctx, query, place); err != nil {
		s.logger.ErrorContext(ctx, "Error saving place", "place_id", place.PlaceID, "error", err)
		return fmt.Errorf("failed to save place %d: %w", place.PlaceID, err)
	}

	s.logger.DebugContext(ctx, "Place saved", "place_id", place.PlaceID, "name", place.Name)
	return nil
}
