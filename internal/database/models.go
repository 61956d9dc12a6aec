package database

import (
	"database/sql"
	"time"
)

// UnresolvedName is the sentinel place name stored when a lookup failed or
// returned no data. An entry carrying it counts as not yet resolved and is
// eligible for re-lookup; a successfully resolved entry is permanent.
const UnresolvedName = "Unknown Game"

// Place represents one cached place name resolution. Entries are created on
// first lookup, updated in place when an unresolved entry later resolves,
// and never deleted.
type Place struct {
	PlaceID   int64     `db:"place_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	Name        string         `db:"name"`
	URL         string         `db:"url"`
	UniverseID  sql.NullInt64  `db:"universe_id"`
	CreatorName sql.NullString `db:"creator_name"`
	CreatorType sql.NullString `db:"creator_type"`
	ResolvedAt  time.Time      `db:"resolved_at"`
}

// Resolved reports whether the entry carries a real name rather than the
// unresolved sentinel.
func (p *Place) Resolved() bool {
	return p.Name != UnresolvedName
}
