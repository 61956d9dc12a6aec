// Package watcher implements the presence-diff-and-notify engine: one poll
// cycle fetches the batch presence state for all tracked users, renders a
// status line per user, correlates co-location with the subject, diffs
// against the last notified state, and dispatches the resulting
// notifications.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/okarv/presencebot/internal/notify"
	"github.com/okarv/presencebot/internal/roblox"
)

// presenceAPI is the slice of the Roblox client the watcher consumes.
type presenceAPI interface {
	Presences(ctx context.Context, userIDs []int64) ([]roblox.UserPresence, error)
}

// nameResolver resolves numeric identifiers to display names. Resolution
// never fails; a fallback pair is always returned.
type nameResolver interface {
	Resolve(ctx context.Context, placeID int64) (name, url string)
	Username(ctx context.Context, userID int64) string
}

// Watcher owns the per-cycle state: the snapshot baseline and the
// co-location signature. All mutation happens inside a cycle, and the cycle
// mutex guarantees at most one cycle in flight.
type Watcher struct {
	client     presenceAPI
	resolver   nameResolver
	notifier   notify.Notifier
	snapshot   *Snapshot
	correlator *Correlator
	logger     *slog.Logger

	subject string
	tracked map[string]int64
	byID    map[int64]string
	ids     []int64

	cycleMu sync.Mutex
}

// New creates a watcher for a fixed tracked set. tracked maps display keys
// to numeric user IDs; subject may be empty to disable co-location
// detection.
func New(client presenceAPI, resolver nameResolver, notifier notify.Notifier, tracked map[string]int64, subject string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}

	byID := make(map[int64]string, len(tracked))
	ids := make([]int64, 0, len(tracked))
	for key, id := range tracked {
		byID[id] = key
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return &Watcher{
		client:     client,
		resolver:   resolver,
		notifier:   notifier,
		snapshot:   NewSnapshot(),
		correlator: NewCorrelator(subject),
		logger:     logger.With("component", "watcher"),
		subject:    subject,
		tracked:    tracked,
		byID:       byID,
		ids:        ids,
	}
}

// record is one tracked user's rendered state for the current poll.
type record struct {
	key    string
	status string
	sev    notify.Severity
	active bool
}

// Check runs one full poll cycle. Concurrent callers serialize on the cycle
// mutex, so a manual trigger waits for a running scheduled cycle instead of
// interleaving with it. A fetch failure skips the cycle entirely; no
// partial processing happens.
func (w *Watcher) Check(ctx context.Context) error {
	w.cycleMu.Lock()
	defer w.cycleMu.Unlock()

	return w.runCycle(ctx)
}

// TryCheck runs a cycle unless one is already in flight, in which case it
// reports false without doing any work. Used by the manual trigger so it
// coalesces into a no-op while the scheduler is mid-cycle.
func (w *Watcher) TryCheck(ctx context.Context) (bool, error) {
	if !w.cycleMu.TryLock() {
		return false, nil
	}
	defer w.cycleMu.Unlock()

	return true, w.runCycle(ctx)
}

func (w *Watcher) runCycle(ctx context.Context) error {
	presences, err := w.client.Presences(ctx, w.ids)
	if err != nil {
		w.logger.ErrorContext(ctx, "Presence fetch failed, skipping cycle", "error", err)
		return fmt.Errorf("presence fetch failed: %w", err)
	}
	if len(presences) == 0 {
		w.logger.WarnContext(ctx, "Presence fetch returned no records, skipping cycle")
		return nil
	}

	records := make(map[string]record, len(presences))
	sessions := make(map[string]string)
	placeIDs := make(map[string]int64)

	for _, p := range presences {
		key, tracked := w.byID[p.UserID]
		if !tracked {
			w.logger.DebugContext(ctx, "Ignoring presence for untracked user", "user_id", p.UserID)
			continue
		}

		rec := w.renderRecord(ctx, key, p)
		records[key] = rec

		if rec.active && p.GameID != "" {
			sessions[key] = p.GameID
			placeIDs[key] = p.PlaceID
		}
	}

	match, changed := w.correlator.Observe(sessions, placeIDs)
	if match != nil {
		// The aggregated notification supersedes the subject's own update
		// for this poll, changed or not.
		delete(records, w.subject)

		if changed {
			placeName, placeURL := w.resolver.Resolve(ctx, match.PlaceID)
			w.dispatch(ctx, notify.CoLocationMatch{
				Subject:   w.subject,
				Members:   match.Members,
				PlaceName: placeName,
				PlaceURL:  placeURL,
			})
		}
	}

	keys := make([]string, 0, len(records))
	for key := range records {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		rec := records[key]
		if !w.snapshot.Changed(key, rec.status) {
			continue
		}
		w.dispatch(ctx, notify.EntityUpdate{
			Key:     key,
			Status:  rec.status,
			Sev:     rec.sev,
			Mention: key == w.subject && rec.active,
		})
	}

	return nil
}

// renderRecord builds the human-readable status line for one presence
// record. The rendered string is the diff unit: any text change, including
// a game name resolving late, re-notifies.
func (w *Watcher) renderRecord(ctx context.Context, key string, p roblox.UserPresence) record {
	username := w.resolver.Username(ctx, p.UserID)

	switch {
	case p.UserPresenceType.Active():
		gameName, gameURL := w.resolver.Resolve(ctx, p.PlaceID)
		return record{
			key:    key,
			status: fmt.Sprintf("🎮 %s is playing: %s\n🔗 %s", username, gameName, gameURL),
			sev:    notify.SeverityPlaying,
			active: true,
		}
	case p.UserPresenceType == roblox.PresenceOnline:
		return record{
			key:    key,
			status: fmt.Sprintf("🟢 %s is online (not in game)", username),
			sev:    notify.SeverityOnline,
		}
	default:
		return record{
			key:    key,
			status: fmt.Sprintf("🔴 %s is offline", username),
			sev:    notify.SeverityOffline,
		}
	}
}

// dispatch delivers one notification. Delivery is best-effort: failures are
// logged and dropped, never retried by the engine, and never fail the
// cycle.
func (w *Watcher) dispatch(ctx context.Context, n notify.Notification) {
	if err := w.notifier.Send(ctx, n); err != nil {
		w.logger.ErrorContext(ctx, "Notification dispatch failed",
			"title", n.Title(), "severity", n.Severity(), "error", err)
	}
}
