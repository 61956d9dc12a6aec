package watcher

import "sync"

// Snapshot holds the last notified rendered status per tracked key. It is
// the dedup baseline for presence notifications: equality is on the fully
// rendered status string, so a place name resolving late re-notifies even
// when the classification itself did not change.
//
// The store is intentionally volatile; a restart produces a fresh round of
// first-sighting notifications.
type Snapshot struct {
	mu   sync.Mutex
	last map[string]string
}

// NewSnapshot creates an empty snapshot store.
func NewSnapshot() *Snapshot {
	return &Snapshot{last: make(map[string]string)}
}

// Changed reports whether rendered differs from the stored baseline for key
// and commits rendered as the new baseline. The commit happens regardless
// of later delivery outcome so a failing sink cannot cause resend storms.
func (s *Snapshot) Changed(key, rendered string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, seen := s.last[key]
	s.last[key] = rendered
	return !seen || prev != rendered
}
