package watcher

import (
	"sort"
	"strings"
	"sync"
)

// Match describes the subject sharing a server instance with other tracked
// users during one poll.
type Match struct {
	SessionID string
	Members   []string
	PlaceID   int64
}

// Correlator detects co-location: the designated subject key sharing a
// session ID with at least one other tracked key. It keeps the signature of
// the last reported match so an unchanged set stays silent and a member
// change reports again.
type Correlator struct {
	subject string

	mu        sync.Mutex
	signature string
}

// NewCorrelator creates a correlator for the given subject key. An empty
// subject disables co-location detection entirely.
func NewCorrelator(subject string) *Correlator {
	return &Correlator{subject: subject}
}

// Observe correlates one poll's batch. sessions maps tracked key to session
// ID for every key in an active session; placeIDs carries the matching
// place IDs. It returns the current match (nil when the subject is
// inactive or alone) and whether the match differs from the previously
// stored signature. A nil match clears the stored signature so a future
// re-match counts as new.
//
// Matching is on the exact session ID: two users in different instances of
// the same place are not co-located.
func (c *Correlator) Observe(sessions map[string]string, placeIDs map[string]int64) (*Match, bool) {
	if c.subject == "" {
		return nil, false
	}

	subjectSession, active := sessions[c.subject]
	if !active || subjectSession == "" {
		c.clear()
		return nil, false
	}

	var members []string
	for key, session := range sessions {
		if key != c.subject && session == subjectSession {
			members = append(members, key)
		}
	}

	if len(members) == 0 {
		c.clear()
		return nil, false
	}

	sort.Strings(members)
	signature := subjectSession + "|" + strings.Join(members, ",")

	c.mu.Lock()
	changed := c.signature != signature
	c.signature = signature
	c.mu.Unlock()

	return &Match{
		SessionID: subjectSession,
		Members:   members,
		PlaceID:   placeIDs[c.subject],
	}, changed
}

func (c *Correlator) clear() {
	c.mu.Lock()
	c.signature = ""
	c.mu.Unlock()
}
