// Package notify defines the structured notifications the watcher engine
// emits and the sink that delivers them. The notification shape is a closed
// set of variants so the sink contract stays precise.
package notify

import (
	"context"
	"fmt"
	"strings"
)

// Severity tags a notification for rendering. The values mirror the embed
// colors the notifier historically used.
type Severity string

const (
	SeverityPlaying    Severity = "playing"
	SeverityOnline     Severity = "online"
	SeverityOffline    Severity = "offline"
	SeveritySameServer Severity = "same_server"
	SeverityRateLimit  Severity = "ratelimit"
)

// Notification is one structured message bound for the sink. Exactly three
// types implement it: EntityUpdate, CoLocationMatch, and OperationalAlert.
type Notification interface {
	Title() string
	Body() string
	Severity() Severity
	// Broadcast marks the notification as important enough to ping the
	// operator rather than deliver silently.
	Broadcast() bool
}

// Notifier delivers notifications. Implementations own their delivery
// retries; delivery is best-effort and a failed send is not re-queued.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// EntityUpdate reports a presence change for a single tracked user.
type EntityUpdate struct {
	Key     string
	Status  string
	Sev     Severity
	Mention bool
}

func (u EntityUpdate) Title() string      { return "Presence Update" }
func (u EntityUpdate) Body() string       { return u.Status }
func (u EntityUpdate) Severity() Severity { return u.Sev }
func (u EntityUpdate) Broadcast() bool    { return u.Mention }

// CoLocationMatch reports the subject sharing a server instance with other
// tracked users. It supersedes the subject's individual update for the poll.
type CoLocationMatch struct {
	Subject   string
	Members   []string
	PlaceName string
	PlaceURL  string
}

func (m CoLocationMatch) Title() string { return "🎯 Target Match" }

func (m CoLocationMatch) Body() string {
	return fmt.Sprintf("%s is in the same server with:\n👥 %s\n\n🎮 Game: %s\n🔗 %s",
		m.Subject, strings.Join(m.Members, ", "), m.PlaceName, m.PlaceURL)
}

func (m CoLocationMatch) Severity() Severity { return SeveritySameServer }
func (m CoLocationMatch) Broadcast() bool    { return true }

// OperationalAlert informs the operator about sustained provider throttling.
// It goes to the alert channel, never to the notification channel.
type OperationalAlert struct {
	API    string
	Detail string
}

func (a OperationalAlert) Title() string      { return fmt.Sprintf("⚠️ %s API Rate Limit", a.API) }
func (a OperationalAlert) Body() string       { return a.Detail }
func (a OperationalAlert) Severity() Severity { return SeverityRateLimit }
func (a OperationalAlert) Broadcast() bool    { return false }
