package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RoleResolutions counts role lookups by outcome (admin, user, timeout, error).
	RoleResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wedding",
		Name:      "role_resolutions_total",
		Help:      "Role resolutions by outcome.",
	}, []string{"outcome"})

	// RSVPWrites counts RSVP record writes by operation and result.
	RSVPWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wedding",
		Name:      "rsvp_writes_total",
		Help:      "RSVP record writes by operation and result.",
	}, []string{"op", "result"})

	// MessagesSubmitted counts guest message submissions by result.
	MessagesSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wedding",
		Name:      "guest_messages_submitted_total",
		Help:      "Guest message submissions by result.",
	}, []string{"result"})

	// SessionEvents counts auth events published on the session hub.
	SessionEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wedding",
		Name:      "session_events_total",
		Help:      "Auth events published on the session hub.",
	}, []string{"type"})
)

// Result maps an error to a result label.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
