// Package events carries domain notifications to external brokers.
package events

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// RSVP record event types.
const (
	RSVPCreated = "rsvp.created"
	RSVPUpdated = "rsvp.updated"
	RSVPDeleted = "rsvp.deleted"
)

// RSVPEvent is the payload published for every RSVP write.
type RSVPEvent struct {
	Type        string    `json:"type"`
	RSVPID      string    `json:"rsvp_id"`
	UserID      string    `json:"user_id,omitempty"`
	SubmittedBy string    `json:"submitted_by,omitempty"`
	Attending   *bool     `json:"attending,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Emitter publishes best-effort: failures are logged and never returned.
type Emitter struct {
	pub Publisher
	log zerolog.Logger
}

// NewEmitter wraps pub. A nil pub discards events.
func NewEmitter(pub Publisher, log zerolog.Logger) *Emitter {
	if pub == nil {
		pub = Nop{}
	}
	return &Emitter{pub: pub, log: log}
}

// RSVP publishes ev keyed by its record id.
func (e *Emitter) RSVP(ctx context.Context, ev RSVPEvent) {
	if e == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	if err := e.pub.Publish(ctx, ev.RSVPID, ev); err != nil {
		e.log.Warn().Err(err).Str("type", ev.Type).Str("rsvp_id", ev.RSVPID).Msg("publish rsvp event failed")
	}
}
