package session

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"weddingsite/internal/cache"
	"weddingsite/internal/metrics"
)

// EventType names an auth state change.
type EventType string

const (
	SignedIn         EventType = "signed_in"
	SignedOut        EventType = "signed_out"
	TokenRefreshed   EventType = "token_refreshed"
	UserUpdated      EventType = "user_updated"
	PasswordRecovery EventType = "password_recovery"
)

// DefaultChannel is the redis channel auth events are bridged on.
const DefaultChannel = "wedding:session_events"

const subscriberBuffer = 8

// Event is one auth state change for one identity.
type Event struct {
	Type   EventType `json:"type"`
	UserID uuid.UUID `json:"user_id"`
	Origin string    `json:"origin,omitempty"`
}

// Hub fans auth events out to every subscriber in the process. Delivery never
// blocks a publisher: a subscriber whose buffer is full misses the event.
// When the cache is backed by redis the hub also bridges events between
// instances and ignores its own echoes.
type Hub struct {
	id      string
	bus     *cache.Client
	channel string
	log     zerolog.Logger

	mu     sync.Mutex
	subs   map[int]chan Event
	next   int
	closed bool
	stop   func()
}

// NewHub creates a hub. bus may be nil for a process-local hub.
func NewHub(bus *cache.Client, log zerolog.Logger) *Hub {
	return &Hub{
		id:      uuid.NewString(),
		bus:     bus,
		channel: DefaultChannel,
		log:     log,
		subs:    make(map[int]chan Event),
		stop:    func() {},
	}
}

// Start begins relaying events from other instances. It is a no-op without redis.
func (h *Hub) Start(ctx context.Context) {
	if !h.bus.Distributed() {
		return
	}
	msgs, cancel := h.bus.Subscribe(ctx, h.channel)

	h.mu.Lock()
	h.stop = cancel
	h.mu.Unlock()

	go func() {
		for raw := range msgs {
			var ev Event
			if err := json.Unmarshal(raw, &ev); err != nil {
				h.log.Warn().Err(err).Msg("drop malformed session event")
				continue
			}
			if ev.Origin == h.id {
				continue
			}
			h.deliver(ev)
		}
	}()
}

// Publish delivers ev locally and, when bridged, to other instances.
func (h *Hub) Publish(ctx context.Context, ev Event) {
	if h == nil {
		return
	}
	ev.Origin = h.id
	metrics.SessionEvents.WithLabelValues(string(ev.Type)).Inc()
	h.deliver(ev)

	if h.bus.Distributed() {
		payload, err := json.Marshal(ev)
		if err != nil {
			h.log.Warn().Err(err).Msg("marshal session event")
			return
		}
		_ = h.bus.Publish(ctx, h.channel, payload)
	}
}

// Subscribe registers an observer. The returned func unsubscribes and closes
// the channel; calling it more than once is safe.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	if h == nil {
		close(ch)
		return ch, func() {}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.next
	h.next++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub)
			}
		})
	}
}

// Close stops the bridge and closes every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	h.stop()
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}

func (h *Hub) deliver(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.log.Debug().Str("type", string(ev.Type)).Msg("session subscriber lagging, event dropped")
		}
	}
}
