// Package session resolves the current identity for one consumer and keeps it
// current as auth events arrive.
package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"weddingsite/internal/model"
)

// Client is the auth collaborator: it turns a token into an identity.
type Client interface {
	GetSession(ctx context.Context, token string) (*model.Identity, error)
}

// Change is sent to resolver subscribers after the session was re-read.
type Change struct {
	Event EventType
	User  *model.Identity
}

// Resolver is one consumer's view of the session. It is created per request
// or per stream, initialised once, and torn down with Close.
type Resolver struct {
	client Client
	hub    *Hub
	token  string
	log    zerolog.Logger

	events      <-chan Event
	unsubscribe func()
	initOnce    sync.Once

	mu      sync.RWMutex
	loading bool
	user    *model.Identity
	closed  bool
	subs    map[int]chan Change
	next    int
}

// NewResolver creates a resolver for token. hub may be nil when the consumer
// only needs a single lookup.
func NewResolver(client Client, hub *Hub, token string, log zerolog.Logger) *Resolver {
	events, unsubscribe := hub.Subscribe()
	return &Resolver{
		client:      client,
		hub:         hub,
		token:       token,
		log:         log,
		events:      events,
		unsubscribe: unsubscribe,
		loading:     true,
		subs:        make(map[int]chan Change),
	}
}

// Init retrieves the session exactly once. A retrieval error is logged and
// treated as no session.
func (r *Resolver) Init(ctx context.Context) {
	r.initOnce.Do(func() {
		user := r.fetch(ctx)

		r.mu.Lock()
		defer r.mu.Unlock()
		if r.closed {
			return
		}
		r.user = user
		r.loading = false
	})
}

// Loading is true until the first retrieval completes.
func (r *Resolver) Loading() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loading
}

// CurrentUser returns the resolved identity or nil.
func (r *Resolver) CurrentUser() *model.Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.user
}

// Subscribe registers for session changes. The returned func unsubscribes.
func (r *Resolver) Subscribe() (<-chan Change, func()) {
	ch := make(chan Change, subscriberBuffer)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		close(ch)
		return ch, func() {}
	}
	id := r.next
	r.next++
	r.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if sub, ok := r.subs[id]; ok {
				delete(r.subs, id)
				close(sub)
			}
		})
	}
}

// Run consumes hub events until ctx ends or the resolver is closed. Events
// about the current identity trigger a fresh retrieval and a Change.
func (r *Resolver) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-r.events:
			if !ok {
				return
			}
			current := r.CurrentUser()
			if current == nil || current.ID != ev.UserID {
				continue
			}
			r.refresh(ctx, ev.Type)
		}
	}
}

// Close tears the resolver down. Results of in-flight retrievals are dropped.
func (r *Resolver) Close() {
	r.unsubscribe()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for id, ch := range r.subs {
		delete(r.subs, id)
		close(ch)
	}
}

func (r *Resolver) refresh(ctx context.Context, evType EventType) {
	user := r.fetch(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.user = user
	r.loading = false
	change := Change{Event: evType, User: user}
	for _, ch := range r.subs {
		select {
		case ch <- change:
		default:
		}
	}
}

func (r *Resolver) fetch(ctx context.Context) *model.Identity {
	if r.token == "" {
		return nil
	}
	user, err := r.client.GetSession(ctx, r.token)
	if err != nil {
		r.log.Warn().Err(err).Msg("session retrieval failed, treating as signed out")
		return nil
	}
	return user
}
