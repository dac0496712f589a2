package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps redis.Client but fails safe by swallowing connectivity errors.
// Without a redis address it keeps values in process memory instead, which is
// enough for a single instance and for tests. A nil *Client behaves like an
// always-empty cache.
type Client struct {
	client *redis.Client
	local  *memoryStore
}

// New creates a new Redis client. An empty addr yields an in-memory client.
func New(addr, password string, db int) *Client {
	if addr == "" {
		return NewMemory()
	}
	opts := &redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}
	return &Client{client: redis.NewClient(opts)}
}

// Connect creates a client for addr and checks that redis answers. When it
// does not, the returned client keeps values in memory and the ping error is
// returned alongside it for logging.
func Connect(ctx context.Context, addr, password string, db int) (*Client, error) {
	c := New(addr, password, db)
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return NewMemory(), err
	}
	return c, nil
}

// NewMemory creates a process-local client.
func NewMemory() *Client {
	return &Client{local: newMemoryStore()}
}

// Get returns value or nil if missing or redis unavailable.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	if c.client == nil {
		return c.local.get(key), nil
	}
	res, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		// fail safe: behave like cache miss
		return nil, nil
	}
	return res, nil
}

// Set stores value with TTL, ignoring redis errors.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c == nil {
		return nil
	}
	if c.client == nil {
		c.local.set(key, value, ttl)
		return nil
	}
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		// fail safe: ignore redis errors
		return nil
	}
	return nil
}

// Delete removes a key, ignoring redis errors.
func (c *Client) Delete(ctx context.Context, key string) error {
	if c == nil {
		return nil
	}
	if c.client == nil {
		c.local.delete(key)
		return nil
	}
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return nil
	}
	return nil
}

// Publish sends payload on a Redis channel, ignoring redis errors. In-memory
// clients have nobody to publish to.
func (c *Client) Publish(ctx context.Context, channel string, payload []byte) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Publish(ctx, channel, payload).Err(); err != nil {
		return nil
	}
	return nil
}

// Subscribe streams payloads published on channel until ctx ends or the
// returned cancel func is called. Without redis the channel never delivers.
func (c *Client) Subscribe(ctx context.Context, channel string) (<-chan []byte, func()) {
	out := make(chan []byte, 16)
	if c == nil || c.client == nil {
		return out, func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := c.client.Subscribe(ctx, channel)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				default:
				}
			}
		}
	}()
	return out, cancel
}

// Distributed reports whether values are shared through redis.
func (c *Client) Distributed() bool {
	return c != nil && c.client != nil
}

// Ping reports whether redis is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

type memoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (s *memoryStore) get(key string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return nil
	}
	return append([]byte(nil), e.value...)
}

func (s *memoryStore) set(key string, value []byte, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.entries[key] = e
}

func (s *memoryStore) delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}
