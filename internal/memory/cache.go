package memory

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/ent0n29/tojibot/internal/logging"
	"github.com/ent0n29/tojibot/internal/observability"
)

// Cache is the process-wide map from user id to transcript. Each user's
// transcript is hydrated from the store on first reference and kept for the
// life of the process; entries are never evicted.
type Cache struct {
	store   Store
	logger  *zap.Logger
	metrics *observability.Metrics
	timeout time.Duration
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*Transcript
	loads   singleflight.Group
}

type CacheOption func(*Cache)

func WithLogger(l *zap.Logger) CacheOption {
	return func(c *Cache) { c.logger = logging.OrNop(l) }
}

func WithMetrics(m *observability.Metrics) CacheOption {
	return func(c *Cache) { c.metrics = m }
}

// WithTimeout bounds each load and save; zero leaves the caller's context as is.
func WithTimeout(d time.Duration) CacheOption {
	return func(c *Cache) { c.timeout = d }
}

func NewCache(store Store, opts ...CacheOption) *Cache {
	c := &Cache{
		store:   store,
		logger:  zap.NewNop(),
		now:     func() time.Time { return time.Now().UTC() },
		entries: make(map[string]*Transcript),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrCreate returns the transcript for userID, hydrating it from the store
// the first time the user is seen. Concurrent first callers share a single
// load. Load failures are logged and yield an empty transcript. The load
// outlives the caller's cancellation; if it fails while the caller is gone
// the empty transcript is not cached, so the next call loads again.
func (c *Cache) GetOrCreate(ctx context.Context, userID string) *Transcript {
	if t, ok := c.lookup(userID); ok {
		return t
	}

	v, _, _ := c.loads.Do(userID, func() (any, error) {
		if t, ok := c.lookup(userID); ok {
			return t, nil
		}
		turns, err := c.hydrate(ctx, userID)
		t := NewTranscript(turns...)
		if err != nil && ctx.Err() != nil {
			return t, nil
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if existing, ok := c.entries[userID]; ok {
			return existing, nil
		}
		c.entries[userID] = t
		c.metrics.SetCachedTranscripts(len(c.entries))
		return t, nil
	})
	return v.(*Transcript)
}

// Persist overwrites the stored record for userID with the full transcript.
// The error is logged here and returned so callers can count it; the
// in-memory transcript stays authoritative either way.
func (c *Cache) Persist(ctx context.Context, userID string, t *Transcript) error {
	raw, err := EncodeHistory(t.Turns())
	if err != nil {
		c.logger.Error("encode transcript failed",
			zap.String("op", "memory.persist"), zap.String("user_id", userID), zap.Error(err))
		return err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	err = c.store.Save(ctx, Record{UserID: userID, Data: raw, UpdatedAt: c.now()})
	c.metrics.ObserveStoreOp(c.store.Backend(), "save", err)
	if err != nil {
		c.logger.Error("save memory failed",
			zap.String("op", "memory.persist"),
			zap.String("user_id", userID),
			zap.String("store", c.store.Backend()),
			zap.Error(err))
		return err
	}
	return nil
}

// Len reports how many users have a cached transcript.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) lookup(userID string) (*Transcript, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.entries[userID]
	return t, ok
}

func (c *Cache) hydrate(ctx context.Context, userID string) ([]Turn, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	rec, found, err := c.store.Load(ctx, userID)
	c.metrics.ObserveStoreOp(c.store.Backend(), "load", err)
	if err != nil {
		c.metrics.ObserveHydration("error")
		c.logger.Error("load memory failed",
			zap.String("op", "memory.hydrate"),
			zap.String("user_id", userID),
			zap.String("store", c.store.Backend()),
			zap.Error(err))
		return nil, err
	}
	if !found {
		c.metrics.ObserveHydration("absent")
		return nil, nil
	}
	turns := DecodeHistory(rec.Data)
	c.metrics.ObserveHydration("found")
	c.logger.Debug("transcript hydrated",
		zap.String("user_id", userID), zap.Int("turns", len(turns)))
	return turns, nil
}

// withTimeout detaches store calls from the caller's cancellation and bounds
// them by the store timeout instead. A departed client must not cut a load or
// save short.
func (c *Cache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}
