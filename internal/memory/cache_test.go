package memory

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ent0n29/tojibot/internal/observability"
)

type stubStore struct {
	*InMemoryStore

	loads   atomic.Int32
	saves   atomic.Int32
	loadErr error
	saveErr error
	gate    chan struct{}
}

func newStubStore() *stubStore {
	return &stubStore{InMemoryStore: NewInMemoryStore()}
}

func (s *stubStore) Load(ctx context.Context, userID string) (Record, bool, error) {
	s.loads.Add(1)
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return Record{}, false, ctx.Err()
		}
	}
	if s.loadErr != nil {
		return Record{}, false, s.loadErr
	}
	return s.InMemoryStore.Load(ctx, userID)
}

func (s *stubStore) Save(ctx context.Context, rec Record) error {
	s.saves.Add(1)
	if s.saveErr != nil {
		return s.saveErr
	}
	return s.InMemoryStore.Save(ctx, rec)
}

func seed(t *testing.T, s Store, userID string, turns ...Turn) {
	t.Helper()
	raw, err := EncodeHistory(turns)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), Record{UserID: userID, Data: raw}))
}

func TestCacheReturnsSameTranscriptForUser(t *testing.T) {
	c := NewCache(NewInMemoryStore())
	ctx := context.Background()

	a := c.GetOrCreate(ctx, "u1")
	b := c.GetOrCreate(ctx, "u1")
	other := c.GetOrCreate(ctx, "u2")

	assert.Same(t, a, b)
	assert.NotSame(t, a, other)
	assert.Equal(t, 2, c.Len())
}

func TestCacheHydratesStoredHistory(t *testing.T) {
	store := newStubStore()
	seed(t, store.InMemoryStore, "u1",
		Turn{Role: RoleHuman, Content: "hi"},
		Turn{Role: RoleAI, Content: "what"},
	)
	c := NewCache(store)

	tr := c.GetOrCreate(context.Background(), "u1")
	assert.Equal(t, []Turn{
		{Role: RoleHuman, Content: "hi"},
		{Role: RoleAI, Content: "what"},
	}, tr.Turns())

	// Later stored changes are not re-read.
	seed(t, store.InMemoryStore, "u1")
	tr.Append(Turn{Role: RoleHuman, Content: "again"})
	assert.Equal(t, 3, c.GetOrCreate(context.Background(), "u1").Len())
	assert.EqualValues(t, 1, store.loads.Load())
}

func TestCacheConcurrentFirstAccessLoadsOnce(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := newStubStore()
	store.gate = make(chan struct{})
	seed(t, store.InMemoryStore, "u1", Turn{Role: RoleHuman, Content: "x"}, Turn{Role: RoleAI, Content: "y"})
	c := NewCache(store)

	const callers = 16
	results := make([]*Transcript, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.GetOrCreate(context.Background(), "u1")
		}(i)
	}

	require.Eventually(t, func() bool { return store.loads.Load() >= 1 }, time.Second, 5*time.Millisecond)
	close(store.gate)
	wg.Wait()

	assert.EqualValues(t, 1, store.loads.Load())
	for _, tr := range results {
		assert.Same(t, results[0], tr)
	}
	assert.Equal(t, 2, results[0].Len())
}

func TestCacheLoadErrorYieldsEmptyTranscript(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	store := newStubStore()
	store.loadErr = errors.New("connection refused")
	metrics := observability.NewMetrics("tojibot_test")
	c := NewCache(store, WithLogger(zap.New(core)), WithMetrics(metrics))

	tr := c.GetOrCreate(context.Background(), "u1")
	require.NotNil(t, tr)
	assert.Zero(t, tr.Len())

	// The empty transcript stays cached; no retry on the next call.
	assert.Same(t, tr, c.GetOrCreate(context.Background(), "u1"))
	assert.EqualValues(t, 1, store.loads.Load())

	entries := logs.FilterMessage("load memory failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "u1", entries[0].ContextMap()["user_id"])
}

func TestCacheLoadHonoursTimeout(t *testing.T) {
	store := newStubStore()
	store.gate = make(chan struct{})
	c := NewCache(store, WithTimeout(20*time.Millisecond))

	start := time.Now()
	tr := c.GetOrCreate(context.Background(), "slow")
	assert.Zero(t, tr.Len())
	assert.Less(t, time.Since(start), time.Second)
}

func TestCacheCancelledCallerKeepsStoredHistory(t *testing.T) {
	store, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	defer store.Close()
	seed(t, store, "u1",
		Turn{Role: RoleHuman, Content: "q1"}, Turn{Role: RoleAI, Content: "a1"},
		Turn{Role: RoleHuman, Content: "q2"}, Turn{Role: RoleAI, Content: "a2"},
	)
	c := NewCache(store, WithTimeout(time.Second))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	tr := c.GetOrCreate(cancelled, "u1")
	assert.Equal(t, 4, tr.Len())
	assert.Same(t, tr, c.GetOrCreate(context.Background(), "u1"))

	tr.Append(Turn{Role: RoleHuman, Content: "new q"}, Turn{Role: RoleAI, Content: "new a"})
	require.NoError(t, c.Persist(cancelled, "u1", tr))

	rec, found, err := store.Load(context.Background(), "u1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, DecodeHistory(rec.Data), 6)
}

func TestCacheReloadsAfterFailureWithCancelledCaller(t *testing.T) {
	store := newStubStore()
	seed(t, store.InMemoryStore, "u1", Turn{Role: RoleHuman, Content: "x"}, Turn{Role: RoleAI, Content: "y"})
	store.loadErr = errors.New("connection reset")
	c := NewCache(store)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	first := c.GetOrCreate(cancelled, "u1")
	assert.Zero(t, first.Len())
	assert.Zero(t, c.Len())

	store.loadErr = nil
	second := c.GetOrCreate(context.Background(), "u1")
	assert.NotSame(t, first, second)
	assert.Equal(t, 2, second.Len())
	assert.EqualValues(t, 2, store.loads.Load())
	assert.Same(t, second, c.GetOrCreate(context.Background(), "u1"))
}

func TestCachePersistWritesFullTranscript(t *testing.T) {
	store := newStubStore()
	c := NewCache(store)
	ctx := context.Background()

	tr := c.GetOrCreate(ctx, "u1")
	tr.Append(Turn{Role: RoleHuman, Content: "q"}, Turn{Role: RoleAI, Content: "a"})
	require.NoError(t, c.Persist(ctx, "u1", tr))

	rec, found, err := store.InMemoryStore.Load(ctx, "u1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, tr.Turns(), DecodeHistory(rec.Data))
	assert.False(t, rec.UpdatedAt.IsZero())
}

func TestCachePersistFailureKeepsTurns(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	store := newStubStore()
	store.saveErr = errors.New("disk full")
	c := NewCache(store, WithLogger(zap.New(core)))
	ctx := context.Background()

	tr := c.GetOrCreate(ctx, "u1")
	tr.Append(Turn{Role: RoleHuman, Content: "q"}, Turn{Role: RoleAI, Content: "a"})

	err := c.Persist(ctx, "u1", tr)
	require.ErrorIs(t, err, store.saveErr)
	assert.Equal(t, 2, c.GetOrCreate(ctx, "u1").Len())
	assert.Equal(t, 1, logs.FilterMessage("save memory failed").Len())
}
