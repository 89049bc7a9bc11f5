package facts

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ent0n29/tojibot/internal/logging"
	"github.com/ent0n29/tojibot/internal/observability"
)

const DefaultLimit = 3

// Accessor answers "which facts matter for this message". It never fails:
// store errors are logged and produce no facts.
type Accessor struct {
	store   Store
	limit   int
	timeout time.Duration
	logger  *zap.Logger
	metrics *observability.Metrics
}

type AccessorOption func(*Accessor)

func WithLimit(n int) AccessorOption {
	return func(a *Accessor) {
		if n > 0 {
			a.limit = n
		}
	}
}

func WithTimeout(d time.Duration) AccessorOption {
	return func(a *Accessor) { a.timeout = d }
}

func WithLogger(l *zap.Logger) AccessorOption {
	return func(a *Accessor) { a.logger = logging.OrNop(l) }
}

func WithMetrics(m *observability.Metrics) AccessorOption {
	return func(a *Accessor) { a.metrics = m }
}

func NewAccessor(store Store, opts ...AccessorOption) *Accessor {
	a := &Accessor{
		store:  store,
		limit:  DefaultLimit,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Relevant returns up to the configured limit of facts matching any keyword of
// input, or the first facts in storage order when input has no keywords.
func (a *Accessor) Relevant(ctx context.Context, input string) []string {
	keywords := Keywords(input)

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	found, err := a.store.Search(ctx, keywords, a.limit)
	if err != nil {
		a.metrics.ObserveFactLookup("error")
		a.logger.Error("fact lookup failed",
			zap.String("op", "facts.relevant"),
			zap.String("store", a.store.Backend()),
			zap.Int("keywords", len(keywords)),
			zap.Error(err))
		return []string{}
	}
	if len(found) > a.limit {
		found = found[:a.limit]
	}
	if len(found) == 0 {
		a.metrics.ObserveFactLookup("miss")
	} else {
		a.metrics.ObserveFactLookup("hit")
	}
	return found
}
