package llm

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ent0n29/tojibot/internal/logging"
	"github.com/ent0n29/tojibot/internal/reliability"
)

const (
	defaultRetryBase = 250 * time.Millisecond
	defaultRetryCap  = 4 * time.Second
)

// RetryClient retries transient upstream failures with capped exponential
// backoff.
type RetryClient struct {
	next       Client
	maxRetries int
	base       time.Duration
	cap        time.Duration
	logger     *zap.Logger
}

func NewRetryClient(next Client, maxRetries int, logger *zap.Logger) *RetryClient {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &RetryClient{
		next:       next,
		maxRetries: maxRetries,
		base:       defaultRetryBase,
		cap:        defaultRetryCap,
		logger:     logging.OrNop(logger),
	}
}

func (c *RetryClient) Provider() string { return providerName(c.next) }

func (c *RetryClient) Complete(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			wait := reliability.ExponentialBackoff(attempt-1, c.base, c.cap)
			c.logger.Warn("retrying completion",
				zap.String("provider", c.Provider()),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", wait),
				zap.Error(lastErr))
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", ctx.Err()
			case <-timer.C:
			}
		}

		out, err := c.next.Complete(ctx, prompt)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !reliability.IsRetryable(err) {
			return "", err
		}
	}
	return "", lastErr
}
