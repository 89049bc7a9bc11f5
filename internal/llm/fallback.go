package llm

import (
	"context"
	"errors"
	"fmt"
)

// FallbackClient tries the primary client first and the secondary one when
// the primary fails for any reason other than caller cancellation.
type FallbackClient struct {
	primary  Client
	fallback Client
}

func NewFallbackClient(primary, fallback Client) *FallbackClient {
	return &FallbackClient{primary: primary, fallback: fallback}
}

func (c *FallbackClient) Primary() Client   { return c.primary }
func (c *FallbackClient) Secondary() Client { return c.fallback }

func (c *FallbackClient) Provider() string {
	return providerName(c.primary) + "+" + providerName(c.fallback)
}

func (c *FallbackClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c.primary == nil {
		if c.fallback != nil {
			return c.fallback.Complete(ctx, prompt)
		}
		return "", errors.New("fallback client misconfigured")
	}

	out, err := c.primary.Complete(ctx, prompt)
	if err == nil {
		return out, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || c.fallback == nil {
		return "", err
	}

	out, fbErr := c.fallback.Complete(ctx, prompt)
	if fbErr != nil {
		return "", fmt.Errorf("primary client error: %w; fallback client error: %v", err, fbErr)
	}
	return out, nil
}
