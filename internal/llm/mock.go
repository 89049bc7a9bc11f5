package llm

import (
	"context"
	"fmt"
	"strings"
)

// MockClient answers locally without a model. It echoes the last Input line of
// the prompt so runs are deterministic.
type MockClient struct{}

func NewMockClient() *MockClient { return &MockClient{} }

func (c *MockClient) Provider() string { return "mock" }

func (c *MockClient) Complete(ctx context.Context, prompt string) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	return buildMockReply(prompt), nil
}

func buildMockReply(prompt string) string {
	input := ""
	for _, line := range strings.Split(prompt, "\n") {
		if rest, ok := strings.CutPrefix(line, "Input: "); ok {
			input = rest
		}
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return "Say something worth my time."
	}
	return fmt.Sprintf("You said %q. Don't waste my time.", input)
}
