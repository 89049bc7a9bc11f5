// Package llm sends a flattened prompt to a language model and returns the
// generated text.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Client produces one completion for one prompt.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Named is implemented by clients that can report their provider.
type Named interface {
	Provider() string
}

var ErrEmptyOutput = errors.New("llm: empty completion")

// StatusError is an upstream failure that carries the HTTP status code.
type StatusError struct {
	Provider string
	Code     int
	Message  string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s status %d", e.Provider, e.Code)
	}
	return fmt.Sprintf("%s status %d: %s", e.Provider, e.Code, e.Message)
}

func (e *StatusError) StatusCode() int { return e.Code }

// NormalizeOutput turns a provider result into text. It accepts a plain string,
// a map with a content/text/output field, or a value exposing one of those
// through a method. The second result is false when no text was found.
func NormalizeOutput(v any) (string, bool) {
	var out string
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		out = x
	case fmt.Stringer:
		out = x.String()
	case map[string]any:
		for _, k := range []string{"content", "text", "output"} {
			if s, ok := x[k].(string); ok && s != "" {
				out = s
				break
			}
		}
	case interface{ GetContent() string }:
		out = x.GetContent()
	default:
		return "", false
	}
	return out, strings.TrimSpace(out) != ""
}

func providerName(c Client) string {
	if n, ok := c.(Named); ok {
		return n.Provider()
	}
	return "unknown"
}
