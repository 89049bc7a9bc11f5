package llm

import (
	"fmt"
	"testing"

	"github.com/ent0n29/tojibot/internal/reliability"
)

type contentValue struct{ s string }

func (c contentValue) GetContent() string { return c.s }

func TestNormalizeOutput(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		want   string
		wantOK bool
	}{
		{name: "nil", in: nil},
		{name: "string", in: "Yo.", want: "Yo.", wantOK: true},
		{name: "blank string", in: "  \n", want: "  \n"},
		{name: "content field", in: map[string]any{"content": "hi"}, want: "hi", wantOK: true},
		{name: "text field", in: map[string]any{"text": "hey"}, want: "hey", wantOK: true},
		{name: "content preferred", in: map[string]any{"text": "b", "content": "a"}, want: "a", wantOK: true},
		{name: "non string content", in: map[string]any{"content": 3}},
		{name: "content method", in: contentValue{s: "via method"}, want: "via method", wantOK: true},
		{name: "stringer", in: stringer("str"), want: "str", wantOK: true},
		{name: "unsupported", in: 42},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := NormalizeOutput(tc.in)
			if got != tc.want || ok != tc.wantOK {
				t.Fatalf("NormalizeOutput(%v) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

type stringer string

func (s stringer) String() string { return string(s) }

func TestStatusErrorIsRetryable(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &StatusError{Provider: "groq", Code: 429})
	if !reliability.IsRetryable(err) {
		t.Fatalf("429 should be retryable")
	}
	if reliability.IsRetryable(&StatusError{Provider: "groq", Code: 401}) {
		t.Fatalf("401 should not be retryable")
	}
}

func TestMockClientEchoesInput(t *testing.T) {
	out, err := NewMockClient().Complete(t.Context(), "Facts: \nHistory: \nInput: who are you\nToji:")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if out != `You said "who are you". Don't waste my time.` {
		t.Fatalf("Complete() = %q", out)
	}
}
