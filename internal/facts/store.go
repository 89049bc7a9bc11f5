// Package facts looks up character background facts relevant to a message.
package facts

import "context"

// Store holds fact texts in insertion order.
type Store interface {
	// Search returns up to limit facts containing any keyword as a
	// case-insensitive substring, in storage order. With no keywords it lists
	// facts unfiltered.
	Search(ctx context.Context, keywords []string, limit int) ([]string, error)
	Insert(ctx context.Context, facts []string) error
	// Exists reports whether some stored fact contains text.
	Exists(ctx context.Context, text string) (bool, error)
	Count(ctx context.Context) (int, error)
	Backend() string
	Close() error
}
