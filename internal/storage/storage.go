// Package storage defines the seen-post store and its implementations.
package storage

import "context"

// SeenStore is the durable record of post ids that have already been
// forwarded. Implementations keep an in-memory mirror hydrated at open
// so Contains is a pure lookup.
type SeenStore interface {
	// Contains reports whether a post id has already been forwarded.
	// It never errors; a store that failed to read treats the id as
	// not seen, favoring a duplicate notification over silent loss.
	Contains(id string) bool

	// MarkSeen durably records a post id. Recording an id that is
	// already present is a no-op, not an error. When MarkSeen returns
	// nil the id is on stable storage and will never be re-forwarded.
	MarkSeen(ctx context.Context, id string) error

	// LoadAll returns every recorded id. An empty or missing backing
	// store yields an empty set.
	LoadAll(ctx context.Context) ([]string, error)

	Close() error
}
