// Package archive persists raw report payloads outside the database, so the
// original crawler submissions survive even when only the compressed blob
// is kept relationally.
package archive

import "context"

// Provider defines the common interface for archive backends.
type Provider interface {
	// Store writes data under the given content key. Storing the same
	// key twice overwrites with identical content, so retries are safe.
	Store(ctx context.Context, key string, data []byte) error
	Close() error
}

// NoOp discards all payloads. Used when archival is not configured.
type NoOp struct{}

// Store for NoOp does nothing.
func (NoOp) Store(context.Context, string, []byte) error { return nil }

// Close for NoOp does nothing.
func (NoOp) Close() error { return nil }
