package tracker

import "errors"

// Error taxonomy surfaced to the transport layer. Storage failures are
// wrapped with %w at the call site rather than mapped to a sentinel.
var (
	// ErrInvalidServer marks a server URL that cannot be parsed or forced
	// to a secure scheme.
	ErrInvalidServer = errors.New("invalid server url")

	// ErrInvalidPlayer marks a structurally malformed player report.
	ErrInvalidPlayer = errors.New("invalid player report")

	// ErrInvalidScrapbook marks a malformed scrapbook payload.
	ErrInvalidScrapbook = errors.New("invalid scrapbook")

	// ErrInternal marks an invariant violation, e.g. an upsert that was
	// expected to return an id returned none.
	ErrInternal = errors.New("internal invariant violation")
)
