// Package resolver maps raw server URLs reported by crawlers to stable
// server ids, with an in-process read-through cache.
package resolver

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/mfbot/hofwatch/internal/tracker"
)

// ServerStore is the storage side of identity resolution: an atomic
// get-or-create keyed on the canonical URL.
type ServerStore interface {
	UpsertServer(ctx context.Context, canonicalURL string) (tracker.ServerID, error)
}

// Resolver canonicalizes server URLs and caches their ids. Canonical URL to
// id is a permanent mapping, so the cache is never invalidated.
type Resolver struct {
	store ServerStore
	log   *zap.Logger

	mu  sync.RWMutex
	ids map[string]tracker.ServerID
}

// New creates a Resolver backed by the given store.
func New(store ServerStore, log *zap.Logger) *Resolver {
	return &Resolver{
		store: store,
		log:   log,
		ids:   make(map[string]tracker.ServerID),
	}
}

// Canonicalize normalizes a raw server URL: prepends https when the scheme
// is missing, forces https, keeps host (and port), and strips everything
// else. Unparseable or hostless input fails with tracker.ErrInvalidServer.
func Canonicalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty url", tracker.ErrInvalidServer)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", tracker.ErrInvalidServer, err)
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return "", fmt.Errorf("%w: scheme %q", tracker.ErrInvalidServer, u.Scheme)
	}
	host := strings.ToLower(u.Host)
	if host == "" {
		return "", fmt.Errorf("%w: missing host in %q", tracker.ErrInvalidServer, raw)
	}
	return "https://" + host, nil
}

// Resolve returns the stable id for a raw server URL, creating the server
// row on first sight. Concurrent first resolutions converge on one row via
// the store's upsert.
func (r *Resolver) Resolve(ctx context.Context, raw string) (tracker.ServerID, error) {
	canonical, err := Canonicalize(raw)
	if err != nil {
		return 0, err
	}

	r.mu.RLock()
	id, ok := r.ids[canonical]
	r.mu.RUnlock()
	if ok {
		return id, nil
	}

	id, err = r.store.UpsertServer(ctx, canonical)
	if err != nil {
		return 0, fmt.Errorf("resolve server %q: %w", canonical, err)
	}

	r.mu.Lock()
	// A racing resolver may have populated the entry meanwhile; both hold
	// the same id, so last write wins is fine.
	r.ids[canonical] = id
	r.mu.Unlock()

	r.log.Debug("server resolved", zap.String("url", canonical), zap.Int64("server_id", int64(id)))
	return id, nil
}
