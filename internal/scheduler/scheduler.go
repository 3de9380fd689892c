// Package scheduler decides which players and hall-of-fame pages are due
// for a recrawl and hands them out via expiring leases.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mfbot/hofwatch/internal/metrics"
	"github.com/mfbot/hofwatch/internal/tracker"
)

// Store is the persistence behind both work queues. Claims and the reseed
// right are single atomic statements on the storage side; the scheduler
// never decomposes them into read-then-write.
type Store interface {
	ClaimDuePlayers(ctx context.Context, serverID tracker.ServerID, now, until int64, limit int) ([]string, error)
	ClaimHofReseed(ctx context.Context, serverID tracker.ServerID, now, cutoff int64) (bool, error)
	ReseedHofPages(ctx context.Context, serverID tracker.ServerID, pageCount int) error
	ClaimDueHofPages(ctx context.Context, serverID tracker.ServerID, now, until int64, limit int) ([]int, error)
}

// Config carries the lease windows and claim bounds.
type Config struct {
	PlayerLease time.Duration // how long a claimed player stays leased
	HofLease    time.Duration // how long a claimed page stays leased
	HofCycle    time.Duration // full hall-of-fame recrawl cadence
	ClaimCap    int           // server-side cap on claim batch size
	HofPageSize int           // listing entries per hall-of-fame page
}

// Scheduler serves claims for both work queues.
type Scheduler struct {
	store Store
	clock tracker.Clock
	cfg   Config
	log   *zap.Logger
}

// New creates a Scheduler.
func New(store Store, clock tracker.Clock, cfg Config, log *zap.Logger) *Scheduler {
	return &Scheduler{store: store, clock: clock, cfg: cfg, log: log}
}

// ClaimPlayers leases up to limit due players of a server and returns their
// names. The lease pushes next_report_attempt forward so a concurrent call
// cannot re-claim the same rows.
func (s *Scheduler) ClaimPlayers(ctx context.Context, serverID tracker.ServerID, limit int) ([]string, error) {
	limit = s.capLimit(limit)
	now := s.clock.Now().Unix()
	until := now + int64(s.cfg.PlayerLease/time.Second)

	names, err := s.store.ClaimDuePlayers(ctx, serverID, now, until, limit)
	if err != nil {
		return nil, fmt.Errorf("claim players: %w", err)
	}
	metrics.ObservePlayersClaimed(len(names))
	s.log.Debug("players claimed",
		zap.Int64("server_id", int64(serverID)),
		zap.Int("count", len(names)),
	)
	return names, nil
}

// ClaimHofPages leases up to limit due hall-of-fame page tasks. When the
// server's last full crawl is older than the cycle TTL, the page list is
// regenerated first; the conditional update on last_hof_crawl guarantees
// exactly one concurrent caller performs the reseed.
func (s *Scheduler) ClaimHofPages(ctx context.Context, serverID tracker.ServerID, playerCount, limit int) ([]int, error) {
	limit = s.capLimit(limit)
	now := s.clock.Now().Unix()
	cutoff := now - int64(s.cfg.HofCycle/time.Second)

	won, err := s.store.ClaimHofReseed(ctx, serverID, now, cutoff)
	if err != nil {
		return nil, fmt.Errorf("claim hof reseed: %w", err)
	}
	if won {
		pageCount := (playerCount + s.cfg.HofPageSize - 1) / s.cfg.HofPageSize
		if err := s.store.ReseedHofPages(ctx, serverID, pageCount); err != nil {
			return nil, fmt.Errorf("reseed hof pages: %w", err)
		}
		metrics.ObserveHofReseed()
		s.log.Info("hof page list reseeded",
			zap.Int64("server_id", int64(serverID)),
			zap.Int("pages", pageCount),
		)
	}

	until := now + int64(s.cfg.HofLease/time.Second)
	pages, err := s.store.ClaimDueHofPages(ctx, serverID, now, until, limit)
	if err != nil {
		return nil, fmt.Errorf("claim hof pages: %w", err)
	}
	metrics.ObserveHofPagesClaimed(len(pages))
	return pages, nil
}

func (s *Scheduler) capLimit(limit int) int {
	if limit <= 0 || limit > s.cfg.ClaimCap {
		return s.cfg.ClaimCap
	}
	return limit
}
