// Package ingest absorbs crawler reports: it validates and parses player
// payloads, decides when each player is due again, deduplicates stored
// content and keeps the current equipment view consistent under
// out-of-order delivery.
package ingest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mfbot/hofwatch/internal/archive"
	"github.com/mfbot/hofwatch/internal/blob"
	"github.com/mfbot/hofwatch/internal/game"
	"github.com/mfbot/hofwatch/internal/metrics"
	"github.com/mfbot/hofwatch/internal/publisher"
	"github.com/mfbot/hofwatch/internal/storage/postgres"
	"github.com/mfbot/hofwatch/internal/tracker"
)

// Pipeline runs the report ingestion state machine against the store.
type Pipeline struct {
	store    *postgres.Store
	resolver tracker.Resolver
	blobs    *blob.Codec
	clock    tracker.Clock
	rng      tracker.Rand
	events   publisher.Provider
	archive  archive.Provider
	log      *zap.Logger
}

// New creates a Pipeline.
func New(
	store *postgres.Store,
	res tracker.Resolver,
	blobs *blob.Codec,
	clock tracker.Clock,
	rng tracker.Rand,
	events publisher.Provider,
	arch archive.Provider,
	log *zap.Logger,
) *Pipeline {
	return &Pipeline{
		store:    store,
		resolver: res,
		blobs:    blobs,
		clock:    clock,
		rng:      rng,
		events:   events,
		archive:  arch,
		log:      log,
	}
}

// ReportPlayers ingests a batch of player reports. Each report is handled
// independently: one player's failure is logged and skipped, never aborting
// the rest of the batch.
func (p *Pipeline) ReportPlayers(ctx context.Context, reports []tracker.RawOtherPlayer) {
	for _, report := range reports {
		outcome, err := p.reportOne(ctx, report)
		metrics.ObserveReport(string(outcome))
		if err != nil {
			p.log.Warn("player report rejected",
				zap.String("player", report.Name),
				zap.String("server", report.Server),
				zap.String("outcome", string(outcome)),
				zap.Error(err),
			)
			continue
		}
		if outcome == tracker.OutcomeStale {
			p.log.Debug("stale player report discarded",
				zap.String("player", report.Name),
				zap.String("server", report.Server),
			)
		}
	}
}

func (p *Pipeline) reportOne(ctx context.Context, report tracker.RawOtherPlayer) (tracker.ReportOutcome, error) {
	parsed, err := game.ParseOtherPlayer(report.Info)
	if err != nil {
		return tracker.OutcomeInvalid, err
	}
	fetch, err := time.Parse(time.RFC3339, report.FetchDate)
	if err != nil {
		return tracker.OutcomeInvalid, fmt.Errorf("%w: fetch_date: %v", tracker.ErrInvalidPlayer, err)
	}
	fetch = fetch.UTC()
	// crawler clocks drift; a future-dated report is treated as "now"
	if now := p.clock.Now(); fetch.After(now) {
		fetch = now
	}
	if report.Name == "" {
		return tracker.OutcomeInvalid, fmt.Errorf("%w: empty name", tracker.ErrInvalidPlayer)
	}

	serverID, err := p.resolver.Resolve(ctx, report.Server)
	if err != nil {
		return tracker.OutcomeInvalid, err
	}

	compressed := p.blobs.Encode([]byte(report.Info))
	if err := p.archive.Store(ctx, compressed.Hash, []byte(report.Info)); err != nil {
		// archival is best-effort; the relational blob is authoritative
		p.log.Warn("raw report archival failed", zap.String("hash", compressed.Hash), zap.Error(err))
	}

	outcome := tracker.OutcomeAccepted
	err = p.store.InTx(ctx, func(tx *postgres.Store) error {
		existing, err := tx.GetPlayerForUpdate(ctx, serverID, report.Name)
		if err != nil {
			return err
		}

		fetchTime := fetch.Unix()
		if existing != nil && fetchTime <= existing.LastReported {
			outcome = tracker.OutcomeStale
			return nil
		}

		changed := existing == nil ||
			existing.Level != parsed.Level ||
			existing.XP != parsed.Experience ||
			existing.Attributes != parsed.Attributes

		lastChanged := fetchTime
		var next time.Time
		switch {
		case existing == nil:
			// first sight: the activity tiers start from this report
			next = nextAttempt(fetch, false, fetch, p.rng)
		case changed:
			next = nextAttempt(fetch, true, fetch, p.rng)
		default:
			lastChanged = existing.LastChanged
			next = nextAttempt(fetch, false, time.Unix(existing.LastChanged, 0).UTC(), p.rng)
		}

		playerID, err := tx.UpsertPlayer(ctx, tracker.PlayerRow{
			ServerID:          serverID,
			Name:              report.Name,
			Level:             parsed.Level,
			XP:                parsed.Experience,
			Attributes:        parsed.Attributes,
			Honor:             parsed.Honor,
			EquipCount:        parsed.EquipCount,
			NextReportAttempt: next.Unix(),
			LastReported:      fetchTime,
			LastChanged:       lastChanged,
		})
		if err != nil {
			return err
		}

		snap := tracker.Snapshot{
			PlayerID:      playerID,
			FetchTime:     fetchTime,
			XP:            parsed.Experience,
			Level:         parsed.Level,
			Honor:         parsed.Honor,
			SoldierAdvice: report.SoldierAdvice,
		}
		if report.Guild != nil && *report.Guild != "" {
			guildID, err := tx.UpsertGuild(ctx, serverID, *report.Guild)
			if err != nil {
				return err
			}
			snap.GuildID = &guildID
		}
		if report.Description != nil {
			descID, err := tx.UpsertDescription(ctx, *report.Description)
			if err != nil {
				return err
			}
			snap.DescriptionID = &descID
		}
		snap.BlobID, err = tx.UpsertBlob(ctx, compressed.Hash, compressed.Data)
		if err != nil {
			return err
		}

		if err := tx.InsertSnapshot(ctx, snap); err != nil {
			return err
		}

		// Only the newest snapshot may rewrite the equipment view; a
		// late report that passed the last_reported check must not
		// clobber a fresher one committed meanwhile.
		latest, err := tx.IsLatestSnapshot(ctx, playerID, fetchTime)
		if err != nil {
			return err
		}
		if latest {
			return tx.ReplaceEquipment(ctx, serverID, playerID, parsed.EquipIdents)
		}
		return nil
	})
	if err != nil {
		return tracker.OutcomeError, err
	}

	if outcome == tracker.OutcomeAccepted {
		if err := p.events.Publish(ctx, publisher.Event{
			Kind:   publisher.KindReportAccepted,
			Server: report.Server,
			Player: report.Name,
			Time:   fetch.Unix(),
		}); err != nil {
			p.log.Warn("event publish failed", zap.Error(err))
		}
	}
	return outcome, nil
}

// ReportHof ingests one bulk hall-of-fame report: per page, newly seen
// players are inserted and the page's todo row is retired, each page in its
// own transaction. Storage errors abort the remaining pages.
func (p *Pipeline) ReportHof(ctx context.Context, server string, pages map[int]string) error {
	serverID, err := p.resolver.Resolve(ctx, server)
	if err != nil {
		return err
	}

	indices := make([]int, 0, len(pages))
	for idx := range pages {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	var discovered int64
	for _, idx := range indices {
		entries, malformed := game.ParseHofListing(pages[idx])
		if malformed > 0 {
			p.log.Warn("malformed hof entries skipped",
				zap.Int64("server_id", int64(serverID)),
				zap.Int("page", idx),
				zap.Int("count", malformed),
			)
		}
		err := p.store.InTx(ctx, func(tx *postgres.Store) error {
			inserted, err := tx.BulkInsertHofPlayers(ctx, serverID, entries)
			if err != nil {
				return err
			}
			discovered += inserted
			// the page is complete even if every entry was known or broken
			return tx.CompleteHofPage(ctx, serverID, idx)
		})
		if err != nil {
			return fmt.Errorf("ingest hof page %d: %w", idx, err)
		}
	}

	if discovered > 0 {
		metrics.ObserveHofPlayersDiscovered(discovered)
		if err := p.events.Publish(ctx, publisher.Event{
			Kind:   publisher.KindPlayersDiscovered,
			Server: server,
			Count:  discovered,
			Time:   p.clock.Now().Unix(),
		}); err != nil {
			p.log.Warn("event publish failed", zap.Error(err))
		}
	}
	return nil
}
