package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mfbot/hofwatch/internal/tracker"
)

// The no-op DO UPDATE makes the statement return the existing id on
// conflict, so concurrent first-sights of a server converge on one row.
const upsertServerSQL = `
INSERT INTO server (url)
VALUES ($1)
ON CONFLICT (url) DO UPDATE SET url = EXCLUDED.url
RETURNING server_id`

// UpsertServer gets or creates the server row for a canonical URL.
func (s *Store) UpsertServer(ctx context.Context, canonicalURL string) (tracker.ServerID, error) {
	var id tracker.ServerID
	if err := s.db.QueryRow(ctx, upsertServerSQL, canonicalURL).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// RETURNING on an upsert always yields a row
			return 0, fmt.Errorf("upsert server: %w", tracker.ErrInternal)
		}
		return 0, fmt.Errorf("upsert server: %w", err)
	}
	return id, nil
}

// ClaimHofReseed atomically takes the right to regenerate a server's
// hall-of-fame page list. The conditional update doubles as a mutex: of any
// number of concurrent callers at cycle expiry, exactly one sees a row
// updated and wins.
func (s *Store) ClaimHofReseed(ctx context.Context, serverID tracker.ServerID, now, cutoff int64) (bool, error) {
	tag, err := s.db.Exec(ctx, `
UPDATE server
SET last_hof_crawl = $2
WHERE server_id = $1 AND last_hof_crawl < $3`,
		serverID, now, cutoff)
	if err != nil {
		return false, fmt.Errorf("claim hof reseed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
