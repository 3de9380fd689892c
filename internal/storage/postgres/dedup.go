package postgres

import (
	"context"
	"fmt"

	"github.com/mfbot/hofwatch/internal/tracker"
)

// The get-or-create statements below share one shape: INSERT, and on
// conflict perform a no-op update so RETURNING always yields the id of the
// surviving row. The unique constraint makes this safe under any number of
// concurrent callers.

const upsertDescriptionSQL = `
INSERT INTO description (description)
VALUES ($1)
ON CONFLICT (description) DO UPDATE SET description = EXCLUDED.description
RETURNING description_id`

// UpsertDescription dedups a free-text description, keyed on the exact text.
func (s *Store) UpsertDescription(ctx context.Context, text string) (int64, error) {
	var id int64
	if err := s.db.QueryRow(ctx, upsertDescriptionSQL, text).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert description: %w", err)
	}
	return id, nil
}

const upsertBlobSQL = `
INSERT INTO otherplayer_resp (hash, otherplayer_resp)
VALUES ($1, $2)
ON CONFLICT (hash) DO UPDATE SET hash = EXCLUDED.hash
RETURNING otherplayer_resp_id`

// UpsertBlob stores a compressed report payload once per content hash.
func (s *Store) UpsertBlob(ctx context.Context, hash string, data []byte) (int64, error) {
	var id int64
	if err := s.db.QueryRow(ctx, upsertBlobSQL, hash, data).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert blob: %w", err)
	}
	return id, nil
}

const upsertGuildSQL = `
INSERT INTO guild (server_id, name)
VALUES ($1, $2)
ON CONFLICT (server_id, name) DO UPDATE SET is_removed = FALSE
RETURNING guild_id`

// UpsertGuild gets or creates a guild, resurrecting a soft-removed one.
func (s *Store) UpsertGuild(ctx context.Context, serverID tracker.ServerID, name string) (int64, error) {
	var id int64
	if err := s.db.QueryRow(ctx, upsertGuildSQL, serverID, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert guild: %w", err)
	}
	return id, nil
}
