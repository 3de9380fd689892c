package postgres

import (
	"context"
	"fmt"

	"github.com/mfbot/hofwatch/internal/tracker"
)

const insertSnapshotSQL = `
INSERT INTO player_info (player_id, fetch_time, xp, level, honor,
                         soldier_advice, description_id, guild_id, otherplayer_resp_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// InsertSnapshot appends one immutable player_info row.
func (s *Store) InsertSnapshot(ctx context.Context, snap tracker.Snapshot) error {
	if _, err := s.db.Exec(ctx, insertSnapshotSQL,
		snap.PlayerID,
		snap.FetchTime,
		snap.XP,
		snap.Level,
		snap.Honor,
		snap.SoldierAdvice,
		snap.DescriptionID,
		snap.GuildID,
		snap.BlobID,
	); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// IsLatestSnapshot reports whether fetchTime is the newest snapshot for a
// player. Called inside the same transaction as the snapshot insert, it is
// the guard that keeps the equipment view from going backwards when reports
// land out of order.
func (s *Store) IsLatestSnapshot(ctx context.Context, playerID tracker.PlayerID, fetchTime int64) (bool, error) {
	var maxFetch int64
	err := s.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(fetch_time), 0) FROM player_info WHERE player_id = $1`,
		playerID).Scan(&maxFetch)
	if err != nil {
		return false, fmt.Errorf("latest snapshot check: %w", err)
	}
	return maxFetch == fetchTime, nil
}

// ReplaceEquipment swaps a player's current equipped-item set for the given
// ident list.
func (s *Store) ReplaceEquipment(ctx context.Context, serverID tracker.ServerID, playerID tracker.PlayerID, idents []int32) error {
	if _, err := s.db.Exec(ctx,
		`DELETE FROM equipment WHERE player_id = $1`, playerID); err != nil {
		return fmt.Errorf("clear equipment: %w", err)
	}
	if len(idents) == 0 {
		return nil
	}
	if _, err := s.db.Exec(ctx, `
INSERT INTO equipment (server_id, player_id, ident)
SELECT $1, $2, unnest($3::int[])`,
		serverID, playerID, idents); err != nil {
		return fmt.Errorf("insert equipment: %w", err)
	}
	return nil
}
