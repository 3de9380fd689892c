package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mfbot/hofwatch/internal/tracker"
)

// Select-and-lease in one statement: two concurrent callers can never claim
// the same row, and SKIP LOCKED keeps them from serializing on each other.
const claimPlayersSQL = `
UPDATE player
SET next_report_attempt = $1
WHERE player_id IN (
	SELECT player_id
	FROM player
	WHERE server_id = $2
	  AND next_report_attempt < $3
	  AND NOT is_removed
	LIMIT $4
	FOR UPDATE SKIP LOCKED
)
RETURNING name`

// ClaimDuePlayers leases up to limit due players of a server until the
// given deadline and returns their names.
func (s *Store) ClaimDuePlayers(ctx context.Context, serverID tracker.ServerID, now, until int64, limit int) ([]string, error) {
	rows, err := s.db.Query(ctx, claimPlayersSQL, until, serverID, now, limit)
	if err != nil {
		return nil, fmt.Errorf("claim due players: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan claimed player: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim due players: %w", err)
	}
	return names, nil
}

const getPlayerForUpdateSQL = `
SELECT player_id, server_id, name, level, xp, attributes, honor, equip_count,
       next_report_attempt, last_reported, last_changed, is_removed
FROM player
WHERE server_id = $1 AND name = $2
FOR UPDATE`

// GetPlayerForUpdate loads a player row and locks it for the rest of the
// transaction, serializing concurrent reports for the same player. Returns
// (nil, nil) when the player is unknown.
func (s *Store) GetPlayerForUpdate(ctx context.Context, serverID tracker.ServerID, name string) (*tracker.PlayerRow, error) {
	var p tracker.PlayerRow
	err := s.db.QueryRow(ctx, getPlayerForUpdateSQL, serverID, name).Scan(
		&p.ID,
		&p.ServerID,
		&p.Name,
		&p.Level,
		&p.XP,
		&p.Attributes,
		&p.Honor,
		&p.EquipCount,
		&p.NextReportAttempt,
		&p.LastReported,
		&p.LastChanged,
		&p.IsRemoved,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get player for update: %w", err)
	}
	return &p, nil
}

// Hall-of-fame discovery may insert the same player concurrently, so even
// the "new player" path upserts.
const upsertPlayerSQL = `
INSERT INTO player (server_id, name, level, xp, attributes, honor, equip_count,
                    next_report_attempt, last_reported, last_changed)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (server_id, name) DO UPDATE SET
	level = EXCLUDED.level,
	xp = EXCLUDED.xp,
	attributes = EXCLUDED.attributes,
	honor = EXCLUDED.honor,
	equip_count = EXCLUDED.equip_count,
	next_report_attempt = EXCLUDED.next_report_attempt,
	last_reported = EXCLUDED.last_reported,
	last_changed = EXCLUDED.last_changed
RETURNING player_id`

// UpsertPlayer writes a player's reported state and returns its id.
func (s *Store) UpsertPlayer(ctx context.Context, p tracker.PlayerRow) (tracker.PlayerID, error) {
	var id tracker.PlayerID
	err := s.db.QueryRow(ctx, upsertPlayerSQL,
		p.ServerID,
		p.Name,
		p.Level,
		p.XP,
		p.Attributes,
		p.Honor,
		p.EquipCount,
		p.NextReportAttempt,
		p.LastReported,
		p.LastChanged,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert player: %w", err)
	}
	return id, nil
}

// First-seen wins: listings never update an existing player's stats.
const bulkInsertHofPlayersSQL = `
INSERT INTO player (server_id, name, level)
SELECT $1, t.name, t.level
FROM unnest($2::text[], $3::int[]) AS t (name, level)
ON CONFLICT (server_id, name) DO NOTHING`

// BulkInsertHofPlayers inserts newly discovered players from one
// hall-of-fame page and returns how many rows were actually new.
func (s *Store) BulkInsertHofPlayers(ctx context.Context, serverID tracker.ServerID, entries []tracker.HofEntry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	names := make([]string, len(entries))
	levels := make([]int32, len(entries))
	for i, e := range entries {
		names[i] = e.Name
		levels[i] = int32(e.Level)
	}
	tag, err := s.db.Exec(ctx, bulkInsertHofPlayersSQL, serverID, names, levels)
	if err != nil {
		return 0, fmt.Errorf("bulk insert hof players: %w", err)
	}
	return tag.RowsAffected(), nil
}
