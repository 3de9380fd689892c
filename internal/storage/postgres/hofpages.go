package postgres

import (
	"context"
	"fmt"

	"github.com/mfbot/hofwatch/internal/tracker"
)

// ReseedHofPages replaces a server's hall-of-fame page tasks with a fresh,
// immediately-due set covering pageCount pages. Runs as one transaction so
// a crash cannot leave the server with a partial page list.
func (s *Store) ReseedHofPages(ctx context.Context, serverID tracker.ServerID, pageCount int) error {
	return s.InTx(ctx, func(tx *Store) error {
		if _, err := tx.db.Exec(ctx,
			`DELETE FROM todo_hof_page WHERE server_id = $1`, serverID); err != nil {
			return fmt.Errorf("clear hof pages: %w", err)
		}
		if pageCount <= 0 {
			return nil
		}
		if _, err := tx.db.Exec(ctx, `
INSERT INTO todo_hof_page (server_id, idx, next_report_attempt)
SELECT $1, generate_series(0, $2 - 1), 0`,
			serverID, pageCount); err != nil {
			return fmt.Errorf("seed hof pages: %w", err)
		}
		return nil
	})
}

// Same single-statement lease pattern as the player queue.
const claimHofPagesSQL = `
UPDATE todo_hof_page
SET next_report_attempt = $1
WHERE (server_id, idx) IN (
	SELECT server_id, idx
	FROM todo_hof_page
	WHERE server_id = $2
	  AND next_report_attempt < $3
	LIMIT $4
	FOR UPDATE SKIP LOCKED
)
RETURNING idx`

// ClaimDueHofPages leases up to limit due page tasks of a server until the
// given deadline and returns their page indices.
func (s *Store) ClaimDueHofPages(ctx context.Context, serverID tracker.ServerID, now, until int64, limit int) ([]int, error) {
	rows, err := s.db.Query(ctx, claimHofPagesSQL, until, serverID, now, limit)
	if err != nil {
		return nil, fmt.Errorf("claim due hof pages: %w", err)
	}
	defer rows.Close()

	pages := []int{}
	for rows.Next() {
		var idx int
		if err := rows.Scan(&idx); err != nil {
			return nil, fmt.Errorf("scan claimed hof page: %w", err)
		}
		pages = append(pages, idx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim due hof pages: %w", err)
	}
	return pages, nil
}

// CompleteHofPage retires a page task once its data was reported, without
// waiting for the lease to expire.
func (s *Store) CompleteHofPage(ctx context.Context, serverID tracker.ServerID, idx int) error {
	if _, err := s.db.Exec(ctx,
		`DELETE FROM todo_hof_page WHERE server_id = $1 AND idx = $2`,
		serverID, idx); err != nil {
		return fmt.Errorf("complete hof page: %w", err)
	}
	return nil
}
