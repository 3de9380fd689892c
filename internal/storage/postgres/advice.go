package postgres

import (
	"context"
	"fmt"

	"github.com/mfbot/hofwatch/internal/tracker"
)

const scrapbookAdviceSQL = `
SELECT p.name, p.level, COUNT(*) AS missing
FROM equipment e
JOIN player p ON p.player_id = e.player_id
WHERE e.server_id = $1
  AND p.level <= $2
  AND p.attributes <= $3
  AND NOT p.is_removed
  AND NOT (e.ident = ANY ($4::int[]))
GROUP BY p.player_id, p.name, p.level
ORDER BY missing DESC, p.level ASC
LIMIT $5`

// ScrapbookAdvice ranks beatable players by how many of their equipped
// idents the asking client does not own yet.
func (s *Store) ScrapbookAdvice(ctx context.Context, serverID tracker.ServerID, owned []int32, maxLevel int, maxAttrs int64, limit int) ([]tracker.AdviceRow, error) {
	rows, err := s.db.Query(ctx, scrapbookAdviceSQL, serverID, maxLevel, maxAttrs, owned, limit)
	if err != nil {
		return nil, fmt.Errorf("scrapbook advice: %w", err)
	}
	defer rows.Close()

	advice := []tracker.AdviceRow{}
	for rows.Next() {
		var row tracker.AdviceRow
		if err := rows.Scan(&row.Name, &row.Level, &row.Missing); err != nil {
			return nil, fmt.Errorf("scan advice row: %w", err)
		}
		advice = append(advice, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scrapbook advice: %w", err)
	}
	return advice, nil
}
