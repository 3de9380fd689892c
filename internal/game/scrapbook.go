package game

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mfbot/hofwatch/internal/tracker"
)

// ParseScrapbook decodes the comma-separated list of packed idents a client
// already owns. The order is irrelevant; duplicates are collapsed.
func ParseScrapbook(raw string) ([]int32, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: empty payload", tracker.ErrInvalidScrapbook)
	}
	parts := strings.Split(raw, ",")
	seen := make(map[int32]struct{}, len(parts))
	owned := make([]int32, 0, len(parts))
	for i, part := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(part), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", tracker.ErrInvalidScrapbook, i, err)
		}
		ident := int32(v)
		if _, dup := seen[ident]; dup {
			continue
		}
		seen[ident] = struct{}{}
		owned = append(owned, ident)
	}
	return owned, nil
}
