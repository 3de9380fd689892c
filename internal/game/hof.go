package game

import (
	"strconv"
	"strings"

	"github.com/mfbot/hofwatch/internal/tracker"
)

// Hall-of-fame listing format: entries separated by ';', fields within an
// entry by ','. The game pads the last page with empty rows, whose name
// field is blank.
const (
	hofFieldRank  = 0
	hofFieldName  = 1
	hofFieldGuild = 2
	hofFieldLevel = 3

	minHofFields = hofFieldLevel + 1
)

// HofPageSize is the number of entries per hall-of-fame page in the
// external game's listing.
const HofPageSize = 51

// ParseHofListing parses one raw hall-of-fame page. It stops at the first
// empty-slot sentinel row and skips malformed entries, returning how many
// were skipped so the caller can log them.
func ParseHofListing(raw string) (entries []tracker.HofEntry, malformed int) {
	for _, entry := range strings.Split(raw, ";") {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		fields := strings.Split(entry, ",")
		if len(fields) < minHofFields {
			malformed++
			continue
		}
		name := strings.TrimSpace(fields[hofFieldName])
		if name == "" {
			// empty-slot sentinel: nothing follows on this page
			break
		}
		level, err := strconv.Atoi(strings.TrimSpace(fields[hofFieldLevel]))
		if err != nil || level < 1 {
			malformed++
			continue
		}
		entries = append(entries, tracker.HofEntry{Name: name, Level: level})
	}
	return entries, malformed
}
