package ingest

import (
	"time"

	"github.com/mfbot/hofwatch/internal/tracker"
)

// Backoff tiers: players whose stats just changed are rechecked within
// half a day; quiet players fall through increasingly long tiers based on
// how long ago the last change was observed. All tiers carry randomized
// jitter so recrawls of a server never herd onto the same instant.
const (
	tierActiveWindow = 3 * 24 * time.Hour
	tierQuietWindow  = 7 * 24 * time.Hour
)

// nextAttempt computes when a player should be revisited, relative to the
// report's fetch time.
func nextAttempt(fetch time.Time, changed bool, lastChanged time.Time, rng tracker.Rand) time.Time {
	minutes := time.Duration(rng.Intn(60)) * time.Minute

	if changed {
		hours := time.Duration(11+rng.Intn(3)) * time.Hour
		return fetch.Add(hours + minutes)
	}

	sinceChange := fetch.Sub(lastChanged)
	switch {
	case sinceChange <= tierActiveWindow:
		hours := time.Duration(rng.Intn(12)) * time.Hour
		return fetch.Add(24*time.Hour + hours + minutes)
	case sinceChange <= tierQuietWindow:
		days := time.Duration(2+rng.Intn(2)) * 24 * time.Hour
		hours := time.Duration(rng.Intn(24)) * time.Hour
		return fetch.Add(days + hours + minutes)
	default:
		days := time.Duration(10+rng.Intn(4)) * 24 * time.Hour
		hours := time.Duration(rng.Intn(24)) * time.Hour
		return fetch.Add(days + hours + minutes)
	}
}
