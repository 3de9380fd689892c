package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// zeroRand removes jitter so tier boundaries can be asserted exactly.
type zeroRand struct{}

func (zeroRand) Intn(int) int { return 0 }

// maxRand always draws the largest value, pinning each tier's upper bound.
type maxRand struct{}

func (maxRand) Intn(n int) int { return n - 1 }

func TestNextAttemptChanged(t *testing.T) {
	fetch := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	got := nextAttempt(fetch, true, fetch, zeroRand{})
	require.Equal(t, fetch.Add(11*time.Hour), got)

	got = nextAttempt(fetch, true, fetch, maxRand{})
	require.Equal(t, fetch.Add(13*time.Hour+59*time.Minute), got)
}

func TestNextAttemptNewPlayerIsNextDay(t *testing.T) {
	fetch := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	// a first sight has lastChanged == fetch, landing in the active tier
	got := nextAttempt(fetch, false, fetch, zeroRand{})
	require.Equal(t, fetch.Add(24*time.Hour), got)
}

func TestNextAttemptUnchangedTiers(t *testing.T) {
	fetch := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name        string
		sinceChange time.Duration
		wantMin     time.Duration
		wantMax     time.Duration
	}{
		{"active", 2 * 24 * time.Hour, 24 * time.Hour, 35*time.Hour + 59*time.Minute},
		{"active boundary", 3 * 24 * time.Hour, 24 * time.Hour, 35*time.Hour + 59*time.Minute},
		{"quiet", 5 * 24 * time.Hour, 2 * 24 * time.Hour, 3*24*time.Hour + 23*time.Hour + 59*time.Minute},
		{"quiet boundary", 7 * 24 * time.Hour, 2 * 24 * time.Hour, 3*24*time.Hour + 23*time.Hour + 59*time.Minute},
		{"dormant", 30 * 24 * time.Hour, 10 * 24 * time.Hour, 13*24*time.Hour + 23*time.Hour + 59*time.Minute},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			last := fetch.Add(-tc.sinceChange)
			require.Equal(t, fetch.Add(tc.wantMin), nextAttempt(fetch, false, last, zeroRand{}))
			require.Equal(t, fetch.Add(tc.wantMax), nextAttempt(fetch, false, last, maxRand{}))
		})
	}
}
