package tracker

import (
	"context"
	"time"
)

// Clock abstracts time.Now so schedulers and ingestion are testable.
type Clock interface {
	Now() time.Time
}

// Rand is the randomness source behind recrawl jitter. Seeded in tests so
// backoff computations can be asserted deterministically.
type Rand interface {
	Intn(n int) int
}

// Resolver maps a raw server URL to its stable id.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string) (ServerID, error)
}

// Scheduler hands out crawl work via expiring leases.
type Scheduler interface {
	ClaimPlayers(ctx context.Context, serverID ServerID, limit int) ([]string, error)
	ClaimHofPages(ctx context.Context, serverID ServerID, playerCount, limit int) ([]int, error)
}

// Reporter absorbs crawler results. ReportPlayers is best-effort per item;
// ReportHof fails the request on the first storage error.
type Reporter interface {
	ReportPlayers(ctx context.Context, reports []RawOtherPlayer)
	ReportHof(ctx context.Context, server string, pages map[int]string) error
}

// AdviceStore answers the scrapbook advice query over the equipment table.
type AdviceStore interface {
	ScrapbookAdvice(ctx context.Context, serverID ServerID, owned []int32, maxLevel int, maxAttrs int64, limit int) ([]AdviceRow, error)
}

// BugReportStore persists client bug reports.
type BugReportStore interface {
	InsertBugReport(ctx context.Context, report BugReport, timestamp string) error
}
