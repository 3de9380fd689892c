package postgres

import (
	"context"
	"fmt"

	"github.com/mfbot/hofwatch/internal/tracker"
)

const insertBugReportSQL = `
INSERT INTO error (stacktrace, version, additional_info, os, arch, error_text, hwid, timestamp)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// InsertBugReport stores one client bug report. Timestamp is the server-side
// receive time in RFC 3339.
func (s *Store) InsertBugReport(ctx context.Context, report tracker.BugReport, timestamp string) error {
	if _, err := s.db.Exec(ctx, insertBugReportSQL,
		report.Stacktrace,
		report.Version,
		report.AdditionalInfo,
		report.OS,
		report.Arch,
		report.ErrorText,
		report.HWID,
		timestamp,
	); err != nil {
		return fmt.Errorf("insert bug report: %w", err)
	}
	return nil
}
