// Package tracker defines the core domain types shared across the service.
package tracker

// ServerID is the stable identifier assigned to a canonical game server URL.
type ServerID int64

// PlayerID identifies one (server, name) player row. It is assigned by the
// store on first sight and never reused.
type PlayerID int64

// RawOtherPlayer is the wire form of a single crawled player report as
// submitted by crawler clients. Info carries the game's slash-delimited
// integer blob byte-for-byte; FetchDate is an RFC 3339 timestamp.
type RawOtherPlayer struct {
	Name          string  `json:"name"`
	Server        string  `json:"server"`
	Info          string  `json:"info"`
	Description   *string `json:"description"`
	Guild         *string `json:"guild"`
	SoldierAdvice *int64  `json:"soldier_advice"`
	FetchDate     string  `json:"fetch_date"`
}

// PlayerRow mirrors one row of the player table. All timestamps are unix
// seconds; zero means "never observed".
type PlayerRow struct {
	ID                PlayerID
	ServerID          ServerID
	Name              string
	Level             int
	XP                int64
	Attributes        int64
	Honor             int64
	EquipCount        int
	NextReportAttempt int64
	LastReported      int64
	LastChanged       int64
	IsRemoved         bool
}

// Snapshot captures one immutable player_info row to be appended.
type Snapshot struct {
	PlayerID      PlayerID
	FetchTime     int64
	XP            int64
	Level         int
	Honor         int64
	SoldierAdvice *int64
	DescriptionID *int64
	GuildID       *int64
	BlobID        int64
}

// HofEntry is one parsed hall-of-fame listing row.
type HofEntry struct {
	Name  string
	Level int
}

// AdviceRow is one ranked result of the scrapbook advice query.
type AdviceRow struct {
	Name    string `json:"name"`
	Level   int    `json:"level"`
	Missing int    `json:"missing"`
}

// BugReport is a client-submitted crash/bug report.
type BugReport struct {
	Version        int     `json:"version"`
	OS             string  `json:"os"`
	Arch           string  `json:"arch"`
	HWID           string  `json:"hwid"`
	Stacktrace     *string `json:"stacktrace"`
	AdditionalInfo *string `json:"additional_info"`
	ErrorText      *string `json:"error_text"`
}

// ReportOutcome classifies what ingestion did with one player report.
type ReportOutcome string

// Terminal outcomes of the player-report state machine.
const (
	OutcomeAccepted ReportOutcome = "accepted"
	OutcomeStale    ReportOutcome = "stale"
	OutcomeInvalid  ReportOutcome = "invalid"
	OutcomeError    ReportOutcome = "error"
)
