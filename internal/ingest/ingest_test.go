package ingest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mfbot/hofwatch/internal/archive"
	"github.com/mfbot/hofwatch/internal/blob"
	"github.com/mfbot/hofwatch/internal/game"
	"github.com/mfbot/hofwatch/internal/metrics"
	"github.com/mfbot/hofwatch/internal/publisher"
	"github.com/mfbot/hofwatch/internal/publisher/memory"
	"github.com/mfbot/hofwatch/internal/storage/postgres"
	"github.com/mfbot/hofwatch/internal/tracker"
)

func TestMain(m *testing.M) {
	metrics.Init()
	m.Run()
}

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fakeResolver struct {
	id  tracker.ServerID
	err error
}

func (r fakeResolver) Resolve(context.Context, string) (tracker.ServerID, error) {
	return r.id, r.err
}

// buildInfo produces a syntactically valid player info blob with the given
// sparse field overrides. All other fields are zero.
func buildInfo(overrides map[int]int64) string {
	fields := make([]string, 170)
	for i := range fields {
		fields[i] = "0"
	}
	for idx, v := range overrides {
		fields[idx] = strconv.FormatInt(v, 10)
	}
	return strings.Join(fields, "/")
}

func newPipeline(t *testing.T) (pgxmock.PgxPoolIface, *memory.Publisher, *Pipeline) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	codec, err := blob.NewCodec(blob.DefaultLevel)
	require.NoError(t, err)

	events := memory.New()
	p := New(
		postgres.NewStoreWithPool(mock),
		fakeResolver{id: 1},
		codec,
		fixedClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		zeroRand{},
		events,
		archive.NoOp{},
		zap.NewNop(),
	)
	return mock, events, p
}

func TestReportOneNewPlayerAccepted(t *testing.T) {
	mock, events, p := newPipeline(t)

	fetch := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	info := buildInfo(map[int]int64{
		2:  10,   // level
		3:  5000, // xp
		10: 77,   // honor
		30: 15,   // strength, other attributes zero
		48: 1,    // slot 0 typ
		49: 5,    // slot 0 model
		50: 2,    // slot 0 color
		51: 1,    // slot 0 class
	})
	ident := game.PackIdent(game.EquipmentIdent{ModelID: 5, Color: 2, Typ: 1, Class: ptr(uint8(0))})

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT player_id").
		WithArgs(tracker.ServerID(1), "Alice").
		WillReturnRows(pgxmock.NewRows([]string{"player_id"}))
	mock.ExpectQuery("INSERT INTO player").
		WithArgs(tracker.ServerID(1), "Alice", 10, int64(5000), int64(15), int64(77), 1,
			fetch.Add(24*time.Hour).Unix(), fetch.Unix(), fetch.Unix()).
		WillReturnRows(pgxmock.NewRows([]string{"player_id"}).AddRow(tracker.PlayerID(7)))
	mock.ExpectQuery("INSERT INTO otherplayer_resp").
		WithArgs(anyArgs(2)...).
		WillReturnRows(pgxmock.NewRows([]string{"otherplayer_resp_id"}).AddRow(int64(3)))
	mock.ExpectExec("INSERT INTO player_info").
		WithArgs(anyArgs(9)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT COALESCE").
		WithArgs(tracker.PlayerID(7)).
		WillReturnRows(pgxmock.NewRows([]string{"max"}).AddRow(fetch.Unix()))
	mock.ExpectExec("DELETE FROM equipment").
		WithArgs(tracker.PlayerID(7)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("INSERT INTO equipment").
		WithArgs(tracker.ServerID(1), tracker.PlayerID(7), []int32{ident}).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	outcome, err := p.reportOne(context.Background(), tracker.RawOtherPlayer{
		Name:      "Alice",
		Server:    "s1.game.example.com",
		Info:      info,
		FetchDate: fetch.Format(time.RFC3339),
	})
	require.NoError(t, err)
	require.Equal(t, tracker.OutcomeAccepted, outcome)
	require.NoError(t, mock.ExpectationsWereMet())

	evs := events.Events()
	require.Len(t, evs, 1)
	require.Equal(t, publisher.KindReportAccepted, evs[0].Kind)
	require.Equal(t, "Alice", evs[0].Player)
}

func TestReportOneStaleDiscarded(t *testing.T) {
	mock, events, p := newPipeline(t)

	fetch := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	info := buildInfo(map[int]int64{2: 10})

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT player_id").
		WithArgs(tracker.ServerID(1), "Alice").
		WillReturnRows(pgxmock.NewRows([]string{
			"player_id", "server_id", "name", "level", "xp", "attributes", "honor",
			"equip_count", "next_report_attempt", "last_reported", "last_changed", "is_removed",
		}).AddRow(tracker.PlayerID(7), tracker.ServerID(1), "Alice", 10, int64(5000),
			int64(15), int64(77), 1, fetch.Add(time.Hour).Unix(), fetch.Unix(), fetch.Unix(), false))
	mock.ExpectCommit()

	// same fetch time as the stored last_reported: must be discarded
	outcome, err := p.reportOne(context.Background(), tracker.RawOtherPlayer{
		Name:      "Alice",
		Server:    "s1.game.example.com",
		Info:      info,
		FetchDate: fetch.Format(time.RFC3339),
	})
	require.NoError(t, err)
	require.Equal(t, tracker.OutcomeStale, outcome)
	require.NoError(t, mock.ExpectationsWereMet())
	require.Empty(t, events.Events())
}

func TestReportOneOlderSnapshotKeepsEquipment(t *testing.T) {
	mock, _, p := newPipeline(t)

	fetch := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	info := buildInfo(map[int]int64{2: 11})

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT player_id").
		WithArgs(tracker.ServerID(1), "Alice").
		WillReturnRows(pgxmock.NewRows([]string{
			"player_id", "server_id", "name", "level", "xp", "attributes", "honor",
			"equip_count", "next_report_attempt", "last_reported", "last_changed", "is_removed",
		}).AddRow(tracker.PlayerID(7), tracker.ServerID(1), "Alice", 10, int64(0),
			int64(0), int64(0), 0, int64(0), fetch.Add(-time.Hour).Unix(), fetch.Add(-time.Hour).Unix(), false))
	mock.ExpectQuery("INSERT INTO player").
		WithArgs(anyArgs(10)...).
		WillReturnRows(pgxmock.NewRows([]string{"player_id"}).AddRow(tracker.PlayerID(7)))
	mock.ExpectQuery("INSERT INTO otherplayer_resp").
		WithArgs(anyArgs(2)...).
		WillReturnRows(pgxmock.NewRows([]string{"otherplayer_resp_id"}).AddRow(int64(3)))
	mock.ExpectExec("INSERT INTO player_info").
		WithArgs(anyArgs(9)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	// a fresher snapshot already exists, so equipment stays untouched
	mock.ExpectQuery("SELECT COALESCE").
		WithArgs(tracker.PlayerID(7)).
		WillReturnRows(pgxmock.NewRows([]string{"max"}).AddRow(fetch.Add(time.Hour).Unix()))
	mock.ExpectCommit()

	outcome, err := p.reportOne(context.Background(), tracker.RawOtherPlayer{
		Name:      "Alice",
		Server:    "s1.game.example.com",
		Info:      info,
		FetchDate: fetch.Format(time.RFC3339),
	})
	require.NoError(t, err)
	require.Equal(t, tracker.OutcomeAccepted, outcome)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportOneInvalidInfoTouchesNothing(t *testing.T) {
	mock, _, p := newPipeline(t)

	outcome, err := p.reportOne(context.Background(), tracker.RawOtherPlayer{
		Name:      "Alice",
		Server:    "s1.game.example.com",
		Info:      "1/2/3",
		FetchDate: "2025-06-01T10:00:00Z",
	})
	require.ErrorIs(t, err, tracker.ErrInvalidPlayer)
	require.Equal(t, tracker.OutcomeInvalid, outcome)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportOneBadFetchDate(t *testing.T) {
	_, _, p := newPipeline(t)

	outcome, err := p.reportOne(context.Background(), tracker.RawOtherPlayer{
		Name:      "Alice",
		Server:    "s1.game.example.com",
		Info:      buildInfo(map[int]int64{2: 10}),
		FetchDate: "yesterday",
	})
	require.ErrorIs(t, err, tracker.ErrInvalidPlayer)
	require.Equal(t, tracker.OutcomeInvalid, outcome)
}

func TestReportPlayersSkipsBadItems(t *testing.T) {
	mock, _, p := newPipeline(t)

	fetch := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	good := tracker.RawOtherPlayer{
		Name:      "Bob",
		Server:    "s1.game.example.com",
		Info:      buildInfo(map[int]int64{2: 4}),
		FetchDate: fetch.Format(time.RFC3339),
	}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT player_id").
		WithArgs(tracker.ServerID(1), "Bob").
		WillReturnRows(pgxmock.NewRows([]string{"player_id"}))
	mock.ExpectQuery("INSERT INTO player").
		WithArgs(anyArgs(10)...).
		WillReturnRows(pgxmock.NewRows([]string{"player_id"}).AddRow(tracker.PlayerID(2)))
	mock.ExpectQuery("INSERT INTO otherplayer_resp").
		WithArgs(anyArgs(2)...).
		WillReturnRows(pgxmock.NewRows([]string{"otherplayer_resp_id"}).AddRow(int64(1)))
	mock.ExpectExec("INSERT INTO player_info").
		WithArgs(anyArgs(9)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT COALESCE").
		WithArgs(tracker.PlayerID(2)).
		WillReturnRows(pgxmock.NewRows([]string{"max"}).AddRow(fetch.Unix()))
	mock.ExpectExec("DELETE FROM equipment").
		WithArgs(tracker.PlayerID(2)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCommit()

	// the malformed first item must not keep Bob from being ingested
	p.ReportPlayers(context.Background(), []tracker.RawOtherPlayer{
		{Name: "Broken", Server: "s1.game.example.com", Info: "junk", FetchDate: good.FetchDate},
		good,
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReportHofInsertsAndCompletesPages(t *testing.T) {
	mock, events, p := newPipeline(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO player").
		WithArgs(tracker.ServerID(1), []string{"Alice", "Bob"}, []int32{100, 99}).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectExec("DELETE FROM todo_hof_page").
		WithArgs(tracker.ServerID(1), 0).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO player").
		WithArgs(tracker.ServerID(1), []string{"Carol"}, []int32{98}).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectExec("DELETE FROM todo_hof_page").
		WithArgs(tracker.ServerID(1), 1).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	err := p.ReportHof(context.Background(), "s1.game.example.com", map[int]string{
		0: "1,Alice,Guild,100;2,Bob,,99",
		1: "52,Carol,Guild,98",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	evs := events.Events()
	require.Len(t, evs, 1)
	require.Equal(t, publisher.KindPlayersDiscovered, evs[0].Kind)
	require.Equal(t, int64(2), evs[0].Count)
}

func TestReportHofEmptyPageStillCompletes(t *testing.T) {
	mock, events, p := newPipeline(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM todo_hof_page").
		WithArgs(tracker.ServerID(1), 3).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	err := p.ReportHof(context.Background(), "s1.game.example.com", map[int]string{3: ""})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	require.Empty(t, events.Events())
}

func TestReportHofResolverFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	codec, err := blob.NewCodec(blob.DefaultLevel)
	require.NoError(t, err)

	p := New(
		postgres.NewStoreWithPool(mock),
		fakeResolver{err: fmt.Errorf("%w: bad scheme", tracker.ErrInvalidServer)},
		codec,
		fixedClock{now: time.Now()},
		zeroRand{},
		publisher.NoOp{},
		archive.NoOp{},
		zap.NewNop(),
	)
	err = p.ReportHof(context.Background(), "ftp://nope", map[int]string{0: ""})
	require.ErrorIs(t, err, tracker.ErrInvalidServer)
	require.NoError(t, mock.ExpectationsWereMet())
}

func ptr[T any](v T) *T { return &v }

// anyArgs returns n wildcard matchers; pgxmock requires the argument count to
// be declared even when the values themselves are not being asserted.
func anyArgs(n int) []interface{} {
	args := make([]interface{}, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}
