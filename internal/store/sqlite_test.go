package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/parking-cli/internal/aggregate"
	"github.com/sells-group/parking-cli/internal/report"
	"github.com/sells-group/parking-cli/internal/ticket"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testSummary(source string) *report.Summary {
	return &report.Summary{
		Source:       source,
		GeneratedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Rows:         3,
		RevenueTotal: 120,
		TopCodes: aggregate.Counts{
			{Value: ticket.Uint(5), Count: 2, Fraction: 2.0 / 3.0},
			{Value: ticket.Uint(9), Count: 1, Fraction: 1.0 / 3.0},
		},
	}
}

func TestSQLite_CreateAndCompleteRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "tickets_2016.zip")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, RunStatusRunning, run.Status)

	require.NoError(t, st.CompleteRun(ctx, run.ID, testSummary("tickets_2016.zip")))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusComplete, got.Status)
	assert.Equal(t, 3, got.Rows)
	assert.Equal(t, uint64(120), got.RevenueTotal)
	assert.Empty(t, got.Error)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(got.Summary, &decoded))
	assert.EqualValues(t, 120, decoded["revenue_total"])
	assert.Len(t, decoded["top_codes"], 2)
}

func TestSQLite_FailRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "bad.csv")
	require.NoError(t, err)
	require.NoError(t, st.FailRun(ctx, run.ID, errors.New("ingest: set_fine_amount out of range")))

	got, err := st.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusFailed, got.Status)
	assert.Contains(t, got.Error, "out of range")
	assert.JSONEq(t, "{}", string(got.Summary))
}

func TestSQLite_GetRunNotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetRun(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSQLite_UpdateUnknownRun(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	err := st.CompleteRun(ctx, "missing-id", testSummary("x.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run missing-id")

	err = st.FailRun(ctx, "missing-id", nil)
	require.Error(t, err)
}

func TestSQLite_CompleteRunNilSummary(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "x.csv")
	require.NoError(t, err)

	err = st.CompleteRun(ctx, run.ID, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil summary")
}

func TestSQLite_ListRuns(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a, err := st.CreateRun(ctx, "a.csv")
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, a.ID, testSummary("a.csv")))

	b, err := st.CreateRun(ctx, "b.csv")
	require.NoError(t, err)
	require.NoError(t, st.FailRun(ctx, b.ID, errors.New("boom")))

	_, err = st.CreateRun(ctx, "a.csv")
	require.NoError(t, err)

	all, err := st.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	complete, err := st.ListRuns(ctx, RunFilter{Status: RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, complete, 1)
	assert.Equal(t, a.ID, complete[0].ID)

	bySource, err := st.ListRuns(ctx, RunFilter{Source: "a.csv"})
	require.NoError(t, err)
	assert.Len(t, bySource, 2)

	page, err := st.ListRuns(ctx, RunFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestSQLite_ListRunsEmpty(t *testing.T) {
	st := newTestSQLiteStore(t)

	runs, err := st.ListRuns(context.Background(), RunFilter{Status: RunStatusFailed})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestOpenSQLite(t *testing.T) {
	ctx := context.Background()
	st, err := Open(ctx, Config{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "open.db")})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck

	run, err := st.CreateRun(ctx, "x.csv")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")
}
