package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/parking-cli/internal/report"
	"github.com/sells-group/parking-cli/internal/store"
)

func newTestViewServer(t *testing.T, withStore bool) (*viewServer, http.Handler) {
	t.Helper()
	ctx := context.Background()
	c := testConfig(t)
	path := writeFixture(t, fixtureCSV)

	tbl, diag, err := loadTable(ctx, c, inputFlags{path: path, origin: 1})
	require.NoError(t, err)
	s, err := report.Build(ctx, tbl, diag, summaryOptions(c, path, nil))
	require.NoError(t, err)

	v := &viewServer{table: tbl, summary: s, workers: 1}
	if withStore {
		st, err := store.Open(ctx, store.Config{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "serve.db")})
		require.NoError(t, err)
		t.Cleanup(func() { st.Close() }) //nolint:errcheck
		v.store = st
	}
	return v, buildRouter(v, []string{"*"})
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestBuildRouter_Health(t *testing.T) {
	_, h := newTestViewServer(t, false)

	rr := get(t, h, "/health")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 3, body["rows"])
}

func TestBuildRouter_CORS(t *testing.T) {
	_, h := newTestViewServer(t, false)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestBuildRouter_Summary(t *testing.T) {
	_, h := newTestViewServer(t, false)

	rr := get(t, h, "/summary")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.EqualValues(t, 120, body["revenue_total"])
}

func TestBuildRouter_Counts(t *testing.T) {
	_, h := newTestViewServer(t, false)

	rr := get(t, h, "/counts/set_fine_amount")
	require.Equal(t, http.StatusOK, rr.Code)

	var counts []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &counts))
	require.Len(t, counts, 2)
	assert.EqualValues(t, 30, counts[0]["value"])
	assert.EqualValues(t, 2, counts[0]["count"])

	rr = get(t, h, "/counts/province?normalize=true&top=1")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &counts))
	require.Len(t, counts, 1)
	assert.Equal(t, "ON", counts[0]["value"])
	assert.InDelta(t, 2.0/3.0, counts[0]["fraction"], 1e-9)

	rr = get(t, h, "/counts/time_of_infraction?where=province%3DQC")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &counts))
	require.Len(t, counts, 1)
	assert.Nil(t, counts[0]["value"])
}

func TestBuildRouter_CountsErrors(t *testing.T) {
	_, h := newTestViewServer(t, false)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/counts/colour").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/counts/province?top=abc").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/counts/province?top=-1").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/counts/province?where=nope").Code)
}

func TestBuildRouter_Histogram(t *testing.T) {
	_, h := newTestViewServer(t, false)

	rr := get(t, h, "/histogram/time_of_infraction")
	require.Equal(t, http.StatusOK, rr.Code)
	var hist map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &hist))
	assert.Len(t, hist["buckets"], 24)
	assert.EqualValues(t, 1, hist["missing"])

	rr = get(t, h, "/histogram/set_fine_amount?min=0&max=100&buckets=2")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &hist))
	assert.Len(t, hist["buckets"], 2)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/histogram/province").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/histogram/set_fine_amount?min=10&max=5").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/histogram/set_fine_amount?buckets=x").Code)
}

func TestBuildRouter_HistogramRejectsUnboundedArgs(t *testing.T) {
	_, h := newTestViewServer(t, false)

	for _, target := range []string{
		"/histogram/set_fine_amount?buckets=2000000000",
		"/histogram/set_fine_amount?min=-Inf&max=100",
		"/histogram/set_fine_amount?min=0&max=Inf",
		"/histogram/set_fine_amount?min=NaN&max=100",
	} {
		rr := get(t, h, target)
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), target)
		assert.NotEmpty(t, body["error"], target)
	}
}

func TestBuildRouter_DescribeAndCatalog(t *testing.T) {
	_, h := newTestViewServer(t, false)

	rr := get(t, h, "/describe/set_fine_amount")
	require.Equal(t, http.StatusOK, rr.Code)
	var d map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &d))
	assert.InDelta(t, 40.0, d["mean"], 1e-9)

	rr = get(t, h, "/catalog")
	require.Equal(t, http.StatusOK, rr.Code)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &entries))
	assert.Len(t, entries, 2)
}

func TestBuildRouter_Revenue(t *testing.T) {
	_, h := newTestViewServer(t, false)

	rr := get(t, h, "/revenue")
	require.Equal(t, http.StatusOK, rr.Code)
	var total map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &total))
	assert.EqualValues(t, 120, total["revenue_total"])

	rr = get(t, h, "/revenue?by=province")
	require.Equal(t, http.StatusOK, rr.Code)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/revenue?by=colour").Code)
}

func TestBuildRouter_RunsDisabledWithoutStore(t *testing.T) {
	_, h := newTestViewServer(t, false)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/runs").Code)
}

func TestBuildRouter_Runs(t *testing.T) {
	v, h := newTestViewServer(t, true)
	ctx := context.Background()

	run, err := v.store.CreateRun(ctx, v.summary.Source)
	require.NoError(t, err)
	require.NoError(t, v.store.CompleteRun(ctx, run.ID, v.summary))

	rr := get(t, h, "/runs")
	require.Equal(t, http.StatusOK, rr.Code)
	var runs []map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0]["id"])

	rr = get(t, h, "/runs/"+run.ID)
	require.Equal(t, http.StatusOK, rr.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "complete", got["status"])
	summary, ok := got["summary"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 120, summary["revenue_total"])

	assert.Equal(t, http.StatusNotFound, get(t, h, "/runs/does-not-exist").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/runs?limit=many").Code)
}

func TestRunsEmptyListIsArray(t *testing.T) {
	_, h := newTestViewServer(t, true)

	rr := get(t, h, "/runs?status=failed")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())
}
