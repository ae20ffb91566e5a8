package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/parking-cli/internal/store"
)

func sampleRuns() []store.Run {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	return []store.Run{
		{
			ID:           "abc12345-6789-0000-0000-000000000000",
			Source:       "parking_tickets_2016.zip",
			Status:       store.RunStatusComplete,
			Rows:         2143942,
			RevenueTotal: 107197100,
			CreatedAt:    now,
			UpdatedAt:    now.Add(20 * time.Second),
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Source:    "broken.csv",
			Status:    store.RunStatusFailed,
			Error:     "ingest: set_fine_amount 100000 out of range",
			CreatedAt: now.Add(-1 * time.Hour),
			UpdatedAt: now.Add(-1 * time.Hour),
		},
		{
			ID:        "0123",
			Source:    "tickets.csv",
			Status:    store.RunStatusRunning,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

func TestFormatRunsList(t *testing.T) {
	var buf bytes.Buffer
	formatRunsList(&buf, sampleRuns())

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "SOURCE")
	assert.Contains(t, output, "STATUS")
	assert.Contains(t, output, "parking_tickets_2016.zip")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "107197100")
	assert.Contains(t, output, "failed")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-6789")
}

func TestFormatRunsList_TruncatesLongFields(t *testing.T) {
	runs := []store.Run{{
		ID:     "x",
		Source: "/very/long/path/to/some/nested/directory/parking_tickets.zip",
		Status: store.RunStatusFailed,
		Error:  "source: load parking_tickets.zip: csv: read row 12: wrong number of fields",
	}}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)
	assert.Contains(t, buf.String(), "...")
	assert.Contains(t, buf.String(), "parking_tickets.zip")
}

func TestComputeRunStats(t *testing.T) {
	s := computeRunStats(sampleRuns())
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 1, s.Complete)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Running)
	assert.Equal(t, 2143942, s.Rows)
	assert.Equal(t, uint64(107197100), s.Revenue)
	assert.InDelta(t, 20.0, s.AvgDurSecs, 0.001)
}

func TestComputeRunStats_Empty(t *testing.T) {
	s := computeRunStats(nil)
	assert.Equal(t, runStats{}, s)
}

func TestFormatRunStats(t *testing.T) {
	var buf bytes.Buffer
	formatRunStats(&buf, computeRunStats(sampleRuns()))

	output := buf.String()
	assert.Contains(t, output, "Total runs:")
	assert.Contains(t, output, "Revenue summarized:")
	assert.Contains(t, output, "$107197100")
	assert.Contains(t, output, "Avg duration:")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
}
