package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func openTestArchive(t *testing.T, minConfidence float64) *Archive {
	t.Helper()
	cfg := DefaultArchiveConfig()
	cfg.DatabasePath = filepath.Join(t.TempDir(), "archive.db")
	cfg.MinConfidence = minConfidence
	a, err := OpenArchive(cfg)
	assert.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestAppendAndHistoryRoundTrip(t *testing.T) {
	a := openTestArchive(t, 0)
	assert.NoError(t, a.Append(RunRecord{SeriesKey: "s1", N: 10, Slope: 1.0, Confidence: 0.9, Classification: "Increasing"}))
	assert.NoError(t, a.Append(RunRecord{SeriesKey: "s1", N: 12, Slope: 1.5, Confidence: 0.95, Classification: "Increasing"}))

	hist, err := a.History("s1", 10)
	assert.NoError(t, err)
	assert.Len(t, hist, 2)
	assert.Equal(t, 1.5, hist[0].Slope)
}

func TestAppendSkipsBelowMinConfidence(t *testing.T) {
	a := openTestArchive(t, 0.5)
	assert.NoError(t, a.Append(RunRecord{SeriesKey: "s1", Confidence: 0.1}))

	hist, err := a.History("s1", 10)
	assert.NoError(t, err)
	assert.Empty(t, hist)
}

func TestDeltaReportsSlopeChangeAndClassificationChange(t *testing.T) {
	a := openTestArchive(t, 0)
	assert.NoError(t, a.Append(RunRecord{SeriesKey: "s1", Slope: 1.0, Confidence: 0.9, Classification: "No Trend"}))
	assert.NoError(t, a.Append(RunRecord{SeriesKey: "s1", Slope: 3.0, Confidence: 0.9, Classification: "Increasing"}))

	delta, changed, err := a.Delta("s1")
	assert.NoError(t, err)
	assert.InDelta(t, 2.0, delta, 1e-9)
	assert.True(t, changed)
}

func TestDeltaWithFewerThanTwoRunsReportsNoChange(t *testing.T) {
	a := openTestArchive(t, 0)
	assert.NoError(t, a.Append(RunRecord{SeriesKey: "s1", Slope: 1.0, Confidence: 0.9}))

	delta, changed, err := a.Delta("s1")
	assert.NoError(t, err)
	assert.Equal(t, 0.0, delta)
	assert.False(t, changed)
}

func TestPruneOlderThanRemovesAgedRecords(t *testing.T) {
	a := openTestArchive(t, 0)
	a.config.RetentionDays = 1
	assert.NoError(t, a.Append(RunRecord{SeriesKey: "s1", Confidence: 0.9}))

	removed, err := a.PruneOlderThan(time.Now().AddDate(0, 0, 10))
	assert.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}
