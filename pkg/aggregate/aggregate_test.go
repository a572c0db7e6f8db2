package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trendcore/mktrend/pkg/censor"
	"github.com/trendcore/mktrend/pkg/config"
	"github.com/trendcore/mktrend/pkg/mkerrors"
)

func buildSeries(t *testing.T, values []interface{}, times []float64) censor.Series {
	t.Helper()
	s, err := censor.Normalize(values, times, nil, nil)
	assert.NoError(t, err)
	return s
}

func TestTieMergeCollapsesSameTimestamp(t *testing.T) {
	values := []interface{}{1.0, 3.0, 2.0}
	times := []float64{1, 1, 2}
	series := buildSeries(t, values, times)
	cfg := config.Default()
	cfg.AggMethod = config.AggMedian

	res := TieMerge(series, cfg)
	assert.Equal(t, 2, res.Series.Len())
	assert.True(t, res.IndexDiscarded)
}

func TestTieMergeNoCollisionsLeavesIndexIntact(t *testing.T) {
	values := []interface{}{1.0, 2.0, 3.0}
	times := []float64{1, 2, 3}
	series := buildSeries(t, values, times)
	cfg := config.Default()

	res := TieMerge(series, cfg)
	assert.Equal(t, 3, res.Series.Len())
	assert.False(t, res.IndexDiscarded)
}

func TestThinBucketsByDayPeriod(t *testing.T) {
	const day = 86400.0
	values := []interface{}{1.0, 2.0, 3.0}
	times := []float64{0, 100, day + 10}
	series := buildSeries(t, values, times)
	cfg := config.Default()
	cfg.AggPeriod = config.PeriodDay
	cfg.AggMethod = config.AggMedian

	res := Thin(series, cfg)
	assert.Equal(t, 2, res.Series.Len())
	assert.True(t, res.IndexDiscarded)
}

func TestCheckAlignmentRejectsPreAggregationLengthDy(t *testing.T) {
	result := Result{IndexDiscarded: true}
	err := CheckAlignment("trend.AggregateThenTrendTest", result, "dy", 10, 10)
	assert.Error(t, err)
	var alignErr *mkerrors.AlignmentError
	assert.ErrorAs(t, err, &alignErr)
}

func TestCheckAlignmentAllowsPostAggregationLengthDy(t *testing.T) {
	result := Result{IndexDiscarded: true}
	err := CheckAlignment("trend.AggregateThenTrendTest", result, "dy", 3, 10)
	assert.NoError(t, err)
}

func TestCheckAlignmentAllowsUndiscardedIndex(t *testing.T) {
	result := Result{IndexDiscarded: false}
	err := CheckAlignment("trend.AggregateThenTrendTest", result, "dy", 10, 10)
	assert.NoError(t, err)
}
