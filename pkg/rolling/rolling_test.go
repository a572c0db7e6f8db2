package rolling

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

func dailySeries(t *testing.T, n int) censor.Series {
	var values []interface{}
	var times []float64
	for i := 0; i < n; i++ {
		times = append(times, float64(i))
		values = append(values, float64(i)+float64(i%3))
	}
	return buildSeries(t, values, times)
}

func TestRollingEmptySeriesReturnsNil(t *testing.T) {
	cfg := config.Default()
	res, err := Rolling(censor.Series{}, 10, 5, cfg)
	assert.NoError(t, err)
	assert.Nil(t, res)
}

func TestRollingProducesWindowsCoveringSeries(t *testing.T) {
	series := dailySeries(t, 60)
	cfg := config.Default()
	cfg.MinSize = 3

	results, err := Rolling(series, 10, 5, cfg)
	assert.NoError(t, err)
	assert.NotEmpty(t, results)
	for _, r := range results {
		assert.True(t, r.N >= cfg.MinSize)
		assert.True(t, r.End > r.Start)
	}
}

func TestRollingRefusesExcessiveWindowCount(t *testing.T) {
	series := dailySeries(t, 1000)
	cfg := config.Default()
	cfg.MaxWindows = 5

	_, err := Rolling(series, 1, 1, cfg)
	assert.Error(t, err)
	var safetyErr *mkerrors.SafetyError
	assert.ErrorAs(t, err, &safetyErr)
}

func TestRollingAdaptiveTrailingWindowStillComputed(t *testing.T) {
	series := dailySeries(t, 23)
	cfg := config.Default()
	cfg.MinSize = 2

	results, err := Rolling(series, 10, 10, cfg)
	assert.NoError(t, err)
	assert.NotEmpty(t, results)
	last := results[len(results)-1]
	assert.True(t, last.N >= cfg.MinSize)
}
