package rolling

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trendcore/mktrend/pkg/censor"
	"github.com/trendcore/mktrend/pkg/config"
)

func buildPiecewiseSeries(t *testing.T) censor.Series {
	var values []interface{}
	var times []float64
	for i := 0; i < 30; i++ {
		times = append(times, float64(i))
		if i < 15 {
			values = append(values, float64(i))
		} else {
			values = append(values, 15-2*float64(i-15))
		}
	}
	s, err := censor.Normalize(values, times, nil, nil)
	assert.NoError(t, err)
	return s
}

func TestSegmentedInsufficientDataReturnsNote(t *testing.T) {
	values := []interface{}{1.0, 2.0, 3.0}
	times := []float64{0, 1, 2}
	s, err := censor.Normalize(values, times, nil, nil)
	assert.NoError(t, err)
	cfg := config.Default()
	cfg.MinSize = 10

	res := Segmented(s, 2, "aic", cfg)
	assert.NotEmpty(t, res.Notes)
	assert.Empty(t, res.Segments)
}

func TestSegmentedFindsBreakpointInPiecewiseSeries(t *testing.T) {
	series := buildPiecewiseSeries(t)
	cfg := config.Default()
	cfg.MinSize = 5

	res := Segmented(series, 1, "aic", cfg)
	assert.NotEmpty(t, res.Breakpoints)
	assert.Len(t, res.Segments, 2)
	assert.True(t, res.Segments[0].Slope > 0)
	assert.True(t, res.Segments[1].Slope < 0)
}

func TestSegmentedPredictUsesCorrectSegment(t *testing.T) {
	series := buildPiecewiseSeries(t)
	cfg := config.Default()
	cfg.MinSize = 5

	res := Segmented(series, 1, "aic", cfg)
	assert.False(t, func() bool {
		p := res.Predict(2)
		return p != p // NaN check
	}())
}
