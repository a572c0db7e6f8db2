package power

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trendcore/mktrend/pkg/censor"
	"github.com/trendcore/mktrend/pkg/config"
)

func buildSeries(t *testing.T, values []interface{}, times []float64) censor.Series {
	t.Helper()
	s, err := censor.Normalize(values, times, nil, nil)
	assert.NoError(t, err)
	return s
}

func TestComputeInsufficientData(t *testing.T) {
	series := buildSeries(t, []interface{}{1.0}, []float64{1})
	cfg := config.Default()
	res := Compute(series, []float64{0, 1}, cfg)
	assert.True(t, math.IsNaN(res.MDT))
	assert.NotEmpty(t, res.Notes)
	assert.Equal(t, []float64{0, 0}, res.Power)
}

func TestComputePowerIncreasesWithLargerSlope(t *testing.T) {
	var values []interface{}
	var times []float64
	for i := 0; i < 25; i++ {
		times = append(times, float64(i))
		values = append(values, math.Mod(float64(i)*2.0, 5.0))
	}
	series := buildSeries(t, values, times)
	cfg := config.Default()
	cfg.PowerNSimulations = 20
	cfg.PowerNSurrogates = 20
	cfg.RandomState = 7

	res := Compute(series, []float64{0, 5}, cfg)
	assert.Len(t, res.Power, 2)
	for _, p := range res.Power {
		assert.True(t, p >= 0 && p <= 1)
	}
}

func TestInterpolateMDTFindsCrossing(t *testing.T) {
	slopes := []float64{0, 1, 2, 3}
	power := []float64{0.1, 0.4, 0.6, 0.9}
	mdt := interpolateMDT(slopes, power, 0.5)
	assert.InDelta(t, 1.5, mdt, 1e-9)
}

func TestInterpolateMDTNoCrossingReturnsNaN(t *testing.T) {
	slopes := []float64{0, 1, 2}
	power := []float64{0.1, 0.2, 0.3}
	mdt := interpolateMDT(slopes, power, 0.9)
	assert.True(t, math.IsNaN(mdt))
}

func TestInterpolateMDTPicksSmallestAbsCrossing(t *testing.T) {
	slopes := []float64{-2, -1, 0, 1, 2}
	power := []float64{0.9, 0.6, 0.4, 0.6, 0.9}
	mdt := interpolateMDT(slopes, power, 0.5)
	assert.InDelta(t, -0.5, mdt, 1e-9)
}
