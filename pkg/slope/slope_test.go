package slope

import (
	"math/rand"
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

func TestComputeOrdinaryRecoversExactSlope(t *testing.T) {
	// a perfectly linear series: value = 2*time + 1
	var values []interface{}
	var times []float64
	for i := 0; i < 10; i++ {
		times = append(times, float64(i))
		values = append(values, 2*float64(i)+1)
	}
	series := buildSeries(t, values, times)
	cfg := config.Default()
	cfg.SensSlopeMethod = config.SlopeNaN

	res := Compute(series, cfg, nil)
	assert.InDelta(t, 2.0, res.Slope, 1e-9)
	assert.InDelta(t, 1.0, res.Intercept, 1e-9)
}

func TestComputeStochasticMatchesExhaustiveOnSmallN(t *testing.T) {
	values := []interface{}{1.0, 3.0, 2.0, 5.0, 4.0}
	times := []float64{0, 1, 2, 3, 4}
	series := buildSeries(t, values, times)
	cfg := config.Default()
	cfg.StochasticThreshold = 100
	cfg.StochasticSamples = 3

	exhaustive := computeOrdinary(series, cfg, false)
	stochastic := computeStochastic(series, cfg, rand.New(rand.NewSource(1)))
	assert.Equal(t, exhaustive.Slope, stochastic.Slope)
}

func TestComputeATSRecoversExactSlopeUncensored(t *testing.T) {
	var values []interface{}
	var times []float64
	for i := 0; i < 12; i++ {
		times = append(times, float64(i))
		values = append(values, 3*float64(i)-2)
	}
	series := buildSeries(t, values, times)
	cfg := config.Default()
	cfg.SensSlopeMethod = config.SlopeATS

	res := Compute(series, cfg, rand.New(rand.NewSource(1)))
	assert.InDelta(t, 3.0, res.Slope, 1e-3)
}
