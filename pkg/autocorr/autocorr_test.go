package autocorr

import (
	"math"
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

func TestACF1OnLinearTrendIsNearZero(t *testing.T) {
	var values []interface{}
	var times []float64
	for i := 0; i < 20; i++ {
		times = append(times, float64(i))
		values = append(values, 2*float64(i)+1)
	}
	series := buildSeries(t, values, times)
	cfg := config.Default()

	rho := ACF1(series, cfg)
	assert.InDelta(t, 0, rho, 1e-6)
}

func TestACF1TooFewObservations(t *testing.T) {
	series := buildSeries(t, []interface{}{1.0, 2.0}, []float64{1, 2})
	cfg := config.Default()
	assert.Equal(t, 0.0, ACF1(series, cfg))
}

func TestYueWangEffectiveNZeroCorrelationIsUnchanged(t *testing.T) {
	assert.Equal(t, 10.0, YueWangEffectiveN(10, 0))
}

func TestYueWangEffectiveNPositiveCorrelationShrinksN(t *testing.T) {
	neff := YueWangEffectiveN(100, 0.5)
	assert.True(t, neff < 100)
	assert.True(t, neff >= 1)
}

func TestYueWangEffectiveNClampsDegenerateInput(t *testing.T) {
	assert.Equal(t, 10.0, YueWangEffectiveN(10, 1))
	assert.Equal(t, 10.0, YueWangEffectiveN(10, -1))
}

func TestInflateVarianceGrowsWithPositiveCorrelation(t *testing.T) {
	raw := 4.0
	inflated := InflateVariance(raw, 20, 0.5)
	assert.True(t, inflated > raw)
}

func TestAutoBlockSizeFindsLowLagUnderIndependentResiduals(t *testing.T) {
	resid := make([]float64, 50)
	rng := rand.New(rand.NewSource(42))
	for i := range resid {
		resid[i] = rng.NormFloat64()
	}
	size := AutoBlockSize(resid, 0.2)
	assert.True(t, size >= 1 && size <= len(resid)/5)
}

func TestAutoBlockSizeConstantResidualsReturnsOne(t *testing.T) {
	resid := make([]float64, 10)
	for i := range resid {
		resid[i] = 5
	}
	assert.Equal(t, 1, AutoBlockSize(resid, 0.2))
}

func TestBootstrapPValueInsufficientData(t *testing.T) {
	series := buildSeries(t, []interface{}{1.0, 2.0}, []float64{1, 2})
	cfg := config.Default()
	p, size, notes := BootstrapPValue(series, cfg, 1, nil)
	assert.Equal(t, 1.0, p)
	assert.Equal(t, 0, size)
	assert.NotEmpty(t, notes)
}

func TestBootstrapPValueBoundedAndDeterministicWithSeed(t *testing.T) {
	var values []interface{}
	var times []float64
	for i := 0; i < 15; i++ {
		times = append(times, float64(i))
		values = append(values, float64(i)+math.Mod(float64(i), 3))
	}
	series := buildSeries(t, values, times)
	cfg := config.Default()
	cfg.NBootstrap = 50

	p1, _, _ := BootstrapPValue(series, cfg, 10, rand.New(rand.NewSource(7)))
	p2, _, _ := BootstrapPValue(series, cfg, 10, rand.New(rand.NewSource(7)))
	assert.Equal(t, p1, p2)
	assert.True(t, p1 >= 0 && p1 <= 1)
}

func TestBootstrapSlopeCIProducesSortedSlopes(t *testing.T) {
	var values []interface{}
	var times []float64
	for i := 0; i < 15; i++ {
		times = append(times, float64(i))
		values = append(values, 2*float64(i))
	}
	series := buildSeries(t, values, times)
	cfg := config.Default()
	cfg.NBootstrap = 30

	slopes := BootstrapSlopeCI(series, cfg, rand.New(rand.NewSource(3)))
	assert.NotEmpty(t, slopes)
	for i := 1; i < len(slopes); i++ {
		assert.True(t, slopes[i-1] <= slopes[i])
	}
}

func TestBootstrapSlopeCITooFewObservations(t *testing.T) {
	series := buildSeries(t, []interface{}{1.0}, []float64{1})
	cfg := config.Default()
	assert.Nil(t, BootstrapSlopeCI(series, cfg, rand.New(rand.NewSource(1))))
}
