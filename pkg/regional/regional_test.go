package regional

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trendcore/mktrend/pkg/censor"
)

func buildSeries(t *testing.T, values []interface{}, times []float64) censor.Series {
	t.Helper()
	s, err := censor.Normalize(values, times, nil, nil)
	assert.NoError(t, err)
	return s
}

func TestComputeNoSites(t *testing.T) {
	res := Compute(nil)
	assert.NotEmpty(t, res.Notes)
}

func TestComputeUnanimousIncreasingDirection(t *testing.T) {
	sites := []SiteStat{
		{S: 10, Confidence: 0.9},
		{S: 20, Confidence: 0.8},
		{S: 5, Confidence: 0.7},
	}
	res := Compute(sites)
	assert.Equal(t, 1, res.Direction)
	assert.Equal(t, 1.0, res.Tau)
}

func TestComputeMixedSignsProducesPartialAgreement(t *testing.T) {
	sites := []SiteStat{
		{S: 10, Confidence: 1},
		{S: -5, Confidence: 1},
		{S: 3, Confidence: 1},
	}
	res := Compute(sites)
	assert.Equal(t, 1, res.Direction)
	assert.InDelta(t, 2.0/3.0, res.Tau, 1e-9)
}

func TestComputeCorrelationInflatesVarianceWithAlignedSeries(t *testing.T) {
	times := []float64{0, 1, 2, 3, 4}
	valuesA := []interface{}{1.0, 2.0, 3.0, 4.0, 5.0}
	valuesB := []interface{}{1.1, 2.1, 3.1, 4.1, 5.1}
	seriesA := buildSeries(t, valuesA, times)
	seriesB := buildSeries(t, valuesB, times)

	sites := []SiteStat{
		{S: 10, Confidence: 0.8, Series: seriesA},
		{S: 12, Confidence: 0.8, Series: seriesB},
	}
	res := Compute(sites)
	assert.True(t, res.CorrVarTau >= res.VarTau)
	assert.Empty(t, res.Notes)
}

func TestComputeNoAlignedPairsAddsNote(t *testing.T) {
	seriesA := buildSeries(t, []interface{}{1.0, 2.0, 3.0}, []float64{0, 1, 2})
	seriesB := buildSeries(t, []interface{}{1.0, 2.0, 3.0}, []float64{10, 11, 12})

	sites := []SiteStat{
		{S: 10, Confidence: 0.8, Series: seriesA},
		{S: 12, Confidence: 0.8, Series: seriesB},
	}
	res := Compute(sites)
	assert.NotEmpty(t, res.Notes)
}
