package seasonal

import (
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

func quarterSpec() Spec {
	return Spec{SeasonOf: func(t float64) int { return int(t) % 4 }}
}

func TestSeasonIndexUsesCustomSeasonOf(t *testing.T) {
	spec := quarterSpec()
	assert.Equal(t, 0, spec.SeasonIndex(0))
	assert.Equal(t, 3, spec.SeasonIndex(3))
	assert.Equal(t, 0, spec.SeasonIndex(4))
}

func TestComputeAggregatesAcrossSeasons(t *testing.T) {
	// four seasons, each with a clear increasing trend within season
	var values []interface{}
	var times []float64
	for season := 0; season < 4; season++ {
		for rep := 0; rep < 6; rep++ {
			times = append(times, float64(season+4*rep))
			values = append(values, float64(rep))
		}
	}
	series := buildSeries(t, values, times)
	cfg := config.Default()
	cfg.MinPerSeason = 3

	res := Compute(series, quarterSpec(), cfg)
	assert.Equal(t, 4, res.NSeasons)
	assert.True(t, res.STotal > 0)
	assert.True(t, res.Z > 0)
}

func TestComputeInsufficientDataPerSeason(t *testing.T) {
	values := []interface{}{1.0, 2.0}
	times := []float64{0, 1}
	series := buildSeries(t, values, times)
	cfg := config.Default()
	cfg.MinPerSeason = 5

	res := Compute(series, quarterSpec(), cfg)
	assert.Equal(t, 0, res.NSeasons)
	assert.NotEmpty(t, res.Notes)
}

func TestSeasonalATSRecoversKnownSlope(t *testing.T) {
	var values []interface{}
	var times []float64
	for season := 0; season < 4; season++ {
		for rep := 0; rep < 8; rep++ {
			tt := float64(season + 4*rep)
			times = append(times, tt)
			values = append(values, 2*tt+float64(season))
		}
	}
	series := buildSeries(t, values, times)
	cfg := config.Default()
	cfg.MinPerSeason = 3

	beta, _ := SeasonalATS(series, quarterSpec(), cfg)
	assert.InDelta(t, 2.0, beta, 0.2)
}

func TestSurrogateSTotalLengthMatchesConfig(t *testing.T) {
	var values []interface{}
	var times []float64
	for season := 0; season < 4; season++ {
		for rep := 0; rep < 6; rep++ {
			times = append(times, float64(season+4*rep))
			values = append(values, float64(rep)+float64(season)*0.3)
		}
	}
	series := buildSeries(t, values, times)
	cfg := config.Default()
	cfg.MinPerSeason = 3
	cfg.NSurrogates = 10

	totals := SurrogateSTotal(series, quarterSpec(), cfg)
	assert.Len(t, totals, 10)
}
