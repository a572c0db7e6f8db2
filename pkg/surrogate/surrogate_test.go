package surrogate

import (
	"sort"
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

func evenSeries(t *testing.T, n int) censor.Series {
	var values []interface{}
	var times []float64
	for i := 0; i < n; i++ {
		times = append(times, float64(i))
		values = append(values, float64(i%5)+float64(i)*0.1)
	}
	return buildSeries(t, values, times)
}

func TestGenerateEvenSamplingSelectsIAAFT(t *testing.T) {
	series := evenSeries(t, 40)
	cfg := config.Default()
	cfg.SurrogateMethod = config.SurrogateAuto
	cfg.NSurrogates = 5

	ens := Generate(series, cfg)
	assert.Equal(t, config.SurrogateIAAFT, ens.Method)
	assert.Len(t, ens.Series, 5)
	assert.Len(t, ens.Seeds, 5)
}

func TestGenerateUnevenSamplingSelectsLombScargle(t *testing.T) {
	values := []interface{}{1.0, 2.0, 3.0, 4.0, 5.0, 6.0, 7.0}
	times := []float64{0, 1, 2, 10, 11, 30, 31}
	series := buildSeries(t, values, times)
	cfg := config.Default()
	cfg.SurrogateMethod = config.SurrogateAuto
	cfg.NSurrogates = 3

	ens := Generate(series, cfg)
	assert.Equal(t, config.SurrogateLombScargle, ens.Method)
	assert.Len(t, ens.Series, 3)
}

func TestGenerateConstantInputReturnsCopies(t *testing.T) {
	var values []interface{}
	var times []float64
	for i := 0; i < 10; i++ {
		values = append(values, 3.0)
		times = append(times, float64(i))
	}
	series := buildSeries(t, values, times)
	cfg := config.Default()
	cfg.NSurrogates = 4

	ens := Generate(series, cfg)
	assert.NotEmpty(t, ens.Notes)
	for _, s := range ens.Series {
		assert.Equal(t, series.Values(), s.Values())
	}
}

func TestGeneratePreservesMarginalDistributionIAAFT(t *testing.T) {
	series := evenSeries(t, 50)
	cfg := config.Default()
	cfg.SurrogateMethod = config.SurrogateIAAFT
	cfg.NSurrogates = 1
	cfg.IAAFTMaxIter = 50

	ens := Generate(series, cfg)
	original := append([]float64(nil), series.Values()...)
	surrogate := append([]float64(nil), ens.Series[0].Values()...)
	sort.Float64s(original)
	sort.Float64s(surrogate)
	for i := range original {
		assert.InDelta(t, original[i], surrogate[i], 1e-9)
	}
}

func TestGenerateSeedsAreDeterministic(t *testing.T) {
	series := evenSeries(t, 30)
	cfg := config.Default()
	cfg.SurrogateMethod = config.SurrogateIAAFT
	cfg.NSurrogates = 3
	cfg.RandomState = 123

	ens1 := Generate(series, cfg)
	ens2 := Generate(series, cfg)
	assert.Equal(t, ens1.Seeds, ens2.Seeds)
	for i := range ens1.Series {
		assert.Equal(t, ens1.Series[i].Values(), ens2.Series[i].Values())
	}
}
