package ci

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trendcore/mktrend/pkg/config"
)

func TestComputeDirectMethodReturnsPairValues(t *testing.T) {
	pairs := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	sort.Float64s(pairs)
	cfg := config.Default()
	cfg.CIMethod = config.CIDirect

	res := Compute(pairs, 20, cfg, nil)
	assert.False(t, math.IsNaN(res.Lower))
	assert.False(t, math.IsNaN(res.Upper))
	assert.True(t, res.Lower <= res.Upper)
}

func TestComputeLWPInterpolates(t *testing.T) {
	pairs := []float64{1, 2, 3, 4, 5}
	cfg := config.Default()
	cfg.CIMethod = config.CILWP

	res := Compute(pairs, 5, cfg, nil)
	assert.False(t, math.IsNaN(res.Lower))
	assert.True(t, res.Lower <= res.Upper)
}

func TestComputeFallsBackToBootstrapPercentiles(t *testing.T) {
	pairs := []float64{1, 2, 3}
	bootstrap := []float64{5, 1, 3, 9, 2, 8, 4, 7, 6}
	cfg := config.Default()

	res := Compute(pairs, 0, cfg, bootstrap)
	assert.False(t, math.IsNaN(res.Lower))
	assert.True(t, res.Lower <= res.Upper)
	assert.NotEmpty(t, res.Notes)
}

func TestComputeNaNWithoutBootstrap(t *testing.T) {
	pairs := []float64{1, 2, 3}
	cfg := config.Default()

	res := Compute(pairs, math.NaN(), cfg, nil)
	assert.True(t, math.IsNaN(res.Lower))
	assert.True(t, math.IsNaN(res.Upper))
}

func TestComputeNoPairs(t *testing.T) {
	cfg := config.Default()
	res := Compute(nil, 5, cfg, nil)
	assert.True(t, math.IsNaN(res.Lower))
}
