package trend

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trendcore/mktrend/pkg/config"
	"github.com/trendcore/mktrend/pkg/mkerrors"
	"github.com/trendcore/mktrend/pkg/regional"
	"github.com/trendcore/mktrend/pkg/seasonal"
)

func linearSeries(n int) ([]interface{}, []float64) {
	values := make([]interface{}, n)
	times := make([]float64, n)
	for i := 0; i < n; i++ {
		times[i] = float64(i)
		values[i] = 2*float64(i) + 1
	}
	return values, times
}

func TestTrendTestDetectsIncreasingTrend(t *testing.T) {
	values, times := linearSeries(20)
	res, err := TrendTest(values, times, nil, nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, "Increasing", res.Trend)
	assert.True(t, res.P <= config.Default().Alpha)
}

func TestTrendTestATSModeProducesFiniteCI(t *testing.T) {
	values, times := linearSeries(20)
	cfg := config.Default()
	cfg.SensSlopeMethod = config.SlopeATS
	cfg.ATSBootstrapN = 50

	res, err := TrendTest(values, times, nil, nil, cfg)
	assert.NoError(t, err)
	assert.False(t, math.IsNaN(res.CILower))
	assert.False(t, math.IsNaN(res.CIUpper))
	assert.True(t, res.CILower <= res.CIUpper)
}

func TestTrendTestInsufficientDataReturnsNotAnalysed(t *testing.T) {
	values := []interface{}{1.0}
	times := []float64{1}
	res, err := TrendTest(values, times, nil, nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, "not analysed", res.Trend)
	assert.True(t, math.IsNaN(res.Z))
}

func TestTrendTestLengthMismatchReturnsInputShapeError(t *testing.T) {
	_, err := TrendTest([]interface{}{1.0, 2.0}, []float64{1}, nil, nil, nil)
	assert.Error(t, err)
	var shapeErr *mkerrors.InputShapeError
	assert.ErrorAs(t, err, &shapeErr)
}

func TestAggregateThenTrendTestRejectsMisalignedDy(t *testing.T) {
	values := []interface{}{1.0, 2.0, 3.0}
	times := []float64{1, 1, 2}
	dy := []float64{0.1, 0.1, 0.2}

	_, err := AggregateThenTrendTest(values, times, nil, dy, false, nil)
	assert.Error(t, err)
	var alignErr *mkerrors.AlignmentError
	assert.ErrorAs(t, err, &alignErr)
}

func TestAggregateThenTrendTestAcceptsAlignedDy(t *testing.T) {
	values := []interface{}{1.0, 2.0, 3.0}
	times := []float64{1, 1, 2}
	dy := []float64{0.1, 0.2}

	res, err := AggregateThenTrendTest(values, times, nil, dy, false, nil)
	assert.NoError(t, err)
	assert.NotEqual(t, "", res.Trend)
}

func TestSurrogateTestReturnsBoundedPValue(t *testing.T) {
	values, times := linearSeries(15)
	cfg := config.Default()
	cfg.NSurrogates = 20

	res, err := SurrogateTest(values, times, cfg)
	assert.NoError(t, err)
	assert.True(t, res.P >= 0 && res.P <= 1)
	assert.Equal(t, 20, res.NSurrogate)
}

func TestRollingTrendTestReturnsWindows(t *testing.T) {
	values, times := linearSeries(60)
	cfg := config.Default()
	cfg.MinSize = 3

	results, err := RollingTrendTest(values, times, 10, 5, cfg)
	assert.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestRegionalTestDelegatesToRegionalCompute(t *testing.T) {
	sites := []regional.SiteStat{
		{S: 10, Confidence: 0.9},
		{S: 5, Confidence: 0.8},
	}
	res := RegionalTest(sites)
	assert.Equal(t, 1, res.Direction)
}

func TestSeasonalSurrogateTestReturnsBoundedPValue(t *testing.T) {
	var values []interface{}
	var times []float64
	for season := 0; season < 4; season++ {
		for rep := 0; rep < 6; rep++ {
			times = append(times, float64(season+4*rep))
			values = append(values, float64(rep)+float64(season)*0.3)
		}
	}
	spec := seasonal.Spec{SeasonOf: func(t float64) int { return int(t) % 4 }}
	cfg := config.Default()
	cfg.MinPerSeason = 3
	cfg.NSurrogates = 20

	res, err := SeasonalSurrogateTest(values, times, spec, cfg)
	assert.NoError(t, err)
	assert.True(t, res.P >= 0 && res.P <= 1)
	assert.Equal(t, 20, res.NSurrogate)
}

func TestSeasonalSurrogateTestInsufficientDataReturnsNotes(t *testing.T) {
	values := []interface{}{1.0, 2.0}
	times := []float64{0, 1}
	spec := seasonal.Spec{SeasonOf: func(t float64) int { return int(t) % 4 }}
	cfg := config.Default()
	cfg.MinPerSeason = 5

	res, err := SeasonalSurrogateTest(values, times, spec, cfg)
	assert.NoError(t, err)
	assert.NotEmpty(t, res.Notes)
}

func TestCheckSeasonalityDetectsSeasonalPattern(t *testing.T) {
	var values []interface{}
	var times []float64
	for season := 0; season < 4; season++ {
		for rep := 0; rep < 10; rep++ {
			times = append(times, float64(season+4*rep))
			values = append(values, float64(season)*10)
		}
	}
	spec := seasonal.Spec{SeasonOf: func(t float64) int { return int(t) % 4 }}
	isSeasonal, p, err := CheckSeasonality(values, times, spec, nil)
	assert.NoError(t, err)
	assert.True(t, isSeasonal)
	assert.True(t, p <= config.Default().Alpha)
}

func TestClassifyTrendBinaryMode(t *testing.T) {
	label := ClassifyTrend(0.01, 1, false, 0.05, nil)
	assert.Equal(t, "Increasing", label)
}

func TestClassifyTrendOrdinalMode(t *testing.T) {
	label := ClassifyTrend(0.01, -1, true, 0.05, nil)
	assert.Contains(t, label, "Decreasing")
}

func TestInspectTrendDataReportsMissingAndCensored(t *testing.T) {
	values := []interface{}{"<5", 3.0, nil, 8.0}
	times := []float64{1, 2, 3, 4}
	res := InspectTrendData(values, times, nil)
	assert.Equal(t, 3, res.N)
	assert.Equal(t, 1, res.NMissing)
	assert.True(t, res.PropCensored > 0)
}

func TestInspectTrendDataInvalidInputReportsIssue(t *testing.T) {
	res := InspectTrendData([]interface{}{1.0, 2.0}, []float64{1}, nil)
	assert.NotEmpty(t, res.Issues)
}
