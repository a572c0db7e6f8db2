// Package trend is the top-level orchestrator: it wires C1-C12 together
// behind the public operations of spec.md 6 (trend_test,
// seasonal_trend_test, surrogate_test, power_test, rolling_trend_test,
// segmented_trend_test, regional_test, check_seasonality, classify_trend,
// inspect_trend_data) and owns the Result record every analysis returns.
package trend

import (
	"math"

	"github.com/trendcore/mktrend/pkg/censor"
	"github.com/trendcore/mktrend/pkg/classify"
	"github.com/trendcore/mktrend/pkg/config"
)

// Result is the Result record of DATA MODEL 3: a complete, self-describing
// output of one trend analysis.
type Result struct {
	Trend             string // "Increasing", "Decreasing", "No Trend", "not analysed"
	N                 int
	S                 float64
	VarS              float64
	Z                 float64
	P                 float64
	Tau               float64
	Slope             float64
	ScaledSlope       float64
	Intercept         float64
	CILower           float64
	CIUpper           float64
	Confidence        float64 // C = 1 - p/2
	DirectionalConf   float64 // Cd
	Classification    string
	Surrogate         *SurrogateResult
	AnalysisNotes     []string
}

// SurrogateResult is the output of surrogate_test.
type SurrogateResult struct {
	P          float64
	NSurrogate int
	SValues    []float64 // the surrogate S ensemble, in index order
	Method     config.SurrogateMethod
	Notes      []string
}

// notAnalysed builds the Result returned when the core test could not
// run at all (spec.md 7's Insufficiency contract: never fatal, always a
// Result, trend="not analysed").
func notAnalysed(n int, notes []string) Result {
	return Result{
		Trend:         "not analysed",
		N:             n,
		S:             math.NaN(),
		VarS:          math.NaN(),
		Z:             math.NaN(),
		P:             math.NaN(),
		Tau:           math.NaN(),
		Slope:         math.NaN(),
		ScaledSlope:   math.NaN(),
		Intercept:     math.NaN(),
		CILower:       math.NaN(),
		CIUpper:       math.NaN(),
		Confidence:    math.NaN(),
		DirectionalConf: math.NaN(),
		Classification: "indeterminate",
		AnalysisNotes: notes,
	}
}

func classifyResult(p, slope float64, cfg *config.Config) (confidence, cd float64, label string) {
	confidence = 1 - p/2
	cd = classify.DirectionalConfidence(p, slope)
	if cfg.ContinuousConfidence {
		label = classify.Ordinal(cd, cfg.CategoryMap)
	} else {
		label = classify.Binary(p, slope, cfg.Alpha)
	}
	return
}

func directionLabel(p, slope, alpha float64) string {
	if p > alpha {
		return "No Trend"
	}
	if slope >= 0 {
		return "Increasing"
	}
	return "Decreasing"
}

func uniqueValueCount(series censor.Series) int {
	return series.NUniqueUncensoredValues()
}
