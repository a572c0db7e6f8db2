package trend

import (
	"fmt"
	"math"
	"sort"

	"github.com/trendcore/mktrend/pkg/autocorr"
	"github.com/trendcore/mktrend/pkg/censor"
	"github.com/trendcore/mktrend/pkg/ci"
	"github.com/trendcore/mktrend/pkg/classify"
	"github.com/trendcore/mktrend/pkg/config"
	"github.com/trendcore/mktrend/pkg/mk"
	"github.com/trendcore/mktrend/pkg/power"
	"github.com/trendcore/mktrend/pkg/regional"
	"github.com/trendcore/mktrend/pkg/rolling"
	"github.com/trendcore/mktrend/pkg/seasonal"
	"github.com/trendcore/mktrend/pkg/slope"
	"github.com/trendcore/mktrend/pkg/surrogate"
	"gonum.org/v1/gonum/stat/distuv"
)

// TrendTest is the public trend_test operation: normalize, optionally
// hicensor, run C2-C6, and produce a complete Result.
func TrendTest(values []interface{}, times []float64, flags []string, dy []float64, cfg *config.Config) (Result, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	series, err := censor.Normalize(values, times, flags, dy)
	if err != nil {
		return Result{}, err
	}
	if cfg.Hicensor {
		limit := math.NaN()
		if cfg.UseHicensorVal {
			limit = cfg.HicensorValue
		}
		series = censor.Hicensor(series, limit)
	}
	return trendTestOnSeries(series, cfg)
}

func trendTestOnSeries(series censor.Series, cfg *config.Config) (Result, error) {
	n := series.Len()
	if n < cfg.MinSize || uniqueValueCount(series) < 2 {
		return notAnalysed(n, []string{fmt.Sprintf("insufficient data: need at least %d observations and 2 unique uncensored values", cfg.MinSize)}), nil
	}

	mkRes := mk.Compute(series, cfg)
	varS := mkRes.VarS

	var acfNote string
	if cfg.AutocorrMethod == config.AutocorrYueWang || cfg.AutocorrMethod == config.AutocorrAuto {
		rho1 := autocorr.ACF1(series, cfg)
		if math.Abs(rho1) > cfg.ACFThreshold {
			varS = autocorr.InflateVariance(varS, n, rho1)
			acfNote = fmt.Sprintf("Var(S) inflated by the Yue-Wang effective-sample-size correction (rho1=%.3f)", rho1)
		}
	}

	slopeRes := slope.Compute(series, cfg, nil)

	var ciRes ci.Result
	if cfg.SensSlopeMethod == config.SlopeATS {
		lo, hi, atsCINotes := slope.BootstrapCI(series, cfg, nil)
		ciRes = ci.Result{Lower: lo, Upper: hi, Notes: atsCINotes}
	} else {
		var bootstrapSlopes []float64
		if cfg.AutocorrMethod == config.AutocorrBlockBootstrp {
			bootstrapSlopes = autocorr.BootstrapSlopeCI(series, cfg, nil)
		}
		ciRes = ci.Compute(slopeRes.Pairs, varS, cfg, bootstrapSlopes)
	}

	z := mkRes.Z
	p := mkRes.P
	if varS != mkRes.VarS && varS > 0 {
		sign := 1.0
		if mkRes.S < 0 {
			sign = -1.0
		}
		z = (mkRes.S - sign) / math.Sqrt(varS)
		stdNormal := distuv.Normal{Mu: 0, Sigma: 1}
		p = 2 * (1 - stdNormal.CDF(math.Abs(z)))
	}

	if cfg.AutocorrMethod == config.AutocorrBlockBootstrp {
		bp, _, notes := autocorr.BootstrapPValue(series, cfg, mkRes.S, nil)
		p = bp
		mkRes.Notes = append(mkRes.Notes, notes...)
	}

	confidence, cd, label := classifyResult(p, slopeRes.Slope, cfg)

	res := Result{
		Trend:           directionLabel(p, slopeRes.Slope, cfg.Alpha),
		N:               n,
		S:               mkRes.S,
		VarS:            varS,
		Z:               z,
		P:               p,
		Tau:             mkRes.Tau,
		Slope:           slopeRes.Slope,
		ScaledSlope:     slopeRes.Slope * config.ScaleFactorSeconds(cfg.SlopeScaling),
		Intercept:       slopeRes.Intercept,
		CILower:         ciRes.Lower,
		CIUpper:         ciRes.Upper,
		Confidence:      confidence,
		DirectionalConf: cd,
		Classification:  label,
	}
	res.AnalysisNotes = append(res.AnalysisNotes, mkRes.Notes...)
	res.AnalysisNotes = append(res.AnalysisNotes, slopeRes.Notes...)
	res.AnalysisNotes = append(res.AnalysisNotes, ciRes.Notes...)
	if acfNote != "" {
		res.AnalysisNotes = append(res.AnalysisNotes, acfNote)
	}
	return res, nil
}

// SeasonalTrendTest is the public seasonal_trend_test operation.
func SeasonalTrendTest(values []interface{}, times []float64, spec seasonal.Spec, cfg *config.Config) (Result, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	series, err := censor.Normalize(values, times, nil, nil)
	if err != nil {
		return Result{}, err
	}

	seasonalRes := seasonal.Compute(series, spec, cfg)
	if seasonalRes.NSeasons == 0 {
		return notAnalysed(series.Len(), seasonalRes.Notes), nil
	}

	beta, atsNotes := seasonal.SeasonalATS(series, spec, cfg)

	confidence, cd, label := classifyResult(seasonalRes.P, beta, cfg)
	res := Result{
		Trend:           directionLabel(seasonalRes.P, beta, cfg.Alpha),
		N:               series.Len(),
		S:               seasonalRes.STotal,
		VarS:            seasonalRes.VarTotal,
		Z:               seasonalRes.Z,
		P:               seasonalRes.P,
		Slope:           beta,
		ScaledSlope:     beta * config.ScaleFactorSeconds(cfg.SlopeScaling),
		CILower:         math.NaN(),
		CIUpper:         math.NaN(),
		Confidence:      confidence,
		DirectionalConf: cd,
		Classification:  label,
	}
	res.AnalysisNotes = append(res.AnalysisNotes, seasonalRes.Notes...)
	res.AnalysisNotes = append(res.AnalysisNotes, atsNotes...)
	res.AnalysisNotes = append(res.AnalysisNotes, "seasonal ATS CI is NaN: bootstrap strategy (whole-season vs. within-season resampling) is left undecided, matching the source implementation's behavior")
	return res, nil
}

// SeasonalSurrogateTest is the seasonal variant of surrogate_test: each
// season gets its own independent surrogate ensemble, seeded from
// (cfg.RandomState, season index) per spec.md 4.8, and the per-season
// null S values are summed into an S_total null distribution against
// which the observed seasonal S_total is tested.
func SeasonalSurrogateTest(values []interface{}, times []float64, spec seasonal.Spec, cfg *config.Config) (SurrogateResult, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	series, err := censor.Normalize(values, times, nil, nil)
	if err != nil {
		return SurrogateResult{}, err
	}

	seasonalRes := seasonal.Compute(series, spec, cfg)
	if seasonalRes.NSeasons == 0 {
		return SurrogateResult{Notes: seasonalRes.Notes}, nil
	}

	nullTotals := seasonal.SurrogateSTotal(series, spec, cfg)
	if len(nullTotals) == 0 {
		return SurrogateResult{NSurrogate: 0, Notes: []string{"insufficient data: no season eligible for seasonal surrogate testing"}}, nil
	}

	var exceed int
	for _, s := range nullTotals {
		if math.Abs(s) >= math.Abs(seasonalRes.STotal) {
			exceed++
		}
	}
	p := float64(exceed+1) / float64(len(nullTotals)+1)

	return SurrogateResult{
		P:          p,
		NSurrogate: len(nullTotals),
		SValues:    nullTotals,
		Method:     cfg.SurrogateMethod,
		Notes:      seasonalRes.Notes,
	}, nil
}

// SurrogateTest is the public surrogate_test operation.
func SurrogateTest(values []interface{}, times []float64, cfg *config.Config) (SurrogateResult, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	series, err := censor.Normalize(values, times, nil, nil)
	if err != nil {
		return SurrogateResult{}, err
	}

	observed := mk.Compute(series, cfg)
	ensemble := surrogate.Generate(series, cfg)

	sValues := make([]float64, len(ensemble.Series))
	var exceed int
	for i, surr := range ensemble.Series {
		r := mk.Compute(surr, cfg)
		sValues[i] = r.S
		if math.Abs(r.S) >= math.Abs(observed.S) {
			exceed++
		}
	}
	p := float64(exceed+1) / float64(len(ensemble.Series)+1)

	return SurrogateResult{
		P:          p,
		NSurrogate: len(ensemble.Series),
		SValues:    sValues,
		Method:     ensemble.Method,
		Notes:      ensemble.Notes,
	}, nil
}

// PowerTest is the public power_test operation.
func PowerTest(values []interface{}, times []float64, candidateSlopes []float64, cfg *config.Config) (power.Result, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	series, err := censor.Normalize(values, times, nil, nil)
	if err != nil {
		return power.Result{}, err
	}
	return power.Compute(series, candidateSlopes, cfg), nil
}

// RollingTrendTest is the public rolling_trend_test operation.
func RollingTrendTest(values []interface{}, times []float64, window, step float64, cfg *config.Config) ([]rolling.WindowResult, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	series, err := censor.Normalize(values, times, nil, nil)
	if err != nil {
		return nil, err
	}
	return rolling.Rolling(series, window, step, cfg)
}

// SegmentedTrendTest is the public segmented_trend_test operation.
func SegmentedTrendTest(values []interface{}, times []float64, maxBreakpoints int, criterion string, cfg *config.Config) (rolling.SegmentedResult, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	series, err := censor.Normalize(values, times, nil, nil)
	if err != nil {
		return rolling.SegmentedResult{}, err
	}
	return rolling.Segmented(series, maxBreakpoints, criterion, cfg), nil
}

// RegionalTest is the public regional_test operation.
func RegionalTest(sites []regional.SiteStat) regional.Result {
	return regional.Compute(sites)
}

// CheckSeasonality implements check_seasonality: a Kruskal-Wallis test
// across season groups.
func CheckSeasonality(values []interface{}, times []float64, spec seasonal.Spec, cfg *config.Config) (isSeasonal bool, pValue float64, err error) {
	if cfg == nil {
		cfg = config.Default()
	}
	series, err := censor.Normalize(values, times, nil, nil)
	if err != nil {
		return false, math.NaN(), err
	}

	groups := make(map[int][]float64)
	for _, o := range series.Obs {
		if o.Record.IsCensored() {
			continue
		}
		season := spec.SeasonIndex(o.Time)
		groups[season] = append(groups[season], o.Record.Value)
	}
	if len(groups) < 2 {
		return false, math.NaN(), nil
	}

	p := kruskalWallis(groups)
	return p <= cfg.Alpha, p, nil
}

// kruskalWallis computes the Kruskal-Wallis H test p-value across the
// supplied groups via a chi-squared approximation with df = k-1.
func kruskalWallis(groups map[int][]float64) float64 {
	type item struct {
		value float64
		group int
	}
	var all []item
	for g, vals := range groups {
		for _, v := range vals {
			all = append(all, item{value: v, group: g})
		}
	}
	n := len(all)
	sort.Slice(all, func(i, j int) bool { return all[i].value < all[j].value })

	ranks := make([]float64, n)
	i := 0
	for i < n {
		j := i
		for j < n && all[j].value == all[i].value {
			j++
		}
		avgRank := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			ranks[k] = avgRank
		}
		i = j
	}

	rankSum := make(map[int]float64)
	groupSize := make(map[int]int)
	for idx, it := range all {
		rankSum[it.group] += ranks[idx]
		groupSize[it.group]++
	}

	var h float64
	nf := float64(n)
	for g, sum := range rankSum {
		nk := float64(groupSize[g])
		h += sum * sum / nk
	}
	h = 12/(nf*(nf+1))*h - 3*(nf+1)

	df := float64(len(groups) - 1)
	if df < 1 {
		return 1
	}
	chi2 := distuv.ChiSquared{K: df}
	return 1 - chi2.CDF(h)
}

// ClassifyTrend is the public classify_trend operation.
func ClassifyTrend(p, slopeVal float64, continuousConfidence bool, alpha float64, customMap map[float64]string) string {
	if !continuousConfidence {
		return classify.Binary(p, slopeVal, alpha)
	}
	cd := classify.DirectionalConfidence(p, slopeVal)
	return classify.Ordinal(cd, customMap)
}

// InspectionResult is the output of inspect_trend_data.
type InspectionResult struct {
	N               int
	NMissing        int
	NCensorLevels   int
	PropCensored    float64
	FirstTime       float64
	LastTime        float64
	Issues          []string
}

// InspectTrendData is the public inspect_trend_data operation: it
// accumulates every data-quality issue rather than failing fast, in the
// teacher's Validate-style convention.
func InspectTrendData(rawValues []interface{}, times []float64, cfg *config.Config) InspectionResult {
	if cfg == nil {
		cfg = config.Default()
	}
	nMissing := 0
	series, err := censor.Normalize(rawValues, times, nil, nil)
	var issues []string
	if err != nil {
		issues = append(issues, err.Error())
		return InspectionResult{Issues: issues}
	}
	nMissing = len(rawValues) - series.Len()

	limits := make(map[float64]struct{})
	nCensored := 0
	for _, o := range series.Obs {
		if o.Record.IsCensored() {
			nCensored++
			limits[o.Record.DetectionLimit] = struct{}{}
		}
	}

	res := InspectionResult{
		N:             series.Len(),
		NMissing:      nMissing,
		NCensorLevels: len(limits),
		Issues:        issues,
	}
	if series.Len() > 0 {
		res.FirstTime = series.Obs[0].Time
		res.LastTime = series.Obs[series.Len()-1].Time
		res.PropCensored = float64(nCensored) / float64(series.Len())
	} else {
		res.FirstTime = math.NaN()
		res.LastTime = math.NaN()
	}
	if series.Len() < cfg.MinSize {
		res.Issues = append(res.Issues, fmt.Sprintf("fewer than min_size=%d observations after normalization", cfg.MinSize))
	}
	if uniqueValueCount(series) < 2 {
		res.Issues = append(res.Issues, "fewer than 2 unique uncensored values")
	}
	return res
}

