package slope

import (
	"math"
	"math/rand"
	"sort"

	"github.com/trendcore/mktrend/pkg/censor"
	"github.com/trendcore/mktrend/pkg/config"
)

// residual shifts a record to its residual v_i - beta*t_i for the
// censored three-state comparison during ATS root-finding: a residual record
// keeps its original censor flag (subtracting beta*t from a "<5"
// detection limit still yields a left-censored interval), only its
// center shifts.
func residual(r censor.Record, t, beta float64) censor.Record {
	r.Value -= beta * t
	return r
}

// censoredS returns the signed rank statistic S of the residual series
// at the given beta, using the same three-state pairwise comparison as
// the MK kernel (duplicated here at record granularity so pkg/slope does
// not depend on pkg/mk; ATS needs only the sign of S, not its variance).
func censoredS(records []censor.Record, times []float64, beta float64, eps float64) float64 {
	n := len(records)
	var s float64
	for i := 0; i < n; i++ {
		ri := residual(records[i], times[i], beta)
		for j := i + 1; j < n; j++ {
			rj := residual(records[j], times[j], beta)
			sign := ats3StateSign(ri, rj, eps)
			s += float64(sign)
		}
	}
	return s
}

func ats3StateSign(vi, vj censor.Record, eps float64) int {
	switch {
	case !vi.IsCensored() && !vj.IsCensored():
		d := vj.Value - vi.Value
		if math.Abs(d) <= eps {
			return 0
		}
		if d > 0 {
			return 1
		}
		return -1
	case vi.IsCensored() && vj.IsCensored():
		if vi.Flag == vj.Flag {
			return 0
		}
		var leftUpper, rightLower float64
		var leftIsI bool
		if vi.Flag == censor.LeftCensor {
			leftUpper, rightLower, leftIsI = vi.Value, vj.Value, true
		} else {
			leftUpper, rightLower, leftIsI = vj.Value, vi.Value, false
		}
		if rightLower > leftUpper {
			if leftIsI {
				return 1
			}
			return -1
		}
		return 0
	default:
		var cen, other censor.Record
		var cenIsI bool
		if vi.IsCensored() {
			cen, other, cenIsI = vi, vj, true
		} else {
			cen, other, cenIsI = vj, vi, false
		}
		if cen.Flag == censor.LeftCensor {
			if other.Value > cen.Value {
				if cenIsI {
					return 1
				}
				return -1
			}
			return 0
		}
		if other.Value < cen.Value {
			if cenIsI {
				return -1
			}
			return 1
		}
		return 0
	}
}

// computeATS implements variant 3 of spec.md 4.3: the beta zeroing the
// censored Kendall S of residuals, found by bracket expansion around the
// ordinary-Sen seed followed by bisection, with a Turnbull EM-derived
// intercept. It computes no CI; bootstrap percentile CIs come from
// BootstrapCI.
func computeATS(series censor.Series, cfg *config.Config, rng *rand.Rand) Result {
	n := series.Len()
	records := make([]censor.Record, n)
	times := make([]float64, n)
	nUncensored := 0
	for i, o := range series.Obs {
		records[i] = o.Record
		times[i] = o.Time
		if !o.Record.IsCensored() {
			nUncensored++
		}
	}

	res := Result{}
	if nUncensored < 2 {
		res.Slope = math.NaN()
		res.Intercept = math.NaN()
		res.Notes = append(res.Notes, "insufficient data: ATS requires at least 2 uncensored observations")
		return res
	}

	seed := computeOrdinary(series, cfg, false)
	if math.IsNaN(seed.Slope) {
		res.Slope = math.NaN()
		res.Intercept = math.NaN()
		res.Notes = append(res.Notes, "insufficient data: no ordinary-Sen seed available for ATS bracketing")
		return res
	}

	values := make([]float64, n)
	for i, r := range records {
		values[i] = r.Value
	}
	eps := tieEpsilonFor(values, cfg)

	beta, note := findRoot(records, times, seed.Slope, eps, cfg)
	res.Slope = beta
	if note != "" {
		res.Notes = append(res.Notes, note)
	}

	intercept, turnbullNote := turnbullIntercept(records, times, beta, cfg)
	res.Intercept = intercept
	if turnbullNote != "" {
		res.Notes = append(res.Notes, turnbullNote)
	}

	res.NPairs = n * (n - 1) / 2
	return res
}

// findRoot brackets and bisects to find the beta where censoredS changes
// sign, per spec.md 4.3's root-finding description.
func findRoot(records []censor.Record, times []float64, seed, eps float64, cfg *config.Config) (float64, string) {
	f := func(b float64) float64 { return censoredS(records, times, b, eps) }

	s0 := f(seed)
	if math.Abs(s0) <= 1 {
		return seed, ""
	}

	step := math.Max(math.Abs(seed)*0.1, 1e-6)
	sign0 := sign(s0)
	lo, hi := seed, seed
	found := false
	for d := 0; d < cfg.ATSMaxDoublings; d++ {
		step *= 2
		lo = seed - step
		hi = seed + step
		if sign(f(lo)) != sign0 || sign(f(hi)) != sign0 {
			found = true
			break
		}
	}
	if !found {
		grid := denseGridMinAbs(f, seed, step)
		return grid, "ATS root-finding found no sign change within the bracket expansion bound; reporting the grid point minimizing |S|"
	}

	a, b := lo, hi
	if sign(f(a)) == sign0 {
		a, b = b, a
	}
	fa := f(a)
	for iter := 0; iter < 200; iter++ {
		mid := (a + b) / 2
		fm := f(mid)
		if math.Abs(fm) <= 1 || (b-a) < cfg.ATSTolerance {
			return mid, ""
		}
		if sign(fm) == sign(fa) {
			a, fa = mid, fm
		} else {
			b = mid
		}
	}
	return (a + b) / 2, ""
}

func denseGridMinAbs(f func(float64) float64, center, span float64) float64 {
	best := center
	bestAbs := math.Abs(f(center))
	const steps = 200
	for k := 0; k <= steps; k++ {
		x := center - span + 2*span*float64(k)/steps
		v := math.Abs(f(x))
		if v < bestAbs {
			bestAbs = v
			best = x
		}
	}
	return best
}

func sign(x float64) int {
	if x > 0 {
		return 1
	}
	if x < 0 {
		return -1
	}
	return 0
}

func tieEpsilonFor(values []float64, cfg *config.Config) float64 {
	cp := append([]float64(nil), values...)
	sort.Float64s(cp)
	minDiff := math.Inf(1)
	for i := 1; i < len(cp); i++ {
		d := cp[i] - cp[i-1]
		if d > 0 && d < minDiff {
			minDiff = d
		}
	}
	if math.IsInf(minDiff, 1) {
		return 0
	}
	if cfg.TieBreakMethod == config.TieBreakLWP {
		return minDiff / 1000
	}
	return minDiff / 2
}

// turnbullIntercept estimates the intercept as the median of a Turnbull
// nonparametric MLE over the residual intervals at the fitted beta, by
// EM iteration over the distinct interval endpoints ("Turnbull bins")
// until the total-variation change in the mass vector falls below
// cfg.TurnbullTolerance or cfg.TurnbullMaxIter is reached.
func turnbullIntercept(records []censor.Record, times []float64, beta float64, cfg *config.Config) (float64, string) {
	n := len(records)
	type interval struct{ lo, hi float64 }
	intervals := make([]interval, n)
	for i, r := range records {
		resid := residual(r, times[i], beta)
		switch resid.Flag {
		case censor.LeftCensor:
			intervals[i] = interval{math.Inf(-1), resid.Value}
		case censor.RightCensor:
			intervals[i] = interval{resid.Value, math.Inf(1)}
		default:
			intervals[i] = interval{resid.Value, resid.Value}
		}
	}

	endpoints := make([]float64, 0, 2*n)
	for _, iv := range intervals {
		if !math.IsInf(iv.lo, -1) {
			endpoints = append(endpoints, iv.lo)
		}
		if !math.IsInf(iv.hi, 1) {
			endpoints = append(endpoints, iv.hi)
		}
	}
	sort.Float64s(endpoints)
	endpoints = uniqueEps(endpoints, 1e-12)
	m := len(endpoints)
	if m == 0 {
		return math.NaN(), "numerical: Turnbull intercept undefined, all residuals unbounded"
	}

	// The support set is the distinct interval endpoints themselves; no
	// midpoints between consecutive endpoints are added.
	support := append([]float64(nil), endpoints...)

	compatible := make([][]bool, n)
	for i, iv := range intervals {
		row := make([]bool, len(support))
		for k, x := range support {
			row[k] = x >= iv.lo-1e-9 && x <= iv.hi+1e-9
		}
		compatible[i] = row
	}

	p := make([]float64, len(support))
	for k := range p {
		p[k] = 1.0 / float64(len(support))
	}

	converged := false
	for iter := 0; iter < cfg.TurnbullMaxIter; iter++ {
		newP := make([]float64, len(support))
		for i := 0; i < n; i++ {
			var denom float64
			for k, ok := range compatible[i] {
				if ok {
					denom += p[k]
				}
			}
			if denom <= 0 {
				continue
			}
			for k, ok := range compatible[i] {
				if ok {
					newP[k] += p[k] / denom
				}
			}
		}
		var total float64
		for k := range newP {
			newP[k] /= float64(n)
			total += newP[k]
		}
		if total > 0 {
			for k := range newP {
				newP[k] /= total
			}
		}
		var tv float64
		for k := range p {
			tv += math.Abs(newP[k] - p[k])
		}
		p = newP
		if tv < cfg.TurnbullTolerance {
			converged = true
			break
		}
	}

	order := make([]int, len(support))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return support[order[a]] < support[order[b]] })

	var cum float64
	medianVal := support[order[len(order)-1]]
	for _, idx := range order {
		cum += p[idx]
		if cum >= 0.5 {
			medianVal = support[idx]
			break
		}
	}

	if !converged {
		return medianVal, "Turnbull EM did not reach the convergence tolerance within the iteration cap"
	}
	return medianVal, ""
}

func uniqueEps(sorted []float64, eps float64) []float64 {
	if len(sorted) == 0 {
		return sorted
	}
	out := sorted[:1]
	for _, v := range sorted[1:] {
		if v-out[len(out)-1] > eps {
			out = append(out, v)
		}
	}
	return out
}

// BootstrapCI computes percentile CIs for the ATS slope by resampling
// observation indices with replacement and redoing the root-find on each
// resample, per spec.md 4.3.
func BootstrapCI(series censor.Series, cfg *config.Config, rng *rand.Rand) (lo, hi float64, notes []string) {
	n := series.Len()
	if n < 2 {
		return math.NaN(), math.NaN(), []string{"insufficient data: cannot bootstrap ATS CI"}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(cfg.RandomState))
	}

	slopes := make([]float64, 0, cfg.ATSBootstrapN)
	for b := 0; b < cfg.ATSBootstrapN; b++ {
		obs := make([]censor.Observation, n)
		for i := range obs {
			obs[i] = series.Obs[rng.Intn(n)]
		}
		resampled := censor.Series{Obs: obs}
		sort.SliceStable(resampled.Obs, func(i, j int) bool { return resampled.Obs[i].Time < resampled.Obs[j].Time })
		r := computeATS(resampled, cfg, rng)
		if !math.IsNaN(r.Slope) {
			slopes = append(slopes, r.Slope)
		}
	}
	if len(slopes) == 0 {
		return math.NaN(), math.NaN(), []string{"numerical: ATS bootstrap produced no finite resamples"}
	}
	sort.Float64s(slopes)
	alpha := cfg.Alpha
	loIdx := int(math.Floor(alpha / 2 * float64(len(slopes))))
	hiIdx := int(math.Ceil((1 - alpha/2) * float64(len(slopes)))) - 1
	if loIdx < 0 {
		loIdx = 0
	}
	if hiIdx >= len(slopes) {
		hiIdx = len(slopes) - 1
	}
	return slopes[loIdx], slopes[hiIdx], nil
}
