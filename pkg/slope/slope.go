// Package slope implements C3, the Sen-style slope kernel, in its four
// variants: ordinary Sen, LWP-compatibility, Akritas-Theil-Sen, and
// stochastic-pair sampled.
package slope

import (
	"math"
	"math/rand"
	"sort"

	"github.com/trendcore/mktrend/pkg/censor"
	"github.com/trendcore/mktrend/pkg/config"
)

// Result is the output of a C3 slope computation.
type Result struct {
	Slope     float64
	Intercept float64
	NPairs    int
	Pairs     []float64 // sorted pairwise slopes, needed by C4; for the stochastic variant, the sorted sampled slopes
	Notes     []string
}

// Compute dispatches to the variant named by cfg.SensSlopeMethod.
func Compute(series censor.Series, cfg *config.Config, rng *rand.Rand) Result {
	switch cfg.SensSlopeMethod {
	case config.SlopeLWP:
		return computeOrdinary(series, cfg, true)
	case config.SlopeATS:
		return computeATS(series, cfg, rng)
	case config.SlopeStochastic:
		return computeStochastic(series, cfg, rng)
	default:
		return computeOrdinary(series, cfg, false)
	}
}

// substitutedValue returns the value used for ordinary/LWP/stochastic
// slope arithmetic: left-censored values are scaled down by lt_mult,
// right-censored scaled up by gt_mult, point values unchanged.
func substitutedValue(r censor.Record, cfg *config.Config) float64 {
	switch r.Flag {
	case censor.LeftCensor:
		return r.Value * cfg.LtMult
	case censor.RightCensor:
		return r.Value * cfg.GtMult
	default:
		return r.Value
	}
}

// pairAmbiguous reports whether the pair (i, j) is an "ambiguous
// censored pair" per spec.md 4.3: both censored, or one censored such
// that direction of the comparison cannot be determined from the
// substituted values alone. Mirrors compare()'s indeterminate-tie logic
// without needing the tie epsilon (only used to decide nan-exclusion vs
// lwp-zero).
func pairAmbiguous(vi, vj censor.Record) bool {
	if vi.IsCensored() && vj.IsCensored() {
		return true
	}
	if vi.IsCensored() {
		if vi.Flag == censor.LeftCensor && vj.Value <= vi.Value {
			return true
		}
		if vi.Flag == censor.RightCensor && vj.Value >= vi.Value {
			return true
		}
	}
	if vj.IsCensored() {
		if vj.Flag == censor.LeftCensor && vi.Value <= vj.Value {
			return true
		}
		if vj.Flag == censor.RightCensor && vi.Value >= vj.Value {
			return true
		}
	}
	return false
}

func computeOrdinary(series censor.Series, cfg *config.Config, lwp bool) Result {
	n := series.Len()
	records := make([]censor.Record, n)
	times := make([]float64, n)
	for i, o := range series.Obs {
		records[i] = o.Record
		times[i] = o.Time
	}

	if lwp {
		maxV := math.Inf(-1)
		for _, r := range records {
			if r.Value > maxV {
				maxV = r.Value
			}
		}
		for i := range records {
			if records[i].Flag == censor.RightCensor {
				records[i] = censor.Record{Value: maxV + 0.1, Flag: censor.NoCensor}
			}
		}
	}

	anyCensoredInfluence := false
	pairs := make([]float64, 0, n*(n-1)/2)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			dt := times[j] - times[i]
			if dt == 0 {
				continue
			}
			ambiguous := pairAmbiguous(records[i], records[j])
			if ambiguous {
				if lwp {
					pairs = append(pairs, 0)
					anyCensoredInfluence = true
				}
				continue
			}
			if records[i].IsCensored() || records[j].IsCensored() {
				anyCensoredInfluence = true
			}
			dv := substitutedValue(records[j], cfg) - substitutedValue(records[i], cfg)
			pairs = append(pairs, dv/dt)
		}
	}

	res := Result{NPairs: len(pairs)}
	if len(pairs) == 0 {
		res.Slope = math.NaN()
		res.Intercept = math.NaN()
		res.Notes = append(res.Notes, "insufficient data: no comparable pairs for slope estimation")
		return res
	}
	sort.Float64s(pairs)
	res.Pairs = pairs
	res.Slope = median(pairs)

	values := make([]float64, n)
	for i, r := range records {
		values[i] = substitutedValue(r, cfg)
	}
	res.Intercept = median(values) - res.Slope*median(times)

	if anyCensoredInfluence {
		res.Notes = append(res.Notes, "Sen slope influenced by censored values")
	}
	allTied := true
	for _, v := range values[1:] {
		if v != values[0] {
			allTied = false
			break
		}
	}
	if allTied {
		res.Slope = 0
		res.Notes = append(res.Notes, "tied values: all observations share one value")
	}
	return res
}

func computeStochastic(series censor.Series, cfg *config.Config, rng *rand.Rand) Result {
	n := series.Len()
	totalPairs := int64(n) * int64(n-1) / 2
	if int64(n) <= int64(cfg.StochasticThreshold) || totalPairs <= int64(cfg.StochasticSamples) {
		r := computeOrdinary(series, cfg, false)
		r.Notes = append(r.Notes, "stochastic sampling skipped: n below threshold, used exhaustive pairs")
		return r
	}

	records := make([]censor.Record, n)
	times := make([]float64, n)
	for i, o := range series.Obs {
		records[i] = o.Record
		times[i] = o.Time
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(cfg.RandomState))
	}

	sampled := make([]float64, 0, cfg.StochasticSamples)
	attempts := 0
	maxAttempts := cfg.StochasticSamples * 10
	for len(sampled) < cfg.StochasticSamples && attempts < maxAttempts {
		attempts++
		i := rng.Intn(n)
		j := rng.Intn(n)
		if i == j {
			continue
		}
		if i > j {
			i, j = j, i
		}
		dt := times[j] - times[i]
		if dt == 0 {
			continue
		}
		if pairAmbiguous(records[i], records[j]) {
			continue
		}
		dv := substitutedValue(records[j], cfg) - substitutedValue(records[i], cfg)
		sampled = append(sampled, dv/dt)
	}

	res := Result{NPairs: len(sampled)}
	if len(sampled) == 0 {
		res.Slope = math.NaN()
		res.Intercept = math.NaN()
		res.Notes = append(res.Notes, "insufficient data: stochastic sampling found no comparable pairs")
		return res
	}
	sort.Float64s(sampled)
	res.Pairs = sampled
	res.Slope = median(sampled)

	values := make([]float64, n)
	for i, r := range records {
		values[i] = substitutedValue(r, cfg)
	}
	res.Intercept = median(values) - res.Slope*median(times)
	res.Notes = append(res.Notes, "slope estimated from a stochastic pair sample, not the exhaustive pairwise set")
	return res
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
