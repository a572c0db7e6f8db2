// Package ci implements C4, the rank-based confidence-interval engine
// over a sorted pairwise-slope distribution.
package ci

import (
	"math"
	"sort"

	"github.com/trendcore/mktrend/pkg/config"
	"gonum.org/v1/gonum/stat/distuv"
)

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// Result is the output of a C4 confidence-interval computation.
type Result struct {
	Lower, Upper float64
	Notes        []string
}

// Compute derives the slope confidence interval from the sorted
// pairwise-slope set and Var(S), per spec.md 4.4. If varS is NaN or
// non-positive, it falls back to the alpha/2 and 1-alpha/2 percentiles
// of bootstrapSlopes when supplied, otherwise returns NaN bounds.
func Compute(pairs []float64, varS float64, cfg *config.Config, bootstrapSlopes []float64) Result {
	nPairs := len(pairs)
	if nPairs == 0 {
		return Result{Lower: math.NaN(), Upper: math.NaN(), Notes: []string{"insufficient data: no pairwise slopes for CI"}}
	}

	if math.IsNaN(varS) || varS <= 0 {
		if len(bootstrapSlopes) > 0 {
			return percentileCI(bootstrapSlopes, cfg.Alpha)
		}
		return Result{Lower: math.NaN(), Upper: math.NaN(), Notes: []string{"numerical: Var(S) unavailable and no bootstrap distribution supplied, CI is NaN"}}
	}

	z := stdNormal.Quantile(1 - cfg.Alpha/2)
	half := z * math.Sqrt(varS)
	nf := float64(nPairs)
	loIdx := (nf - half) / 2
	hiIdx := (nf + half + 2) / 2

	switch cfg.CIMethod {
	case config.CILWP:
		return Result{
			Lower: interpolate(pairs, loIdx),
			Upper: interpolate(pairs, hiIdx),
		}
	default:
		return Result{
			Lower: lookupNearest(pairs, loIdx),
			Upper: lookupNearest(pairs, hiIdx),
		}
	}
}

func lookupNearest(pairs []float64, idx float64) float64 {
	n := len(pairs)
	r := int(math.Round(idx))
	if r < 1 {
		r = 1
	}
	if r > n {
		r = n
	}
	return pairs[r-1]
}

func interpolate(pairs []float64, idx float64) float64 {
	n := len(pairs)
	if idx <= 1 {
		return pairs[0]
	}
	if idx >= float64(n) {
		return pairs[n-1]
	}
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return pairs[lo-1]
	}
	frac := idx - float64(lo)
	return pairs[lo-1] + frac*(pairs[hi-1]-pairs[lo-1])
}

func percentileCI(samples []float64, alpha float64) Result {
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	n := len(sorted)
	loIdx := int(math.Floor(alpha / 2 * float64(n)))
	hiIdx := int(math.Ceil((1 - alpha/2) * float64(n))) - 1
	if loIdx < 0 {
		loIdx = 0
	}
	if hiIdx >= n {
		hiIdx = n - 1
	}
	return Result{
		Lower: sorted[loIdx],
		Upper: sorted[hiIdx],
		Notes: []string{"Var(S) unavailable, CI derived from the bootstrap slope distribution's percentiles"},
	}
}
