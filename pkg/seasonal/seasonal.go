// Package seasonal implements C8: per-season S/Var(S) aggregation with
// independent per-season surrogate testing and a seasonal ATS slope.
package seasonal

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/trendcore/mktrend/pkg/censor"
	"github.com/trendcore/mktrend/pkg/config"
	"github.com/trendcore/mktrend/pkg/mk"
	"github.com/trendcore/mktrend/pkg/randseed"
	"github.com/trendcore/mktrend/pkg/slope"
	"github.com/trendcore/mktrend/pkg/surrogate"
	"gonum.org/v1/gonum/stat/distuv"
)

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// Spec names how season indices are derived from each observation's
// time coordinate.
type Spec struct {
	// Period is the calendar unit defining a season cycle: "month" (12
	// seasons per year) or "quarter" (4 seasons per year). Custom season
	// assignment can be supplied via SeasonOf.
	Period string
	// SeasonOf, if non-nil, overrides Period with a caller-supplied
	// season index function.
	SeasonOf func(t float64) int
}

// SeasonIndex derives the season index for one time coordinate: either
// via SeasonOf, if supplied, or from the calendar period (month or
// quarter extraction).
func (s Spec) SeasonIndex(t float64) int {
	if s.SeasonOf != nil {
		return s.SeasonOf(t)
	}
	ts := time.Unix(int64(t), 0).UTC()
	switch s.Period {
	case "quarter":
		return int(ts.Month()-1) / 3
	default: // month
		return int(ts.Month()) - 1
	}
}

// Result is the output of a C8 seasonal trend test.
type Result struct {
	STotal      float64
	VarTotal    float64
	Z           float64
	P           float64
	NSeasons    int
	SeasonsUsed []int
	Notes       []string
}

// Compute runs per-season C2 and sums S and Var(S) across seasons with
// at least cfg.MinPerSeason observations of at least 2 unique values.
func Compute(series censor.Series, spec Spec, cfg *config.Config) Result {
	bySeason := partitionBySeason(series, spec)

	var res Result
	var skipped []int
	for season, seriesSub := range bySeason {
		if seriesSub.Len() < cfg.MinPerSeason || seriesSub.NUniqueUncensoredValues() < 2 {
			skipped = append(skipped, season)
			continue
		}
		r := mk.Compute(seriesSub, cfg)
		res.STotal += r.S
		res.VarTotal += r.VarS
		res.SeasonsUsed = append(res.SeasonsUsed, season)
	}
	sort.Ints(res.SeasonsUsed)
	sort.Ints(skipped)
	res.NSeasons = len(res.SeasonsUsed)

	if res.NSeasons == 0 {
		res.Notes = append(res.Notes, "insufficient data: no season met min_per_season and unique-value requirements")
		return res
	}
	for _, s := range skipped {
		res.Notes = append(res.Notes, fmt.Sprintf("season %d excluded: below min_per_season or fewer than 2 unique values", s))
	}

	if res.STotal == 0 {
		res.Z = 0
	} else if res.VarTotal <= 0 {
		res.Z = 0
		res.Notes = append(res.Notes, "numerical: Var(S) total <= 0, Z forced to 0")
	} else {
		sign := 1.0
		if res.STotal < 0 {
			sign = -1.0
		}
		res.Z = (res.STotal - sign) / math.Sqrt(res.VarTotal)
	}
	res.P = 2 * (1 - stdNormal.CDF(math.Abs(res.Z)))
	if res.Z == 0 && res.STotal == 0 {
		res.P = 1
	}
	return res
}

// SeasonalATS solves the single beta zeroing Sum_season S_season(v -
// beta*t), per spec.md 4.8, by bracket-expansion and bisection over the
// sum of per-season censored-S residual functions.
func SeasonalATS(series censor.Series, spec Spec, cfg *config.Config) (beta float64, notes []string) {
	bySeason := partitionBySeason(series, spec)
	var eligible []censor.Series
	for _, s := range bySeason {
		if s.NUniqueUncensoredValues() >= 2 {
			eligible = append(eligible, s)
		}
	}
	if len(eligible) == 0 {
		return math.NaN(), []string{"insufficient data: no season eligible for seasonal ATS"}
	}

	seed := slope.Compute(series, cfg, nil)
	if math.IsNaN(seed.Slope) {
		return math.NaN(), []string{"insufficient data: no ordinary-Sen seed for seasonal ATS bracketing"}
	}

	sumS := func(b float64) float64 {
		var total float64
		for _, s := range eligible {
			shifted := shiftByBeta(s, b)
			r := mk.Compute(shifted, cfg)
			total += r.S
		}
		return total
	}

	s0 := sumS(seed.Slope)
	if math.Abs(s0) <= 1 {
		return seed.Slope, nil
	}

	step := math.Max(math.Abs(seed.Slope)*0.1, 1e-6)
	sign0 := signOf(s0)
	var lo, hi float64
	found := false
	for d := 0; d < cfg.ATSMaxDoublings; d++ {
		step *= 2
		lo = seed.Slope - step
		hi = seed.Slope + step
		if signOf(sumS(lo)) != sign0 || signOf(sumS(hi)) != sign0 {
			found = true
			break
		}
	}
	if !found {
		return seed.Slope, []string{"seasonal ATS root-finding found no sign change within the bracket expansion bound; reporting the ordinary-Sen seed"}
	}

	a, b := lo, hi
	if signOf(sumS(a)) == sign0 {
		a, b = b, a
	}
	fa := sumS(a)
	for iter := 0; iter < 200; iter++ {
		mid := (a + b) / 2
		fm := sumS(mid)
		if math.Abs(fm) <= 1 || (b-a) < cfg.ATSTolerance {
			return mid, nil
		}
		if signOf(fm) == signOf(fa) {
			a, fa = mid, fm
		} else {
			b = mid
		}
	}
	return (a + b) / 2, nil
}

func shiftByBeta(series censor.Series, beta float64) censor.Series {
	obs := make([]censor.Observation, series.Len())
	for i, o := range series.Obs {
		o.Record.Value -= beta * o.Time
		if o.Record.IsCensored() {
			o.Record.DetectionLimit = o.Record.Value
		}
		obs[i] = o
	}
	return censor.Series{Obs: obs}
}

func signOf(x float64) int {
	if x > 0 {
		return 1
	}
	if x < 0 {
		return -1
	}
	return 0
}

// SurrogateSTotal builds each season's independent surrogate ensemble
// with a seed derived from (callerSeed, seasonIndex), and returns the
// cfg.NSurrogates null S_total values as the sum of corresponding
// per-season surrogate S values.
func SurrogateSTotal(series censor.Series, spec Spec, cfg *config.Config) []float64 {
	bySeason := partitionBySeason(series, spec)

	type seasonEnsemble struct {
		ensemble surrogate.Ensemble
	}
	var ensembles []seasonEnsemble
	for season, s := range bySeason {
		if s.Len() < cfg.MinPerSeason || s.NUniqueUncensoredValues() < 2 {
			continue
		}
		seasonCfg := cfg.Clone()
		seasonCfg.RandomState = randseed.Derive(cfg.RandomState, season)
		ensembles = append(ensembles, seasonEnsemble{ensemble: surrogate.Generate(s, seasonCfg)})
	}
	if len(ensembles) == 0 {
		return nil
	}

	totals := make([]float64, cfg.NSurrogates)
	for _, se := range ensembles {
		for k, surr := range se.ensemble.Series {
			if k >= cfg.NSurrogates {
				break
			}
			r := mk.Compute(surr, cfg)
			totals[k] += r.S
		}
	}
	return totals
}

func partitionBySeason(series censor.Series, spec Spec) map[int]censor.Series {
	buckets := make(map[int][]censor.Observation)
	for _, o := range series.Obs {
		season := spec.SeasonIndex(o.Time)
		buckets[season] = append(buckets[season], o)
	}
	out := make(map[int]censor.Series, len(buckets))
	for season, obs := range buckets {
		out[season] = censor.Series{Obs: obs}
	}
	return out
}
