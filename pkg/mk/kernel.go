// Package mk implements C2, the Mann-Kendall kernel: the censored S
// statistic, its tie- and censor-corrected variance, Z, p, and Kendall's
// tau.
package mk

import (
	"math"
	"sort"

	"github.com/trendcore/mktrend/pkg/censor"
	"github.com/trendcore/mktrend/pkg/config"
	"gonum.org/v1/gonum/stat/distuv"
)

// MaxExactN is the complexity floor of spec.md 4.2: at or below this
// size, an uncensored series MUST use the O(n log n) path.
const MaxExactN = 50000

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// Result is the output of the MK kernel.
type Result struct {
	N           int
	S           float64
	D           float64 // concordant + discordant
	Concordant  float64
	Discordant  float64
	VarS        float64
	Z           float64
	P           float64
	Tau         float64
	Eps         float64
	UsedFastPath bool
	Notes       []string
}

// Compute runs the MK kernel over series under cfg's tie_break_method,
// mk_method, and tau_method options.
func Compute(series censor.Series, cfg *config.Config) Result {
	n := series.Len()
	if n < 2 {
		return Result{
			N:          n,
			S:          math.NaN(),
			D:          math.NaN(),
			Concordant: math.NaN(),
			Discordant: math.NaN(),
			VarS:       math.NaN(),
			Z:          math.NaN(),
			P:          math.NaN(),
			Tau:        math.NaN(),
			Notes:      []string{"insufficient data: fewer than 2 observations"},
		}
	}
	res := Result{N: n}

	values := make([]float64, n)
	records := make([]censor.Record, n)
	for i, o := range series.Obs {
		records[i] = o.Record
		values[i] = o.Record.Value
	}

	if cfg.MKMethod == config.MKLWP {
		maxV := math.Inf(-1)
		for _, v := range values {
			if v > maxV {
				maxV = v
			}
		}
		replacement := maxV + 0.1
		for i := range records {
			if records[i].Flag == censor.RightCensor {
				records[i] = censor.Record{Value: replacement, Flag: censor.NoCensor}
			}
		}
		res.Notes = append(res.Notes, "mk_method=lwp: right-censored values replaced with max(v)+0.1 and treated as uncensored")
	}

	eps := tieEpsilon(values, cfg.TieBreakMethod)
	res.Eps = eps

	anyCensored := false
	for _, r := range records {
		if r.IsCensored() {
			anyCensored = true
			break
		}
	}

	var concordant, discordant, tieTotal float64
	var delu, delc float64
	var crossPairs float64

	if !anyCensored && n <= MaxExactN {
		concordant, discordant, tieTotal, delu = computeFast(values, eps)
		res.UsedFastPath = true
	} else {
		concordant, discordant, tieTotal, delu, delc, crossPairs = computeGeneral(records, eps)
		if n > MaxExactN {
			res.Notes = append(res.Notes, "n exceeds the O(n log n) complexity floor; used O(n^2) censored-pair evaluation with float64 accumulation")
		}
	}

	res.Concordant = concordant
	res.Discordant = discordant
	res.D = concordant + discordant
	res.S = concordant - discordant

	nf := float64(n)
	totalPairs := nf * (nf - 1) / 2
	varRaw := nf*(nf-1)*(2*nf+5) - delu - delc
	res.VarS = varRaw/18.0 - crossPairs
	if res.VarS < 0 {
		res.VarS = 0
		res.Notes = append(res.Notes, "numerical: variance correction exceeded the raw term, clamped to 0")
	}

	if res.S == 0 {
		res.Z = 0
	} else if res.VarS <= 0 {
		res.Z = 0
		res.Notes = append(res.Notes, "numerical: Var(S) <= 0, Z forced to 0")
	} else {
		sign := 1.0
		if res.S < 0 {
			sign = -1.0
		}
		res.Z = (res.S - sign) / math.Sqrt(res.VarS)
	}
	res.P = 2 * (1 - stdNormal.CDF(math.Abs(res.Z)))
	if res.Z == 0 && res.S == 0 {
		res.P = 1
	}

	switch cfg.TauMethod {
	case config.TauA:
		if totalPairs > 0 {
			res.Tau = res.S / totalPairs
		}
	default: // TauB
		timeTiePairs := tieTimePairs(series)
		denom := (totalPairs - tieTotal) * (totalPairs - timeTiePairs)
		if denom > 0 {
			res.Tau = res.S / math.Sqrt(denom)
		}
	}

	return res
}

// tieEpsilon computes the tie-break epsilon per spec.md's two policies.
func tieEpsilon(values []float64, method config.TieBreakMethod) float64 {
	uniq := uniqueSorted(values)
	if len(uniq) < 2 {
		return 0
	}
	minDiff := math.Inf(1)
	for i := 1; i < len(uniq); i++ {
		d := uniq[i] - uniq[i-1]
		if d > 0 && d < minDiff {
			minDiff = d
		}
	}
	if math.IsInf(minDiff, 1) {
		return 0
	}
	if method == config.TieBreakLWP {
		return minDiff / 1000
	}
	return minDiff / 2
}

func uniqueSorted(values []float64) []float64 {
	cp := append([]float64(nil), values...)
	sort.Float64s(cp)
	out := cp[:0]
	var last float64
	first := true
	for _, v := range cp {
		if first || v != last {
			out = append(out, v)
			last = v
			first = false
		}
	}
	return out
}

// computeFast implements the O(n log n) exact S computation for
// uncensored series via Fenwick-tree inversion counting.
func computeFast(values []float64, eps float64) (concordant, discordant, tieTotal, delu float64) {
	n := len(values)
	groupID, nGroups := rankGroups(values, eps)

	bit := newFenwick(nGroups)
	var inserted int64
	for k := 0; k < n; k++ {
		g := groupID[k] + 1 // 1-based
		equal := bit.prefixSum(g) - bit.prefixSum(g-1)
		greater := bit.countGreater(g, inserted)
		less := inserted - greater - equal

		// Pair (i, k) for earlier i: value_i vs value_k (current).
		// concordant: value_i < value_k  -> "less" count
		// discordant: value_i > value_k  -> "greater" count
		// tie:        value_i == value_k -> "equal" count
		concordant += float64(less)
		discordant += float64(greater)
		tieTotal += float64(equal)

		bit.add(g, 1)
		inserted++
	}

	groupSizes := make([]int64, nGroups)
	for _, g := range groupID {
		groupSizes[g]++
	}
	for _, g := range groupSizes {
		if g >= 2 {
			gf := float64(g)
			delu += gf * (gf - 1) * (2*gf + 5)
		}
	}
	return concordant, discordant, tieTotal, delu
}

// computeGeneral implements the O(n^2) censored-pair evaluation, using
// the three-state comparison of compare.go, with float64 accumulators
// throughout (spec.md 4.2's note on avoiding integer overflow at large n
// by using a float accumulator).
//
// Variance decomposition: this package treats delu and delc as
// equivalence-class corrections (a size-g tied group contributes
// g(g-1)(2g+5), the textbook Mann-Kendall tie term) because same-value
// uncensored ties, and same-direction censored ties, both form true
// equivalence classes (transitive: <5 ties with every other <-value
// regardless of its limit). Cross ties between a censored and an
// uncensored observation, and between oppositely-censored observations
// that happen to overlap, do NOT form equivalence classes (tying is not
// transitive across them), so they cannot be summarized by a group size;
// each such pair is counted once and subtracted directly from the raw
// variance term (crossPairs), which collapses to the standard
// tie-corrected Mann-Kendall variance when no censoring is present.
func computeGeneral(records []censor.Record, eps float64) (concordant, discordant, tieTotal, delu, delc, crossPairs float64) {
	n := len(records)

	uncensoredValues := make([]float64, 0, n)
	var nLeft, nRight int64
	for _, r := range records {
		switch r.Flag {
		case censor.NoCensor:
			uncensoredValues = append(uncensoredValues, r.Value)
		case censor.LeftCensor:
			nLeft++
		case censor.RightCensor:
			nRight++
		}
	}
	if nLeft >= 2 {
		f := float64(nLeft)
		delc += f * (f - 1) * (2*f + 5)
	}
	if nRight >= 2 {
		f := float64(nRight)
		delc += f * (f - 1) * (2*f + 5)
	}
	if len(uncensoredValues) >= 2 {
		ids, groups := rankGroups(uncensoredValues, eps)
		sizes := make([]int64, groups)
		for _, g := range ids {
			sizes[g]++
		}
		for _, g := range sizes {
			if g >= 2 {
				gf := float64(g)
				delu += gf * (gf - 1) * (2*gf + 5)
			}
		}
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sign, kind := compare(records[i], records[j], eps)
			switch {
			case sign > 0:
				concordant++
			case sign < 0:
				discordant++
			default:
				tieTotal++
				switch kind {
				case tieCU, tieCCOpposite:
					crossPairs++
				}
			}
		}
	}
	return concordant, discordant, tieTotal, delu, delc, crossPairs
}

// tieTimePairs counts pairs that share an identical time coordinate (the
// "x" side tie correction for tau_method=b).
func tieTimePairs(series censor.Series) float64 {
	times := make([]float64, series.Len())
	for i, o := range series.Obs {
		times[i] = o.Time
	}
	sort.Float64s(times)
	var total float64
	run := 1
	for i := 1; i < len(times); i++ {
		if times[i] == times[i-1] {
			run++
			continue
		}
		if run >= 2 {
			f := float64(run)
			total += f * (f - 1) / 2
		}
		run = 1
	}
	if run >= 2 {
		f := float64(run)
		total += f * (f - 1) / 2
	}
	return total
}
