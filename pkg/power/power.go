// Package power implements C9: Monte-Carlo power estimation and
// minimum-detectable-trend (MDT) interpolation.
package power

import (
	"math"

	"github.com/trendcore/mktrend/pkg/censor"
	"github.com/trendcore/mktrend/pkg/config"
	"github.com/trendcore/mktrend/pkg/mk"
	"github.com/trendcore/mktrend/pkg/randseed"
	"github.com/trendcore/mktrend/pkg/surrogate"
)

// Result is the output of a C9 power analysis.
type Result struct {
	Slopes []float64
	Power  []float64
	MDT    float64
	Notes  []string
}

// Compute estimates power(beta) for each candidate slope by: generating
// cfg.PowerNSimulations surrogate noise series via C7, adding the
// deterministic trend beta*(t - mean(t)) to each, running a
// cfg.PowerNSurrogates-surrogate test on each synthetic series, and
// taking the fraction whose surrogate p <= alpha.
func Compute(series censor.Series, candidateSlopes []float64, cfg *config.Config) Result {
	n := series.Len()
	if n < 2 {
		return Result{Slopes: candidateSlopes, Power: zeros(len(candidateSlopes)), MDT: math.NaN(),
			Notes: []string{"insufficient data: cannot run power analysis"}}
	}
	times := series.Times()
	meanT := meanOf(times)

	noiseCfg := cfg.Clone()
	noiseCfg.NSurrogates = cfg.PowerNSimulations
	noiseEnsemble := surrogate.Generate(series, noiseCfg)

	res := Result{Slopes: candidateSlopes, Power: make([]float64, len(candidateSlopes))}
	for bi, beta := range candidateSlopes {
		var rejected int
		for sIdx, noise := range noiseEnsemble.Series {
			synth := addTrend(noise, beta, meanT)
			observed := mk.Compute(synth, cfg)

			innerCfg := cfg.Clone()
			innerCfg.NSurrogates = cfg.PowerNSurrogates
			innerCfg.RandomState = randseed.DeriveNested(cfg.RandomState, bi, sIdx)
			innerEnsemble := surrogate.Generate(synth, innerCfg)

			var exceed int
			for _, surr := range innerEnsemble.Series {
				r := mk.Compute(surr, cfg)
				if math.Abs(r.S) >= math.Abs(observed.S) {
					exceed++
				}
			}
			p := float64(exceed+1) / float64(len(innerEnsemble.Series)+1)
			if p <= cfg.Alpha {
				rejected++
			}
		}
		res.Power[bi] = float64(rejected) / float64(len(noiseEnsemble.Series))
	}

	res.MDT = interpolateMDT(candidateSlopes, res.Power, cfg.PowerTarget)
	if math.IsNaN(res.MDT) {
		res.Notes = append(res.Notes, "no crossing of the target power was observed within the supplied slope range")
	}
	return res
}

func addTrend(series censor.Series, beta, meanT float64) censor.Series {
	obs := make([]censor.Observation, series.Len())
	for i, o := range series.Obs {
		o.Record.Value += beta * (o.Time - meanT)
		if o.Record.IsCensored() {
			o.Record.DetectionLimit = o.Record.Value
		}
		obs[i] = o
	}
	return censor.Series{Obs: obs}
}

// interpolateMDT finds the smallest |beta| at which power crosses
// target, linearly interpolating between adjacent candidate slopes.
// Returns NaN if no crossing exists in the supplied range.
func interpolateMDT(slopes, power []float64, target float64) float64 {
	best := math.NaN()
	for i := 1; i < len(slopes); i++ {
		lo, hi := slopes[i-1], slopes[i]
		pLo, pHi := power[i-1], power[i]
		if (pLo < target) == (pHi < target) {
			continue
		}
		frac := (target - pLo) / (pHi - pLo)
		crossing := lo + frac*(hi-lo)
		if math.IsNaN(best) || math.Abs(crossing) < math.Abs(best) {
			best = crossing
		}
	}
	return best
}

func meanOf(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}

func zeros(n int) []float64 { return make([]float64, n) }
