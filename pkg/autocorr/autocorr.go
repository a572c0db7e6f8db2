// Package autocorr implements C6: lag-1 autocorrelation estimation, the
// Yue-Wang effective-sample-size variance correction, and moving-block
// bootstrap p-values and CIs for autocorrelated series.
package autocorr

import (
	"math"
	"math/rand"
	"sort"

	"github.com/trendcore/mktrend/pkg/censor"
	"github.com/trendcore/mktrend/pkg/config"
	"github.com/trendcore/mktrend/pkg/mk"
	"github.com/trendcore/mktrend/pkg/slope"
)

// ACF1 estimates lag-1 autocorrelation from the detrended residuals
// v - beta_hat*t, with beta_hat the ordinary-Sen slope over centered
// time (centering avoids conflating the mean level with the trend).
func ACF1(series censor.Series, cfg *config.Config) float64 {
	n := series.Len()
	if n < 3 {
		return 0
	}
	times := series.Times()
	var meanT float64
	for _, t := range times {
		meanT += t
	}
	meanT /= float64(n)

	centered := make([]censor.Observation, n)
	for i, o := range series.Obs {
		o.Time -= meanT
		centered[i] = o
	}
	centeredSeries := censor.Series{Obs: centered}

	seed := slope.Compute(centeredSeries, cfg, nil)
	beta := seed.Slope
	if math.IsNaN(beta) {
		beta = 0
	}

	resid := make([]float64, n)
	for i, o := range centered {
		resid[i] = o.Record.Value - beta*o.Time
	}

	var mean float64
	for _, r := range resid {
		mean += r
	}
	mean /= float64(n)

	var num, den float64
	for i := 0; i < n-1; i++ {
		num += (resid[i] - mean) * (resid[i+1] - mean)
	}
	for i := 0; i < n; i++ {
		den += (resid[i] - mean) * (resid[i] - mean)
	}
	if den == 0 {
		return 0
	}
	rho := num / den
	if rho > 0.999 {
		rho = 0.999
	}
	if rho < -0.999 {
		rho = -0.999
	}
	return rho
}

// YueWangEffectiveN returns n_eff = n*(1-rho1)/(1+rho1), clamped to
// [1, n].
func YueWangEffectiveN(n int, rho1 float64) float64 {
	nf := float64(n)
	if rho1 <= -1 || rho1 >= 1 {
		return nf
	}
	neff := nf * (1 - rho1) / (1 + rho1)
	if neff < 1 {
		neff = 1
	}
	if neff > nf {
		neff = nf
	}
	return neff
}

// InflateVariance applies the Yue-Wang correction to a raw Var(S).
func InflateVariance(varS float64, n int, rho1 float64) float64 {
	neff := YueWangEffectiveN(n, rho1)
	if neff <= 0 {
		return varS
	}
	return varS * float64(n) / neff
}

// AutoBlockSize picks the smallest lag at which |ACF(lag)| falls below
// threshold, floored at 1 and capped at n/5, per spec.md 4.6.
func AutoBlockSize(resid []float64, threshold float64) int {
	n := len(resid)
	cap := n / 5
	if cap < 1 {
		cap = 1
	}
	var mean float64
	for _, r := range resid {
		mean += r
	}
	mean /= float64(n)
	var den float64
	for _, r := range resid {
		den += (r - mean) * (r - mean)
	}
	if den == 0 {
		return 1
	}
	for lag := 1; lag <= cap; lag++ {
		var num float64
		for i := 0; i+lag < n; i++ {
			num += (resid[i] - mean) * (resid[i+lag] - mean)
		}
		acf := num / den
		if math.Abs(acf) < threshold {
			return lag
		}
	}
	return cap
}

// BootstrapPValue runs the detrended-residual moving-block bootstrap of
// spec.md 4.6: block size computed (or taken from cfg.BlockSize),
// residual blocks resampled with replacement into null series of length
// n, S recomputed against the original time axis, and the two-sided
// count-based p-value returned.
func BootstrapPValue(series censor.Series, cfg *config.Config, observedS float64, rng *rand.Rand) (p float64, blockSize int, notes []string) {
	n := series.Len()
	if n < 3 {
		return 1, 0, []string{"insufficient data: cannot bootstrap p-value"}
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(cfg.RandomState))
	}

	times := series.Times()
	meanT := meanOf(times)
	seed := slope.Compute(series, cfg, rng)
	beta := seed.Slope
	if math.IsNaN(beta) {
		beta = 0
	}
	resid := make([]float64, n)
	for i, o := range series.Obs {
		resid[i] = o.Record.Value - beta*(o.Time-meanT)
	}

	blockSize = cfg.BlockSize
	if blockSize <= 0 {
		blockSize = AutoBlockSize(resid, cfg.ACFThreshold)
	}

	exceed := 0
	for b := 0; b < cfg.NBootstrap; b++ {
		nullSeries := buildBlockBootstrapSeries(series, resid, blockSize, rng)
		r := mk.Compute(nullSeries, cfg)
		if math.Abs(r.S) >= math.Abs(observedS) {
			exceed++
		}
	}
	p = float64(exceed+1) / float64(cfg.NBootstrap+1)
	return p, blockSize, nil
}

func buildBlockBootstrapSeries(series censor.Series, resid []float64, blockSize int, rng *rand.Rand) censor.Series {
	n := series.Len()
	if blockSize < 1 {
		blockSize = 1
	}
	nullResid := make([]float64, 0, n)
	for len(nullResid) < n {
		start := rng.Intn(n)
		for k := 0; k < blockSize && len(nullResid) < n; k++ {
			nullResid = append(nullResid, resid[(start+k)%n])
		}
	}
	obs := make([]censor.Observation, n)
	for i, o := range series.Obs {
		obs[i] = censor.Observation{
			Time:        o.Time,
			Record:      censor.Record{Value: nullResid[i], Flag: censor.NoCensor},
			Uncertainty: o.Uncertainty,
		}
	}
	return censor.Series{Obs: obs}
}

// BootstrapSlopeCI implements spec.md 4.6's pairs bootstrap for CIs:
// resample whole (t, v, flag) observations with replacement in
// contiguous blocks, re-sort by time, and recompute the C3 slope.
func BootstrapSlopeCI(series censor.Series, cfg *config.Config, rng *rand.Rand) (slopes []float64) {
	n := series.Len()
	if n < 2 {
		return nil
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(cfg.RandomState))
	}
	blockSize := cfg.BlockSize
	if blockSize <= 0 {
		times := series.Times()
		meanT := meanOf(times)
		seed := slope.Compute(series, cfg, rng)
		beta := seed.Slope
		if math.IsNaN(beta) {
			beta = 0
		}
		resid := make([]float64, n)
		for i, o := range series.Obs {
			resid[i] = o.Record.Value - beta*(o.Time-meanT)
		}
		blockSize = AutoBlockSize(resid, cfg.ACFThreshold)
	}

	slopes = make([]float64, 0, cfg.NBootstrap)
	for b := 0; b < cfg.NBootstrap; b++ {
		obs := make([]censor.Observation, 0, n)
		for len(obs) < n {
			start := rng.Intn(n)
			for k := 0; k < blockSize && len(obs) < n; k++ {
				obs = append(obs, series.Obs[(start+k)%n])
			}
		}
		sort.SliceStable(obs, func(i, j int) bool { return obs[i].Time < obs[j].Time })
		resampled := censor.Series{Obs: obs}
		r := slope.Compute(resampled, cfg, rng)
		if !math.IsNaN(r.Slope) {
			slopes = append(slopes, r.Slope)
		}
	}
	sort.Float64s(slopes)
	return slopes
}

func meanOf(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}
