// Package surrogate implements C7: IAAFT surrogates for evenly-sampled
// series and Lomb-Scargle spectral-synthesis surrogates for unevenly
// sampled series, with rank-propagated censor flags and a fully
// reproducible per-surrogate seed contract.
package surrogate

import (
	"math"
	"math/rand"
	"sort"

	"github.com/trendcore/mktrend/pkg/censor"
	"github.com/trendcore/mktrend/pkg/config"
	"github.com/trendcore/mktrend/pkg/randseed"
	"gonum.org/v1/gonum/dsp/fourier"
)

// EvenSamplingTolerance is the relative tolerance used to decide whether
// a time axis is "within-tolerance uniform spacing" for IAAFT, vs.
// irregular enough to require Lomb-Scargle.
const EvenSamplingTolerance = 0.01

// Ensemble is one surrogate-generation run: K synthetic series with
// their deterministically-derived per-surrogate seeds.
type Ensemble struct {
	Series []censor.Series
	Seeds  []int64
	Method config.SurrogateMethod
	Notes  []string
}

// Generate produces cfg.NSurrogates surrogate series from series, using
// the method named by cfg.SurrogateMethod, or auto-selecting IAAFT vs.
// Lomb-Scargle from sampling regularity when cfg.SurrogateMethod is
// "auto" or "none".
func Generate(series censor.Series, cfg *config.Config) Ensemble {
	method := cfg.SurrogateMethod
	if method == config.SurrogateAuto || method == config.SurrogateNone {
		if isEvenlySampled(series.Times()) {
			method = config.SurrogateIAAFT
		} else {
			method = config.SurrogateLombScargle
		}
	}

	ens := Ensemble{Method: method}
	values := series.Values()
	if stddev(values) < 1e-9 {
		for k := 0; k < cfg.NSurrogates; k++ {
			ens.Series = append(ens.Series, series)
			ens.Seeds = append(ens.Seeds, randseed.Derive(cfg.RandomState, k))
		}
		ens.Notes = append(ens.Notes, "numerical: constant input, surrogates are copies of the original series")
		return ens
	}

	for k := 0; k < cfg.NSurrogates; k++ {
		seed := randseed.Derive(cfg.RandomState, k)
		rng := rand.New(rand.NewSource(seed))
		var surrogateValues []float64
		switch method {
		case config.SurrogateLombScargle:
			surrogateValues = lombScargleSurrogate(series, cfg, rng)
		default:
			surrogateValues = iaaft(values, cfg.IAAFTMaxIter, rng)
		}
		ens.Series = append(ens.Series, buildSurrogateSeries(series, surrogateValues))
		ens.Seeds = append(ens.Seeds, seed)
	}
	return ens
}

func isEvenlySampled(times []float64) bool {
	n := len(times)
	if n < 3 {
		return true
	}
	diffs := make([]float64, n-1)
	for i := 1; i < n; i++ {
		diffs[i-1] = times[i] - times[i-1]
	}
	mean := meanOf(diffs)
	if mean == 0 {
		return false
	}
	for _, d := range diffs {
		if math.Abs(d-mean)/mean > EvenSamplingTolerance {
			return false
		}
	}
	return true
}

// iaaft implements the iterative amplitude-adjusted Fourier transform:
// starting from a random permutation of the original, alternate spectrum
// replacement (the current iterate's FFT phases are kept, the magnitude
// spectrum is forced to match the original) and rank-matching (the
// result's values are replaced by the original's sorted values at
// matching ranks), until the squared change between successive iterates
// stops decreasing or IAAFTMaxIter is reached.
func iaaft(original []float64, maxIter int, rng *rand.Rand) []float64 {
	n := len(original)
	sortedOriginal := append([]float64(nil), original...)
	sort.Float64s(sortedOriginal)

	fft := fourier.NewFFT(n)
	origSpectrum := fft.Coefficients(nil, original)
	origMag := make([]float64, len(origSpectrum))
	for i, c := range origSpectrum {
		origMag[i] = cabs(c)
	}

	current := make([]float64, n)
	perm := rng.Perm(n)
	for i, p := range perm {
		current[i] = original[p]
	}

	prevDiscrepancy := math.Inf(1)
	for iter := 0; iter < maxIter; iter++ {
		spectrum := fft.Coefficients(nil, current)
		for i, c := range spectrum {
			mag := origMag[i]
			ph := cphase(c)
			spectrum[i] = cpolar(mag, ph)
		}
		filtered := fft.Sequence(nil, spectrum)
		for i := range filtered {
			filtered[i] /= float64(n)
		}

		ranked := rankMatch(filtered, sortedOriginal)

		var discrepancy float64
		for i := range ranked {
			d := ranked[i] - current[i]
			discrepancy += d * d
		}
		current = ranked
		if discrepancy >= prevDiscrepancy {
			break
		}
		prevDiscrepancy = discrepancy
	}
	return current
}

// rankMatch replaces values with the sorted reference array's entries at
// matching ranks (so the output's empirical marginal exactly equals the
// reference's).
func rankMatch(values, sortedReference []float64) []float64 {
	n := len(values)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })
	out := make([]float64, n)
	for rank, i := range idx {
		out[i] = sortedReference[rank]
	}
	return out
}

func cabs(c complex128) float64  { return math.Hypot(real(c), imag(c)) }
func cphase(c complex128) float64 { return math.Atan2(imag(c), real(c)) }
func cpolar(mag, phase float64) complex128 {
	return complex(mag*math.Cos(phase), mag*math.Sin(phase))
}

// lombScargleSurrogate synthesizes a surrogate for unevenly-sampled
// series via generalized Lomb-Scargle spectral synthesis, per spec.md
// 4.7: a frequency grid, uniform random phases, and a cosine-sum
// reconstruction with negative power clipped to 0.
func lombScargleSurrogate(series censor.Series, cfg *config.Config, rng *rand.Rand) []float64 {
	times := series.Times()
	values := series.Values()
	n := len(times)

	freqs := frequencyGrid(times, cfg.LSFreqGrid)
	power := lombScarglePower(times, values, freqs)

	out := make([]float64, n)
	const chunkFreqs = 256
	for start := 0; start < len(freqs); start += chunkFreqs {
		end := start + chunkFreqs
		if end > len(freqs) {
			end = len(freqs)
		}
		for k := start; k < end; k++ {
			amp := math.Sqrt(math.Max(power[k], 0))
			if amp == 0 {
				continue
			}
			phase := rng.Float64() * 2 * math.Pi
			for i, t := range times {
				out[i] += amp * math.Cos(2*math.Pi*freqs[k]*t+phase)
			}
		}
	}

	if cfg.LSFreqGrid != "raw" {
		sortedOriginal := append([]float64(nil), values...)
		sort.Float64s(sortedOriginal)
		out = rankMatch(out, sortedOriginal)
	}
	return out
}

// frequencyGrid builds the Lomb-Scargle evaluation grid named by mode:
// "auto" gives an FFT-equivalent linear grid up to the Nyquist-like rate
// implied by the mean spacing; "log" gives a log-spaced grid over the
// same span; anything else falls back to "auto".
func frequencyGrid(times []float64, mode string) []float64 {
	n := len(times)
	span := times[n-1] - times[0]
	if span <= 0 {
		span = float64(n)
	}
	meanDT := span / float64(n-1)
	fNyq := 0.5 / meanDT
	nFreqs := n
	if nFreqs > 2048 {
		nFreqs = 2048
	}
	if nFreqs < 8 {
		nFreqs = 8
	}

	freqs := make([]float64, nFreqs)
	if mode == "log" {
		fMin := 1.0 / span
		logMin, logMax := math.Log(fMin), math.Log(fNyq)
		for i := 0; i < nFreqs; i++ {
			frac := float64(i) / float64(nFreqs-1)
			freqs[i] = math.Exp(logMin + frac*(logMax-logMin))
		}
		return freqs
	}
	for i := 0; i < nFreqs; i++ {
		freqs[i] = fNyq * float64(i+1) / float64(nFreqs)
	}
	return freqs
}

// lombScarglePower evaluates the generalized Lomb-Scargle periodogram at
// each requested frequency.
func lombScarglePower(times, values, freqs []float64) []float64 {
	n := len(times)
	mean := meanOf(values)
	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	if variance == 0 {
		variance = 1e-12
	}

	power := make([]float64, len(freqs))
	for k, f := range freqs {
		w := 2 * math.Pi * f
		var sin2wt, cos2wt float64
		for _, t := range times {
			sin2wt += math.Sin(2 * w * t)
			cos2wt += math.Cos(2 * w * t)
		}
		tau := math.Atan2(sin2wt, cos2wt) / (2 * w)

		var sc, ss, cc, ssum float64
		for i, t := range times {
			c := math.Cos(w * (t - tau))
			s := math.Sin(w * (t - tau))
			d := values[i] - mean
			sc += d * c
			ss += d * s
			cc += c * c
			ssum += s * s
		}
		var term1, term2 float64
		if cc > 1e-12 {
			term1 = sc * sc / cc
		}
		if ssum > 1e-12 {
			term2 = ss * ss / ssum
		}
		power[k] = (term1 + term2) / (2 * variance)
	}
	return power
}

// buildSurrogateSeries reattaches the original time axis and, per
// spec.md 4.7's censor-handling rule, propagates each observation's
// censor flag by rank: the k-th order statistic of the surrogate
// inherits the flag of the k-th order statistic of the input.
func buildSurrogateSeries(original censor.Series, surrogateValues []float64) censor.Series {
	n := original.Len()
	origIdx := make([]int, n)
	for i := range origIdx {
		origIdx[i] = i
	}
	sort.SliceStable(origIdx, func(a, b int) bool {
		return original.Obs[origIdx[a]].Record.Value < original.Obs[origIdx[b]].Record.Value
	})

	surIdx := make([]int, n)
	for i := range surIdx {
		surIdx[i] = i
	}
	sort.SliceStable(surIdx, func(a, b int) bool { return surrogateValues[surIdx[a]] < surrogateValues[surIdx[b]] })

	flagByPos := make([]censor.Record, n)
	for rank, oi := range origIdx {
		si := surIdx[rank]
		origRec := original.Obs[oi].Record
		flagByPos[si] = censor.Record{Value: surrogateValues[si], Flag: origRec.Flag, DetectionLimit: surrogateValues[si]}
	}

	obs := make([]censor.Observation, n)
	for i, o := range original.Obs {
		obs[i] = censor.Observation{Time: o.Time, Record: flagByPos[i], Uncertainty: o.Uncertainty}
	}
	return censor.Series{Obs: obs}
}

func meanOf(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}

func stddev(v []float64) float64 {
	if len(v) < 2 {
		return 0
	}
	m := meanOf(v)
	var ss float64
	for _, x := range v {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(v)-1))
}
