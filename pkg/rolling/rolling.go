// Package rolling implements C10: the rolling-window driver and the
// breakpoint-segmented driver. Both repeatedly invoke the core C2-C4
// kernel over sub-series of the input.
package rolling

import (
	"math"

	"github.com/trendcore/mktrend/pkg/censor"
	"github.com/trendcore/mktrend/pkg/ci"
	"github.com/trendcore/mktrend/pkg/config"
	"github.com/trendcore/mktrend/pkg/mk"
	"github.com/trendcore/mktrend/pkg/mkerrors"
	"github.com/trendcore/mktrend/pkg/slope"
)

// WindowResult is one row of a rolling-trend table.
type WindowResult struct {
	Center    float64
	Start     float64
	End       float64
	N         int
	Slope     float64
	CILower   float64
	CIUpper   float64
	S         float64
	VarS      float64
	Z         float64
	P         float64
	Notes     []string
}

// Rolling runs spec.md 4.10's rolling-window driver: half-open windows
// [t_s, t_s+W) stepped by delta, leading edge fully in-data, trailing
// edge adaptive (a shortened window is still computed while it holds at
// least cfg.MinSize observations).
func Rolling(series censor.Series, window, step float64, cfg *config.Config) ([]WindowResult, error) {
	n := series.Len()
	if n == 0 {
		return nil, nil
	}
	times := series.Times()
	tMin, tMax := times[0], times[n-1]

	nWindows := 0
	if step > 0 {
		nWindows = int(math.Ceil((tMax-tMin)/step)) + 1
	}
	if nWindows > cfg.MaxWindows {
		return nil, mkerrors.NewSafetyError("rolling.Rolling", "max_windows", float64(nWindows), float64(cfg.MaxWindows))
	}

	var results []WindowResult
	for start := tMin; start < tMax; start += step {
		end := start + window
		sub := sliceWindow(series, start, end)
		if sub.Len() < cfg.MinSize {
			if end >= tMax {
				break
			}
			continue
		}
		results = append(results, computeWindow(sub, start, end, cfg))
	}
	return results, nil
}

func sliceWindow(series censor.Series, start, end float64) censor.Series {
	var obs []censor.Observation
	for _, o := range series.Obs {
		if o.Time >= start && o.Time < end {
			obs = append(obs, o)
		}
	}
	return censor.Series{Obs: obs}
}

func computeWindow(sub censor.Series, start, end float64, cfg *config.Config) WindowResult {
	mkRes := mk.Compute(sub, cfg)
	slopeRes := slope.Compute(sub, cfg, nil)
	ciRes := ci.Compute(slopeRes.Pairs, mkRes.VarS, cfg, nil)

	wr := WindowResult{
		Center:  (start + end) / 2,
		Start:   start,
		End:     end,
		N:       sub.Len(),
		Slope:   slopeRes.Slope,
		CILower: ciRes.Lower,
		CIUpper: ciRes.Upper,
		S:       mkRes.S,
		VarS:    mkRes.VarS,
		Z:       mkRes.Z,
		P:       mkRes.P,
	}
	wr.Notes = append(wr.Notes, mkRes.Notes...)
	wr.Notes = append(wr.Notes, slopeRes.Notes...)
	wr.Notes = append(wr.Notes, ciRes.Notes...)
	return wr
}
