package rolling

import (
	"math"
	"sort"

	"github.com/sajari/regression"

	"github.com/trendcore/mktrend/pkg/censor"
	"github.com/trendcore/mktrend/pkg/ci"
	"github.com/trendcore/mktrend/pkg/config"
	"github.com/trendcore/mktrend/pkg/mk"
	"github.com/trendcore/mktrend/pkg/slope"
)

// Segment is one piecewise-OLS-seeded region of a segmented trend test.
type Segment struct {
	Start, End float64
	N          int
	Slope      float64
	Intercept  float64
	CILower    float64
	CIUpper    float64
	S          float64
	VarS       float64
	Z          float64
	P          float64
	Notes      []string
}

// SegmentedResult is the output of the breakpoint-segmented driver,
// including the predictor closure of spec.md 4.10.
type SegmentedResult struct {
	Breakpoints    []float64
	BreakpointCIs  [][2]float64
	Segments       []Segment
	Notes          []string
	predictSlopes  []float64
	predictIntercepts []float64
	predictBounds  []float64
}

// Predict evaluates the piecewise-linear predictor beta_seg*t +
// alpha_seg for the segment containing t.
func (r SegmentedResult) Predict(t float64) float64 {
	idx := 0
	for i, bound := range r.predictBounds {
		if t >= bound {
			idx = i + 1
		}
	}
	if idx >= len(r.predictSlopes) {
		idx = len(r.predictSlopes) - 1
	}
	if idx < 0 {
		return math.NaN()
	}
	return r.predictSlopes[idx]*t + r.predictIntercepts[idx]
}

// Segmented implements spec.md 4.10's breakpoint-segmented driver: seeds
// breakpoints via a piecewise-OLS finder (sajari/regression fits per
// candidate split, selected by the chosen information criterion), then
// runs C2-C4 per resulting segment.
func Segmented(series censor.Series, maxBreakpoints int, criterion string, cfg *config.Config) SegmentedResult {
	n := series.Len()
	if n < 2*cfg.MinSize {
		return SegmentedResult{Notes: []string{"insufficient data: series too short to seed any breakpoint"}}
	}

	times := series.Times()
	values := series.Values()

	breakIdx := findBreakpoints(times, values, maxBreakpoints, criterion, cfg.MinSize)

	var res SegmentedResult
	bounds := make([]float64, 0, len(breakIdx))
	start := 0
	for _, bp := range append(breakIdx, n) {
		sub := censor.Series{Obs: series.Obs[start:bp]}
		if sub.Len() == 0 {
			start = bp
			continue
		}
		seg := computeSegment(sub, cfg)
		res.Segments = append(res.Segments, seg)
		res.predictSlopes = append(res.predictSlopes, seg.Slope)
		res.predictIntercepts = append(res.predictIntercepts, seg.Intercept)
		if bp < n {
			bpTime := series.Obs[bp].Time
			res.Breakpoints = append(res.Breakpoints, bpTime)
			bounds = append(bounds, bpTime)
		}
		start = bp
	}
	res.predictBounds = bounds
	return res
}

func computeSegment(sub censor.Series, cfg *config.Config) Segment {
	times := sub.Times()
	mkRes := mk.Compute(sub, cfg)
	slopeRes := slope.Compute(sub, cfg, nil)
	ciRes := ci.Compute(slopeRes.Pairs, mkRes.VarS, cfg, nil)
	seg := Segment{
		Start:     times[0],
		End:       times[len(times)-1],
		N:         sub.Len(),
		Slope:     slopeRes.Slope,
		Intercept: slopeRes.Intercept,
		CILower:   ciRes.Lower,
		CIUpper:   ciRes.Upper,
		S:         mkRes.S,
		VarS:      mkRes.VarS,
		Z:         mkRes.Z,
		P:         mkRes.P,
	}
	seg.Notes = append(seg.Notes, mkRes.Notes...)
	seg.Notes = append(seg.Notes, slopeRes.Notes...)
	return seg
}

// findBreakpoints seeds up to maxBreakpoints split indices by greedy
// piecewise-OLS search: repeatedly try every admissible split of every
// current segment, picking the split whose two-piece fit improves the
// information criterion the most, until
// maxBreakpoints splits are placed or no split improves the criterion.
func findBreakpoints(times, values []float64, maxBreakpoints int, criterion string, minSize int) []int {
	n := len(times)
	segments := [][2]int{{0, n}}

	for len(segments)-1 < maxBreakpoints {
		bestGain := 0.0
		bestSeg := -1
		bestSplit := -1
		for si, seg := range segments {
			lo, hi := seg[0], seg[1]
			if hi-lo < 2*minSize {
				continue
			}
			baseIC := olsIC(times[lo:hi], values[lo:hi], criterion)
			for split := lo + minSize; split <= hi-minSize; split++ {
				ic1 := olsIC(times[lo:split], values[lo:split], criterion)
				ic2 := olsIC(times[split:hi], values[split:hi], criterion)
				gain := baseIC - (ic1 + ic2)
				if gain > bestGain {
					bestGain = gain
					bestSeg = si
					bestSplit = split
				}
			}
		}
		if bestSeg < 0 {
			break
		}
		lo, hi := segments[bestSeg][0], segments[bestSeg][1]
		newSegments := make([][2]int, 0, len(segments)+1)
		newSegments = append(newSegments, segments[:bestSeg]...)
		newSegments = append(newSegments, [2]int{lo, bestSplit}, [2]int{bestSplit, hi})
		newSegments = append(newSegments, segments[bestSeg+1:]...)
		segments = newSegments
	}

	sort.Slice(segments, func(i, j int) bool { return segments[i][0] < segments[j][0] })
	breaks := make([]int, 0, len(segments)-1)
	for i := 0; i < len(segments)-1; i++ {
		breaks = append(breaks, segments[i][1])
	}
	return breaks
}

// olsIC fits an OLS line via sajari/regression and returns an AIC/BIC-like
// information criterion from its residual sum of squares.
func olsIC(times, values []float64, criterion string) float64 {
	n := len(times)
	if n < 2 {
		return math.Inf(1)
	}
	r := new(regression.Regression)
	r.SetObserved("value")
	r.SetVar(0, "time")
	for i := range times {
		r.AddDataPoint(regression.DataPoint(values[i], []float64{times[i]}))
	}
	if err := r.Run(); err != nil {
		return math.Inf(1)
	}
	intercept := r.Coeff(0)
	beta := r.Coeff(1)

	var rss float64
	for i := range times {
		pred := intercept + beta*times[i]
		d := values[i] - pred
		rss += d * d
	}
	if rss <= 0 {
		rss = 1e-12
	}
	k := 2.0 // slope + intercept
	nf := float64(n)
	switch criterion {
	case "bic":
		return nf*math.Log(rss/nf) + k*math.Log(nf)
	default: // aic
		return nf*math.Log(rss/nf) + 2*k
	}
}
