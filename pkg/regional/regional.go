// Package regional implements C12: multi-site trend aggregation with an
// inter-site correlation correction to the variance of the agreement
// fraction.
package regional

import (
	"math"

	"github.com/trendcore/mktrend/pkg/censor"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// SiteStat is the per-site trend summary C12 consumes.
type SiteStat struct {
	S          float64
	Confidence float64 // C_i in [0, 1]
	Series     censor.Series
}

// Result is the output of a C12 regional aggregation.
type Result struct {
	Direction   int // +1 increasing, -1 decreasing, 0 no modal sign
	Tau         float64
	VarTau      float64
	CorrVarTau  float64
	CT          float64
	Notes       []string
}

// Compute implements spec.md 4.12: modal-sign direction, confidence-
// weighted agreement fraction TAU, its independence variance, and a
// correlation-inflated variance using aligned-timestamp Pearson
// correlation between sites.
func Compute(sites []SiteStat) Result {
	m := len(sites)
	if m == 0 {
		return Result{Notes: []string{"insufficient data: no sites supplied"}}
	}

	var posWeight, negWeight float64
	for _, s := range sites {
		if s.S >= 0 {
			posWeight += s.Confidence
		} else {
			negWeight += s.Confidence
		}
	}
	direction := 1
	if negWeight > posWeight {
		direction = -1
	} else if negWeight == posWeight {
		direction = 0
	}

	var agree float64
	var sumC float64
	for _, s := range sites {
		sign := 1
		if s.S < 0 {
			sign = -1
		}
		if sign == direction {
			agree += s.Confidence
		}
		sumC += s.Confidence
	}
	mf := float64(m)
	var tau float64
	if sumC > 0 {
		tau = agree / sumC
	}

	var varTau float64
	for _, s := range sites {
		varTau += s.Confidence * (1 - s.Confidence)
	}
	varTau /= mf * mf

	var corrSum float64
	var pairCount int
	for i := 0; i < m; i++ {
		for j := i + 1; j < m; j++ {
			rho, ok := alignedCorrelation(sites[i].Series, sites[j].Series)
			if ok {
				corrSum += rho
				pairCount++
			}
		}
	}
	correction := 1.0
	if mf > 0 {
		correction = 1 + 2*corrSum/mf
	}
	corrVarTau := varTau * correction
	if corrVarTau < 0 {
		corrVarTau = 0
	}

	var ct float64
	if corrVarTau > 0 {
		ct = stdNormal.CDF((tau - 0.5) / math.Sqrt(corrVarTau))
	} else {
		ct = 0.5
	}

	res := Result{
		Direction:  direction,
		Tau:        tau,
		VarTau:     varTau,
		CorrVarTau: corrVarTau,
		CT:         ct,
	}
	if pairCount == 0 && m > 1 {
		res.Notes = append(res.Notes, "no aligned-timestamp pairs found across sites; correlation correction is a no-op")
	}
	return res
}

// alignedCorrelation computes the Pearson correlation of two site value
// series restricted to their common timestamps.
func alignedCorrelation(a, b censor.Series) (float64, bool) {
	bByTime := make(map[float64]float64, b.Len())
	for _, o := range b.Obs {
		bByTime[o.Time] = o.Record.Value
	}
	var xs, ys []float64
	for _, o := range a.Obs {
		if v, ok := bByTime[o.Time]; ok {
			xs = append(xs, o.Record.Value)
			ys = append(ys, v)
		}
	}
	if len(xs) < 3 {
		return 0, false
	}
	return stat.Correlation(xs, ys, nil), true
}
