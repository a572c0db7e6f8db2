// Package classify implements C11: the ordinal and binary trend
// classifiers.
package classify

import "sort"

// DefaultMap is spec.md 4.11's default directional-confidence ordinal
// map. Keys are thresholds on the directional confidence Cd, oriented so
// Cd near 1 means "confidently decreasing" and Cd near 0 means
// "confidently increasing" (the mapping is symmetric about Cd=0.5). The
// label for the highest threshold Cd meets or exceeds is returned; the
// 0 entry is the required fallback.
var DefaultMap = map[float64]string{
	0.95: "Highly Likely Decreasing",
	0.90: "Very Likely Decreasing",
	0.67: "Likely Decreasing",
	0.33: "As Likely as Not",
	0:    "Stable",
}

// Ordinal classifies a directional confidence Cd in [0, 1] against a
// threshold map, returning the label for the highest threshold Cd meets
// or exceeds. With the default map (customMap nil), Cd below 0.5 is
// looked up as 1-Cd and "Decreasing" in the resulting label is swapped
// for "Increasing". A customMap is looked up with Cd directly and is not
// mirrored, so its labels cover both ends explicitly.
func Ordinal(cd float64, customMap map[float64]string) string {
	if customMap != nil {
		return lookup(cd, customMap)
	}
	if cd >= 0.5 {
		return lookup(cd, DefaultMap)
	}
	label := lookup(1-cd, DefaultMap)
	switch label {
	case "Highly Likely Decreasing":
		return "Highly Likely Increasing"
	case "Very Likely Decreasing":
		return "Very Likely Increasing"
	case "Likely Decreasing":
		return "Likely Increasing"
	default:
		return label
	}
}

func lookup(cd float64, m map[float64]string) string {
	thresholds := make([]float64, 0, len(m))
	for t := range m {
		thresholds = append(thresholds, t)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(thresholds)))
	for _, t := range thresholds {
		if cd >= t {
			return m[t]
		}
	}
	return "Stable"
}

// DirectionalConfidence converts a two-sided p-value and a slope sign
// into Cd, per the GLOSSARY: C = 1 - p/2 is the two-sided confidence
// that a trend exists; Cd orients it so that a confident decreasing
// trend reads near 1 and a confident increasing trend reads near 0.
func DirectionalConfidence(p, slope float64) float64 {
	if slope < 0 {
		return 1 - p/2
	}
	return p / 2
}

// Binary implements the continuous_confidence=false mode: "Increasing" /
// "Decreasing" iff p <= alpha, else "No Trend".
func Binary(p, slope, alpha float64) string {
	if p > alpha {
		return "No Trend"
	}
	if slope >= 0 {
		return "Increasing"
	}
	return "Decreasing"
}
