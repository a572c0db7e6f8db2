package mk

import (
	"math"

	"github.com/trendcore/mktrend/pkg/censor"
)

// tieKind classifies why a pair compared as a tie, for variance
// bookkeeping. "" means the pair was determinate (not a tie).
type tieKind string

const (
	tieNone       tieKind = ""
	tieUU         tieKind = "uu"     // both uncensored, equal within epsilon
	tieCCSame     tieKind = "cc"     // both censored same direction (always overlap)
	tieCCOpposite tieKind = "ccopp"  // both censored opposite direction, overlapping
	tieCU         tieKind = "cu"     // one censored, one uncensored, value inside the interval
)

// compare implements the three-state censored pair comparison of spec.md
// 4.2: it returns the sign (+1, 0, -1) of v_j - v_i for the pair (vi, vj),
// with 0 meaning an indeterminate tie, plus which rule produced the tie.
func compare(vi, vj censor.Record, eps float64) (sign int, kind tieKind) {
	switch {
	case !vi.IsCensored() && !vj.IsCensored():
		d := vj.Value - vi.Value
		if math.Abs(d) <= eps {
			return 0, tieUU
		}
		if d > 0 {
			return 1, tieNone
		}
		return -1, tieNone

	case vi.IsCensored() && vj.IsCensored():
		if vi.Flag == vj.Flag {
			// (-inf,a] vs (-inf,b], or [a,inf) vs [b,inf): always overlap.
			return 0, tieCCSame
		}
		var leftUpper, rightLower float64
		var leftIsI bool
		if vi.Flag == censor.LeftCensor {
			leftUpper, rightLower, leftIsI = vi.Value, vj.Value, true
		} else {
			leftUpper, rightLower, leftIsI = vj.Value, vi.Value, false
		}
		if rightLower > leftUpper {
			if leftIsI {
				return 1, tieNone
			}
			return -1, tieNone
		}
		return 0, tieCCOpposite

	default:
		var censored, other censor.Record
		var censoredIsI bool
		if vi.IsCensored() {
			censored, other, censoredIsI = vi, vj, true
		} else {
			censored, other, censoredIsI = vj, vi, false
		}
		switch censored.Flag {
		case censor.LeftCensor:
			if other.Value > censored.Value {
				if censoredIsI {
					return 1, tieNone
				}
				return -1, tieNone
			}
			return 0, tieCU
		default: // RightCensor
			if other.Value < censored.Value {
				if censoredIsI {
					return -1, tieNone
				}
				return 1, tieNone
			}
			return 0, tieCU
		}
	}
}
