// Package censor implements C1, the censored-data normalizer: it turns
// heterogeneous raw measurements ("<5", "12", ">100", a missing marker,
// or a value/flag pair) into the uniform Observation representation the
// rest of the engine (C2-C12) operates on.
package censor

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/trendcore/mktrend/pkg/mkerrors"
)

// Flag identifies whether an observation is censored, and in which
// direction.
type Flag int

const (
	// NoCensor marks a point measurement.
	NoCensor Flag = iota
	// LeftCensor marks a "less than" detection-limit observation: (-inf, v].
	LeftCensor
	// RightCensor marks a "greater than" detection-limit observation: [v, +inf).
	RightCensor
)

// String renders the flag the way raw tokens spell it.
func (f Flag) String() string {
	switch f {
	case LeftCensor:
		return "<"
	case RightCensor:
		return ">"
	default:
		return ""
	}
}

// Record is the uniform internal representation of one measurement: a
// numeric value, a censor flag, and (for censored records) the detection
// limit, which is always equal to Value.
type Record struct {
	Value          float64
	Flag           Flag
	DetectionLimit float64
}

// IsCensored reports whether the record carries a censor flag.
func (r Record) IsCensored() bool { return r.Flag != NoCensor }

// Observation pairs a Record with its time coordinate and an optional
// per-observation measurement uncertainty (NaN when absent).
type Observation struct {
	Time        float64
	Record      Record
	Uncertainty float64
}

// Series is a time-ordered collection of Observations. Normalize always
// returns a Series sorted ascending by Time (ties preserved in input order,
// a stable sort, since the MK pair rule requires i<j in time, and tied
// timestamps are handled explicitly by pair comparison and by C5).
type Series struct {
	Obs []Observation
}

// Len is a convenience accessor used throughout C2-C12.
func (s Series) Len() int { return len(s.Obs) }

// Values returns the raw numeric value axis (detection limit for censored
// records), in series order.
func (s Series) Values() []float64 {
	out := make([]float64, len(s.Obs))
	for i, o := range s.Obs {
		out[i] = o.Record.Value
	}
	return out
}

// Times returns the time axis, in series order.
func (s Series) Times() []float64 {
	out := make([]float64, len(s.Obs))
	for i, o := range s.Obs {
		out[i] = o.Time
	}
	return out
}

// NUncensored returns the count of non-censored observations.
func (s Series) NUncensored() int {
	n := 0
	for _, o := range s.Obs {
		if !o.Record.IsCensored() {
			n++
		}
	}
	return n
}

// NUniqueUncensoredValues returns the number of distinct values among the
// uncensored records (censored records are not counted), used by
// insufficiency checks ("fewer than 3 unique uncensored values").
func (s Series) NUniqueUncensoredValues() int {
	seen := make(map[float64]struct{})
	for _, o := range s.Obs {
		if !o.Record.IsCensored() {
			seen[o.Record.Value] = struct{}{}
		}
	}
	return len(seen)
}

// ParseToken parses one raw value: a float64, a bool/int convertible to
// float64, nil (the missing marker), or a string of the form "<n", ">n",
// a bare number, or one of the missing-value spellings ("", "na", "nan",
// "missing"). It returns ok=false for a recognized-missing token.
func ParseToken(raw interface{}) (rec Record, ok bool, err error) {
	switch v := raw.(type) {
	case nil:
		return Record{}, false, nil
	case float64:
		if math.IsNaN(v) {
			return Record{}, false, nil
		}
		return Record{Value: v, Flag: NoCensor}, true, nil
	case float32:
		return ParseToken(float64(v))
	case int:
		return Record{Value: float64(v), Flag: NoCensor}, true, nil
	case int64:
		return Record{Value: float64(v), Flag: NoCensor}, true, nil
	case string:
		return parseStringToken(v)
	default:
		return Record{}, false, mkerrors.NewInputShapeError("censor.ParseToken",
			fmt.Sprintf("unsupported value kind %T", raw))
	}
}

func parseStringToken(s string) (Record, bool, error) {
	trimmed := strings.TrimSpace(s)
	switch strings.ToLower(trimmed) {
	case "", "na", "n/a", "nan", "missing", "null":
		return Record{}, false, nil
	}

	if strings.HasPrefix(trimmed, "<") {
		n, err := strconv.ParseFloat(strings.TrimSpace(trimmed[1:]), 64)
		if err != nil {
			return Record{}, false, mkerrors.NewInputShapeError("censor.ParseToken",
				fmt.Sprintf("cannot parse left-censored token %q: %v", s, err))
		}
		return Record{Value: n, Flag: LeftCensor, DetectionLimit: n}, true, nil
	}
	if strings.HasPrefix(trimmed, ">") {
		n, err := strconv.ParseFloat(strings.TrimSpace(trimmed[1:]), 64)
		if err != nil {
			return Record{}, false, mkerrors.NewInputShapeError("censor.ParseToken",
				fmt.Sprintf("cannot parse right-censored token %q: %v", s, err))
		}
		return Record{Value: n, Flag: RightCensor, DetectionLimit: n}, true, nil
	}

	n, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return Record{}, false, mkerrors.NewInputShapeError("censor.ParseToken",
			fmt.Sprintf("cannot parse value token %q", s))
	}
	return Record{Value: n, Flag: NoCensor}, true, nil
}

// Normalize builds a Series from parallel raw inputs. values may contain
// float64, string tokens ("<5", ">100", a plain number), or nil for
// missing. times must be the same length as values. flags, if non-nil,
// is a parallel array of explicit flag strings ("<", ">", "") that
// override any flag embedded in a string value token (the two-column
// value/flag form of spec.md 4.1); it must match values in length. dy, if
// non-nil, is a parallel per-observation uncertainty vector and must also
// match in length.
//
// Inputs are never mutated. A NaN in either the value or time coordinate
// removes that observation (per spec.md 3 Invariants) rather than
// failing; a genuinely unparsable token or a length mismatch is an
// InputShapeError.
func Normalize(values []interface{}, times []float64, flags []string, dy []float64) (Series, error) {
	if len(values) != len(times) {
		return Series{}, mkerrors.NewInputShapeError("censor.Normalize",
			fmt.Sprintf("values has length %d but times has length %d", len(values), len(times)))
	}
	if flags != nil && len(flags) != len(values) {
		return Series{}, mkerrors.NewInputShapeError("censor.Normalize",
			fmt.Sprintf("flags has length %d but values has length %d", len(flags), len(values)))
	}
	if dy != nil && len(dy) != len(values) {
		return Series{}, mkerrors.NewInputShapeError("censor.Normalize",
			fmt.Sprintf("dy has length %d but values has length %d", len(dy), len(values)))
	}

	obs := make([]Observation, 0, len(values))
	for i, raw := range values {
		if math.IsNaN(times[i]) {
			continue
		}
		rec, ok, err := ParseToken(raw)
		if err != nil {
			return Series{}, err
		}
		if !ok {
			continue
		}
		if flags != nil {
			switch strings.TrimSpace(flags[i]) {
			case "<":
				rec.Flag = LeftCensor
				rec.DetectionLimit = rec.Value
			case ">":
				rec.Flag = RightCensor
				rec.DetectionLimit = rec.Value
			case "", "none":
				rec.Flag = NoCensor
			default:
				return Series{}, mkerrors.NewInputShapeError("censor.Normalize",
					fmt.Sprintf("unrecognized censor flag %q at index %d", flags[i], i))
			}
		}
		uncertainty := math.NaN()
		if dy != nil {
			uncertainty = dy[i]
		}
		obs = append(obs, Observation{Time: times[i], Record: rec, Uncertainty: uncertainty})
	}

	sort.SliceStable(obs, func(i, j int) bool { return obs[i].Time < obs[j].Time })
	return Series{Obs: obs}, nil
}

// Hicensor re-censors every uncensored or left-censored value at or below
// the highest observed detection limit at that limit, per spec.md's
// "hicensor" option; right-censored records are left as they are. limit
// may be the literal highest detection limit in the series (pass NaN to
// compute it) or an explicit threshold.
func Hicensor(s Series, limit float64) Series {
	if math.IsNaN(limit) {
		limit = math.Inf(-1)
		for _, o := range s.Obs {
			if o.Record.Flag == LeftCensor && o.Record.DetectionLimit > limit {
				limit = o.Record.DetectionLimit
			}
		}
		if math.IsInf(limit, -1) {
			return s
		}
	}

	out := make([]Observation, len(s.Obs))
	for i, o := range s.Obs {
		if o.Record.Flag != RightCensor && o.Record.Value <= limit {
			o.Record = Record{Value: limit, Flag: LeftCensor, DetectionLimit: limit}
		}
		out[i] = o
	}
	return Series{Obs: out}
}
