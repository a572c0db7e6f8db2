// Package aggregate implements C5, the tie-merge and thinning
// reducers that collapse tied or over-dense timestamps onto an analysis
// grid before the core engine runs.
package aggregate

import (
	"math"
	"sort"
	"time"

	"github.com/trendcore/mktrend/pkg/censor"
	"github.com/trendcore/mktrend/pkg/config"
	"github.com/trendcore/mktrend/pkg/mkerrors"
)

// Result is the output of a C5 reduction: the collapsed series plus,
// when aggregation discarded the original time index, the flag that
// forces downstream AlignmentError checks.
type Result struct {
	Series          censor.Series
	IndexDiscarded bool
}

// TieMerge collapses observations sharing an identical timestamp into a
// single record, per the method named by cfg.AggMethod. The method is
// not checked against the four tie-merge ones (median, robust_median,
// middle, middle_lwp): lwp takes the record closest to the group's mean
// time, lwp_robust_median the robust median, and any other value the
// median.
func TieMerge(series censor.Series, cfg *config.Config) Result {
	groups := groupByTime(series)
	out := make([]censor.Observation, 0, len(groups))
	discarded := false
	for _, g := range groups {
		if len(g) > 1 {
			discarded = true
		}
		out = append(out, reduceGroup(g, cfg.AggMethod, 0))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return Result{Series: censor.Series{Obs: out}, IndexDiscarded: discarded}
}

// Thin subdivides the time axis into period cells (year, month, quarter,
// week, day, hour, minute, second) and reduces each non-empty cell to
// one record at the period-center timestamp.
func Thin(series censor.Series, cfg *config.Config) Result {
	cells := make(map[int64][]censor.Observation)
	order := make([]int64, 0)
	for _, o := range series.Obs {
		key := periodKey(o.Time, cfg.AggPeriod)
		if _, ok := cells[key]; !ok {
			order = append(order, key)
		}
		cells[key] = append(cells[key], o)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	out := make([]censor.Observation, 0, len(order))
	discarded := len(series.Obs) > len(order)
	for _, key := range order {
		group := cells[key]
		center := periodCenter(key, cfg.AggPeriod)
		out = append(out, reduceGroup(group, thinningReducer(cfg.AggMethod), center))
	}
	return Result{Series: censor.Series{Obs: out}, IndexDiscarded: discarded}
}

// thinningReducer maps a configured agg_method onto the reducer used
// inside Thin (spec.md 4.5's lwp / lwp_median / lwp_robust_median).
func thinningReducer(m config.AggMethod) config.AggMethod {
	switch m {
	case config.AggLWP, config.AggLWPMedian, config.AggLWPRobustMedia:
		return m
	default:
		return config.AggLWPMedian
	}
}

func groupByTime(series censor.Series) [][]censor.Observation {
	groups := make(map[float64][]censor.Observation)
	order := make([]float64, 0)
	for _, o := range series.Obs {
		if _, ok := groups[o.Time]; !ok {
			order = append(order, o.Time)
		}
		groups[o.Time] = append(groups[o.Time], o)
	}
	sort.Float64s(order)
	out := make([][]censor.Observation, len(order))
	for i, t := range order {
		out[i] = groups[t]
	}
	return out
}

func reduceGroup(group []censor.Observation, method config.AggMethod, centerOverride float64) censor.Observation {
	if len(group) == 1 {
		single := group[0]
		if centerOverride != 0 {
			single.Time = centerOverride
		}
		return single
	}
	center := meanTime(group)
	if centerOverride != 0 {
		center = centerOverride
	}

	switch method {
	case config.AggRobustMedian, config.AggLWPRobustMedia:
		return robustMedianReduce(group, center)
	case config.AggMiddle:
		return closestTo(group, meanTime(group))
	case config.AggMiddleLWP, config.AggLWP:
		return closestTo(group, center)
	default: // median, lwp_median
		return medianReduce(group, center)
	}
}

func meanTime(group []censor.Observation) float64 {
	var sum float64
	for _, o := range group {
		sum += o.Time
	}
	return sum / float64(len(group))
}

func closestTo(group []censor.Observation, target float64) censor.Observation {
	best := group[0]
	bestDist := math.Abs(group[0].Time - target)
	for _, o := range group[1:] {
		d := math.Abs(o.Time - target)
		if d < bestDist {
			bestDist = d
			best = o
		}
	}
	best.Time = target
	return best
}

func medianReduce(group []censor.Observation, center float64) censor.Observation {
	values := make([]float64, len(group))
	for i, o := range group {
		values[i] = o.Record.Value
	}
	sort.Float64s(values)
	m := medianOf(values)

	rec := censor.Record{Value: m, Flag: censor.NoCensor}
	for _, o := range group {
		if o.Record.IsCensored() && o.Record.Value == m {
			rec.Flag = o.Record.Flag
			rec.DetectionLimit = m
			break
		}
	}
	return censor.Observation{Time: center, Record: rec, Uncertainty: math.NaN()}
}

func robustMedianReduce(group []censor.Observation, center float64) censor.Observation {
	limitCounts := make(map[float64]int)
	for _, o := range group {
		if o.Record.Flag == censor.LeftCensor {
			limitCounts[o.Record.DetectionLimit]++
		}
	}
	for limit, count := range limitCounts {
		if float64(count) > float64(len(group))/2 {
			return censor.Observation{
				Time:        center,
				Record:      censor.Record{Value: limit, Flag: censor.LeftCensor, DetectionLimit: limit},
				Uncertainty: math.NaN(),
			}
		}
	}

	var uncensored []float64
	for _, o := range group {
		if !o.Record.IsCensored() {
			uncensored = append(uncensored, o.Record.Value)
		}
	}
	if len(uncensored) == 0 {
		return medianReduce(group, center)
	}
	sort.Float64s(uncensored)
	return censor.Observation{
		Time:        center,
		Record:      censor.Record{Value: medianOf(uncensored), Flag: censor.NoCensor},
		Uncertainty: math.NaN(),
	}
}

func medianOf(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// periodKey buckets a unix-seconds timestamp into a period cell index.
func periodKey(t float64, period config.AggPeriod) int64 {
	ts := time.Unix(int64(t), 0).UTC()
	switch period {
	case config.PeriodYear:
		return int64(ts.Year())
	case config.PeriodMonth:
		return int64(ts.Year())*12 + int64(ts.Month())
	case config.PeriodQuarter:
		return int64(ts.Year())*4 + int64((ts.Month()-1)/3)
	case config.PeriodWeek:
		y, w := ts.ISOWeek()
		return int64(y)*53 + int64(w)
	case config.PeriodHour:
		return int64(t) / 3600
	case config.PeriodMinute:
		return int64(t) / 60
	case config.PeriodSecond:
		return int64(t)
	default: // day
		return int64(t) / 86400
	}
}

// periodCenter returns the unix-seconds midpoint of the period cell
// identified by key.
func periodCenter(key int64, period config.AggPeriod) float64 {
	switch period {
	case config.PeriodYear:
		start := time.Date(int(key), time.January, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(int(key)+1, time.January, 1, 0, 0, 0, 0, time.UTC)
		return float64(start.Unix()+end.Unix()) / 2
	case config.PeriodMonth:
		y := int((key - 1) / 12)
		m := time.Month((key-1)%12 + 1)
		start := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0)
		return float64(start.Unix()+end.Unix()) / 2
	case config.PeriodQuarter:
		start := time.Date(int(key/4), time.Month(key%4*3+1), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 3, 0)
		return float64(start.Unix()+end.Unix()) / 2
	case config.PeriodWeek:
		y, w := int(key/53), int(key%53)
		if w == 0 {
			y, w = y-1, 53
		}
		jan4 := time.Date(y, time.January, 4, 0, 0, 0, 0, time.UTC)
		monday := jan4.AddDate(0, 0, 7*(w-1)-(int(jan4.Weekday())+6)%7)
		return float64(monday.Unix()) + 3.5*86400
	case config.PeriodHour:
		return float64(key)*3600 + 1800
	case config.PeriodMinute:
		return float64(key)*60 + 30
	case config.PeriodSecond:
		return float64(key) + 0.5
	default: // day
		return float64(key)*86400 + 43200
	}
}

// CheckAlignment enforces spec.md 4.5's invariant: a per-observation
// kwarg array whose length matches the pre-aggregation series length
// cannot be carried through a reduction that discarded the time index.
func CheckAlignment(op string, result Result, kwargName string, kwargLen, preAggLen int) error {
	if result.IndexDiscarded && kwargLen == preAggLen {
		return mkerrors.NewAlignmentError(op, kwargName,
			"length matches the pre-aggregation series but aggregation discarded the time index; supply a post-aggregation array instead")
	}
	return nil
}
