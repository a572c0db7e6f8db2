package trend

import (
	"github.com/trendcore/mktrend/pkg/aggregate"
	"github.com/trendcore/mktrend/pkg/censor"
	"github.com/trendcore/mktrend/pkg/config"
)

// AggregateThenTrendTest runs C5 (tie-merge or thinning, per
// cfg.AggMethod/cfg.AggPeriod) ahead of trend_test, the composition
// spec.md 4.5 describes for over-dense or tied timestamps. dy, if
// non-nil, must already be aligned to the post-aggregation series; per
// spec.md 4.5's invariant, a dy whose length matches the pre-aggregation
// series is rejected with an AlignmentError whenever aggregation
// actually discarded the time index.
func AggregateThenTrendTest(values []interface{}, times []float64, flags []string, dy []float64, useThinning bool, cfg *config.Config) (Result, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	series, err := censor.Normalize(values, times, flags, nil)
	if err != nil {
		return Result{}, err
	}
	preAggLen := series.Len()

	var aggRes aggregate.Result
	if useThinning {
		aggRes = aggregate.Thin(series, cfg)
	} else {
		aggRes = aggregate.TieMerge(series, cfg)
	}

	if dy != nil {
		if err := aggregate.CheckAlignment("trend.AggregateThenTrendTest", aggRes, "dy", len(dy), preAggLen); err != nil {
			return Result{}, err
		}
	}

	return trendTestOnSeries(aggRes.Series, cfg)
}
