// Package config holds the single configuration struct threaded through
// every public mktrend operation, grounded on the teacher's pkg/uci.Config
// flat-struct-with-Default()-and-Validate() shape.
package config

import (
	"fmt"

	"github.com/trendcore/mktrend/pkg/logx"
)

// TieBreakMethod selects how the tie-break epsilon for value comparison
// is derived.
type TieBreakMethod string

const (
	TieBreakRobust TieBreakMethod = "robust" // eps = half the minimum positive difference of unique values
	TieBreakLWP    TieBreakMethod = "lwp"    // eps = min-diff/1000
)

// MKMethod selects the right-censor handling convention for the MK kernel.
type MKMethod string

const (
	MKRobust MKMethod = "robust" // right-censors keep their interval identity
	MKLWP    MKMethod = "lwp"    // replace all >v with max(v)+0.1, treat as uncensored ties
)

// TauMethod selects the Kendall tau denominator convention.
type TauMethod string

const (
	TauA TauMethod = "a" // S / (n(n-1)/2)
	TauB TauMethod = "b" // S / sqrt((J-tt)(J-uu))
)

// SlopeMethod selects the Sen-slope variant (C3).
type SlopeMethod string

const (
	SlopeNaN        SlopeMethod = "nan"        // ordinary Sen, ambiguous censored pairs excluded
	SlopeLWP        SlopeMethod = "lwp"        // LWP-compatibility: ambiguous forced to 0, right-censor replacement
	SlopeATS        SlopeMethod = "ats"        // Akritas-Theil-Sen
	SlopeStochastic SlopeMethod = "stochastic" // stochastic-pair sampled
)

// CIMethod selects the CI index-interpolation policy (C4).
type CIMethod string

const (
	CIDirect CIMethod = "direct"
	CILWP    CIMethod = "lwp"
)

// AggMethod selects the tie-merge reducer (C5).
type AggMethod string

const (
	AggMedian         AggMethod = "median"
	AggRobustMedian   AggMethod = "robust_median"
	AggMiddle         AggMethod = "middle"
	AggMiddleLWP      AggMethod = "middle_lwp"
	AggLWP            AggMethod = "lwp"
	AggLWPMedian      AggMethod = "lwp_median"
	AggLWPRobustMedia AggMethod = "lwp_robust_median"
)

// AggPeriod selects the thinning period (C5).
type AggPeriod string

const (
	PeriodYear    AggPeriod = "year"
	PeriodMonth   AggPeriod = "month"
	PeriodQuarter AggPeriod = "quarter"
	PeriodWeek    AggPeriod = "week"
	PeriodDay     AggPeriod = "day"
	PeriodHour    AggPeriod = "hour"
	PeriodMinute  AggPeriod = "minute"
	PeriodSecond  AggPeriod = "second"
)

// AutocorrMethod selects the autocorrelation handling (C6).
type AutocorrMethod string

const (
	AutocorrNone          AutocorrMethod = "none"
	AutocorrAuto          AutocorrMethod = "auto"
	AutocorrBlockBootstrp AutocorrMethod = "block_bootstrap"
	AutocorrYueWang       AutocorrMethod = "yue_wang"
)

// SurrogateMethod selects the surrogate-generation algorithm (C7).
type SurrogateMethod string

const (
	SurrogateNone        SurrogateMethod = "none"
	SurrogateAuto        SurrogateMethod = "auto"
	SurrogateIAAFT       SurrogateMethod = "iaaft"
	SurrogateLombScargle SurrogateMethod = "lomb_scargle"
)

// SlopeScaling selects the human-unit rate scaling applied to the raw
// per-second slope (e.g. "mg/L per year").
type SlopeScaling string

const (
	ScaleYear   SlopeScaling = "year"
	ScaleMonth  SlopeScaling = "month"
	ScaleWeek   SlopeScaling = "week"
	ScaleDay    SlopeScaling = "day"
	ScaleHour   SlopeScaling = "hour"
	ScaleMinute SlopeScaling = "minute"
	ScaleSecond SlopeScaling = "second"
)

// ScaleFactorSeconds returns the number of seconds in one unit of scale,
// used to convert a per-second slope into the requested human unit.
func ScaleFactorSeconds(s SlopeScaling) float64 {
	switch s {
	case ScaleYear:
		return 365.25 * 24 * 3600
	case ScaleMonth:
		return 30.4375 * 24 * 3600
	case ScaleWeek:
		return 7 * 24 * 3600
	case ScaleDay:
		return 24 * 3600
	case ScaleHour:
		return 3600
	case ScaleMinute:
		return 60
	default:
		return 1
	}
}

// Config is the single configuration record threaded through every public
// mktrend operation. A nil *Config is invalid; use Default() to obtain a
// populated value and override individual fields.
type Config struct {
	Alpha float64 // significance level, default 0.05

	// Censoring
	Hicensor        bool // re-censor at the highest observed detection limit
	HicensorValue   float64
	UseHicensorVal  bool
	LtMult          float64 // left-censor slope substitution multiplier, default 0.5
	GtMult          float64 // right-censor slope substitution multiplier, default 1.1

	// C2/C3/C4 method selection
	SensSlopeMethod SlopeMethod
	MKMethod        MKMethod
	TieBreakMethod  TieBreakMethod
	TauMethod       TauMethod
	CIMethod        CIMethod

	// C3 stochastic-pair sampling
	StochasticThreshold int // n above which stochastic sampling is used when requested
	StochasticSamples   int // K

	// C3 ATS root-finding
	ATSMaxDoublings   int
	ATSTolerance      float64
	ATSBootstrapN     int
	TurnbullMaxIter   int
	TurnbullTolerance float64

	// C5 aggregation
	AggMethod AggMethod
	AggPeriod AggPeriod
	MinSize   int

	// C6 autocorrelation
	AutocorrMethod  AutocorrMethod
	BlockSize       int // 0 means auto
	NBootstrap      int
	ACFThreshold    float64

	// C7 surrogate generation
	SurrogateMethod SurrogateMethod
	NSurrogates     int
	RandomState     int64
	IAAFTMaxIter    int
	LSFreqGrid      string // "auto", "log", or explicit (handled by caller)

	// C8 seasonal
	MinPerSeason int

	// C9 power analysis
	PowerNSimulations int
	PowerNSurrogates  int
	PowerTarget       float64

	// C10 rolling / segmented
	MaxWindows           int
	MaxPairAllocationMB  int

	// C11 classification
	ContinuousConfidence bool
	CategoryMap          map[float64]string

	// Human-unit scaling
	SlopeScaling SlopeScaling

	// Ambient
	Logger *logx.Logger
}

// Default returns a Config populated with spec.md's documented defaults.
func Default() *Config {
	return &Config{
		Alpha:               0.05,
		LtMult:              0.5,
		GtMult:              1.1,
		SensSlopeMethod:     SlopeNaN,
		MKMethod:            MKRobust,
		TieBreakMethod:      TieBreakRobust,
		TauMethod:           TauB,
		CIMethod:            CIDirect,
		StochasticThreshold: 5000,
		StochasticSamples:   100000,
		ATSMaxDoublings:     40,
		ATSTolerance:        1e-9,
		ATSBootstrapN:       500,
		TurnbullMaxIter:     200,
		TurnbullTolerance:   1e-7,
		AggMethod:           AggMedian,
		AggPeriod:           PeriodDay,
		MinSize:             5,
		AutocorrMethod:      AutocorrNone,
		BlockSize:           0,
		NBootstrap:          1000,
		ACFThreshold:        0.1,
		SurrogateMethod:     SurrogateNone,
		NSurrogates:         1000,
		RandomState:         0,
		IAAFTMaxIter:        100,
		LSFreqGrid:          "auto",
		MinPerSeason:        5,
		PowerNSimulations:   200,
		PowerNSurrogates:    200,
		PowerTarget:         0.8,
		MaxWindows:          10000,
		MaxPairAllocationMB: 400,
		ContinuousConfidence: true,
		SlopeScaling:        ScaleSecond,
	}
}

// ValidationIssue is one accumulated configuration problem, grounded on
// the teacher's uci.ValidationIssue accumulate-everything pattern.
type ValidationIssue struct {
	Field   string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// Validate accumulates every configuration problem instead of
// fail-fasting on the first, so a CLI caller sees the whole picture.
func (c *Config) Validate() []ValidationIssue {
	var issues []ValidationIssue
	add := func(field, msg string) { issues = append(issues, ValidationIssue{Field: field, Message: msg}) }

	if c.Alpha <= 0 || c.Alpha >= 1 {
		add("alpha", "must be in (0, 1)")
	}
	if c.LtMult <= 0 {
		add("lt_mult", "must be positive")
	}
	if c.GtMult <= 0 {
		add("gt_mult", "must be positive")
	}
	if c.MinSize < 2 {
		add("min_size", "must be at least 2")
	}
	if c.MinPerSeason < 2 {
		add("min_per_season", "must be at least 2")
	}
	if c.NSurrogates < 0 {
		add("n_surrogates", "must be non-negative")
	}
	if c.NBootstrap < 0 {
		add("n_bootstrap", "must be non-negative")
	}
	if c.PowerTarget <= 0 || c.PowerTarget >= 1 {
		add("power_target", "must be in (0, 1)")
	}
	if c.MaxWindows <= 0 {
		add("max_windows", "must be positive")
	}
	if c.StochasticThreshold <= 0 {
		add("stochastic_threshold", "must be positive")
	}
	if c.StochasticSamples <= 0 {
		add("stochastic_samples", "must be positive")
	}
	switch c.SensSlopeMethod {
	case SlopeNaN, SlopeLWP, SlopeATS, SlopeStochastic:
	default:
		add("sens_slope_method", "unrecognized value")
	}
	switch c.MKMethod {
	case MKRobust, MKLWP:
	default:
		add("mk_method", "unrecognized value")
	}
	switch c.CIMethod {
	case CIDirect, CILWP:
	default:
		add("ci_method", "unrecognized value")
	}
	return issues
}

// Clone returns a shallow copy so callers can override fields per call
// without mutating a shared default.
func (c *Config) Clone() *Config {
	cp := *c
	if c.CategoryMap != nil {
		cp.CategoryMap = make(map[float64]string, len(c.CategoryMap))
		for k, v := range c.CategoryMap {
			cp.CategoryMap[k] = v
		}
	}
	return &cp
}
