// Command mktrend is the command-line driver for the mktrend engine,
// grounded on the teacher's autonomyctl (flag-based subcommands, a
// -format output switch, stderr+exit-code error reporting).
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/trendcore/mktrend/pkg/config"
	"github.com/trendcore/mktrend/pkg/logx"
	"github.com/trendcore/mktrend/pkg/mkerrors"
	"github.com/trendcore/mktrend/pkg/trend"
)

var (
	inputPath   = flag.String("input", "-", "CSV input path, or - for stdin")
	valueCol    = flag.String("value-col", "value", "name of the value column")
	timeCol     = flag.String("time-col", "time", "name of the numeric time column")
	flagCol     = flag.String("flag-col", "", "name of an optional detection-flag column (\"<\", \">\", or empty)")
	outputFmt   = flag.String("format", "standard", "output format: standard, json, csv")
	alpha       = flag.Float64("alpha", 0.05, "significance level")
	hicensor    = flag.Bool("hicensor", false, "re-censor at the highest observed detection limit")
	sensMethod  = flag.String("sens-slope-method", "nan", "Sen-slope variant: nan, lwp, ats, stochastic")
	mkMethod    = flag.String("mk-method", "robust", "MK right-censor handling: robust, lwp")
	ciMethod    = flag.String("ci-method", "direct", "CI index policy: direct, lwp")
	autocorr    = flag.String("autocorr-method", "none", "autocorrelation handling: none, auto, block_bootstrap, yue_wang")
	surrogate   = flag.String("surrogate-method", "none", "surrogate generation: none, auto, iaaft, lomb_scargle")
	randomState = flag.Int64("random-state", 0, "seed for surrogate/bootstrap reproducibility")
	logLevel    = flag.String("log-level", "info", "log level (debug|info|warn|error)")
	version     = flag.Bool("version", false, "show version information")
)

const (
	appName    = "mktrend"
	appVersion = "1.0.0"
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("%s version %s\n", appName, appVersion)
		os.Exit(0)
	}

	logger := logx.NewLogger(*logLevel, appName)

	values, times, flags, err := readInput(*inputPath, *valueCol, *timeCol, *flagCol)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	cfg := buildConfig(logger)

	result, err := trend.TrendTest(values, times, flags, nil, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}

	if err := writeResult(result, *outputFmt); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// exitCodeFor maps an mkerrors kind to the exit code spec.md's External
// Interfaces section documents (0 success, 2 input-shape, 3 alignment,
// 4 safety-ceiling refusal).
func exitCodeFor(err error) int {
	switch err.(type) {
	case *mkerrors.InputShapeError:
		return 2
	case *mkerrors.AlignmentError:
		return 3
	case *mkerrors.SafetyError:
		return 4
	default:
		return 1
	}
}

func buildConfig(logger *logx.Logger) *config.Config {
	cfg := config.Default()
	cfg.Logger = logger
	cfg.Alpha = *alpha
	cfg.Hicensor = *hicensor
	cfg.SensSlopeMethod = config.SlopeMethod(*sensMethod)
	cfg.MKMethod = config.MKMethod(*mkMethod)
	cfg.CIMethod = config.CIMethod(*ciMethod)
	cfg.AutocorrMethod = config.AutocorrMethod(*autocorr)
	cfg.SurrogateMethod = config.SurrogateMethod(*surrogate)
	cfg.RandomState = *randomState

	if issues := cfg.Validate(); len(issues) > 0 {
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "config warning: %s\n", issue)
		}
	}
	return cfg
}

// readInput parses the CSV input into parallel value/time/flag arrays.
// values are kept as raw strings (interface{}) so censor.Normalize can
// apply its own "<"/">"/missing-token parsing.
func readInput(path, valueCol, timeCol, flagCol string) ([]interface{}, []float64, []string, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, nil, mkerrors.NewInputShapeError("mktrend.readInput",
				fmt.Sprintf("cannot open %q: %v", path, err))
		}
		defer f.Close()
		r = f
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, nil, nil, mkerrors.NewInputShapeError("mktrend.readInput", fmt.Sprintf("cannot read header: %v", err))
	}

	vIdx, tIdx, fIdx := -1, -1, -1
	for i, h := range header {
		switch h {
		case valueCol:
			vIdx = i
		case timeCol:
			tIdx = i
		case flagCol:
			if flagCol != "" {
				fIdx = i
			}
		}
	}
	if vIdx < 0 || tIdx < 0 {
		return nil, nil, nil, mkerrors.NewInputShapeError("mktrend.readInput",
			fmt.Sprintf("header %v missing required columns %q/%q", header, valueCol, timeCol))
	}

	var values []interface{}
	var times []float64
	var flags []string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, nil, mkerrors.NewInputShapeError("mktrend.readInput", fmt.Sprintf("malformed row: %v", err))
		}
		t, err := strconv.ParseFloat(row[tIdx], 64)
		if err != nil {
			return nil, nil, nil, mkerrors.NewInputShapeError("mktrend.readInput",
				fmt.Sprintf("cannot parse time value %q: %v", row[tIdx], err))
		}
		values = append(values, row[vIdx])
		times = append(times, t)
		if fIdx >= 0 {
			flags = append(flags, row[fIdx])
		}
	}

	if fIdx < 0 {
		flags = nil
	}
	return values, times, flags, nil
}

func writeResult(result trend.Result, format string) error {
	switch format {
	case "json":
		return writeResultJSON(result)
	case "csv":
		return writeResultCSV(result)
	default:
		return writeResultStandard(result)
	}
}

func writeResultStandard(result trend.Result) error {
	fmt.Printf("Trend: %s\n", result.Trend)
	fmt.Printf("N: %d\n", result.N)
	fmt.Printf("S: %.4f  VarS: %.4f  Z: %.4f  P: %.6f  Tau: %.4f\n", result.S, result.VarS, result.Z, result.P, result.Tau)
	fmt.Printf("Slope: %.6g  Intercept: %.6g\n", result.Slope, result.Intercept)
	fmt.Printf("CI: [%.6g, %.6g]\n", result.CILower, result.CIUpper)
	fmt.Printf("Confidence: %.4f  DirectionalConfidence: %.4f\n", result.Confidence, result.DirectionalConf)
	fmt.Printf("Classification: %s\n", result.Classification)
	for _, note := range result.AnalysisNotes {
		fmt.Printf("note: %s\n", note)
	}
	return nil
}

func writeResultCSV(result trend.Result) error {
	w := csv.NewWriter(os.Stdout)
	defer w.Flush()
	header := []string{"trend", "n", "s", "var_s", "z", "p", "tau", "slope", "intercept", "ci_lower", "ci_upper", "confidence", "directional_confidence", "classification"}
	if err := w.Write(header); err != nil {
		return err
	}
	row := []string{
		result.Trend,
		strconv.Itoa(result.N),
		formatFloat(result.S), formatFloat(result.VarS), formatFloat(result.Z), formatFloat(result.P), formatFloat(result.Tau),
		formatFloat(result.Slope), formatFloat(result.Intercept),
		formatFloat(result.CILower), formatFloat(result.CIUpper),
		formatFloat(result.Confidence), formatFloat(result.DirectionalConf),
		result.Classification,
	}
	return w.Write(row)
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func writeResultJSON(result trend.Result) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
