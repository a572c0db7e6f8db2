// Command mktrend-mqtt-bridge runs a rolling_trend_test against a CSV
// series and, once the whole table is computed, publishes each window's
// result to an MQTT broker in turn, via pkg/streambridge. Grounded on the teacher's autonomyd
// MQTT wiring (mqtt.Config population from flags, Connect/defer
// Disconnect, periodic publish loop).
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/trendcore/mktrend/pkg/config"
	"github.com/trendcore/mktrend/pkg/logx"
	"github.com/trendcore/mktrend/pkg/streambridge"
	"github.com/trendcore/mktrend/pkg/trend"
)

var (
	inputPath   = flag.String("input", "-", "CSV input path, or - for stdin")
	valueCol    = flag.String("value-col", "value", "name of the value column")
	timeCol     = flag.String("time-col", "time", "name of the numeric time column")
	seriesName  = flag.String("series-name", "series", "topic suffix identifying this series")
	window      = flag.Float64("window", 86400*30, "rolling window width, in time units")
	step        = flag.Float64("step", 86400*7, "rolling step, in time units")
	broker      = flag.String("mqtt-broker", "localhost", "MQTT broker host")
	port        = flag.Int("mqtt-port", 1883, "MQTT broker port")
	topicPrefix = flag.String("mqtt-topic-prefix", "mktrend", "MQTT topic prefix")
	logLevel    = flag.String("log-level", "info", "log level (debug|info|warn|error)")
)

func main() {
	flag.Parse()

	logger := logx.NewLogger(*logLevel, "mktrend-mqtt-bridge")

	values, times, err := readSeries(*inputPath, *valueCol, *timeCol)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	bridgeCfg := streambridge.DefaultConfig()
	bridgeCfg.Broker = *broker
	bridgeCfg.Port = *port
	bridgeCfg.TopicPrefix = *topicPrefix
	bridgeCfg.Enabled = true

	bridge := streambridge.New(bridgeCfg, logger)
	if err := bridge.Connect(); err != nil {
		logger.Error("failed to connect to MQTT broker", "error", err)
		os.Exit(1)
	}
	defer bridge.Disconnect()

	cfg := config.Default()
	windows, err := trend.RollingTrendTest(values, times, *window, *step, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	for _, w := range windows {
		if err := bridge.PublishWindow(*seriesName, w); err != nil {
			logger.Warn("failed to publish window", "series", *seriesName, "start", w.Start, "error", err)
		}
	}
	logger.Info("published rolling windows", "series", *seriesName, "count", len(windows))
}

func readSeries(path, valueCol, timeCol string) ([]interface{}, []float64, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot open %q: %w", path, err)
		}
		defer f.Close()
		r = f
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("cannot read header: %w", err)
	}

	vIdx, tIdx := -1, -1
	for i, h := range header {
		switch h {
		case valueCol:
			vIdx = i
		case timeCol:
			tIdx = i
		}
	}
	if vIdx < 0 || tIdx < 0 {
		return nil, nil, fmt.Errorf("header %v missing required columns %q/%q", header, valueCol, timeCol)
	}

	var values []interface{}
	var times []float64
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("malformed row: %w", err)
		}
		t, err := strconv.ParseFloat(row[tIdx], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot parse time value %q: %w", row[tIdx], err)
		}
		values = append(values, row[vIdx])
		times = append(times, t)
	}
	return values, times, nil
}
