package logx

import (
	"fmt"
	"sync"
	"time"
)

// PerformanceLogger tracks timing and error-rate statistics for named
// operations (e.g. "surrogate_generation", "block_bootstrap", "rolling_window")
// so a long-running CLI or daemon can report which stage of the engine is
// slow without wiring a full metrics backend.
type PerformanceLogger struct {
	logger       *Logger
	metrics      map[string]*PerformanceMetric
	metricsMutex sync.RWMutex
}

// PerformanceMetric tracks performance data for a specific operation.
type PerformanceMetric struct {
	Name          string
	Count         int64
	TotalDuration time.Duration
	MinDuration   time.Duration
	MaxDuration   time.Duration
	AvgDuration   time.Duration
	LastExecuted  time.Time
	ErrorCount    int64
	SuccessRate   float64
}

// PerformanceContext tracks a single in-flight operation.
type PerformanceContext struct {
	metricName string
	startTime  time.Time
	logger     *PerformanceLogger
}

// NewPerformanceLogger creates a new performance logger.
func NewPerformanceLogger(logger *Logger) *PerformanceLogger {
	return &PerformanceLogger{
		logger:  logger,
		metrics: make(map[string]*PerformanceMetric),
	}
}

// StartOperation begins timing a named operation.
func (pl *PerformanceLogger) StartOperation(metricName string) *PerformanceContext {
	pl.metricsMutex.Lock()
	defer pl.metricsMutex.Unlock()

	if _, exists := pl.metrics[metricName]; !exists {
		pl.metrics[metricName] = &PerformanceMetric{
			Name:         metricName,
			MinDuration:  time.Hour,
			LastExecuted: time.Now(),
		}
	}

	return &PerformanceContext{metricName: metricName, startTime: time.Now(), logger: pl}
}

// Complete marks an operation as finished and logs a summary for slow or
// periodic operations.
func (pc *PerformanceContext) Complete(err error) {
	duration := time.Since(pc.startTime)

	pc.logger.metricsMutex.Lock()
	defer pc.logger.metricsMutex.Unlock()

	metric := pc.logger.metrics[pc.metricName]
	metric.Count++
	metric.TotalDuration += duration
	metric.LastExecuted = time.Now()

	if duration < metric.MinDuration {
		metric.MinDuration = duration
	}
	if duration > metric.MaxDuration {
		metric.MaxDuration = duration
	}
	metric.AvgDuration = metric.TotalDuration / time.Duration(metric.Count)

	if err != nil {
		metric.ErrorCount++
	}
	metric.SuccessRate = float64(metric.Count-metric.ErrorCount) / float64(metric.Count) * 100

	if err != nil {
		pc.logger.logger.Warn("engine operation failed",
			"metric", pc.metricName,
			"duration", duration.String(),
			"error", err.Error(),
			"success_rate", fmt.Sprintf("%.2f%%", metric.SuccessRate),
		)
		return
	}

	if duration > 250*time.Millisecond || metric.Count%500 == 0 {
		pc.logger.logger.Debug("engine operation completed",
			"metric", pc.metricName,
			"duration", duration.String(),
			"avg_duration", metric.AvgDuration.String(),
			"total_operations", metric.Count,
		)
	}
}

// GetMetric returns a copy of a specific metric, or nil if unseen.
func (pl *PerformanceLogger) GetMetric(name string) *PerformanceMetric {
	pl.metricsMutex.RLock()
	defer pl.metricsMutex.RUnlock()

	metric, exists := pl.metrics[name]
	if !exists {
		return nil
	}
	cp := *metric
	return &cp
}

// GetAllMetrics returns a copy of every tracked metric.
func (pl *PerformanceLogger) GetAllMetrics() map[string]*PerformanceMetric {
	pl.metricsMutex.RLock()
	defer pl.metricsMutex.RUnlock()

	result := make(map[string]*PerformanceMetric, len(pl.metrics))
	for name, metric := range pl.metrics {
		cp := *metric
		result[name] = &cp
	}
	return result
}
