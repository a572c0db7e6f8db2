// Command mktrend-serve runs mktrend as an HTTP daemon: a /healthz
// endpoint, a Prometheus /metrics endpoint, and a /analyze endpoint that
// accepts a JSON series and returns a trend_test Result, persisting it
// to pkg/store. Grounded on the teacher's autonomyd (flag parsing,
// logger-first startup, signal handling, graceful shutdown with a
// timeout) and its pkg/health/pkg/metrics HTTP-server pattern.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trendcore/mktrend/pkg/config"
	"github.com/trendcore/mktrend/pkg/logx"
	"github.com/trendcore/mktrend/pkg/metrics"
	"github.com/trendcore/mktrend/pkg/store"
	"github.com/trendcore/mktrend/pkg/trend"
)

var (
	listenAddr = flag.String("listen", ":8090", "HTTP listen address")
	storePath  = flag.String("store-path", "/var/lib/mktrend/results.db", "bbolt result store path")
	logLevel   = flag.String("log-level", "info", "log level (debug|info|warn|error)")
	version    = flag.Bool("version", false, "show version information")
)

const (
	appName    = "mktrend-serve"
	appVersion = "1.0.0"
)

// analyzeRequest is the JSON body accepted by POST /analyze.
type analyzeRequest struct {
	SeriesKey string        `json:"series_key"`
	Values    []interface{} `json:"values"`
	Times     []float64     `json:"times"`
	Flags     []string      `json:"flags,omitempty"`
}

type server struct {
	logger  *logx.Logger
	perf    *logx.PerformanceLogger
	metrics *metrics.Metrics
	store   *store.Store
	cfg     *config.Config
}

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("%s version %s\n", appName, appVersion)
		os.Exit(0)
	}

	logger := logx.NewLogger(*logLevel, appName)
	logger.Info("starting mktrend-serve", "version", appVersion, "listen", *listenAddr)

	resultStore, err := store.Open(*storePath)
	if err != nil {
		logger.Error("failed to open result store", "error", err, "path", *storePath)
		os.Exit(1)
	}
	defer resultStore.Close()

	srv := &server{
		logger:  logger,
		perf:    logx.NewPerformanceLogger(logger),
		metrics: metrics.New(*listenAddr),
		store:   resultStore,
		cfg:     config.Default(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.handleHealthz)
	mux.HandleFunc("/analyze", srv.handleAnalyze)
	mux.HandleFunc("/results/", srv.handleResultLookup)
	mux.HandleFunc("/perf", srv.handlePerf)
	mux.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:    *listenAddr,
		Handler: mux,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()
	logger.Info("HTTP server started", "addr", *listenAddr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("received shutdown signal", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown did not complete in time", "error", err)
	}
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.metrics.RecordError("analyze", "decode")
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	perfCtx := s.perf.StartOperation("trend_test")
	start := time.Now()
	result, err := trend.TrendTest(req.Values, req.Times, req.Flags, nil, s.cfg)
	s.metrics.RecordKernel(time.Since(start).Seconds())
	perfCtx.Complete(err)

	if err != nil {
		s.metrics.RecordError("analyze", "trend_test")
		http.Error(w, err.Error(), statusForError(err))
		return
	}

	s.metrics.RecordAnalysis("trend_test", result.Trend)

	if req.SeriesKey != "" {
		if err := s.store.Put(req.SeriesKey, result); err != nil {
			s.logger.Warn("failed to persist result", "series_key", req.SeriesKey, "error", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

func (s *server) handleResultLookup(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Path[len("/results/"):]
	if key == "" {
		http.Error(w, "missing series key", http.StatusBadRequest)
		return
	}
	record, err := s.store.Get(key)
	if err != nil {
		s.metrics.RecordError("results_lookup", "store")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if record == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(record.Payload)
}

func (s *server) handlePerf(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.perf.GetAllMetrics())
}

func statusForError(err error) int {
	return http.StatusUnprocessableEntity
}
