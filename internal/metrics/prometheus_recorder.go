package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once           sync.Once
	loadDuration   prom.Histogram
	loadResults    *prom.CounterVec
	includeSkipped prom.Counter
	runsStarted    *prom.CounterVec
	runOutcomes    *prom.CounterVec
	runDuration    *prom.HistogramVec
	runLines       prom.Counter
	activeRuns     prom.Gauge
	scheduledRuns  *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.loadDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "nantrunner",
			Name:      "script_load_duration_seconds",
			Help:      "Duration of build script parsing and include resolution",
			Buckets:   prom.DefBuckets,
		})
		pr.loadResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "nantrunner",
			Name:      "script_loads_total",
			Help:      "Script loads by result",
		}, []string{"result"})
		pr.includeSkipped = prom.NewCounter(prom.CounterOpts{
			Namespace: "nantrunner",
			Name:      "includes_skipped_total",
			Help:      "Includes that could not be resolved",
		})
		pr.runsStarted = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "nantrunner",
			Name:      "runs_started_total",
			Help:      "Target runs started",
		}, []string{"target"})
		pr.runOutcomes = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "nantrunner",
			Name:      "run_outcomes_total",
			Help:      "Target runs by final outcome",
		}, []string{"target", "outcome"})
		pr.runDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "nantrunner",
			Name:      "run_duration_seconds",
			Help:      "Target run duration",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}, []string{"target"})
		pr.runLines = prom.NewCounter(prom.CounterOpts{
			Namespace: "nantrunner",
			Name:      "run_output_lines_total",
			Help:      "Lines read from build tool output",
		})
		pr.activeRuns = prom.NewGauge(prom.GaugeOpts{
			Namespace: "nantrunner",
			Name:      "active_runs",
			Help:      "Runs currently in flight",
		})
		pr.scheduledRuns = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "nantrunner",
			Name:      "scheduled_runs_total",
			Help:      "Scheduled run attempts by result",
		}, []string{"schedule", "result"})
		reg.MustRegister(pr.loadDuration, pr.loadResults, pr.includeSkipped, pr.runsStarted,
			pr.runOutcomes, pr.runDuration, pr.runLines, pr.activeRuns, pr.scheduledRuns)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveLoadDuration(d time.Duration) {
	if p == nil || p.loadDuration == nil {
		return
	}
	p.loadDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncLoadResult(success bool) {
	if p == nil || p.loadResults == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.loadResults.WithLabelValues(res).Inc()
}

func (p *PrometheusRecorder) IncIncludeSkipped(n int) {
	if p == nil || p.includeSkipped == nil || n <= 0 {
		return
	}
	p.includeSkipped.Add(float64(n))
}

func (p *PrometheusRecorder) IncRunStarted(target string) {
	if p == nil || p.runsStarted == nil {
		return
	}
	p.runsStarted.WithLabelValues(target).Inc()
}

func (p *PrometheusRecorder) IncRunOutcome(target string, outcome OutcomeLabel) {
	if p == nil || p.runOutcomes == nil {
		return
	}
	p.runOutcomes.WithLabelValues(target, string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveRunDuration(target string, d time.Duration) {
	if p == nil || p.runDuration == nil {
		return
	}
	p.runDuration.WithLabelValues(target).Observe(d.Seconds())
}

func (p *PrometheusRecorder) AddRunLines(n int) {
	if p == nil || p.runLines == nil || n <= 0 {
		return
	}
	p.runLines.Add(float64(n))
}

func (p *PrometheusRecorder) SetActiveRuns(n int) {
	if p == nil || p.activeRuns == nil {
		return
	}
	p.activeRuns.Set(float64(n))
}

func (p *PrometheusRecorder) IncScheduledRun(schedule string, started bool) {
	if p == nil || p.scheduledRuns == nil {
		return
	}
	res := "skipped"
	if started {
		res = "started"
	}
	p.scheduledRuns.WithLabelValues(schedule, res).Inc()
}
