package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	m "qlty.dev/pkg/qlty/internal/model"
)

const metricsNamespace = "qlty"

type metricsSink struct {
	path string
}

// NewMetricsSink creates a sink writing a node-exporter textfile with the run totals.
func NewMetricsSink(path string) Sink {
	return &metricsSink{path: path}
}

func (s *metricsSink) Kind() m.SinkKind {
	return m.SinkMetrics
}

func (s *metricsSink) Publish(ctx context.Context, summary m.RunSummary, records []m.TestRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.path == "" {
		return errors.New("metrics path not configured")
	}

	metrics := newRunMetrics(summary.Run.Platform)
	metrics.observe(summary, records)

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}

	if err := prometheus.WriteToTextfile(s.path, metrics.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}

	slog.Info("Wrote run metrics", "path", s.path)

	return nil
}

// runMetrics are the collectors of one run, registered on a private registry.
type runMetrics struct {
	registry     *prometheus.Registry
	tests        *prometheus.GaugeVec
	duration     prometheus.Gauge
	passRatio    prometheus.Gauge
	lastRun      prometheus.Gauge
	testDuration *prometheus.HistogramVec
}

func newRunMetrics(platform m.Platform) *runMetrics {
	labels := prometheus.Labels{"platform": string(platform)}

	rm := &runMetrics{
		registry: prometheus.NewRegistry(),
		tests: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Name:        "tests",
			Help:        "Number of tests in the last run by status.",
			ConstLabels: labels,
		}, []string{"status"}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Name:        "run_duration_seconds",
			Help:        "Wall time of the last run.",
			ConstLabels: labels,
		}),
		passRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Name:        "pass_ratio",
			Help:        "Share of executed tests that passed in the last run.",
			ConstLabels: labels,
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   metricsNamespace,
			Name:        "last_run_timestamp_seconds",
			Help:        "Unix time the last run finished.",
			ConstLabels: labels,
		}),
		testDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   metricsNamespace,
			Name:        "test_duration_seconds",
			Help:        "Duration of individual tests in the last run.",
			ConstLabels: labels,
			Buckets:     []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"status"}),
	}

	rm.registry.MustRegister(rm.tests, rm.duration, rm.passRatio, rm.lastRun, rm.testDuration)

	return rm
}

// observe records the totals of summary. Skipped tests carry no duration.
func (rm *runMetrics) observe(summary m.RunSummary, records []m.TestRecord) {
	totals := summary.Totals
	for status, count := range map[m.Status]int{
		m.Passed:  totals.Passed,
		m.Failed:  totals.Failed,
		m.Errored: totals.Errored,
		m.Skipped: totals.Skipped,
	} {
		rm.tests.WithLabelValues(status.String()).Set(float64(count))
	}

	for _, r := range records {
		if r.Status == m.Skipped {
			continue
		}

		rm.testDuration.WithLabelValues(r.Status.String()).Observe(r.Duration.Seconds())
	}

	rm.duration.Set(summary.Run.Duration().Seconds())
	rm.passRatio.Set(totals.PassRate() / 100)
	rm.lastRun.Set(float64(summary.Run.EndTime.Unix()))
}
