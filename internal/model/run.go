package model

import (
	"fmt"
	"strings"
	"time"
)

// TestRun identifies one invocation of the harness.
type TestRun struct {
	ID           string     `yaml:"id"`
	Name         string     `yaml:"name"`
	Platform     Platform   `yaml:"platform"`
	StartTime    time.Time  `yaml:"start_time"`
	EndTime      time.Time  `yaml:"end_time"`
	Integrations []SinkKind `yaml:"integrations,omitempty"`
	Finalized    bool       `yaml:"finalized"`
}

// Duration returns the wall time of a finished run.
func (r TestRun) Duration() time.Duration {
	if r.EndTime.IsZero() || r.EndTime.Before(r.StartTime) {
		return 0
	}

	return r.EndTime.Sub(r.StartTime)
}

// RunTotals counts records by status.
type RunTotals struct {
	Total   int `yaml:"total"`
	Passed  int `yaml:"passed"`
	Failed  int `yaml:"failed"`
	Errored int `yaml:"errored"`
	Skipped int `yaml:"skipped"`
	Pending int `yaml:"pending"`
}

// Totals aggregates the given records.
func Totals(records []TestRecord) RunTotals {
	var t RunTotals
	for _, r := range records {
		t.Total++

		switch r.Status {
		case Passed:
			t.Passed++
		case Failed:
			t.Failed++
		case Errored:
			t.Errored++
		case Skipped:
			t.Skipped++
		case Pending:
			t.Pending++
		}
	}

	return t
}

// HasFailures reports whether any test failed or errored.
func (t RunTotals) HasFailures() bool {
	return t.Failed > 0 || t.Errored > 0
}

// PassRate is the share of executed tests that passed, in percent.
func (t RunTotals) PassRate() float64 {
	executed := t.Total - t.Skipped
	if executed <= 0 {
		return 0
	}

	return float64(t.Passed) * 100 / float64(executed)
}

// FailRate is the share of executed tests that failed or errored, in percent.
func (t RunTotals) FailRate() float64 {
	executed := t.Total - t.Skipped
	if executed <= 0 {
		return 0
	}

	return float64(t.Failed+t.Errored) * 100 / float64(executed)
}

// RunSummary is the read-only view of a finalized run handed to sinks.
type RunSummary struct {
	Run    TestRun
	Totals RunTotals
}

// NewRunSummary builds a summary for a run and its records.
func NewRunSummary(run TestRun, records []TestRecord) RunSummary {
	return RunSummary{Run: run, Totals: Totals(records)}
}

// ReadableDuration formats d as "1h 2m 3s", dropping leading zero units.
func ReadableDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}

	hours := int(d / time.Hour)
	minutes := int(d % time.Hour / time.Minute)
	seconds := int(d % time.Minute / time.Second)

	parts := make([]string, 0, 3)
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}

	if hours > 0 || minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}

	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}

// RunName builds the human label of a run, e.g. "[15:04] android - LOCAL | alice".
func RunName(start time.Time, platform Platform, build, user string) string {
	if build == "" {
		build = "LOCAL"
	}

	name := fmt.Sprintf("[%s] %s - %s", start.Format("15:04"), platform, build)
	if user != "" {
		name += " | " + user
	}

	return name
}
