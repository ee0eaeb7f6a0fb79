package model

import "time"

// SinkKind names an integration sink.
type SinkKind string

// Known sink kinds.
const (
	SinkChat         SinkKind = "chat"
	SinkCloudRun     SinkKind = "cloud-run"
	SinkIssueTracker SinkKind = "issue-tracker"
	SinkBuild        SinkKind = "build"
	SinkMetrics      SinkKind = "metrics"
)

// SinkState is the result of publishing to one sink.
type SinkState string

// Possible sink states.
const (
	SinkSucceeded SinkState = "succeeded"
	SinkFailed    SinkState = "failed"
	SinkSkipped   SinkState = "skipped"
)

// SinkOutcome records how one sink handled a run.
type SinkOutcome struct {
	Sink     SinkKind      `yaml:"sink"`
	State    SinkState     `yaml:"state"`
	Reason   string        `yaml:"reason,omitempty"`
	Attempts int           `yaml:"attempts"`
	Duration time.Duration `yaml:"duration"`
}

// DispatchReport holds one outcome per enabled sink.
type DispatchReport struct {
	Outcomes []SinkOutcome `yaml:"outcomes,omitempty"`
}

// Failures returns the outcomes that failed.
func (d DispatchReport) Failures() []SinkOutcome {
	var failed []SinkOutcome

	for _, o := range d.Outcomes {
		if o.State == SinkFailed {
			failed = append(failed, o)
		}
	}

	return failed
}

// Failed reports whether any sink failed.
func (d DispatchReport) Failed() bool {
	return len(d.Failures()) > 0
}

// Outcome returns the outcome of a sink, if it was dispatched.
func (d DispatchReport) Outcome(kind SinkKind) (SinkOutcome, bool) {
	for _, o := range d.Outcomes {
		if o.Sink == kind {
			return o, true
		}
	}

	return SinkOutcome{}, false
}
