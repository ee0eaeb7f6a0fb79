package model

import (
	"fmt"
	"strings"
	"time"
)

// Status is the outcome of a single test.
type Status int

const (
	// Pending means the test registered but has not finished.
	Pending Status = iota
	// Passed means the body returned without failures.
	Passed
	// Failed means an assertion failed.
	Failed
	// Errored means the test hit an unexpected fault.
	Errored
	// Skipped means the test asked to be skipped or never ran.
	Skipped
)

var statusNames = map[Status]string{
	Pending: "pending",
	Passed:  "passed",
	Failed:  "failed",
	Errored: "errored",
	Skipped: "skipped",
}

// String implements fmt.Stringer.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}

	return fmt.Sprintf("status(%d)", int(s))
}

// IsTerminal reports whether the status is final.
func (s Status) IsTerminal() bool {
	return s == Passed || s == Failed || s == Errored || s == Skipped
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if _, ok := statusNames[s]; !ok {
		return nil, fmt.Errorf("unknown status %d", int(s))
	}

	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	for status, name := range statusNames {
		if name == string(text) {
			*s = status
			return nil
		}
	}

	return fmt.Errorf("unknown status %q", string(text))
}

// Target is the category of a test.
type Target string

const (
	// TargetUI tests drive an application through a remote session.
	TargetUI Target = "UI"
	// TargetAPI tests talk to services directly and need no session.
	TargetAPI Target = "API"
)

// ParseTarget converts a string into a Target.
func ParseTarget(value string) (Target, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case string(TargetUI):
		return TargetUI, nil
	case string(TargetAPI):
		return TargetAPI, nil
	}

	return "", fmt.Errorf("unknown target %q", value)
}

// TestID names a test as Class.Method.
type TestID string

// NewTestID joins a class and method name.
func NewTestID(class, method string) TestID {
	return TestID(class + "." + method)
}

// Class returns the part before the last dot.
func (id TestID) Class() string {
	s := string(id)
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[:i]
	}

	return ""
}

// Method returns the part after the last dot.
func (id TestID) Method() string {
	s := string(id)
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[i+1:]
	}

	return s
}

// ArtifactKind describes what an artifact holds.
type ArtifactKind string

// Known artifact kinds.
const (
	ArtifactScreenshot ArtifactKind = "screenshot"
	ArtifactPageSource ArtifactKind = "page_source"
	ArtifactSystemLog  ArtifactKind = "system_log"
	ArtifactCustom     ArtifactKind = "custom"
)

// Artifact references a file captured for a test. Only the path is kept.
type Artifact struct {
	Kind ArtifactKind `yaml:"kind"`
	Path Path         `yaml:"path"`
}

// TestRecord is the outcome and metadata of one test in one run.
type TestRecord struct {
	ID        TestID        `yaml:"id"`
	CaseIDs   []string      `yaml:"case_ids,omitempty"`
	Feature   string        `yaml:"feature,omitempty"`
	Target    Target        `yaml:"target"`
	Status    Status        `yaml:"status"`
	SessionID string        `yaml:"session_id,omitempty"`
	StartedAt time.Time     `yaml:"started_at"`
	Duration  time.Duration `yaml:"duration"`
	Message   string        `yaml:"message,omitempty"`
	Artifacts []Artifact    `yaml:"artifacts,omitempty"`
}

// Clone returns a deep copy of the record.
func (r TestRecord) Clone() TestRecord {
	out := r
	if r.CaseIDs != nil {
		out.CaseIDs = append([]string(nil), r.CaseIDs...)
	}

	if r.Artifacts != nil {
		out.Artifacts = append([]Artifact(nil), r.Artifacts...)
	}

	return out
}

// CloneRecords deep copies a slice of records.
func CloneRecords(records []TestRecord) []TestRecord {
	out := make([]TestRecord, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}

	return out
}

// Path is a file reference stored in records and reports.
type Path string

func (p Path) String() string {
	return string(p)
}
