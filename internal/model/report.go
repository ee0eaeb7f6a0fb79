package model

// RunReport is the persisted result of a run.
type RunReport struct {
	Run      TestRun        `yaml:"run"`
	Totals   RunTotals      `yaml:"totals"`
	Records  []TestRecord   `yaml:"records"`
	Dispatch DispatchReport `yaml:"dispatch"`
}

// NewRunReport assembles a report and computes its totals.
func NewRunReport(run TestRun, records []TestRecord, dispatch DispatchReport) RunReport {
	return RunReport{
		Run:      run,
		Totals:   Totals(records),
		Records:  records,
		Dispatch: dispatch,
	}
}

// TestDescriptor describes a catalog entry for listing.
type TestDescriptor struct {
	ID        TestID
	Feature   string
	Target    Target
	CaseIDs   []string
	Platforms []Platform
}
