package domain

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/pmezard/go-difflib/difflib"

	"qlty.dev/pkg/qlty/internal/adapter"
	m "qlty.dev/pkg/qlty/internal/model"
)

// RecoverRun rebuilds the report of an interrupted run from its journal.
// Tests still pending are errored with IncompleteExecutionMessage. The
// recovered report is saved but never dispatched.
func RecoverRun(store adapter.ReportStore, runID string) (m.RunReport, error) {
	records, err := store.Recover(runID)
	if err != nil {
		slog.Error("Failed to read run journal", "run", runID, "error", err)
		return m.RunReport{}, err
	}

	if len(records) == 0 {
		return m.RunReport{}, fmt.Errorf("%w: journal of run %s is empty", ErrNoTests, runID)
	}

	incomplete := 0

	for i := range records {
		if records[i].Status != m.Pending {
			continue
		}

		records[i].Status = m.Errored
		records[i].Message = IncompleteExecutionMessage
		incomplete++
	}

	run, err := recoveredRun(store, runID, records)
	if err != nil {
		return m.RunReport{}, err
	}

	report := m.NewRunReport(run, records, m.DispatchReport{})
	if err := store.Save(report); err != nil {
		slog.Error("Failed to save recovered report", "run", runID, "error", err)
		return report, fmt.Errorf("save recovered report: %w", err)
	}

	slog.Info("Recovered run", "run", runID, "records", len(records), "incomplete", incomplete)

	return report, nil
}

// recoveredRun keeps the metadata of a saved report and otherwise derives the
// run window from the records.
func recoveredRun(store adapter.ReportStore, runID string, records []m.TestRecord) (m.TestRun, error) {
	saved, err := store.Load(runID)
	if err == nil {
		return saved.Run, nil
	}

	if !errors.Is(err, adapter.ErrReportNotFound) {
		return m.TestRun{}, err
	}

	run := m.TestRun{ID: runID, Name: "recovered " + runID}

	for _, r := range records {
		if r.StartedAt.IsZero() {
			continue
		}

		if run.StartTime.IsZero() || r.StartedAt.Before(run.StartTime) {
			run.StartTime = r.StartedAt
		}

		if end := r.StartedAt.Add(r.Duration); end.After(run.EndTime) {
			run.EndTime = end
		}
	}

	return run, nil
}

// CompareReports returns a unified diff of per-test statuses between two runs.
// It is empty when no test changed.
func CompareReports(base, head m.RunReport) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        statusLines(base.Records),
		B:        statusLines(head.Records),
		FromFile: base.Run.ID,
		ToFile:   head.Run.ID,
		Context:  1,
	}

	out, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("compare %s and %s: %w", base.Run.ID, head.Run.ID, err)
	}

	return out, nil
}

func statusLines(records []m.TestRecord) []string {
	sorted := m.CloneRecords(records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	lines := make([]string, 0, len(sorted))
	for _, r := range sorted {
		lines = append(lines, fmt.Sprintf("%s %s\n", r.ID, r.Status))
	}

	return lines
}
