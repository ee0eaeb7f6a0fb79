package controller

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	m "qlty.dev/pkg/qlty/internal/model"
)

// SimpleUI implements UI using cobra Command's output.
type SimpleUI struct {
	cmd *cobra.Command
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, _ ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close(_ context.Context) {}

// Wait blocks until the UI is closed (no-op for SimpleUI).
func (s *SimpleUI) Wait(_ context.Context) {}

// DisplayRunInfo announces a run.
func (s *SimpleUI) DisplayRunInfo(ctx context.Context, run m.TestRun, tests int, workers int) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("%s\n", run.Name)
	s.printf("Running %d test(s) on %s with %d worker(s), run %s\n", tests, run.Platform, workers, run.ID)
}

// DisplayStartingTest shows that a test started.
func (s *SimpleUI) DisplayStartingTest(ctx context.Context, id m.TestID, worker int) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("[%d] %s ...\n", worker, id)
}

// DisplayCompletedTest shows the outcome of one test.
func (s *SimpleUI) DisplayCompletedTest(ctx context.Context, record m.TestRecord) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("%s %s (%s)\n", statusLabel(record.Status), record.ID, m.ReadableDuration(record.Duration))

	if record.Message != "" && record.Status != m.Passed {
		s.printf("    %s\n", firstLine(record.Message))
	}
}

// DisplaySummary prints the results table of a finished run. It also runs
// when the run context was cancelled.
func (s *SimpleUI) DisplaySummary(_ context.Context, report m.RunReport) {
	s.printf("\n%s", renderReport(report))
}

// DisplayCatalog lists the registered tests.
func (s *SimpleUI) DisplayCatalog(ctx context.Context, tests []m.TestDescriptor) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("%s", renderCatalogTable(tests))

	return nil
}

// DisplayRuns lists stored runs.
func (s *SimpleUI) DisplayRuns(ctx context.Context, runs []m.TestRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(runs) == 0 {
		s.printf("No runs recorded\n")
		return nil
	}

	s.printf("%s", renderRunsTable(runs))

	return nil
}

// DisplayReport prints a stored report.
func (s *SimpleUI) DisplayReport(ctx context.Context, report m.RunReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("%s", renderReport(report))

	return nil
}

// DisplayComparison prints the status changes between two runs.
func (s *SimpleUI) DisplayComparison(ctx context.Context, base, head m.RunReport, diff string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("Comparing %s with %s\n", base.Run.ID, head.Run.ID)

	if diff == "" {
		s.printf("No status changes\n")
		return nil
	}

	s.printf("%s", diff)

	return nil
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}
