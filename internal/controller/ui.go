// Package controller provides output adapters for displaying test runs and reports.
package controller

import (
	"context"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	m "qlty.dev/pkg/qlty/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeRun StartMode = iota
	ModeBrowse
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode StartMode
}

// WithRunMode shows live progress of a run.
func WithRunMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeRun
	}
}

// WithBrowseMode shows static listings such as the catalog or a stored report.
func WithBrowseMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeBrowse
	}
}

func newStartConfig(options ...StartOption) StartConfig {
	cfg := StartConfig{mode: ModeRun}
	for _, opt := range options {
		opt(&cfg)
	}

	return cfg
}

// UI displays the progress and results of runs.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	Wait(ctx context.Context) // Wait for UI to finish (user closes it)
	DisplayRunInfo(ctx context.Context, run m.TestRun, tests int, workers int)
	DisplayStartingTest(ctx context.Context, id m.TestID, worker int)
	DisplayCompletedTest(ctx context.Context, record m.TestRecord)
	DisplaySummary(ctx context.Context, report m.RunReport)
	DisplayCatalog(ctx context.Context, tests []m.TestDescriptor) error
	DisplayRuns(ctx context.Context, runs []m.TestRun) error
	DisplayReport(ctx context.Context, report m.RunReport) error
	DisplayComparison(ctx context.Context, base, head m.RunReport, diff string) error
}

// NewUI picks the interactive UI for terminals and the plain one otherwise.
func NewUI(cmd *cobra.Command, interactive bool) UI {
	if interactive {
		return NewTUI(cmd.OutOrStdout())
	}

	return NewSimpleUI(cmd)
}

// IsTTY reports whether w is an interactive terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
