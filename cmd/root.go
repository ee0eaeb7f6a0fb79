// Package cmd provides the root command and CLI setup for qlty.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"qlty.dev/pkg/qlty/internal/adapter"
	"qlty.dev/pkg/qlty/internal/controller"
	"qlty.dev/pkg/qlty/internal/domain"
	m "qlty.dev/pkg/qlty/internal/model"
)

// Process exit codes.
const (
	ExitSuccess     = 0 // every test passed
	ExitTestFailure = 1 // a test failed or errored
	ExitRunFault    = 2 // the run could not start or was aborted
	ExitSinkFailure = 3 // a sink failed and --strict-sinks is set
)

// catalog holds the tests this binary was built with.
var catalog = domain.NewCatalog()

// newUI picks the output for a command.
var newUI = func(cmd *cobra.Command) controller.UI {
	return controller.NewUI(cmd, controller.IsTTY(cmd.OutOrStdout()))
}

// openReportStore returns the store for the results directory.
var openReportStore = func(output string) adapter.ReportStore {
	return adapter.NewReportStore(m.Path(output))
}

// reportsOutputDirFlag is a root-level flag shared by commands that read/write reports.
var reportsOutputDirFlag string

var verboseFlag bool

var logFileFlag string

const rootLongDescription = `qlty runs mobile and web UI test suites against a WebDriver server
(Appium, Selenium Grid or Sauce Labs), records one result per test and reports
the run to Slack, Sauce Labs, Jira, Jenkins and a Prometheus textfile.

Exit codes:
  0  every test passed
  1  a test failed or errored
  2  the run could not start or was aborted
  3  a reporting sink failed and --strict-sinks is set`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "qlty",
		Short:         "UI test run orchestration",
		Long:          rootLongDescription,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVarP(
			&reportsOutputDirFlag, outputFlagName, "o",
			viper.GetString(outputFlagName),
			"directory for run reports, journals and artifacts",
		)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outputFlagName), outputFlagName)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", viper.GetBool(logVerboseKey), "log at debug level")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(verboseFlagName), logVerboseKey)

	cmd.PersistentFlags().StringVar(&logFileFlag, "log-file", viper.GetString(logFilenameKey), "log file path")
	bindFlagToConfig(cmd.PersistentFlags().Lookup("log-file"), logFilenameKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

func initLogging() {
	configureLogger(viper.GetString(logFilenameKey), viper.GetBool(logVerboseKey))
}

// Execute runs the CLI over the given catalog and exits with the code of the outcome.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute(c *domain.Catalog) {
	if c != nil {
		catalog = c
	}

	cobra.OnInitialize(initLogging)

	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
		os.Exit(exitCode(err))
	}
}

// exitError carries the process exit code of a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}

	return &exitError{code: code, err: err}
}

// exitCode maps an error to a process exit code. Errors without one, such as
// flag parsing errors, are run faults.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var e *exitError
	if errors.As(err, &e) {
		return e.code
	}

	return ExitRunFault
}
