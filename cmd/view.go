package cmd

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"qlty.dev/pkg/qlty/internal/controller"
	"qlty.dev/pkg/qlty/internal/domain"
	m "qlty.dev/pkg/qlty/internal/model"
)

const latestRun = "latest"

var errRecoverNeedsID = errors.New("--recover needs a run id")

var viewRecoverFlag bool
var viewCompareFlag string

// viewCmd represents the view command.
var viewCmd = newViewCmd()

func newViewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view [run id]",
		Short: "View recorded run reports",
		Long: `Without a run id, list the recorded runs. With a run id (or "latest"), print its report.

--recover rebuilds the report of an interrupted run from its journal.
--compare prints the status changes from another run to this one.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store := openReportStore(viper.GetString(outputFlagName))

			ui := newUI(cmd)
			if err := ui.Start(ctx, controller.WithBrowseMode()); err != nil {
				return err
			}
			defer ui.Close(ctx)

			if len(args) == 0 && !viewRecoverFlag && viewCompareFlag == "" {
				runs, err := store.List()
				if err != nil {
					return err
				}

				return ui.DisplayRuns(ctx, runs)
			}

			runID := latestRun
			if len(args) == 1 {
				runID = args[0]
			}

			if viewRecoverFlag {
				if runID == latestRun {
					return withExitCode(ExitRunFault, errRecoverNeedsID)
				}

				report, err := domain.RecoverRun(store, runID)
				if err != nil {
					return withExitCode(ExitRunFault, err)
				}

				return ui.DisplayReport(ctx, report)
			}

			head, err := loadReport(store, runID)
			if err != nil {
				return withExitCode(ExitRunFault, err)
			}

			if viewCompareFlag == "" {
				return ui.DisplayReport(ctx, head)
			}

			base, err := loadReport(store, viewCompareFlag)
			if err != nil {
				return withExitCode(ExitRunFault, err)
			}

			diff, err := domain.CompareReports(base, head)
			if err != nil {
				return err
			}

			return ui.DisplayComparison(ctx, base, head, diff)
		},
	}

	cmd.Flags().BoolVar(&viewRecoverFlag, "recover", false, "rebuild the report of an interrupted run from its journal")
	cmd.Flags().StringVar(&viewCompareFlag, "compare", "", "run id to compare against")

	return cmd
}

func init() {
	rootCmd.AddCommand(viewCmd)
}

type reportLoader interface {
	Load(runID string) (m.RunReport, error)
	Latest() (m.RunReport, error)
}

func loadReport(store reportLoader, runID string) (m.RunReport, error) {
	if runID == latestRun {
		return store.Latest()
	}

	return store.Load(runID)
}
