package cmd

import (
	"github.com/spf13/cobra"

	"qlty.dev/pkg/qlty/internal/controller"
	m "qlty.dev/pkg/qlty/internal/model"
)

var listPlatformFlag string

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the registered tests",
		Long:  "List the registered tests with their case ids, feature and platforms.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				platform m.Platform
				err      error
			)

			if listPlatformFlag != "" {
				platform, err = m.ParsePlatform(listPlatformFlag)
				if err != nil {
					return withExitCode(ExitRunFault, err)
				}
			}

			tests := make([]m.TestDescriptor, 0, catalog.Len())
			for _, e := range catalog.Entries() {
				if platform != "" && !e.Supports(platform) {
					continue
				}

				tests = append(tests, e.Descriptor())
			}

			ui := newUI(cmd)
			if err := ui.Start(cmd.Context(), controller.WithBrowseMode()); err != nil {
				return err
			}
			defer ui.Close(cmd.Context())

			return ui.DisplayCatalog(cmd.Context(), tests)
		},
	}

	cmd.Flags().StringVarP(&listPlatformFlag, "platform", "p", "", "only list tests that run on this platform")

	return cmd
}

func init() {
	rootCmd.AddCommand(listCmd)
}
