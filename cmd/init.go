package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// initCmd represents the init command.
var initCmd = newInitCmd()

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Generate default qlty.yaml and capabilities files",
		Long: `Create a qlty.yaml in the current working directory populated with the
current CLI defaults, and a capabilities file with one entry per platform,
so both can be edited manually.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			targetPath := filepath.Join(configFolderPath, configFileName)

			err := viper.SafeWriteConfigAs(targetPath)
			if err != nil {
				return fmt.Errorf("failed to write config file: %w", err)
			}

			capsPath := viper.GetString(capabilitiesFileKey)
			if err := writeCapabilities(capsPath); err != nil {
				return err
			}

			cmd.Printf("Wrote %s and %s\n", targetPath, capsPath)

			return nil
		},
	}
}

func writeCapabilities(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to check capabilities file: %w", err)
	}

	data, err := yaml.Marshal(defaultCapabilities())
	if err != nil {
		return fmt.Errorf("failed to encode capabilities: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write capabilities file: %w", err)
	}

	return nil
}

func init() {
	rootCmd.AddCommand(initCmd)
}
