package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/clipbridge/config"
)

// configCmd prints the effective settings document.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective settings",
	Long: `Load the settings file, apply defaults for missing keys, validate it and
print the result as YAML. Keys the bridge does not recognise are kept and
printed too.

Exit codes:
  0 - Settings are valid
  1 - Settings are invalid (error details printed to stderr)

Example:
  clipbridge config
  clipbridge config --settings ./world.yaml`,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().StringP("settings", "s", config.DefaultPath(), "path to the settings file")
}

func runConfig(cmd *cobra.Command, args []string) error {
	settingsPath, _ := cmd.Flags().GetString("settings")
	doc, err := config.Load(settingsPath)
	if err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	data, err := doc.Marshal()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# %s\n", settingsPath)
	_, err = out.Write(data)
	return err
}
