package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/clipbridge/config"
	"github.com/jpalmerr/clipbridge/internal/coords"
	"github.com/jpalmerr/clipbridge/internal/waypoint"
)

// parseCmd shows how a text would be parsed, without touching any file.
var parseCmd = &cobra.Command{
	Use:   "parse <text>...",
	Short: "Show the coordinates found in a text",
	Long: `Parse a text the way the bridge parses clipboard values.

The arguments are joined with spaces. The elevation used when the text has
none comes from --y, or from the settings file when --y is not given.

Exit codes:
  0 - Coordinates found
  1 - No coordinates found

Example:
  clipbridge parse "/tp @s 100 ~ -200"
  clipbridge parse X: 10 Y: 70 Z: -3 --line`,
	Args: cobra.MinimumNArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringP("settings", "s", config.DefaultPath(), "path to the settings file")
	parseCmd.Flags().Int("y", 64, "elevation for texts without one")
	parseCmd.Flags().Bool("line", false, "also print the waypoint line that would be written")
}

func runParse(cmd *cobra.Command, args []string) error {
	settingsPath, _ := cmd.Flags().GetString("settings")
	doc, err := config.Load(settingsPath)
	if err != nil {
		return err
	}
	s := doc.Settings

	if cmd.Flags().Changed("y") {
		s.DefaultY, _ = cmd.Flags().GetInt("y")
	}

	text := strings.Join(args, " ")
	t, rule, ok := coords.Match(text, s.DefaultY)
	if !ok {
		return fmt.Errorf("no coordinates found in %q", text)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s)\n", t, rule)

	if withLine, _ := cmd.Flags().GetBool("line"); withLine {
		// preview only: the claimed counter lives in a throwaway copy
		rec := waypoint.NewFormatter(config.NewLive(s)).Format(t, "")
		fmt.Fprintln(out, rec.Line)
	}
	return nil
}
