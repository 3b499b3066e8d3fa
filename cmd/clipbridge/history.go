package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/clipbridge/internal/journal"
)

// historyCmd lists archived waypoints or samples from a journal.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived waypoints",
	Long: `List the most recent entries of a journal written by "clipbridge run --journal".

Waypoints are printed as "<time>  <line>", most recent first. With
--samples, clipboard values are printed instead as "<text>  →  <coords>".

Example:
  clipbridge history --journal ~/.xaero_bridge.db
  clipbridge history --journal ~/.xaero_bridge.db --samples --limit 50`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringP("journal", "j", "", "path to the journal database (required)")
	historyCmd.Flags().IntP("limit", "n", 20, "number of entries to print")
	historyCmd.Flags().Bool("samples", false, "list clipboard values instead of waypoints")
	_ = historyCmd.MarkFlagRequired("journal")
}

func runHistory(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("journal")
	limit, _ := cmd.Flags().GetInt("limit")
	samples, _ := cmd.Flags().GetBool("samples")

	if limit < 1 {
		return fmt.Errorf("limit must be at least 1, got %d", limit)
	}

	j, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()

	out := cmd.OutOrStdout()

	if samples {
		list, err := j.RecentSamples(cmd.Context(), limit)
		if err != nil {
			return err
		}
		for _, s := range list {
			fmt.Fprintln(out, s.Display())
		}
		return nil
	}

	list, err := j.RecentRecords(cmd.Context(), limit)
	if err != nil {
		return err
	}
	for _, r := range list {
		fmt.Fprintln(out, r.Display())
	}
	return nil
}
