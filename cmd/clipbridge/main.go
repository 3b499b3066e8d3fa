// Package main is the entry point for the clipbridge CLI.
//
// Usage:
//
//	clipbridge run                      # Watch the clipboard and serve the dashboard
//	clipbridge parse "/tp @s 10 ~ 20"   # Show how a text would be parsed
//	clipbridge history --journal db     # List archived waypoints
//	clipbridge config                   # Print the effective settings
//	clipbridge version                  # Show version info
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help - actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "clipbridge",
	Short: "Turn copied Minecraft coordinates into Xaero waypoints",
	Long: `clipbridge watches the clipboard for Minecraft coordinates and appends
them to a Xaero's Minimap waypoint file.

It understands teleport commands ("/tp @s 100 ~ -200"), labelled readouts
("X: 100 Y: 64 Z: -200") and bare triples ("100 64 -200").

Quick start:
  1. Run: clipbridge run
  2. Copy coordinates in game (F3+C) or from chat
  3. Open http://127.0.0.1:8765 to watch and control the bridge

Settings live in ~/.xaero_bridge_settings.yaml and are saved on every change.`,
	SilenceUsage: true,
}

// Execute runs the root command.
// This is the main entry point called from main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this clipbridge binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "clipbridge %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.AddCommand(versionCmd)
}

// newLogger creates a JSON logger on stderr at the given level.
func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	})), nil
}

// loggerFor builds the logger selected by the --log-level flag.
func loggerFor(cmd *cobra.Command) (*slog.Logger, error) {
	level, _ := cmd.Flags().GetString("log-level")
	return newLogger(level)
}
