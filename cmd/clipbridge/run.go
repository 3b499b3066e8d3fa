package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/clipbridge"
	"github.com/jpalmerr/clipbridge/config"
	"github.com/jpalmerr/clipbridge/internal/clipboard"
)

const (
	shutdownTimeout = 10 * time.Second
)

// runCmd starts the bridge.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Watch the clipboard and write waypoints",
	Long: `Start the clipboard bridge.

The bridge will:
  - Load settings from the settings file (defaults if it does not exist)
  - Sample the clipboard at the polling interval
  - Append a waypoint line for every copied coordinate while auto-write is on
  - Serve the dashboard and API on 127.0.0.1 (unless --no-server)

The bridge runs until interrupted (Ctrl+C), receives SIGTERM, or is asked
to shut down from the dashboard. Settings are saved on the way out.

Example:
  clipbridge run
  clipbridge run --interval 500ms --journal ~/.xaero_bridge.db`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("settings", "s", config.DefaultPath(), "path to the settings file")
	runCmd.Flags().Duration("interval", time.Second, "clipboard polling interval")
	runCmd.Flags().IntP("port", "p", 8765, "dashboard port")
	runCmd.Flags().String("journal", "", "archive samples and waypoints to this SQLite file")
	runCmd.Flags().Bool("no-server", false, "do not serve the dashboard and API")
	runCmd.Flags().String("title", "", "dashboard title")
}

func runRun(cmd *cobra.Command, args []string) error {
	logger, err := loggerFor(cmd)
	if err != nil {
		return err
	}

	if !clipboard.Available() {
		return clipboard.ErrUnsupported
	}

	settingsPath, _ := cmd.Flags().GetString("settings")
	interval, _ := cmd.Flags().GetDuration("interval")
	port, _ := cmd.Flags().GetInt("port")
	journalPath, _ := cmd.Flags().GetString("journal")
	noServer, _ := cmd.Flags().GetBool("no-server")
	title, _ := cmd.Flags().GetString("title")

	opts := []clipbridge.Option{
		clipbridge.WithSettingsPath(settingsPath),
		clipbridge.WithPollingInterval(interval),
		clipbridge.WithPort(port),
		clipbridge.WithLogger(logger),
	}
	if journalPath != "" {
		opts = append(opts, clipbridge.WithJournal(journalPath))
	}
	if noServer {
		opts = append(opts, clipbridge.WithoutServer())
	}
	if title != "" {
		opts = append(opts, clipbridge.WithTitle(title))
	}

	b, err := clipbridge.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create bridge: %w", err)
	}

	s := b.Settings()
	logger.Info("settings loaded",
		"path", settingsPath,
		"waypoint_file", s.WaypointFile,
		"autowrite", s.AutoWrite,
	)

	// set up context with signal handling - cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// start bridge - blocks until context cancelled or shutdown requested
	errChan := make(chan error, 1)
	go func() {
		errChan <- b.Start(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("bridge error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("bridge error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
