package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jpalmerr/clipbridge"
	"github.com/jpalmerr/clipbridge/config"
)

func main() {
	dir, err := os.MkdirTemp("", "clipbridge-demo-")
	if err != nil {
		slog.Error("failed to create demo directory", "error", err)
		os.Exit(1)
	}

	// demo settings: write into a temp dir, keep 8 entries per list
	s := config.Defaults()
	s.WaypointFile = filepath.Join(dir, "waypoints.txt")
	s.RecentLimit = 8

	// a simulated player instead of the real clipboard (see mock_clipboard.go)
	clip := &mockClipboard{}
	stop := make(chan struct{})
	defer close(stop)
	go StartMockPlayer(clip, stop)

	b, err := clipbridge.New(
		clipbridge.WithSettings(s),
		clipbridge.WithSource(clip),
		clipbridge.WithClipboardWriter(clip),
		clipbridge.WithPollingInterval(500*time.Millisecond),
		clipbridge.WithPort(8765),
		clipbridge.WithTitle("Clipboard Bridge Demo"),
		clipbridge.WithEventCallback(func(ev clipbridge.Event) {
			switch ev.Kind {
			case clipbridge.EventInfo:
				slog.Info("bridge", "message", ev.Message)
			case clipbridge.EventError:
				slog.Warn("bridge", "message", ev.Message)
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create bridge", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Clipboard Bridge Demo                               ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Open http://127.0.0.1:8765 in your browser          ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   A simulated player copies coordinates every few     ║")
	fmt.Println("  ║   seconds; waypoints go to a temp directory.          ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()
	fmt.Println("  Waypoint file:", s.WaypointFile)
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := b.Start(ctx); err != nil {
		slog.Error("bridge error", "error", err)
		os.Exit(1)
	}
}
