// Package clipbridge watches the clipboard for Minecraft coordinates and
// appends them to a Xaero's Minimap waypoint file.
//
// A [Bridge] samples the clipboard at a fixed interval. Every distinct value
// is recorded in a bounded raw history. Values that look like coordinates
// are turned into waypoint lines and appended to the configured file while
// auto-write is on.
//
// # Quick Start
//
//	b, _ := clipbridge.New(clipbridge.WithSettingsPath(config.DefaultPath()))
//
//	// Set up graceful shutdown on SIGINT/SIGTERM
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	b.Start(ctx) // blocks until context is cancelled
//
// # Recognised Input
//
// Three forms are tried in order; the first that matches wins:
//
//   - Teleport commands: "/tp @s 100 ~ -200", "tp 10 20" (x and z only)
//   - Labelled readouts: "X: 120 Y: 70 Z: -45" (the elevation always comes
//     from the y_default setting)
//   - Bare triples: "100 64 -200" or "100, 64, -200"
//
// Coordinates missing an elevation use the y_default setting.
//
// # Configuration
//
// Bridge uses the functional options pattern for configuration:
//
//	b, err := clipbridge.New(
//	    clipbridge.WithSettingsPath("/home/me/.xaero_bridge_settings.yaml"),
//	    clipbridge.WithPollingInterval(500 * time.Millisecond),
//	    clipbridge.WithPort(9090),
//	    clipbridge.WithJournal("/home/me/.xaero_bridge.db"),
//	)
//
// The waypoint format settings (file, naming, colour, elevation, history
// size, auto-write) live in a [config.Settings] document that can be changed
// at runtime through [Bridge.UpdateSettings] or the HTTP API, and is saved
// after every change.
//
// # Architecture
//
// Bridge consists of several internal packages (under internal/):
//
//   - internal/poller: clipboard sampling with change detection
//   - internal/queue: FIFO hand-off between poller and coordinator
//   - internal/coords: coordinate parsing rules
//   - internal/waypoint: waypoint naming and line formatting
//   - internal/pipeline: per-value processing
//   - internal/history: bounded histories with pub/sub for real-time updates
//   - internal/sink: append-only file writer
//   - internal/journal: optional SQLite archive
//   - internal/metrics: Prometheus collectors
//   - internal/server: HTTP server with REST API and Server-Sent Events
//   - dashboard: embedded web UI assets
//
// The internal packages are not part of the public API and may change
// without notice.
package clipbridge
