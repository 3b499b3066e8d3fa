// Package server provides the HTTP surface of the clipboard bridge.
//
// It serves three kinds of routes:
//
//   - Dashboard: the embedded single-page observer UI at "/"
//   - REST API: history and settings snapshots, plus control endpoints for
//     manual writes, clipboard copy, auto-write, clearing and shutdown
//   - Server-Sent Events: history events at "/api/sse"
//
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
//
// Users of the clipbridge library should not need to interact with this
// package directly. The server is started by [clipbridge.Bridge.Start].
package server
