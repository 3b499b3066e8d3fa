// Package dashboard holds the embedded observer UI.
//
// The page subscribes to the bridge's event stream and renders the raw and
// written history lists, with buttons for the control endpoints.
package dashboard

import "embed"

// Assets contains assets/index.html.
//
//go:embed assets/*
var Assets embed.FS
