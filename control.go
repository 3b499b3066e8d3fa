package clipbridge

import (
	"context"

	"github.com/jpalmerr/clipbridge/config"
	"github.com/jpalmerr/clipbridge/internal/coords"
	"github.com/jpalmerr/clipbridge/internal/history"
	"github.com/jpalmerr/clipbridge/internal/server"
)

// controlAdapter exposes a Bridge to the HTTP server in internal types.
type controlAdapter struct {
	b *Bridge
}

var _ server.Control = controlAdapter{}

func (c controlAdapter) Settings() config.Settings {
	return c.b.Settings()
}

func (c controlAdapter) UpdateSettings(fn func(*config.Settings)) (config.Settings, error) {
	return c.b.UpdateSettings(fn)
}

func (c controlAdapter) SetAutoWrite(on bool) {
	c.b.SetAutoWrite(on)
}

func (c controlAdapter) ToggleAutoWrite() bool {
	return c.b.ToggleAutoWrite()
}

func (c controlAdapter) WriteTriple(ctx context.Context, t coords.Triple, label string) (history.Record, error) {
	return c.b.coord.Write(ctx, t, label)
}

func (c controlAdapter) CopyRecord(r history.Record) error {
	return c.b.copyLine(r.Line)
}

func (c controlAdapter) ClearHistory() {
	c.b.ClearHistory()
}

func (c controlAdapter) Shutdown() {
	c.b.Shutdown()
}
