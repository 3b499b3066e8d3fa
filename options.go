package clipbridge

import (
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jpalmerr/clipbridge/config"
	"github.com/jpalmerr/clipbridge/internal/poller"
	"github.com/jpalmerr/clipbridge/internal/waypoint"
)

// Source returns the current clipboard text.
type Source interface {
	Read() (string, error)
}

// ClipboardWriter replaces the clipboard text.
type ClipboardWriter interface {
	Write(text string) error
}

// bridgeConfig holds mutable state during Bridge construction.
type bridgeConfig struct {
	title           string
	settings        *config.Settings
	settingsPath    string
	source          poller.Source
	clipboard       ClipboardWriter
	pollingInterval time.Duration
	port            int
	serve           bool
	journalPath     string
	rnd             waypoint.IntSource
	registry        *prometheus.Registry
	logger          *slog.Logger
	eventCallbacks  []func(Event)
}

// Option is a function that configures a [Bridge] instance during construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
type Option func(*bridgeConfig) error

// WithSettings sets the starting settings.
//
// Without [WithSettingsPath] the settings live only in memory. Combined with
// it, these settings replace whatever the file holds and are written back on
// the first change.
//
// Returns an error if the settings are invalid.
func WithSettings(s config.Settings) Option {
	return func(cfg *bridgeConfig) error {
		if err := s.Validate(); err != nil {
			return err
		}
		cfg.settings = &s
		return nil
	}
}

// WithSettingsPath loads settings from a YAML (or legacy JSON) document and
// saves every change back to it. A missing file starts from
// [config.Defaults] and is created on the first save.
//
// Example:
//
//	b, err := clipbridge.New(
//	    clipbridge.WithSettingsPath(config.DefaultPath()),
//	)
func WithSettingsPath(path string) Option {
	return func(cfg *bridgeConfig) error {
		if path == "" {
			return errors.New("settings path cannot be empty")
		}
		cfg.settingsPath = path
		return nil
	}
}

// WithSource replaces the system clipboard as the polled text source.
//
// Returns an error if the source is nil.
func WithSource(src Source) Option {
	return func(cfg *bridgeConfig) error {
		if src == nil {
			return errors.New("source cannot be nil")
		}
		cfg.source = src
		return nil
	}
}

// WithClipboardWriter replaces the system clipboard as the target of
// [Bridge.CopyRecord].
//
// Returns an error if the writer is nil.
func WithClipboardWriter(w ClipboardWriter) Option {
	return func(cfg *bridgeConfig) error {
		if w == nil {
			return errors.New("clipboard writer cannot be nil")
		}
		cfg.clipboard = w
		return nil
	}
}

// WithPollingInterval sets how often the clipboard is sampled.
// Defaults to 1 second if not specified.
//
// Returns an error if the duration is zero or negative.
func WithPollingInterval(d time.Duration) Option {
	return func(cfg *bridgeConfig) error {
		if d <= 0 {
			return errors.New("polling interval must be positive")
		}
		cfg.pollingInterval = d
		return nil
	}
}

// WithPort sets the HTTP port for the dashboard server.
//
// The dashboard UI and API will be available at http://127.0.0.1:<port>.
// Defaults to 8765 if not specified.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *bridgeConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("port must be between 1 and 65535")
		}
		cfg.port = port
		return nil
	}
}

// WithoutServer disables the HTTP dashboard and API. The pipeline still runs
// and events still reach callbacks registered with [WithEventCallback].
func WithoutServer() Option {
	return func(cfg *bridgeConfig) error {
		cfg.serve = false
		return nil
	}
}

// WithJournal archives every sample and written waypoint to a SQLite
// database at path. The database is opened by [Bridge.Start] and closed when
// it returns.
func WithJournal(path string) Option {
	return func(cfg *bridgeConfig) error {
		if path == "" {
			return errors.New("journal path cannot be empty")
		}
		cfg.journalPath = path
		return nil
	}
}

// WithRand sets the source used to draw random waypoint colours.
//
// Returns an error if the source is nil.
func WithRand(src waypoint.IntSource) Option {
	return func(cfg *bridgeConfig) error {
		if src == nil {
			return errors.New("random source cannot be nil")
		}
		cfg.rnd = src
		return nil
	}
}

// WithRegistry registers the bridge metrics on reg, which also backs the
// /metrics endpoint. By default each Bridge uses its own registry.
//
// Returns an error if the registry is nil.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(cfg *bridgeConfig) error {
		if reg == nil {
			return errors.New("registry cannot be nil")
		}
		cfg.registry = reg
		return nil
	}
}

// WithLogger sets a custom [slog.Logger] for the Bridge instance.
// If not specified, [slog.Default] is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *bridgeConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithEventCallback registers a function to be called for every history
// event: raw or written history updated, info and error messages.
//
// Multiple callbacks may be registered; they execute in registration order.
// Callbacks run synchronously, in event order, and see every event. They
// must be non-blocking and must not call back into the Bridge.
//
// Panics within callbacks are recovered and logged.
//
// Example:
//
//	b, err := clipbridge.New(
//	    clipbridge.WithEventCallback(func(ev clipbridge.Event) {
//	        if ev.Kind == clipbridge.EventError {
//	            log.Printf("bridge error: %s", ev.Message)
//	        }
//	    }),
//	)
//
// Nil callbacks are silently ignored.
func WithEventCallback(cb func(Event)) Option {
	return func(cfg *bridgeConfig) error {
		if cb == nil {
			return nil // no-op for nil callback (safe to call)
		}
		cfg.eventCallbacks = append(cfg.eventCallbacks, cb)
		return nil
	}
}

// WithTitle sets the dashboard title displayed in the browser tab and header.
func WithTitle(title string) Option {
	return func(cfg *bridgeConfig) error {
		cfg.title = title
		return nil
	}
}
