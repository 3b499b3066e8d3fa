package clipbridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jpalmerr/clipbridge/config"
	"github.com/jpalmerr/clipbridge/dashboard"
	"github.com/jpalmerr/clipbridge/internal/clipboard"
	"github.com/jpalmerr/clipbridge/internal/history"
	"github.com/jpalmerr/clipbridge/internal/journal"
	"github.com/jpalmerr/clipbridge/internal/metrics"
	"github.com/jpalmerr/clipbridge/internal/pipeline"
	"github.com/jpalmerr/clipbridge/internal/poller"
	"github.com/jpalmerr/clipbridge/internal/queue"
	"github.com/jpalmerr/clipbridge/internal/server"
	"github.com/jpalmerr/clipbridge/internal/sink"
	"github.com/jpalmerr/clipbridge/internal/waypoint"
)

const (
	defaultPollingInterval = time.Second
	defaultPort            = 8765
)

var (
	// ErrRunning is returned by [Bridge.Start] when the bridge is already running.
	ErrRunning = errors.New("bridge is already running")

	// ErrRecordNotFound is returned by [Bridge.CopyRecord] for an unknown ID.
	ErrRecordNotFound = errors.New("record not found")
)

// Bridge watches the clipboard and turns coordinates into Xaero waypoints.
//
// A Bridge owns the live settings, the raw and written histories, and the
// pipeline that connects them. It is created using [New] with functional
// options and started with [Bridge.Start].
//
// The typical lifecycle is:
//
//	b, err := clipbridge.New(clipbridge.WithSettingsPath(config.DefaultPath()))
//	if err != nil {
//	    slog.Error("failed to create bridge", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	b.Start(ctx) // blocks until context cancelled or Shutdown
//
// The control methods (SetAutoWrite, UpdateSettings, Write, CopyRecord,
// ClearHistory) work whether or not the bridge is running.
type Bridge struct {
	title           string
	settingsPath    string
	source          poller.Source
	clipboard       ClipboardWriter
	pollingInterval time.Duration
	port            int
	serve           bool
	journalPath     string
	registry        *prometheus.Registry
	logger          *slog.Logger

	live    *config.Live
	store   *history.MemoryStore
	queue   *queue.Queue
	metrics *metrics.Metrics
	coord   *pipeline.Coordinator
	archive *archiveSlot

	docMu sync.Mutex
	doc   *config.Document

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	poller  *poller.Poller
}

// New creates a new [Bridge] instance with the given options.
//
// Defaults:
//   - Settings: [config.Defaults], in memory only
//   - Source and clipboard writer: the system clipboard
//   - Polling interval: 1 second
//   - Port: 8765
//
// Returns an error if any option is invalid, the settings document cannot be
// loaded, or the metrics cannot be registered.
func New(opts ...Option) (*Bridge, error) {
	cfg := &bridgeConfig{
		pollingInterval: defaultPollingInterval,
		port:            defaultPort,
		serve:           true,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	// default to slog.Default() if no logger provided
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	doc := config.NewDocument(config.Defaults())
	if cfg.settingsPath != "" {
		loaded, err := config.Load(cfg.settingsPath)
		if err != nil {
			return nil, err
		}
		doc = loaded
	}
	if cfg.settings != nil {
		doc.Settings = *cfg.settings
	}

	source := cfg.source
	if source == nil {
		source = clipboard.System{}
	}
	writer := cfg.clipboard
	if writer == nil {
		writer = clipboard.System{}
	}
	registry := cfg.registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	b := &Bridge{
		title:           cfg.title,
		settingsPath:    cfg.settingsPath,
		source:          source,
		clipboard:       writer,
		pollingInterval: cfg.pollingInterval,
		port:            cfg.port,
		serve:           cfg.serve,
		journalPath:     cfg.journalPath,
		registry:        registry,
		logger:          logger,
		live:            config.NewLive(doc.Settings),
		store:           history.NewMemoryStore(),
		queue:           queue.New(),
		archive:         &archiveSlot{},
		doc:             doc,
	}

	m, err := metrics.New(registry, metrics.Probes{
		QueueLength:        b.queue.Len,
		SourceReads:        func() uint64 { return b.pollerStats().Reads },
		SourceReadFailures: func() uint64 { return b.pollerStats().ReadFailures },
		EventsDropped:      b.store.Dropped,
	})
	if err != nil {
		return nil, err
	}
	b.metrics = m

	var fmtOpts []waypoint.Option
	if cfg.rnd != nil {
		fmtOpts = append(fmtOpts, waypoint.WithRand(cfg.rnd))
	}

	b.coord = pipeline.New(pipeline.Options{
		Settings:  b.live,
		Formatter: waypoint.NewFormatter(b.live, fmtOpts...),
		Sink:      sink.NewFileSink(),
		Store:     b.store,
		Archive:   b.archive,
		Metrics:   m,
		Logger:    logger,
	})

	if len(cfg.eventCallbacks) > 0 {
		callbacks := cfg.eventCallbacks
		b.store.Listen(func(ev history.Event) {
			for _, cb := range callbacks {
				invokeCallbackSafe(cb, toPublicEvent(ev), logger)
			}
		})
	}

	b.live.OnChange(b.persist)

	return b, nil
}

// Start begins watching the clipboard and, unless disabled, serving the
// dashboard.
//
// Start is a blocking call that runs until the provided context is cancelled
// or [Bridge.Shutdown] is called. During execution:
//
//   - The clipboard is sampled immediately, then at the configured interval
//   - Every distinct value is recorded; parsed values are written while
//     auto-write is on
//   - The HTTP server serves the dashboard, API and /metrics
//
// On return the settings have been saved (when a settings path is
// configured) and the journal, if any, is closed.
//
// Returns nil on graceful shutdown. Returns an error if the bridge is
// already running, the journal cannot be opened, or the HTTP server fails
// to start.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return ErrRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	b.running = true
	b.cancel = cancel
	b.mu.Unlock()

	defer func() {
		cancel()
		b.mu.Lock()
		b.running = false
		b.cancel = nil
		b.mu.Unlock()
	}()

	b.logger.Info("clipboard bridge starting",
		"interval", b.pollingInterval.String(),
		"waypoint_file", b.live.Snapshot().WaypointFile,
	)

	// check if context already cancelled
	if ctx.Err() != nil {
		return nil
	}

	if b.journalPath != "" {
		j, err := journal.Open(b.journalPath)
		if err != nil {
			return err
		}
		b.archive.set(j)
		b.logger.Info("journal opened", "path", b.journalPath)
	}

	p := poller.New(b.source, b.queue, b.pollingInterval, b.logger)
	b.mu.Lock()
	b.poller = p
	b.mu.Unlock()
	p.Start(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		b.coord.Run(ctx, b.queue)
	}()

	// cleanup stops both tasks before the journal closes and settings save
	cleanup := func() {
		cancel()
		p.Stop()
		wg.Wait()
		if j := b.archive.set(nil); j != nil {
			if err := j.Close(); err != nil {
				b.logger.Warn("failed to close journal", "error", err)
			}
		}
		b.persist(b.live.Snapshot())
	}

	if b.serve {
		httpServer := server.NewServer(b.store, controlAdapter{b}, b.registry, b.port, dashboard.Assets, b.title, b.logger)
		if err := httpServer.Start(ctx); err != nil {
			cleanup()
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		b.logger.Info("dashboard available", "url", fmt.Sprintf("http://127.0.0.1:%d", b.port))
	}

	<-ctx.Done()
	cleanup()
	b.logger.Info("clipboard bridge stopped")
	return nil
}

// Shutdown stops a running [Bridge.Start]. It is a no-op when the bridge is
// not running.
func (b *Bridge) Shutdown() {
	b.mu.Lock()
	cancel := b.cancel
	b.mu.Unlock()
	if cancel != nil {
		b.logger.Info("shutdown requested")
		cancel()
	}
}

// Settings returns a copy of the current settings.
func (b *Bridge) Settings() config.Settings {
	return b.live.Snapshot()
}

// UpdateSettings applies fn to a copy of the settings and commits it if it
// validates. The naming counter may be raised but never lowered. The result
// is saved when a settings path is configured.
func (b *Bridge) UpdateSettings(fn func(*config.Settings)) (config.Settings, error) {
	if _, err := b.live.Update(fn); err != nil {
		return b.live.Snapshot(), err
	}
	return b.live.Snapshot(), nil
}

// SetAutoWrite pauses (false) or resumes (true) automatic writing.
func (b *Bridge) SetAutoWrite(on bool) {
	b.live.SetAutoWrite(on)
	b.logger.Info("auto-write changed", "enabled", on)
}

// ToggleAutoWrite flips automatic writing and returns the new state.
func (b *Bridge) ToggleAutoWrite() bool {
	var on bool
	// flipping a valid settings value cannot fail validation
	_, _ = b.live.Update(func(s *config.Settings) {
		s.AutoWrite = !s.AutoWrite
		on = s.AutoWrite
	})
	b.logger.Info("auto-write changed", "enabled", on)
	return on
}

// Write formats c as a waypoint and appends it to the destination file,
// regardless of the auto-write setting. label names the waypoint when auto
// naming is off.
func (b *Bridge) Write(ctx context.Context, c Coords, label string) (Record, error) {
	r, err := b.coord.Write(ctx, c.triple(), label)
	if err != nil {
		return Record{}, err
	}
	return toPublicRecord(r), nil
}

// CopyRecord places the line of the written record with the given ID on
// the clipboard.
func (b *Bridge) CopyRecord(id string) error {
	for _, r := range b.store.Records() {
		if r.ID == id {
			return b.copyLine(r.Line)
		}
	}
	return ErrRecordNotFound
}

func (b *Bridge) copyLine(line string) error {
	if err := b.clipboard.Write(line); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	b.store.Info("Copied waypoint to clipboard", nil)
	return nil
}

// ClearHistory empties the raw and written histories.
func (b *Bridge) ClearHistory() {
	b.store.Clear()
}

// Samples returns the raw history, most recent first.
func (b *Bridge) Samples() []Sample {
	return toPublicSamples(b.store.Samples())
}

// Records returns the written history, most recent first.
func (b *Bridge) Records() []Record {
	return toPublicRecords(b.store.Records())
}

// Port returns the configured HTTP port for the dashboard server.
func (b *Bridge) Port() int {
	return b.port
}

// PollingInterval returns the configured interval between clipboard samples.
func (b *Bridge) PollingInterval() time.Duration {
	return b.pollingInterval
}

// Registry returns the registry holding the bridge metrics.
func (b *Bridge) Registry() *prometheus.Registry {
	return b.registry
}

// persist saves s over the loaded document. Failures are reported and never
// stop the pipeline.
func (b *Bridge) persist(s config.Settings) {
	if b.settingsPath == "" {
		return
	}

	b.docMu.Lock()
	defer b.docMu.Unlock()

	b.doc.Settings = s
	if err := b.doc.Save(b.settingsPath); err != nil {
		b.logger.Warn("failed to save settings", "path", b.settingsPath, "error", err)
		b.metrics.PersistFailed()
		b.store.Error("Failed to save settings: " + err.Error())
	}
}

func (b *Bridge) pollerStats() poller.Stats {
	b.mu.Lock()
	p := b.poller
	b.mu.Unlock()
	if p == nil {
		return poller.Stats{}
	}
	return p.Stats()
}

// archiveSlot forwards to the journal of the current run, if any.
type archiveSlot struct {
	mu sync.RWMutex
	j  *journal.Journal
}

// set installs j and returns the previous journal.
func (a *archiveSlot) set(j *journal.Journal) *journal.Journal {
	a.mu.Lock()
	defer a.mu.Unlock()
	prev := a.j
	a.j = j
	return prev
}

func (a *archiveSlot) AddSample(ctx context.Context, s history.Sample) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.j == nil {
		return nil
	}
	return a.j.AddSample(ctx, s)
}

func (a *archiveSlot) AddRecord(ctx context.Context, r history.Record) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.j == nil {
		return nil
	}
	return a.j.AddRecord(ctx, r)
}
