// Package pipeline turns clipboard values into waypoint lines.
//
// A [Coordinator] drains the poller's queue and runs each value through the
// same steps:
//
//	received → parsed → unparsed: recorded, done
//	                  → parsed:   recorded → formatted → written → success: recorded, notified
//	                                                             → failure: error notified
//
// Raw values are always recorded. Formatting and writing happen only when
// the value parsed and auto-write is on. A failed append is reported and
// not retried.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jpalmerr/clipbridge/config"
	"github.com/jpalmerr/clipbridge/internal/coords"
	"github.com/jpalmerr/clipbridge/internal/history"
	"github.com/jpalmerr/clipbridge/internal/metrics"
	"github.com/jpalmerr/clipbridge/internal/waypoint"
)

// Sink appends a line to the file at path.
type Sink interface {
	Append(path, line string) error
}

// Archive keeps a durable copy of history. Archive failures are logged and
// never affect processing.
type Archive interface {
	AddSample(ctx context.Context, s history.Sample) error
	AddRecord(ctx context.Context, r history.Record) error
}

// Queue is the FIFO the coordinator drains.
type Queue interface {
	Pop(ctx context.Context) (string, error)
}

// Options holds the coordinator's collaborators. Settings, Formatter, Sink
// and Store are required.
type Options struct {
	Settings  *config.Live
	Formatter *waypoint.Formatter
	Sink      Sink
	Store     history.Store

	// Archive is optional.
	Archive Archive

	// Metrics is optional; nil records nothing.
	Metrics *metrics.Metrics

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Coordinator runs the per-value pipeline.
//
// Process and Write may be called from different goroutines: the settings
// counter, the sink and the history store each serialise their own state.
type Coordinator struct {
	settings  *config.Live
	formatter *waypoint.Formatter
	sink      Sink
	store     history.Store
	archive   Archive
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a [Coordinator].
func New(opts Options) *Coordinator {
	c := &Coordinator{
		settings:  opts.Settings,
		formatter: opts.Formatter,
		sink:      opts.Sink,
		store:     opts.Store,
		archive:   opts.Archive,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Run drains q until ctx is done, processing values in dequeue order.
// The stop condition is checked between queue reads.
func (c *Coordinator) Run(ctx context.Context, q Queue) {
	c.logger.Info("coordinator started")
	defer c.logger.Info("coordinator stopped")

	for {
		text, err := q.Pop(ctx)
		if err != nil {
			return
		}
		c.Process(ctx, text)
	}
}

// Process runs one clipboard value through the pipeline and returns the
// recorded sample.
func (c *Coordinator) Process(ctx context.Context, text string) history.Sample {
	s := c.settings.Snapshot()

	t, rule, ok := coords.Match(text, s.DefaultY)
	sample := history.Sample{
		ID:         ulid.Make().String(),
		Text:       text,
		Rule:       rule,
		CapturedAt: c.now(),
	}
	if ok {
		sample.Coords = &t
	}

	c.store.AddSample(sample, s.RecentLimit)
	c.metrics.ObserveSample(rule)
	c.archiveSample(ctx, sample)

	if !ok {
		c.logger.Debug("no coordinates in clipboard value", "length", len(text))
		return sample
	}
	if !s.AutoWrite {
		c.logger.Debug("auto-write off, not writing", "coords", t.String(), "rule", rule)
		return sample
	}

	// the failure is already published and logged by Write
	_, _ = c.Write(ctx, t, "")
	return sample
}

// Write formats t, appends it to the destination file and records it.
//
// label names the waypoint when auto naming is off. On failure an error
// event is published, written history is left unchanged and the error is
// returned.
func (c *Coordinator) Write(ctx context.Context, t coords.Triple, label string) (history.Record, error) {
	rec := c.formatter.Format(t, label)
	s := c.settings.Snapshot()

	start := c.now()
	err := c.sink.Append(s.WaypointFile, rec.Line)
	c.metrics.ObserveWrite(c.now().Sub(start), err)

	if err != nil {
		c.logger.Warn("failed to write waypoint",
			"coords", t.String(),
			"path", s.WaypointFile,
			"error", err,
		)
		c.store.Error(fmt.Sprintf("Failed to write waypoint: %v", err))
		return history.Record{}, err
	}

	r := history.Record{
		ID:        ulid.Make().String(),
		Name:      rec.Name,
		Line:      rec.Line,
		Coords:    t,
		Path:      s.WaypointFile,
		WrittenAt: c.now(),
	}
	c.store.AddRecord(r, s.RecentLimit)
	c.store.Info("Added waypoint "+t.String(), &t)
	c.archiveRecord(ctx, r)

	c.logger.Debug("waypoint written", "name", r.Name, "coords", t.String(), "path", r.Path)
	return r, nil
}

func (c *Coordinator) archiveSample(ctx context.Context, s history.Sample) {
	if c.archive == nil {
		return
	}
	// archive the value even if shutdown began mid-item
	if err := c.archive.AddSample(context.WithoutCancel(ctx), s); err != nil {
		c.logger.Warn("failed to archive sample", "id", s.ID, "error", err)
	}
}

func (c *Coordinator) archiveRecord(ctx context.Context, r history.Record) {
	if c.archive == nil {
		return
	}
	if err := c.archive.AddRecord(context.WithoutCancel(ctx), r); err != nil {
		c.logger.Warn("failed to archive waypoint", "id", r.ID, "error", err)
	}
}
