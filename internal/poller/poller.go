package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Source returns the current text of the sampled value.
type Source interface {
	Read() (string, error)
}

// SourceFunc adapts a function to [Source].
type SourceFunc func() (string, error)

// Read implements [Source].
func (f SourceFunc) Read() (string, error) { return f() }

// Emitter receives changed values in detection order.
type Emitter interface {
	Push(text string)
}

// Stats counts poller activity since construction.
type Stats struct {
	Reads        uint64
	ReadFailures uint64
	Emitted      uint64
}

// Poller watches a [Source] and forwards changed values to an [Emitter].
//
// The poller samples immediately on start and then once per interval until
// stopped. All lifecycle methods (Start, Stop) are safe for concurrent use.
type Poller struct {
	source   Source
	out      Emitter
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// last is only touched by the sampling goroutine (or by Sample in tests)
	last string

	reads        atomic.Uint64
	readFailures atomic.Uint64
	emitted      atomic.Uint64
}

// New creates a [Poller]. It does nothing until [Poller.Start] is called.
func New(source Source, out Emitter, interval time.Duration, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		source:   source,
		out:      out,
		interval: interval,
		logger:   logger,
	}
}

// Start begins sampling in a background goroutine and returns immediately.
//
// Sampling continues until [Poller.Stop] is called or ctx is cancelled. The
// stop condition is checked between every sample. Start is idempotent; if
// Stop was called first, Start is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started || p.stopped {
		p.mu.Unlock()
		return
	}
	p.started = true
	if ctx == nil {
		ctx = context.Background()
	}
	var pollCtx context.Context
	pollCtx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		p.run(pollCtx)
	}()
}

// Stop halts sampling and waits for the loop to exit. Stop is idempotent
// and safe to call before Start.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.stopped {
		p.stopped = true
		if p.cancel != nil {
			p.cancel()
		}
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Poller) run(ctx context.Context) {
	p.logger.Info("poller started", "interval", p.interval.String())
	defer p.logger.Info("poller stopped")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return
		}
		if text, ok := p.Sample(); ok {
			p.out.Push(text)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Sample reads the source once and reports whether the value changed.
//
// Sample is not safe for concurrent use with a running poller; it is
// exported so callers can drive the poller by hand.
func (p *Poller) Sample() (string, bool) {
	p.reads.Add(1)
	text, err := p.source.Read()
	if err != nil {
		p.readFailures.Add(1)
		p.logger.Debug("source read failed", "error", err)
		text = ""
	}

	if text == "" || text == p.last {
		return "", false
	}
	p.last = text
	p.emitted.Add(1)
	return text, true
}

// Stats returns a snapshot of the activity counters.
func (p *Poller) Stats() Stats {
	return Stats{
		Reads:        p.reads.Load(),
		ReadFailures: p.readFailures.Load(),
		Emitted:      p.emitted.Load(),
	}
}
