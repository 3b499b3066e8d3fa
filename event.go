package clipbridge

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jpalmerr/clipbridge/internal/coords"
	"github.com/jpalmerr/clipbridge/internal/history"
)

// EventKind tags an [Event].
type EventKind string

const (
	// EventSamples carries the updated raw history.
	EventSamples EventKind = "samples"

	// EventRecords carries the updated written history.
	EventRecords EventKind = "records"

	// EventInfo carries an informational message, such as a written waypoint.
	EventInfo EventKind = "info"

	// EventError carries an error message, such as a failed write.
	EventError EventKind = "error"
)

// String returns the string representation of the kind.
func (k EventKind) String() string {
	return string(k)
}

// Coords is an (x, y, z) block coordinate. Y is the elevation.
type Coords struct {
	X, Y, Z int
}

// Sample is one distinct clipboard value and what the parser made of it.
type Sample struct {
	ID   string
	Text string

	// Coords is nil when no rule matched.
	Coords *Coords

	// Rule names the parser rule that matched, empty on a miss.
	Rule string

	CapturedAt time.Time
}

// Record is a waypoint line that was appended to the destination file.
type Record struct {
	ID        string
	Name      string
	Line      string
	Coords    Coords
	Path      string
	WrittenAt time.Time
}

// Event is one change notification.
//
// Samples and Records hold the whole list after the change, most recent
// first. Each Event owns its slices.
type Event struct {
	Kind    EventKind
	Samples []Sample
	Records []Record
	Message string

	// Coords is set on info events about a written waypoint.
	Coords *Coords

	At time.Time
}

func fromTriple(t coords.Triple) Coords {
	return Coords{X: t.X, Y: t.Y, Z: t.Z}
}

func (c Coords) triple() coords.Triple {
	return coords.Triple{X: c.X, Y: c.Y, Z: c.Z}
}

func fromTriplePtr(t *coords.Triple) *Coords {
	if t == nil {
		return nil
	}
	c := fromTriple(*t)
	return &c
}

func toPublicSample(s history.Sample) Sample {
	return Sample{
		ID:         s.ID,
		Text:       s.Text,
		Coords:     fromTriplePtr(s.Coords),
		Rule:       s.Rule,
		CapturedAt: s.CapturedAt,
	}
}

func toPublicRecord(r history.Record) Record {
	return Record{
		ID:        r.ID,
		Name:      r.Name,
		Line:      r.Line,
		Coords:    fromTriple(r.Coords),
		Path:      r.Path,
		WrittenAt: r.WrittenAt,
	}
}

func toPublicSamples(in []history.Sample) []Sample {
	if in == nil {
		return nil
	}
	out := make([]Sample, len(in))
	for i, s := range in {
		out[i] = toPublicSample(s)
	}
	return out
}

func toPublicRecords(in []history.Record) []Record {
	if in == nil {
		return nil
	}
	out := make([]Record, len(in))
	for i, r := range in {
		out[i] = toPublicRecord(r)
	}
	return out
}

// toPublicEvent converts an internal history event. The internal slices are
// shared between subscribers, so every callback gets fresh copies.
func toPublicEvent(ev history.Event) Event {
	return Event{
		Kind:    EventKind(ev.Kind),
		Samples: toPublicSamples(ev.Samples),
		Records: toPublicRecords(ev.Records),
		Message: ev.Message,
		Coords:  fromTriplePtr(ev.Coords),
		At:      ev.At,
	}
}

// invokeCallbackSafe calls an event callback with panic recovery.
// Panics are logged with a correlation ID but do not propagate.
func invokeCallbackSafe(cb func(Event), ev Event, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event callback panicked",
				"panic_id", uuid.New().String(),
				"panic", r,
				"kind", ev.Kind,
			)
		}
	}()
	cb(ev)
}
