package history

import (
	"time"

	"github.com/jpalmerr/clipbridge/internal/coords"
)

// DisplayTimeLayout formats record timestamps for display.
const DisplayTimeLayout = "2006-01-02 15:04:05"

// Sample is one clipboard value as captured by the poller.
type Sample struct {
	// ID is a time-sortable identifier.
	ID string `json:"id"`

	// Text is the exact clipboard text.
	Text string `json:"text"`

	// Coords is the parsed coordinate, nil when the text had none.
	Coords *coords.Triple `json:"coords"`

	// Rule names the parser rule that matched, empty on a miss.
	Rule string `json:"rule,omitempty"`

	// CapturedAt is when the coordinator received the text.
	CapturedAt time.Time `json:"captured_at"`
}

// Parsed reports whether the sample yielded coordinates.
func (s Sample) Parsed() bool {
	return s.Coords != nil
}

// Display renders the sample as "raw  →  x,y,z" or "raw  →  (no coords)".
func (s Sample) Display() string {
	if s.Coords == nil {
		return s.Text + "  →  (no coords)"
	}
	return s.Text + "  →  " + s.Coords.String()
}

// Record is a waypoint line that was appended to the destination file.
type Record struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Line      string        `json:"line"`
	Coords    coords.Triple `json:"coords"`
	Path      string        `json:"path"`
	WrittenAt time.Time     `json:"written_at"`
}

// Display renders the record as "YYYY-MM-DD HH:MM:SS  line".
func (r Record) Display() string {
	return r.WrittenAt.Format(DisplayTimeLayout) + "  " + r.Line
}

// EventKind tags an [Event].
type EventKind string

const (
	// EventSamples carries the full raw-sample list after a change.
	EventSamples EventKind = "samples"

	// EventRecords carries the full written-record list after a change.
	EventRecords EventKind = "records"

	// EventInfo carries an informational message.
	EventInfo EventKind = "info"

	// EventError carries a failure description.
	EventError EventKind = "error"
)

// Event is a notification published to observers. The store never modifies
// a slice after publishing it; receivers must treat slices as read-only.
type Event struct {
	Kind    EventKind      `json:"kind"`
	Samples []Sample       `json:"samples,omitempty"`
	Records []Record       `json:"records,omitempty"`
	Message string         `json:"message,omitempty"`
	Coords  *coords.Triple `json:"coords,omitempty"`
	At      time.Time      `json:"at"`
}

// Store defines history storage and event subscription.
//
// Implementations must be safe for concurrent access, and must publish
// events in the same order as the mutations that caused them.
type Store interface {
	// AddSample prepends s to the raw list, trims it to limit entries and
	// publishes [EventSamples].
	AddSample(s Sample, limit int)

	// AddRecord prepends r to the written list, trims it to limit entries
	// and publishes [EventRecords].
	AddRecord(r Record, limit int)

	// Samples returns a copy of the raw list, most recent first.
	Samples() []Sample

	// Records returns a copy of the written list, most recent first.
	Records() []Record

	// Clear empties both lists and publishes both list events.
	Clear()

	// Info publishes an [EventInfo]. coords may be nil.
	Info(message string, coords *coords.Triple)

	// Error publishes an [EventError].
	Error(message string)

	// Subscribe returns a channel of events. Slow consumers may miss
	// events. Caller must call Unsubscribe when done.
	Subscribe() <-chan Event

	// Unsubscribe removes a subscription and closes the channel.
	Unsubscribe(ch <-chan Event)
}
