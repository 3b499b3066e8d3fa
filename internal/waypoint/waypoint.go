// Package waypoint turns coordinates into Xaero's minimap waypoint lines.
//
// A line has fourteen colon-separated fields:
//
//	waypoint:name:initials:x:y:z:color:disabled:type:set:rotate_on_tp:tp_yaw:visibility:destination
//
// Field order and count are read by the minimap mod and must not change.
package waypoint

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/jpalmerr/clipbridge/config"
	"github.com/jpalmerr/clipbridge/internal/coords"
)

const (
	// IconSet is the waypoint set the records are filed under.
	IconSet = "gui.xaero_default"

	// NameTimestampLayout is appended to auto-generated names when enabled.
	NameTimestampLayout = "20060102-150405"

	placeholderInitial = "A"
)

// IntSource draws random palette indices. *rand.Rand satisfies it.
type IntSource interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// Record is one formatted waypoint.
type Record struct {
	Name     string
	Initials string
	Coords   coords.Triple
	Color    int
	Line     string
}

// Formatter builds waypoint lines from the live settings.
//
// Format is safe for concurrent use. With auto naming on, each call claims
// exactly one counter value from the settings.
type Formatter struct {
	settings *config.Live
	now      func() time.Time

	mu  sync.Mutex
	rnd IntSource
}

// Option configures a [Formatter].
type Option func(*Formatter)

// WithRand replaces the colour source, for deterministic output.
func WithRand(src IntSource) Option {
	return func(f *Formatter) {
		if src != nil {
			f.rnd = src
		}
	}
}

// WithClock replaces the time source used for name timestamps.
func WithClock(now func() time.Time) Option {
	return func(f *Formatter) {
		if now != nil {
			f.now = now
		}
	}
}

// NewFormatter returns a formatter reading from settings.
func NewFormatter(settings *config.Live, opts ...Option) *Formatter {
	f := &Formatter{
		settings: settings,
		now:      time.Now,
		rnd:      globalSource{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format builds the record for t.
//
// label names the record when auto naming is off; an empty label falls back
// to the configured prefix. label is ignored when auto naming is on.
func (f *Formatter) Format(t coords.Triple, label string) Record {
	s := f.settings.Snapshot()

	name := f.resolveName(s, label)
	color := s.Color
	if s.RandomColor {
		color = f.drawColor()
	}

	initials := placeholderInitial
	if r, _ := utf8.DecodeRuneInString(name); r != utf8.RuneError {
		initials = strings.ToUpper(string(r))
	}

	return Record{
		Name:     name,
		Initials: initials,
		Coords:   t,
		Color:    color,
		Line:     Line(name, initials, t, color, s),
	}
}

func (f *Formatter) resolveName(s config.Settings, label string) string {
	if !s.AutoName {
		if label != "" {
			return label
		}
		return s.NamePrefix
	}

	name := s.NamePrefix + strconv.Itoa(f.settings.ClaimCounter())
	if s.AppendTimestamp {
		name += "-" + f.now().Format(NameTimestampLayout)
	}
	return name
}

func (f *Formatter) drawColor() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rnd.IntN(config.PaletteSize)
}

// Line renders the fixed-field waypoint line.
func Line(name, initials string, t coords.Triple, color int, s config.Settings) string {
	return fmt.Sprintf("waypoint:%s:%s:%d:%d:%d:%d:%t:%d:%s:false:0:%d:false",
		name, initials, t.X, t.Y, t.Z, color, s.Disabled, s.WaypointType, IconSet, s.VisibilityType)
}
