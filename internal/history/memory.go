package history

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jpalmerr/clipbridge/internal/coords"
)

const subscriberBuffer = 100

// MemoryStore is an in-memory implementation of [Store].
//
// One lock covers list mutation and event publication, so events leave in
// mutation order. Subscribers receive updates via buffered channels (buffer
// size 100); a full buffer drops the event for that subscriber only and is
// counted in [MemoryStore.Dropped].
type MemoryStore struct {
	mu        sync.Mutex
	samples   []Sample
	records   []Record
	listeners []func(Event)
	now       func() time.Time

	subMu       sync.RWMutex
	subscribers map[chan Event]struct{}

	dropped atomic.Uint64
}

// NewMemoryStore creates an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:         time.Now,
		subscribers: make(map[chan Event]struct{}),
	}
}

// Listen registers fn to receive every event synchronously, in order, with
// no dropping. fn runs while the store is locked and must not call back
// into the store. Register listeners before the store is shared.
func (m *MemoryStore) Listen(fn func(Event)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

// AddSample implements [Store].
func (m *MemoryStore) AddSample(s Sample, limit int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.samples = prepend(m.samples, s, limit)
	m.publishLocked(Event{Kind: EventSamples, Samples: cloneSlice(m.samples)})
}

// AddRecord implements [Store].
func (m *MemoryStore) AddRecord(r Record, limit int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records = prepend(m.records, r, limit)
	m.publishLocked(Event{Kind: EventRecords, Records: cloneSlice(m.records)})
}

// Samples implements [Store].
func (m *MemoryStore) Samples() []Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneSlice(m.samples)
}

// Records implements [Store].
func (m *MemoryStore) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneSlice(m.records)
}

// Clear implements [Store].
func (m *MemoryStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.samples = nil
	m.records = nil
	m.publishLocked(Event{Kind: EventSamples, Samples: []Sample{}})
	m.publishLocked(Event{Kind: EventRecords, Records: []Record{}})
}

// Info implements [Store].
func (m *MemoryStore) Info(message string, c *coords.Triple) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ev := Event{Kind: EventInfo, Message: message}
	if c != nil {
		cp := *c
		ev.Coords = &cp
	}
	m.publishLocked(ev)
}

// Error implements [Store].
func (m *MemoryStore) Error(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishLocked(Event{Kind: EventError, Message: message})
}

// Subscribe implements [Store].
//
// The returned channel has a buffer of 100 events.
func (m *MemoryStore) Subscribe() <-chan Event {
	ch := make(chan Event, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe implements [Store]. Safe to call multiple times or with an
// unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan Event) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// Dropped returns how many events were discarded because a subscriber's
// buffer was full.
func (m *MemoryStore) Dropped() uint64 {
	return m.dropped.Load()
}

// publishLocked delivers ev to listeners and subscribers. m.mu must be held.
func (m *MemoryStore) publishLocked(ev Event) {
	ev.At = m.now()

	for _, fn := range m.listeners {
		fn(ev)
	}

	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- ev:
		default:
			// subscriber is slow, drop the event
			m.dropped.Add(1)
		}
	}
}

// prepend returns list with v at the front, trimmed to at most limit items.
// A limit below 1 keeps a single item.
func prepend[T any](list []T, v T, limit int) []T {
	if limit < 1 {
		limit = 1
	}
	n := len(list) + 1
	if n > limit {
		n = limit
	}
	out := make([]T, n)
	out[0] = v
	copy(out[1:], list)
	return out
}

func cloneSlice[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}
