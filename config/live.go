package config

import (
	"fmt"
	"sync"
)

// Live is the running process's single owned copy of the settings.
//
// Readers take a [Live.Snapshot]. Writers go through [Live.ClaimCounter],
// [Live.Update] or [Live.SetAutoWrite]; each is one atomic step, so no two
// callers ever observe or claim the same counter value.
//
// Every committed change invokes the OnChange hook with the latest settings,
// outside the settings lock. Hook calls are serialised and always receive the
// newest state, so a persisting hook never writes an older document last.
type Live struct {
	mu       sync.RWMutex
	settings Settings

	hookMu   sync.Mutex
	onChange func(Settings)
}

// NewLive returns a holder initialised with s.
func NewLive(s Settings) *Live {
	return &Live{settings: s}
}

// OnChange registers fn to run after every committed change, replacing any
// previous hook. Pass nil to remove it.
func (l *Live) OnChange(fn func(Settings)) {
	l.hookMu.Lock()
	l.onChange = fn
	l.hookMu.Unlock()
}

// Snapshot returns a copy of the current settings.
func (l *Live) Snapshot() Settings {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.settings
}

// ClaimCounter returns the current naming counter and advances it by one.
func (l *Live) ClaimCounter() int {
	l.mu.Lock()
	n := l.settings.NameCounter
	l.settings.NameCounter = n + 1
	l.mu.Unlock()

	l.changed()
	return n
}

// Update applies fn to a copy of the settings and commits the result if it
// validates. The naming counter may be raised but never lowered. Returns
// whether anything changed.
func (l *Live) Update(fn func(*Settings)) (bool, error) {
	l.mu.Lock()
	next := l.settings
	fn(&next)

	if next.NameCounter < l.settings.NameCounter {
		l.mu.Unlock()
		return false, fmt.Errorf("name_counter cannot decrease from %d to %d",
			l.settings.NameCounter, next.NameCounter)
	}
	if err := next.Validate(); err != nil {
		l.mu.Unlock()
		return false, err
	}
	if next == l.settings {
		l.mu.Unlock()
		return false, nil
	}
	l.settings = next
	l.mu.Unlock()

	l.changed()
	return true, nil
}

// SetAutoWrite toggles automatic writing.
func (l *Live) SetAutoWrite(on bool) {
	// only fails if the held settings were already invalid
	_, _ = l.Update(func(s *Settings) { s.AutoWrite = on })
}

func (l *Live) changed() {
	l.hookMu.Lock()
	defer l.hookMu.Unlock()
	if l.onChange != nil {
		l.onChange(l.Snapshot())
	}
}
