package clipboard

import "sync"

// Memory is an in-process clipboard, used by tests and headless runs.
type Memory struct {
	mu   sync.Mutex
	text string
	err  error
}

// NewMemory returns a memory clipboard holding text.
func NewMemory(text string) *Memory {
	return &Memory{text: text}
}

// Read returns the held text, or the configured failure.
func (m *Memory) Read() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}

// Write replaces the held text and clears any configured failure.
func (m *Memory) Write(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
	m.err = nil
	return nil
}

// Fail makes subsequent reads return err until the next Write.
func (m *Memory) Fail(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}
