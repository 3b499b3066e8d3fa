package main

import (
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// demoTexts mixes the three recognised forms with text that is ignored.
var demoTexts = []string{
	"/tp @s 120 ~ -340",
	"nice base over there",
	"X: -512 Y: 70 Z: 96",
	"88, 64, 1024",
	"tp @p 300 -20",
	"https://example.com/seed-map",
	"/teleport 10 72 10 90 0",
}

// mockClipboard is an in-process clipboard that a simulated player copies
// into every few seconds.
type mockClipboard struct {
	mu   sync.Mutex
	text string
}

func (m *mockClipboard) Read() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text, nil
}

func (m *mockClipboard) Write(text string) error {
	m.mu.Lock()
	m.text = text
	m.mu.Unlock()
	return nil
}

// StartMockPlayer copies the next demo text every 3-8 seconds until stop
// is closed. Call this in a goroutine.
func StartMockPlayer(clip *mockClipboard, stop <-chan struct{}) {
	for i := 0; ; i++ {
		text := demoTexts[i%len(demoTexts)]
		_ = clip.Write(text)
		slog.Info("player copied", "text", text)

		select {
		case <-stop:
			return
		case <-time.After(time.Duration(3+rand.Intn(6)) * time.Second):
		}
	}
}
