// Package clipboard adapts the operating system clipboard to the poller's
// source interface.
package clipboard

import (
	"errors"

	"github.com/atotto/clipboard"
)

// ErrUnsupported is returned when no clipboard utility is available, for
// example on a headless Linux host without xclip, xsel or wl-clipboard.
var ErrUnsupported = errors.New("clipboard is not available on this system")

// System reads and writes the OS clipboard.
type System struct{}

// Read returns the current clipboard text.
func (System) Read() (string, error) {
	if clipboard.Unsupported {
		return "", ErrUnsupported
	}
	return clipboard.ReadAll()
}

// Write replaces the clipboard text.
func (System) Write(text string) error {
	if clipboard.Unsupported {
		return ErrUnsupported
	}
	return clipboard.WriteAll(text)
}

// Available reports whether a clipboard utility was found.
func Available() bool {
	return !clipboard.Unsupported
}
