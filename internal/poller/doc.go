// Package poller samples a mutable text source at a fixed interval.
//
// The main components are:
//
//   - [Source]: anything that returns its current text, such as the clipboard
//   - [Emitter]: where changed values go, such as the pipeline queue
//   - [Poller]: the sampling loop with change detection
//
// A value is emitted only when it differs from the last emitted value by
// exact text. Read failures count as an empty sample, and empty samples are
// never emitted and never replace the last value, so a transient failure
// followed by the same text does not emit a duplicate.
package poller
