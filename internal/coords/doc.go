// Package coords extracts integer block coordinates from free-form text.
//
// Clipboard text is matched against an ordered chain of strategies and the
// first one that recognises the text wins:
//
//   - [Teleport]: teleport commands such as "/tp @p 100 ~ -200"
//   - [LabeledAxis]: labelled readouts such as "X: 12 Y: 70 Z: -5"
//   - [BareTriple]: three bare integers such as "12, -29, 103"
//
// A miss is a normal result, never an error. Strategies are pure functions;
// the only context they take is the default elevation used when the text
// does not carry one.
package coords
