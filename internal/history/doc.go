// Package history keeps the bridge's recent activity and fans it out to
// observers.
//
// Two bounded lists are kept, both most-recent-first:
//
//   - raw samples: every distinct clipboard value with its parse outcome
//   - written records: every waypoint line successfully appended
//
// Each mutation publishes an [Event] carrying a full copy of the affected
// list, so observers never see a partially updated list and never touch the
// store's internal slices. Informational and error messages travel on the
// same stream.
//
// Subscribers receive events via buffered channels with non-blocking sends.
// A subscriber that falls behind misses events rather than stalling the
// pipeline; the next list event carries the complete state again.
package history
