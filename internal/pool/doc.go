// Package pool manages the ordered set of proxy endpoints a session rotates
// through, and the rotation state machine that decides which endpoint is
// active at any moment.
//
// The package has two halves:
//   - Pool: an immutable, ordered endpoint list loaded from a proxy file
//     (or the embedded default list), with a stable fingerprint used to
//     correlate sessions with list revisions in the history database.
//   - Rotator: the mutable rotation state (active index, last rotation
//     time, interval) guarded by a mutex so the rotation task and the
//     request path can touch it concurrently.
//
// Design decision: Rotator methods take the current time as an argument
// instead of calling time.Now() internally. The rotation boundary is the
// most behavior-sensitive comparison in the program, and injecting the
// clock makes it testable to the nanosecond.
package pool
