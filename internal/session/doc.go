// Package session drives the anonymization session lifecycle.
//
// A Controller owns every session resource: the optional Tor relay, the
// proxy pool and its rotator, the outbound HTTP client, the identity probe,
// and the history trail. Run moves through four states in order:
// initializing (relay startup, pool loading, transport construction),
// running (one background rotation task plus a main path blocked on
// cancellation), shutting down (task join and relay teardown), and
// terminated.
//
// Design decision: Controllers are single-use. Rotation counters, history
// session rows, and relay process handles all accumulate state during a run;
// reusing the controller would bleed one session's trail into the next.
// A second Run call returns ErrSessionReused, and a new session needs a
// fresh controller.
//
// Failure policy: only startup failures abort (a relay that cannot spawn,
// an unreadable proxy list the operator explicitly named). Once running,
// network failures degrade to "unknown" results and persistence failures
// degrade to log warnings; the session itself keeps going until canceled.
package session
