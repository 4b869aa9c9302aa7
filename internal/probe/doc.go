// Package probe answers the question "what does the outside world see when
// this machine talks?".
//
// The probe asks public IP echo services for the externally visible address
// and the Tor Project's check endpoint for exit-relay confirmation. Both
// checks ride the session's own HTTP client, so they observe the session's
// identity, not the machine's.
//
// Design decision: probe methods never return errors. An identity check that
// cannot complete yields "unknown" or "not confirmed"; the session report
// shows degraded knowledge instead of aborting a running session over a
// flaky echo service.
package probe
