// Package history persists session trails in SQLite.
//
// Every session leaves three kinds of records: the session row itself
// (profile, relay mode, pool fingerprint), the rotation events it performed,
// and the identity checks it ran. One-shot status checks are recorded too,
// without a session. The history command reads these back; nothing in the
// hot path ever blocks on the store, and the session controller treats a
// store that fails to open as a logged degradation, not an error.
//
// Design decision: We use a single database file for all sessions rather
// than a file per session. Rotation trails are only interesting in
// comparison across sessions, and one file keeps backup and inspection
// trivial.
package history
