// Package profile defines the security profiles applied to outbound HTTP
// traffic. A profile is a fixed header table plus a user agent pool; the
// transport layer injects the headers into every request and picks one user
// agent per client so a session presents a single consistent browser
// fingerprint.
//
// Design decision: Profiles are static data rather than configuration.
// Letting operators compose arbitrary header sets invites fingerprintable
// mistakes; the curated profiles are the point of the feature.
package profile
