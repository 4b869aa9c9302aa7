// Package tor manages the relay side of an anonymization session.
//
// Three relay modes are supported. A system relay is a tor binary that we
// launch and supervise as a child process for the lifetime of the session.
// An embedded relay is a tornago-managed daemon that requires no system-wide
// Tor installation. An external relay is an already running SOCKS listener
// that we only verify and dial.
//
// Design decision: tornago is used only where it earns its keep, owning the
// embedded daemon lifecycle. The SOCKS5 readiness check is implemented
// directly on the wire because callers need to tell a dead listener apart
// from a live proxy speaking the wrong protocol, and no library exposes that
// distinction.
//
// The package is designed for dependency injection. Create a Client and pass
// it to the components that route traffic rather than sharing global state.
package tor
