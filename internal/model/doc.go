// Package model defines the core data structures used throughout Veko Dome.
//
// This package contains the following main types:
//   - ConnectionStatus: The externally-observed identity of a session
//   - TorStatus: Whether traffic was confirmed to exit through Tor
//   - RotationEvent: A single proxy rotation performed by a session
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (pool, probe, session, history, report) need
// these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
