package pool

import "errors"

// Pool construction and rotation errors.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances at each call site. This allows callers to
// use errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrEmptyPool is returned when a rotator is requested for a pool
	// with no endpoints. An empty pool is valid data (the session layer
	// interprets it as direct mode), but rotation over nothing is not.
	ErrEmptyPool = errors.New("proxy pool is empty: rotation requires at least one endpoint")

	// ErrInvalidEndpoint is returned when a proxy list line cannot be
	// parsed into a usable endpoint. The wrapping error carries the line
	// number and offending text.
	ErrInvalidEndpoint = errors.New("invalid proxy endpoint")
)
