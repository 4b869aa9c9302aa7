package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Using errors.New() here rather than fmt.Errorf()
// because we don't need to include dynamic values in these messages.
var (
	// ErrInvalidRotateInterval is returned when the rotation interval is
	// negative. Zero is valid and means "rotate on every tick".
	ErrInvalidRotateInterval = errors.New("invalid rotation interval: must be non-negative")

	// ErrInvalidRotationTick is returned when the rotation tick is not
	// positive. The rotation task needs a wake-up period to check the
	// interval against the clock.
	ErrInvalidRotationTick = errors.New("invalid rotation tick: must be positive")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	// A timeout of zero or negative would cause immediate request failures.
	ErrInvalidTimeout = errors.New("invalid request timeout: must be positive")

	// ErrInvalidRedirectLimit is returned when the redirect limit is negative.
	// Use 0 to forbid redirects entirely.
	ErrInvalidRedirectLimit = errors.New("invalid redirect limit: must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// A negative body size is invalid; use 0 to use the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrConflictingTorModes is returned when more than one of --tor,
	// --embedded-tor, and --external-tor is specified. A session chains
	// through exactly one relay.
	ErrConflictingTorModes = errors.New("conflicting tor modes: choose one of --tor, --embedded-tor, --external-tor")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
