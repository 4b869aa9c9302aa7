package transport

import "errors"

// Resolver errors.
var (
	// ErrNoDNSAnswers is returned when the DNS-over-HTTPS endpoint answers
	// the query but carries no usable address records. Callers fall back to
	// the system resolver.
	ErrNoDNSAnswers = errors.New("DNS-over-HTTPS response contains no usable answers")
)
