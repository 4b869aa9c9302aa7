package tor

import "errors"

// Relay and proxy errors.
//
// Design decision: We define specific error types rather than wrapping all
// errors generically. The session controller treats these failure modes very
// differently. A relay that cannot be spawned is fatal before any traffic
// moves, while a proxy timeout during an identity check merely downgrades
// the status report.
var (
	// ErrRelaySpawn is returned when the tor binary cannot be located or the
	// relay process cannot be launched. A session must not proceed past this:
	// traffic would silently take the direct route the operator asked to avoid.
	ErrRelaySpawn = errors.New("cannot launch tor relay")

	// ErrRelayAlreadyRunning is returned when Start is called on a supervisor
	// that already manages a live relay process.
	ErrRelayAlreadyRunning = errors.New("tor relay is already running")

	// ErrRelayNotRunning is returned when an operation requires a running
	// relay, such as building a client for a relay that was never started.
	ErrRelayNotRunning = errors.New("tor relay is not running")

	// ErrProxyNotTor is returned when the configured proxy address responds
	// but is not a Tor SOCKS5 proxy. This typically happens when pointing the
	// session at a plain HTTP proxy or an unrelated service on the port.
	ErrProxyNotTor = errors.New("proxy is not a Tor SOCKS5 proxy")

	// ErrProxyCannotConnect is returned when we cannot establish a TCP
	// connection to the proxy address. This usually means the relay is not
	// running or the address is wrong.
	ErrProxyCannotConnect = errors.New("cannot connect to Tor proxy")

	// ErrProxyTimeout is returned when the connection to the proxy times out.
	// This may indicate network issues or an overloaded relay.
	ErrProxyTimeout = errors.New("timeout connecting to Tor proxy")

	// ErrInvalidProxyAddress is returned when the proxy address format is
	// invalid. Expected format is "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")
)

// ProxyStatus represents the result of checking a SOCKS5 relay listener.
// The enum keeps status reporting and programmatic handling of the
// different relay states in one place.
type ProxyStatus int

const (
	// ProxyStatusOK indicates the listener is a working Tor SOCKS5 proxy.
	ProxyStatusOK ProxyStatus = iota

	// ProxyStatusWrongType indicates the listener is not a Tor SOCKS5 proxy.
	// The connection succeeded but the response was not proper SOCKS5.
	ProxyStatusWrongType

	// ProxyStatusCannotConnect indicates no connection could be established.
	// The relay may not be running or the address may be wrong.
	ProxyStatusCannotConnect

	// ProxyStatusTimeout indicates the connection attempt timed out.
	// This may be a temporary network issue or an overloaded relay.
	ProxyStatusTimeout
)

// String returns a human-readable description of the proxy status.
func (s ProxyStatus) String() string {
	switch s {
	case ProxyStatusOK:
		return "OK"
	case ProxyStatusWrongType:
		return "wrong type (not Tor)"
	case ProxyStatusCannotConnect:
		return "cannot connect"
	case ProxyStatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error returns the appropriate error for this status, or nil if OK.
func (s ProxyStatus) Error() error {
	switch s {
	case ProxyStatusOK:
		return nil
	case ProxyStatusWrongType:
		return ErrProxyNotTor
	case ProxyStatusCannotConnect:
		return ErrProxyCannotConnect
	case ProxyStatusTimeout:
		return ErrProxyTimeout
	default:
		return errors.New("unknown proxy status")
	}
}
