package model

import "time"

// UnknownIP is the placeholder reported when no IP echo service answered.
// Probe failures degrade to this value instead of aborting the session.
const UnknownIP = "unknown"

// TorStatus represents the result of verifying that traffic exits through Tor.
//
// Design decision: We use iota-based constants rather than a bool because the
// check has a definite negative ("the exit is not a Tor relay") and an
// indefinite one (the check service was unreachable), and both must render as
// "not confirmed" without claiming certainty. The String() method provides
// the operator-facing wording.
type TorStatus int

const (
	// TorNotConfirmed indicates the Tor check did not prove Tor routing.
	// This covers both a negative answer and an unreachable check service.
	TorNotConfirmed TorStatus = iota

	// TorConfirmed indicates the check service saw the request arrive from
	// a known Tor exit relay.
	TorConfirmed
)

// String returns the operator-facing representation of the Tor status.
func (t TorStatus) String() string {
	switch t {
	case TorConfirmed:
		return "confirmed"
	case TorNotConfirmed:
		return "not confirmed"
	default:
		return "not confirmed"
	}
}

// ConnectionStatus is the externally-observed identity of a session at a
// point in time, together with the session settings that produced it.
// It is rendered by the report writers and persisted by the history store.
type ConnectionStatus struct {
	// CheckedAt is when the identity check was performed.
	CheckedAt time.Time `json:"checked_at"`

	// PublicIP is the address reported by the first responsive IP echo
	// service, or UnknownIP when none answered.
	PublicIP string `json:"public_ip"`

	// Tor is the Tor exit verification result.
	Tor TorStatus `json:"tor"`

	// TorText is the human-readable form of Tor.
	TorText string `json:"tor_text"`

	// ActiveEndpoint is the proxy endpoint in use when the check ran.
	// Empty in direct mode.
	ActiveEndpoint string `json:"active_endpoint,omitempty"`

	// DirectMode indicates the session is running without a proxy pool.
	DirectMode bool `json:"direct_mode"`

	// Profile is the security profile name applied to outbound requests.
	Profile string `json:"profile,omitempty"`

	// PoolSize is the number of endpoints in the proxy pool.
	PoolSize int `json:"pool_size,omitempty"`

	// RotateIntervalSecs is the configured rotation interval in seconds.
	RotateIntervalSecs int `json:"rotate_interval_secs,omitempty"`

	// DoH indicates hostnames were resolved over DNS-over-HTTPS.
	DoH bool `json:"doh,omitempty"`
}

// SetTorStatus records the Tor verification result and keeps the
// human-readable text in sync.
func (s *ConnectionStatus) SetTorStatus(t TorStatus) {
	s.Tor = t
	s.TorText = t.String()
}

// Anonymous reports whether the check observed any indirection at all.
// A session is considered anonymous here when Tor was confirmed or a proxy
// endpoint was active; a direct session with a known IP is not.
func (s *ConnectionStatus) Anonymous() bool {
	return s.Tor == TorConfirmed || s.ActiveEndpoint != ""
}
