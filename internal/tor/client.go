package tor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// checkProxyTimeout is the timeout for checking if the relay's SOCKS
// listener is available. We use a short timeout here because this is just a
// connectivity check, not an actual request through Tor.
const checkProxyTimeout = 2 * time.Second

// Client dials through a Tor SOCKS5 listener.
// It wraps a SOCKS5 dialer and hands out raw TCP connections; the HTTP
// transport for session traffic is assembled elsewhere on top of
// DialContext.
//
// Design decision: The client works against any SOCKS5 address, so the same
// type serves all three relay modes. It does not care whether the listener
// belongs to a supervised child process, an embedded daemon, or a relay the
// operator runs themselves.
type Client struct {
	// proxyAddress is the SOCKS5 listener address in "host:port" format.
	proxyAddress string

	// dialer is the SOCKS5 dialer for relay connections.
	// We cache this to avoid recreating it for each connection.
	dialer proxy.Dialer
}

// NewClient creates a new relay client for the given SOCKS5 address.
//
// The proxyAddress must be in "host:port" format (e.g., "127.0.0.1:9050").
//
// This function validates the address format but does not verify that the
// listener is actually up. Call CheckConnection() to verify.
//
// Design decision: We don't connect to the relay in the constructor because:
// 1. It allows creating the client before the relay finishes warming up
// 2. It separates object creation from network operations
// 3. It allows for better testing with mock listeners
func NewClient(proxyAddress string) (*Client, error) {
	// Validate proxy address format
	if !isValidProxyAddress(proxyAddress) {
		return nil, ErrInvalidProxyAddress
	}

	// Create the SOCKS5 dialer
	// We use nil for auth because Tor's SOCKS port typically doesn't require auth
	dialer, err := proxy.SOCKS5("tcp", proxyAddress, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	return &Client{
		proxyAddress: proxyAddress,
		dialer:       dialer,
	}, nil
}

// isValidProxyAddress checks if the address is in valid "host:port" format.
// We use a simple check rather than a full URL parser because the format
// is very specific (no scheme, no path, just host and port).
func isValidProxyAddress(address string) bool {
	// Must contain exactly one colon separating host and port
	parts := strings.Split(address, ":")
	if len(parts) != 2 {
		return false
	}

	host := parts[0]
	port := parts[1]

	// Host must not be empty
	if host == "" {
		return false
	}

	// Port must be a valid number between 1 and 65535
	if port == "" {
		return false
	}

	// Validate port is a number in valid range
	portNum := 0
	for _, c := range port {
		if c < '0' || c > '9' {
			return false
		}
		portNum = portNum*10 + int(c-'0')
		// Early exit if port is too large
		if portNum > 65535 {
			return false
		}
	}

	// Port must be at least 1
	if portNum < 1 {
		return false
	}

	return true
}

// SOCKS5 protocol constants
const (
	socks5Version       = 0x05
	socks5AuthNone      = 0x00
	socks5AuthNoAccept  = 0xFF
	socks5CmdConnect    = 0x01
	socks5AddrTypeDomID = 0x03

	// socksProbeHost is a synthetic .onion address used for SOCKS5
	// verification. This is intentionally a non-existent address. We only
	// need the listener to answer a CONNECT request, not to succeed, and a
	// fake address avoids any interaction with real services. A genuine Tor
	// listener replies host-unreachable; anything that is not SOCKS5 trips
	// over the handshake first.
	socksProbeHost = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa.onion"
)

// CheckConnection verifies that the relay's SOCKS listener is up and
// actually speaks SOCKS5. It returns a ProxyStatus describing the result.
//
// The check works by performing a SOCKS5 protocol handshake to verify:
// 1. The listener speaks SOCKS5 protocol
// 2. The listener accepts connections without authentication
// 3. The listener processes CONNECT requests for .onion domains
//
// Security note: This is more robust than checking HTTP response strings,
// as a fake proxy cannot easily mimic proper SOCKS5 protocol behavior.
func (c *Client) CheckConnection(ctx context.Context) ProxyStatus {
	// Create a context with timeout for the check
	ctx, cancel := context.WithTimeout(ctx, checkProxyTimeout)
	defer cancel()

	// Create a dialer with the context
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.proxyAddress)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return ProxyStatusTimeout
		}
		return ProxyStatusCannotConnect
	}
	defer conn.Close()

	// Set a deadline for the SOCKS5 handshake
	if err := conn.SetDeadline(time.Now().Add(checkProxyTimeout)); err != nil {
		return ProxyStatusCannotConnect
	}

	// Step 1: SOCKS5 version negotiation
	// Client sends: version (1 byte) + num auth methods (1 byte) + auth methods (N bytes)
	// We offer no authentication (0x00) only
	_, err = conn.Write([]byte{socks5Version, 0x01, socks5AuthNone})
	if err != nil {
		return ProxyStatusCannotConnect
	}

	// Server responds: version (1 byte) + selected auth method (1 byte)
	authResp := make([]byte, 2)
	if _, err := io.ReadFull(conn, authResp); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		// Anything else means it didn't speak SOCKS5 properly
		return ProxyStatusWrongType
	}

	// Extract version and auth method from response
	version := authResp[0]
	authMethod := authResp[1]

	// Verify SOCKS5 version
	if version != socks5Version {
		return ProxyStatusWrongType
	}

	// Verify server accepts no auth (Tor SOCKS port uses this by default)
	if authMethod == socks5AuthNoAccept {
		// Server requires authentication - not typical for Tor
		return ProxyStatusWrongType
	}
	if authMethod != socks5AuthNone {
		// Unknown auth method selected
		return ProxyStatusWrongType
	}

	// Step 2: Verify the listener can handle connection requests.
	// We send a CONNECT for a synthetic .onion address. The listener should
	// respond even when the connection itself fails, which verifies it is
	// actually proxying rather than just accepting handshakes.
	probePort := uint16(80)

	// Build CONNECT request: version + cmd + reserved + addr type + addr + port
	connectReq := []byte{
		socks5Version,
		socks5CmdConnect,
		0x00, // reserved
		socks5AddrTypeDomID,
		byte(len(socksProbeHost)),
	}
	connectReq = append(connectReq, []byte(socksProbeHost)...)
	connectReq = append(connectReq, byte(probePort>>8), byte(probePort&0xFF))

	_, err = conn.Write(connectReq)
	if err != nil {
		return ProxyStatusCannotConnect
	}

	// Read response header: version + reply + reserved + addr type (at least 4 bytes)
	// We only need to verify the listener responds to the connect request.
	// The actual connection may fail; we are testing the proxy, not the host.
	connectResp := make([]byte, 4)
	if _, err := io.ReadFull(conn, connectResp); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ProxyStatusTimeout
		}
		// If we got any bytes back but not enough, treat as wrong type
		return ProxyStatusWrongType
	}

	// Verify SOCKS5 version in response
	if connectResp[0] != socks5Version {
		return ProxyStatusWrongType
	}

	// Any response (success=0x00 or failure codes like 0x01-0x08) indicates
	// the listener is working. Tor returns 0x04 (host unreachable) or
	// 0x01 (general failure) for non-existent .onion addresses, but the
	// important thing is that it processed the SOCKS5 request.
	return ProxyStatusOK
}

// Dial establishes a TCP connection through the relay to the given address.
//
// The address should be in "host:port" format. Hidden services work too;
// use the .onion address directly (e.g., "example.onion:80").
func (c *Client) Dial(network, address string) (net.Conn, error) {
	return c.dialer.Dial(network, address)
}

// DialContext establishes a TCP connection through the relay with context
// support. This is the hook the session's HTTP transport plugs into.
//
// Design decision: We wrap the basic Dial with context support because
// the proxy.Dialer interface doesn't support context directly. If the context
// is cancelled, the goroutine returns the error but the underlying connection
// attempt may continue briefly. This is a known limitation of the approach.
func (c *Client) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	// Create channels for result and error
	type dialResult struct {
		conn net.Conn
		err  error
	}
	resultCh := make(chan dialResult, 1)

	// Dial in a goroutine so we can respect context cancellation
	go func() {
		conn, err := c.dialer.Dial(network, address)
		resultCh <- dialResult{conn, err}
	}()

	// Wait for either the dial to complete or context cancellation
	select {
	case result := <-resultCh:
		return result.conn, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ProxyAddress returns the configured SOCKS5 listener address.
func (c *Client) ProxyAddress() string {
	return c.proxyAddress
}

// Dialer returns the underlying proxy dialer.
//
// Design decision: We expose the dialer because the session transport wants
// to compose it with its own connection management, and callers probing
// non-HTTP protocols need raw connections.
func (c *Client) Dialer() proxy.Dialer {
	return c.dialer
}
