package tor

import (
	"context"
	"fmt"
	"time"

	"github.com/nao1215/tornago"
)

// defaultStartupTimeout bounds how long an embedded relay may take to
// bootstrap before Start gives up.
const defaultStartupTimeout = 3 * time.Minute

// EmbeddedRelay manages an embedded Tor daemon using tornago.
// It provides automatic startup and shutdown of the Tor process, so a
// session can run on a machine with no system-wide Tor installation.
//
// Design decision: We offer the embedded relay alongside the supervised
// system binary because:
//  1. It lets the session work "out of the box" without setup
//  2. It gives us full control over the daemon lifecycle
//  3. Its ports are picked by the OS, so it never collides with a system tor
//
// Note: Starting the embedded daemon takes 1-3 minutes as it needs to:
//   - Download directory information from the Tor network
//   - Build initial circuits through the relay network
//   - Establish SOCKS and control port listeners
type EmbeddedRelay struct {
	// process is the running Tor daemon process.
	process *tornago.TorProcess

	// socksAddr is the SOCKS5 proxy address (set after successful startup).
	socksAddr string

	// controlAddr is the control port address (set after successful startup).
	controlAddr string

	// startupTimeout is the maximum time to wait for Tor to bootstrap.
	startupTimeout time.Duration
}

// EmbeddedRelayOption configures an EmbeddedRelay instance.
type EmbeddedRelayOption func(*EmbeddedRelay)

// WithStartupTimeout sets the maximum time to wait for the daemon to
// bootstrap.
func WithStartupTimeout(timeout time.Duration) EmbeddedRelayOption {
	return func(e *EmbeddedRelay) {
		e.startupTimeout = timeout
	}
}

// NewEmbeddedRelay creates a new embedded relay manager.
// Call Start() to actually launch the Tor daemon.
func NewEmbeddedRelay(opts ...EmbeddedRelayOption) *EmbeddedRelay {
	e := &EmbeddedRelay{
		startupTimeout: defaultStartupTimeout,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Start launches the embedded Tor daemon and waits for it to bootstrap.
// This typically takes 1-3 minutes depending on network conditions.
//
// The context can be used to cancel the startup if needed.
// Returns an error if Tor fails to start within the timeout period.
func (e *EmbeddedRelay) Start(ctx context.Context) error {
	// Create launch configuration with random ports
	// Using ":0" lets the OS assign available ports automatically
	launchCfg, err := tornago.NewTorLaunchConfig(
		tornago.WithTorSocksAddr(":0"),
		tornago.WithTorControlAddr(":0"),
		tornago.WithTorStartupTimeout(e.startupTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create Tor launch config: %w", err)
	}

	// Start the Tor daemon
	// This call blocks until Tor is fully bootstrapped or times out
	process, err := tornago.StartTorDaemon(launchCfg)
	if err != nil {
		return fmt.Errorf("failed to start embedded Tor daemon: %w", err)
	}

	// Check if context was cancelled during startup
	select {
	case <-ctx.Done():
		// Clean up the started process
		_ = process.Stop() //nolint:errcheck // Best effort cleanup
		return ctx.Err()
	default:
		// Continue
	}

	e.process = process
	e.socksAddr = process.SocksAddr()
	e.controlAddr = process.ControlAddr()

	return nil
}

// Stop gracefully shuts down the embedded Tor daemon.
// This should be called when the session ends to clean up resources.
//
// It's safe to call Stop() multiple times or on an unstarted instance.
func (e *EmbeddedRelay) Stop() error {
	if e.process == nil {
		return nil
	}

	err := e.process.Stop()
	e.process = nil
	return err
}

// SocksAddr returns the SOCKS5 proxy address of the running Tor daemon.
// Returns an empty string if Tor is not running.
//
// The format is "host:port" (e.g., "127.0.0.1:42715").
// This address can be passed to NewClient() to create a relay client.
func (e *EmbeddedRelay) SocksAddr() string {
	return e.socksAddr
}

// ControlAddr returns the control port address of the running Tor daemon.
// Returns an empty string if Tor is not running.
//
// The control port can be used for advanced Tor control operations,
// but is not required for routing session traffic.
func (e *EmbeddedRelay) ControlAddr() string {
	return e.controlAddr
}

// IsRunning returns true if the embedded Tor daemon is currently running.
func (e *EmbeddedRelay) IsRunning() bool {
	return e.process != nil
}

// NewClient creates a relay client dialing the embedded daemon's SOCKS
// listener. Returns ErrRelayNotRunning if the daemon is not running.
func (e *EmbeddedRelay) NewClient() (*Client, error) {
	if !e.IsRunning() {
		return nil, ErrRelayNotRunning
	}

	return NewClient(e.socksAddr)
}
