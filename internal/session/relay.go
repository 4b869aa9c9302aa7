package session

import (
	"context"
	"fmt"

	"github.com/vekoo-go1/veko-dome-v1/internal/config"
	"github.com/vekoo-go1/veko-dome-v1/internal/tor"
)

// relay abstracts the three ways a session can obtain a Tor relay: a
// supervised system binary, an embedded tornago daemon, or an external
// SOCKS proxy that is already running. The controller drives all three
// through the same start/stop lifecycle.
type relay interface {
	// Start brings the relay up. An error here is fatal to session
	// startup: traffic must not flow without the relay the operator
	// asked for.
	Start(ctx context.Context) error

	// Stop tears the relay down. Idempotent.
	Stop() error

	// SOCKSAddress returns the relay's SOCKS5 listener as "host:port".
	SOCKSAddress() string
}

// newRelay builds the relay for the configured mode, or nil when the
// session runs without one.
func newRelay(cfg *config.Config) relay {
	switch cfg.TorMode() {
	case config.TorModeSystem:
		return tor.NewSupervisor(
			tor.WithBinary(cfg.TorBinary),
			tor.WithSOCKSAddress(cfg.TorSOCKSAddress),
			tor.WithWarmup(cfg.TorWarmup),
		)
	case config.TorModeEmbedded:
		return &embeddedRelay{
			EmbeddedRelay: tor.NewEmbeddedRelay(
				tor.WithStartupTimeout(cfg.TorStartupTimeout),
			),
		}
	case config.TorModeExternal:
		return &externalRelay{addr: cfg.ExternalTorAddress}
	default:
		return nil
	}
}

// embeddedRelay adapts tor.EmbeddedRelay to the relay interface.
type embeddedRelay struct {
	*tor.EmbeddedRelay
}

// SOCKSAddress returns the port the embedded daemon bound at startup.
func (e *embeddedRelay) SOCKSAddress() string {
	return e.SocksAddr()
}

// externalRelay is an already-running SOCKS proxy named by the operator.
// No process is supervised; Start only verifies the listener speaks
// SOCKS5. The verification is fatal on failure because the operator named
// this exact endpoint, so falling back silently would route traffic
// somewhere they did not choose.
type externalRelay struct {
	addr string
}

// Start probes the external listener with a SOCKS5 handshake.
func (e *externalRelay) Start(ctx context.Context) error {
	client, err := tor.NewClient(e.addr)
	if err != nil {
		return fmt.Errorf("external relay %s: %w", e.addr, err)
	}

	if err := client.CheckConnection(ctx).Error(); err != nil {
		return fmt.Errorf("external relay %s: %w", e.addr, err)
	}
	return nil
}

// Stop is a no-op: the process belongs to someone else.
func (e *externalRelay) Stop() error {
	return nil
}

// SOCKSAddress returns the configured listener address.
func (e *externalRelay) SOCKSAddress() string {
	return e.addr
}
