package session

import (
	"testing"

	"github.com/vekoo-go1/veko-dome-v1/internal/config"
	"github.com/vekoo-go1/veko-dome-v1/internal/tor"
)

// TestNewRelay tests the config to relay mode mapping.
func TestNewRelay(t *testing.T) {
	t.Parallel()

	t.Run("no relay by default", func(t *testing.T) {
		t.Parallel()

		if r := newRelay(config.NewConfig()); r != nil {
			t.Errorf("expected nil relay, got %T", r)
		}
	})

	t.Run("system mode builds a supervisor", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.UseTor = true

		r := newRelay(cfg)
		if _, ok := r.(*tor.Supervisor); !ok {
			t.Errorf("expected *tor.Supervisor, got %T", r)
		}
		if r.SOCKSAddress() != cfg.TorSOCKSAddress {
			t.Errorf("expected SOCKS address %q, got %q", cfg.TorSOCKSAddress, r.SOCKSAddress())
		}
	})

	t.Run("embedded mode wraps the tornago daemon", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.UseEmbeddedTor = true

		r := newRelay(cfg)
		if _, ok := r.(*embeddedRelay); !ok {
			t.Errorf("expected *embeddedRelay, got %T", r)
		}
		// Ports are assigned at startup, so no address yet
		if addr := r.SOCKSAddress(); addr != "" {
			t.Errorf("expected empty address before start, got %q", addr)
		}
	})

	t.Run("external mode keeps the given address", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.ExternalTorAddress = "127.0.0.1:9150"

		r := newRelay(cfg)
		if _, ok := r.(*externalRelay); !ok {
			t.Errorf("expected *externalRelay, got %T", r)
		}
		if r.SOCKSAddress() != "127.0.0.1:9150" {
			t.Errorf("expected configured address, got %q", r.SOCKSAddress())
		}
	})
}

// TestExternalRelayStop tests that stopping an external relay never touches
// the foreign process.
func TestExternalRelayStop(t *testing.T) {
	t.Parallel()

	r := &externalRelay{addr: "127.0.0.1:9150"}
	for range 2 {
		if err := r.Stop(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}
}
