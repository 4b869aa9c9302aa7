package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vekoo-go1/veko-dome-v1/internal/config"
	"github.com/vekoo-go1/veko-dome-v1/internal/history"
	"github.com/vekoo-go1/veko-dome-v1/internal/model"
	"github.com/vekoo-go1/veko-dome-v1/internal/pool"
	"github.com/vekoo-go1/veko-dome-v1/internal/probe"
	"github.com/vekoo-go1/veko-dome-v1/internal/profile"
	"github.com/vekoo-go1/veko-dome-v1/internal/report"
	"github.com/vekoo-go1/veko-dome-v1/internal/tor"
	"github.com/vekoo-go1/veko-dome-v1/internal/transport"
)

// State is the controller's lifecycle phase.
type State int32

const (
	// StateInitializing covers everything before the rotation task spawns:
	// relay startup, pool loading, transport construction.
	StateInitializing State = iota

	// StateRunning means the session is live and the rotation task (if
	// rotation is enabled) is ticking.
	StateRunning

	// StateShuttingDown means cancellation was observed and teardown is
	// in progress.
	StateShuttingDown

	// StateTerminated means all resources are released. Terminal.
	StateTerminated
)

// String returns the state name used in logs.
func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting down"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Controller owns one anonymization session from relay startup to teardown.
// Construct with New, drive with Run, cancel with the context given to Run.
type Controller struct {
	cfg       *config.Config
	logger    *slog.Logger
	prof      *profile.Profile
	reporter  report.Writer
	probeOpts []probe.Option

	state   atomic.Int32
	started atomic.Bool

	// Set during Run and owned by the Run goroutine.
	relay   relay
	rotator *pool.Rotator
	client  *http.Client
	probe   *probe.Probe

	store     *history.Store
	sessionID int64
}

// Option configures a Controller.
type Option func(*Controller)

// WithReporter sets the writer that renders identity check results.
// Without one, checks are only logged.
func WithReporter(w report.Writer) Option {
	return func(c *Controller) {
		c.reporter = w
	}
}

// WithProbeOptions passes extra options to the identity probe, such as
// alternative echo service URLs.
func WithProbeOptions(opts ...probe.Option) Option {
	return func(c *Controller) {
		c.probeOpts = append(c.probeOpts, opts...)
	}
}

// New validates the configuration and builds a controller for one session.
// The profile name is resolved here so a typo fails before any process
// spawns or traffic flows.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	prof, err := profile.Parse(cfg.Profile)
	if err != nil {
		return nil, fmt.Errorf("profile %q: %w", cfg.Profile, err)
	}

	c := &Controller{
		cfg:    cfg,
		logger: logger,
		prof:   prof,
		relay:  newRelay(cfg),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Run executes the session: relay startup, pool loading, transport
// construction, the optional immediate identity check, then the rotation
// task. It blocks until ctx is canceled, tears everything down, and
// returns. Startup failures return immediately with nothing running.
//
// Run may be called once per controller; later calls return
// ErrSessionReused.
func (c *Controller) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrSessionReused
	}
	defer c.state.Store(int32(StateTerminated))

	// The relay comes up first: no traffic may flow until the relay the
	// operator asked for is ready, and a spawn failure aborts the session.
	if c.relay != nil {
		if err := c.relay.Start(ctx); err != nil {
			return fmt.Errorf("failed to start relay: %w", err)
		}
		defer c.stopRelay()

		c.logger.Info("relay started",
			"mode", c.cfg.TorMode().String(),
			"socks_address", c.relay.SOCKSAddress())

		if c.cfg.TorMode() != config.TorModeExternal {
			c.verifyRelay(ctx)
		}
	}

	p, err := pool.Load(c.cfg.ProxyFile, c.cfg.ProxyFileExplicit)
	if err != nil {
		return fmt.Errorf("failed to load proxy pool: %w", err)
	}

	if p.Empty() {
		c.logger.Info("proxy pool is empty, running in direct mode")
	} else {
		rot, err := pool.NewRotator(p, c.cfg.RotateInterval, time.Now())
		if err != nil {
			return fmt.Errorf("failed to build rotator: %w", err)
		}
		c.rotator = rot

		c.logger.Info("proxy pool loaded",
			"endpoints", p.Len(),
			"interval", c.cfg.RotateInterval,
			"fingerprint", p.Fingerprint())
	}

	if err := c.buildTransport(); err != nil {
		return fmt.Errorf("failed to build transport: %w", err)
	}

	c.openHistory(ctx, p)
	defer c.closeHistory()

	if c.cfg.CheckOnStart {
		c.reportIdentity(ctx)
	}

	c.state.Store(int32(StateRunning))
	c.logger.Info("session running",
		"profile", c.cfg.Profile,
		"doh", c.cfg.UseDoH,
		"rotation", c.rotator != nil)

	g, gctx := errgroup.WithContext(ctx)
	if c.rotator != nil {
		g.Go(func() error {
			c.rotationLoop(gctx)
			return nil
		})
	}

	<-ctx.Done()

	c.state.Store(int32(StateShuttingDown))
	c.logger.Info("shutting down")

	// The rotation task observes the same cancellation and returns nil,
	// so Wait only joins.
	_ = g.Wait()

	c.stopRelay()
	c.closeHistory()

	return nil
}

// rotationLoop wakes on every tick and advances the rotator once the
// interval has elapsed. Exits when ctx is canceled.
func (c *Controller) rotationLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.RotationTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if !c.rotator.ShouldRotate(now) {
				continue
			}

			ev := c.rotator.Advance(now)
			c.logger.Info("switching proxy",
				"endpoint", ev.Current,
				"seq", ev.Seq,
				"index", ev.Index)
			c.recordRotation(ev)
		}
	}
}

// buildTransport assembles the outbound HTTP client: proxy selection from
// the rotator, the relay dialer, optional DoH resolution, and the
// profile's header disguise. The identity probe shares the same client so
// checks observe exactly what session traffic looks like.
func (c *Controller) buildTransport() error {
	opts := transport.Options{
		Rotator:       c.rotator,
		Profile:       c.prof,
		Timeout:       c.cfg.RequestTimeout,
		RedirectLimit: c.cfg.RedirectLimit,
	}

	if c.relay != nil {
		relayClient, err := tor.NewClient(c.relay.SOCKSAddress())
		if err != nil {
			return err
		}
		opts.RelayDialer = relayClient.DialContext
	}

	if c.cfg.UseDoH {
		var resolverOpts []transport.ResolverOption
		if opts.RelayDialer != nil {
			// DoH queries ride the relay too. SOCKS5 resolves the
			// resolver's own hostname remotely, so no lookup escapes
			// through the system resolver.
			dohClient := transport.NewHTTPClient(transport.Options{
				RelayDialer: opts.RelayDialer,
				Timeout:     c.cfg.RequestTimeout,
			})
			resolverOpts = append(resolverOpts, transport.WithHTTPClient(dohClient))
		}
		opts.DoHResolver = transport.NewResolver(resolverOpts...)
	}

	c.client = transport.NewHTTPClient(opts)

	probeOpts := make([]probe.Option, 0, len(c.probeOpts)+1)
	if c.cfg.MaxBodySize > 0 {
		probeOpts = append(probeOpts, probe.WithMaxBodySize(c.cfg.MaxBodySize))
	}
	probeOpts = append(probeOpts, c.probeOpts...)
	c.probe = probe.New(c.client, probeOpts...)

	return nil
}

// verifyRelay probes the relay's SOCKS listener after startup. The warm-up
// wait is a fixed delay, not a readiness proof, so a failed handshake here
// is only a warning: the relay may still be bootstrapping.
func (c *Controller) verifyRelay(ctx context.Context) {
	client, err := tor.NewClient(c.relay.SOCKSAddress())
	if err != nil {
		c.logger.Warn("cannot verify relay", "error", err)
		return
	}

	if status := client.CheckConnection(ctx); status != tor.ProxyStatusOK {
		c.logger.Warn("relay not confirmed ready", "status", status.String())
	}
}

// CheckIdentity runs one identity probe and returns the externally
// observed status supplemented with the session's settings. Valid once
// Run has built the transport; the probe degrades every network failure
// to an unknown field, so the returned status is always usable.
func (c *Controller) CheckIdentity(ctx context.Context) *model.ConnectionStatus {
	status := c.probe.Snapshot(ctx)
	status.Profile = c.cfg.Profile
	status.DoH = c.cfg.UseDoH

	if c.rotator != nil {
		snap := c.rotator.Snapshot()
		status.ActiveEndpoint = snap.Endpoint.String()
		status.PoolSize = snap.PoolSize
		status.RotateIntervalSecs = int(snap.Interval / time.Second)
	} else {
		status.DirectMode = true
	}

	return status
}

// reportIdentity checks the identity, renders it through the configured
// reporter, and persists it to the session trail.
func (c *Controller) reportIdentity(ctx context.Context) {
	status := c.CheckIdentity(ctx)

	c.logger.Info("identity check",
		"public_ip", status.PublicIP,
		"tor", status.TorText,
		"endpoint", status.ActiveEndpoint)

	if c.reporter != nil {
		if _, err := c.reporter.Write(status); err != nil {
			c.logger.Warn("failed to write status report", "error", err)
		}
	}

	c.recordIdentityCheck(status)
}

// openHistory opens the trail store and records the session start.
// Persistence is best-effort: an unopenable database logs a warning and
// the session continues without a trail.
func (c *Controller) openHistory(ctx context.Context, p *pool.Pool) {
	if !c.cfg.SaveHistory {
		return
	}

	store, err := history.Open(c.cfg.DBDir, history.DefaultOptions())
	if err != nil {
		c.logger.Warn("history disabled", "error", err)
		return
	}

	id, err := store.BeginSession(ctx, &history.SessionRecord{
		Profile:            c.cfg.Profile,
		TorMode:            c.cfg.TorMode().String(),
		DoH:                c.cfg.UseDoH,
		RotateIntervalSecs: int(c.cfg.RotateInterval / time.Second),
		PoolSize:           p.Len(),
		PoolFingerprint:    p.Fingerprint(),
	})
	if err != nil {
		c.logger.Warn("history disabled", "error", err)
		_ = store.Close()
		return
	}

	c.store = store
	c.sessionID = id
	c.logger.Debug("session recorded", "session_id", id, "db", store.Path())
}

// recordRotation persists one rotation event. History writes use a fresh
// context so a canceled session still leaves a complete trail.
func (c *Controller) recordRotation(ev model.RotationEvent) {
	if c.store == nil {
		return
	}
	if err := c.store.RecordRotation(context.Background(), c.sessionID, ev); err != nil {
		c.logger.Warn("failed to record rotation", "error", err)
	}
}

// recordIdentityCheck persists one identity check to the session trail.
func (c *Controller) recordIdentityCheck(status *model.ConnectionStatus) {
	if c.store == nil {
		return
	}
	if err := c.store.RecordIdentityCheck(context.Background(), c.sessionID, status); err != nil {
		c.logger.Warn("failed to record identity check", "error", err)
	}
}

// closeHistory stamps the session end and releases the store. Idempotent:
// both the shutdown path and the startup-failure defer may call it.
func (c *Controller) closeHistory() {
	if c.store == nil {
		return
	}

	if err := c.store.EndSession(context.Background(), c.sessionID); err != nil {
		c.logger.Warn("failed to record session end", "error", err)
	}
	if err := c.store.Close(); err != nil {
		c.logger.Warn("failed to close history store", "error", err)
	}
	c.store = nil
}

// stopRelay stops the relay if one was started. Idempotent: both the
// shutdown path and the startup-failure defer may call it. A stop failure
// is logged, never fatal; by this point the session is over either way.
func (c *Controller) stopRelay() {
	if c.relay == nil {
		return
	}

	if err := c.relay.Stop(); err != nil {
		c.logger.Warn("failed to stop relay", "error", err)
	} else {
		c.logger.Info("relay stopped")
	}
	c.relay = nil
}
