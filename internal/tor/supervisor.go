package tor

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

const (
	// defaultRelayBinary is the tor executable resolved from PATH when the
	// operator does not name one explicitly.
	defaultRelayBinary = "tor"

	// defaultRelaySOCKSAddress is where a stock tor installation opens its
	// SOCKS listener. Supervised relays run with the system torrc, so this
	// is the address session traffic dials unless configured otherwise.
	defaultRelaySOCKSAddress = "127.0.0.1:9050"

	// defaultWarmup is how long Start waits after launching the relay before
	// declaring it usable. The stock binary opens its SOCKS listener well
	// within this window; full circuit bootstrap continues in the background
	// and early requests simply block on it.
	defaultWarmup = 3 * time.Second

	// stopGracePeriod is how long a terminated relay gets to exit cleanly
	// after SIGTERM before it is killed outright.
	stopGracePeriod = 5 * time.Second
)

// Supervisor launches a system tor binary and owns the child process for the
// lifetime of a session.
//
// Design decision: We supervise a plain tor child process instead of always
// embedding the daemon because operators with a hardened torrc want their
// own binary and configuration in charge. The supervisor only handles the
// lifecycle: spawn, warm-up, and guaranteed termination on shutdown. The
// relay never outlives the session, even when the session dies on an error
// path, because Stop is wired into the controller's teardown.
type Supervisor struct {
	// binary is the executable name or path resolved via PATH lookup.
	binary string

	// args are extra command line arguments for the relay, such as a
	// custom "-f /path/to/torrc".
	args []string

	// socksAddr is the SOCKS5 listener address the supervised relay is
	// expected to open.
	socksAddr string

	// warmup is the fixed delay between spawning the relay and reporting
	// it ready.
	warmup time.Duration

	mu      sync.Mutex
	cmd     *exec.Cmd
	cancel  context.CancelFunc
	done    chan struct{}
	waitErr error
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithBinary sets the relay executable name or path. The default is "tor",
// resolved from PATH.
func WithBinary(binary string) SupervisorOption {
	return func(s *Supervisor) {
		s.binary = binary
	}
}

// WithArgs sets extra command line arguments passed to the relay binary.
func WithArgs(args ...string) SupervisorOption {
	return func(s *Supervisor) {
		s.args = args
	}
}

// WithSOCKSAddress sets the SOCKS5 listener address the relay is expected
// to open. The default matches a stock tor installation.
func WithSOCKSAddress(addr string) SupervisorOption {
	return func(s *Supervisor) {
		s.socksAddr = addr
	}
}

// WithWarmup sets the fixed delay between launching the relay and reporting
// it ready.
func WithWarmup(d time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		s.warmup = d
	}
}

// NewSupervisor creates a supervisor for a system tor relay.
// Call Start() to actually launch the process.
func NewSupervisor(opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		binary:    defaultRelayBinary,
		socksAddr: defaultRelaySOCKSAddress,
		warmup:    defaultWarmup,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start launches the relay process and waits out the warm-up period.
//
// A missing binary or a failed spawn returns an error wrapping ErrRelaySpawn.
// Callers must treat that as fatal: continuing the session would route
// traffic directly while the operator believes it rides the relay.
//
// Design decision: Warm-up is a fixed delay rather than an active bootstrap
// probe. The relay opens its SOCKS listener almost immediately, and waiting
// for full circuit bootstrap would stall every session start by a minute or
// more. The session controller runs a best-effort SOCKS handshake after
// Start and warns when the listener is not up yet.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return ErrRelayAlreadyRunning
	}

	path, err := exec.LookPath(s.binary)
	if err != nil {
		return fmt.Errorf("%w: %q not found in PATH (install tor or use the embedded relay)", ErrRelaySpawn, s.binary)
	}

	// The process gets its own cancellation scope so that Stop can terminate
	// it even when the caller's context outlives the session.
	procCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(procCtx, path, s.args...)

	// Stdout and Stderr stay nil, which wires the child to the null device.
	// The relay's bootstrap chatter would drown the session log; failures
	// surface through the exit status instead.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = stopGracePeriod

	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("%w: %v", ErrRelaySpawn, err)
	}

	// Reap the process in the background. Writing waitErr before close(done)
	// publishes it to whoever receives on the channel.
	done := make(chan struct{})
	go func() {
		s.waitErr = cmd.Wait()
		close(done)
	}()

	timer := time.NewTimer(s.warmup)
	defer timer.Stop()

	select {
	case <-done:
		// The relay died before the warm-up elapsed. A bad torrc or an
		// already-bound SOCKS port shows up here.
		cancel()
		if s.waitErr != nil {
			return fmt.Errorf("%w: relay exited during warm-up: %v", ErrRelaySpawn, s.waitErr)
		}
		return fmt.Errorf("%w: relay exited during warm-up", ErrRelaySpawn)
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	case <-timer.C:
	}

	s.cmd = cmd
	s.cancel = cancel
	s.done = done
	return nil
}

// Stop terminates the relay process and waits for it to exit.
//
// The relay first receives SIGTERM; if it has not exited within the grace
// period it is killed. Stop is safe to call multiple times and on a
// supervisor that was never started.
func (s *Supervisor) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd == nil {
		return nil
	}

	s.cancel()
	<-s.done

	err := s.waitErr
	s.cmd = nil
	s.cancel = nil
	s.done = nil
	s.waitErr = nil

	if err == nil {
		return nil
	}
	// A signaled relay reports a non-zero exit. That is the expected
	// shutdown path, not a failure worth surfacing.
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

// Running reports whether the supervisor currently manages a live relay.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmd != nil
}

// Pid returns the process ID of the supervised relay, or 0 if no relay
// is running.
func (s *Supervisor) Pid() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// SOCKSAddress returns the SOCKS5 listener address of the supervised relay.
func (s *Supervisor) SOCKSAddress() string {
	return s.socksAddr
}

// NewClient creates a relay client dialing the supervised relay's SOCKS
// listener. Returns ErrRelayNotRunning if the relay is not running.
func (s *Supervisor) NewClient() (*Client, error) {
	if !s.Running() {
		return nil, ErrRelayNotRunning
	}
	return NewClient(s.socksAddr)
}
