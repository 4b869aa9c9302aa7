package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values are chosen to match typical Tor and proxy-chain
// characteristics and the established Veko Dome defaults where applicable.
const (
	// DefaultRotateInterval is how long an endpoint stays active before
	// the rotation task swaps it for the next one in the pool.
	// 15 seconds is short enough to limit per-endpoint exposure while
	// avoiding constant connection churn.
	DefaultRotateInterval = 15 * time.Second

	// DefaultRotationTick is how often the rotation task checks whether
	// the interval has elapsed. A 1 second tick bounds rotation lag to
	// one second without measurable CPU cost.
	DefaultRotationTick = 1 * time.Second

	// DefaultRequestTimeout is the per-request timeout for outbound HTTP.
	// Identity checks go through the full proxy chain, so this must cover
	// a Tor circuit plus one proxy hop. 10 seconds is generous for echo
	// services while keeping startup checks snappy.
	DefaultRequestTimeout = 10 * time.Second

	// DefaultRedirectLimit caps HTTP redirect following. Echo services
	// occasionally bounce between hosts; more than 3 hops means something
	// is wrong with the chain.
	DefaultRedirectLimit = 3

	// DefaultProfile is the security profile applied when none is chosen.
	DefaultProfile = "standard"

	// DefaultProxyFile is the proxy list path tried when the operator
	// does not name one. If it does not exist, the embedded default list
	// is used instead.
	DefaultProxyFile = "proxies.txt"

	// DefaultTorBinary is the relay executable launched in system mode.
	DefaultTorBinary = "tor"

	// DefaultTorSOCKSAddress is the standard Tor SOCKS5 proxy address.
	// Port 9050 is the default for the Tor daemon's SOCKS port.
	// We use 127.0.0.1 instead of localhost to avoid DNS resolution
	// overhead and potential issues with IPv6 resolution on some systems.
	DefaultTorSOCKSAddress = "127.0.0.1:9050"

	// DefaultTorWarmup is how long the supervisor waits after spawning
	// the system tor binary before traffic is allowed to flow. The
	// daemon needs a few seconds to open its SOCKS listener and build
	// initial circuits.
	DefaultTorWarmup = 3 * time.Second

	// DefaultTorStartupTimeout is the maximum time to wait for the
	// embedded Tor daemon to bootstrap. 3 minutes is typically sufficient
	// for most network conditions, but may need to be increased for slow
	// connections.
	DefaultTorStartupTimeout = 3 * time.Minute

	// DefaultMaxBodySize limits the response body size read from echo and
	// check services. Their answers are a few bytes; 64KB leaves room for
	// verbose error pages without risking memory exhaustion.
	DefaultMaxBodySize = 64 * 1024

	// AppName is the application name used for XDG directory paths.
	AppName = "vekodome"
)

// TorMode identifies how a session obtains its Tor relay, if at all.
type TorMode int

const (
	// TorModeOff routes traffic without any Tor relay.
	TorModeOff TorMode = iota

	// TorModeSystem spawns and supervises the system tor binary.
	TorModeSystem

	// TorModeEmbedded launches a tornago-managed Tor daemon.
	TorModeEmbedded

	// TorModeExternal uses an already-running SOCKS proxy without
	// supervising any process.
	TorModeExternal
)

// String returns the mode name used in logs and the history database.
func (m TorMode) String() string {
	switch m {
	case TorModeSystem:
		return "system"
	case TorModeEmbedded:
		return "embedded"
	case TorModeExternal:
		return "external"
	default:
		return "off"
	}
}

// Config holds all configuration options for Veko Dome.
// This struct is designed to be populated from defaults, the optional
// configuration file, and CLI flags (in that order), then passed through
// the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., RotationConfig, RelayConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// Profile is the security profile name applied to outbound requests.
	Profile string

	// ProxyFile is the path to the proxy list file.
	ProxyFile string

	// ProxyFileExplicit records that the operator named the proxy list
	// (via flag or config file). An unreadable explicit file is fatal;
	// a missing default file silently falls back to the embedded list.
	ProxyFileExplicit bool

	// UseTor spawns and supervises the system tor binary for the session.
	UseTor bool

	// UseEmbeddedTor launches a tornago-managed Tor daemon instead of the
	// system binary. Slower to start but verifies bootstrap completion.
	UseEmbeddedTor bool

	// ExternalTorAddress is the "host:port" of an already-running SOCKS
	// proxy to chain through. No process is supervised in this mode.
	ExternalTorAddress string

	// TorBinary is the executable launched in system mode.
	TorBinary string

	// TorSOCKSAddress is where the system tor daemon is expected to
	// listen once warmed up.
	TorSOCKSAddress string

	// TorWarmup is the fixed delay after spawning the system tor binary
	// before the session proceeds.
	TorWarmup time.Duration

	// TorStartupTimeout bounds the embedded daemon's bootstrap.
	TorStartupTimeout time.Duration

	// UseDoH resolves outbound hostnames over DNS-over-HTTPS instead of
	// the system resolver.
	UseDoH bool

	// CheckOnStart performs an identity check immediately after startup.
	CheckOnStart bool

	// RotateInterval is how long each proxy endpoint stays active.
	// Zero means rotate on every tick.
	RotateInterval time.Duration

	// RotationTick is how often the rotation task wakes up.
	RotationTick time.Duration

	// RequestTimeout is the per-request timeout for outbound HTTP.
	RequestTimeout time.Duration

	// RedirectLimit caps HTTP redirect following per request.
	RedirectLimit int

	// MaxBodySize is the maximum response body size in bytes to read.
	// Set to 0 to use the default.
	MaxBodySize int64

	// Verbose enables detailed log output using slog.LevelDebug.
	Verbose bool

	// NoLog suppresses all log output. Rotation still happens; it is
	// just not narrated. Report output is unaffected.
	NoLog bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .vekodome in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// DBDir is the directory path for the SQLite history database.
	// Defaults to the XDG data directory (~/.local/share/vekodome on Linux).
	DBDir string

	// SaveHistory indicates whether sessions, rotations, and identity
	// checks are recorded to the history database. Persistence is
	// best-effort; an unopenable database never aborts a session.
	SaveHistory bool

	// JSONReport enables JSON status output instead of the human-readable
	// format. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown status output instead of the
	// human-readable format. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for status reports.
	// When set, the report is written to this file instead of stdout.
	ReportFile string
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., intervals, paths).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Profile:           DefaultProfile,
		ProxyFile:         DefaultProxyFile,
		TorBinary:         DefaultTorBinary,
		TorSOCKSAddress:   DefaultTorSOCKSAddress,
		TorWarmup:         DefaultTorWarmup,
		TorStartupTimeout: DefaultTorStartupTimeout,
		RotateInterval:    DefaultRotateInterval,
		RotationTick:      DefaultRotationTick,
		RequestTimeout:    DefaultRequestTimeout,
		RedirectLimit:     DefaultRedirectLimit,
		MaxBodySize:       DefaultMaxBodySize,
		DBDir:             XDGDataDir(),
		SaveHistory:       true,
	}
}

// TorMode derives the relay mode from the individual mode fields.
// Validate guarantees at most one of them is set.
func (c *Config) TorMode() TorMode {
	switch {
	case c.UseTor:
		return TorModeSystem
	case c.UseEmbeddedTor:
		return TorModeEmbedded
	case c.ExternalTorAddress != "":
		return TorModeExternal
	default:
		return TorModeOff
	}
}

// XDGDataDir returns the XDG data directory for Veko Dome.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/vekodome
// On macOS: ~/Library/Application Support/vekodome
// On Windows: %LOCALAPPDATA%\vekodome
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for Veko Dome.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.config/vekodome
// On macOS: ~/Library/Application Support/vekodome
// On Windows: %APPDATA%\vekodome
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before any session begins.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	// Negative means the flag was mangled; zero is the "rotate every
	// tick" setting and stays legal.
	if c.RotateInterval < 0 {
		return ErrInvalidRotateInterval
	}

	// The rotation task cannot wake up on a non-positive period
	if c.RotationTick <= 0 {
		return ErrInvalidRotationTick
	}

	// Zero timeout would cause immediate request failures
	if c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.RedirectLimit < 0 {
		return ErrInvalidRedirectLimit
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	// Exactly one relay source can drive a session
	modes := 0
	if c.UseTor {
		modes++
	}
	if c.UseEmbeddedTor {
		modes++
	}
	if c.ExternalTorAddress != "" {
		modes++
	}
	if modes > 1 {
		return ErrConflictingTorModes
	}

	// JSONReport and MarkdownReport are mutually exclusive
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	return nil
}
