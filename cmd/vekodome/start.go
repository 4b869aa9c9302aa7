package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vekoo-go1/veko-dome-v1/internal/config"
	"github.com/vekoo-go1/veko-dome-v1/internal/log"
	"github.com/vekoo-go1/veko-dome-v1/internal/profile"
	"github.com/vekoo-go1/veko-dome-v1/internal/report"
	"github.com/vekoo-go1/veko-dome-v1/internal/session"
)

// NewStartCmd creates the start command.
func NewStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start an anonymization session",
		Long: `Start begins an anonymization session and runs until interrupted.

The session optionally spawns a Tor process, loads the proxy pool, and
rotates the active proxy endpoint on a timer. Incoming Ctrl+C (or SIGTERM)
triggers an ordered shutdown: the rotation task is joined first, then the
Tor process is stopped.

Without a proxy list the session runs in direct-connection mode: no
rotation task is started and requests go out unproxied (or through Tor
alone if a Tor mode is selected).

Examples:
  # Rotate through proxies.txt every 15 seconds, chained through Tor
  vekodome start --tor --proxies proxies.txt

  # Paranoid profile, immediate identity check, 30 second rotation
  vekodome start -p paranoid -c -r 30

  # Use an already-running Tor instead of spawning one
  vekodome start --external-tor 127.0.0.1:9050

  # Resolve hostnames over DNS-over-HTTPS
  vekodome start --doh

Configuration file (.vekodome) example:
  profile: stealth
  proxies: /etc/vekodome/proxies.txt
  tor: true
  rotate: 30`,
		Args: cobra.NoArgs,
		RunE: runStartCmd,
	}

	// Session behavior flags
	cmd.Flags().StringP("profile", "p", config.DefaultProfile,
		fmt.Sprintf("Security profile to apply (%s)", strings.Join(profile.Names(), "|")))
	cmd.Flags().StringP("proxies", "P", config.DefaultProxyFile,
		"Proxy list file path (one endpoint per line)")
	cmd.Flags().IntP("rotate", "r", int(config.DefaultRotateInterval/time.Second),
		"Rotation interval in seconds (0 rotates on every tick)")
	cmd.Flags().BoolP("check", "c", false,
		"Perform an identity check immediately after startup")

	// Tor relay flags
	cmd.Flags().BoolP("tor", "t", false,
		"Spawn and supervise the system tor binary")
	cmd.Flags().BoolP("embedded-tor", "E", false,
		"Launch an embedded Tor daemon instead of the system binary")
	cmd.Flags().StringP("external-tor", "e", "",
		"Use external Tor proxy at specified address (e.g., 127.0.0.1:9050)")

	// Resolution and output flags
	cmd.Flags().BoolP("doh", "D", false,
		"Resolve outbound hostnames over DNS-over-HTTPS")
	cmd.Flags().Bool("no-log", false,
		"Suppress log output (identity check reports are unaffected)")

	return cmd
}

// runStartCmd executes the start command.
func runStartCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildStartConfig(cmd)
	if err != nil {
		return err
	}

	// Set up structured logging
	logger := setupLogger(cfg, getVerboseFlag(cmd))
	slog.SetDefault(logger)

	ctrl, err := session.New(cfg, logger,
		session.WithReporter(report.NewSimpleWriter(cmd.OutOrStdout(),
			report.WithVerbose(getVerboseFlag(cmd)))),
	)
	if err != nil {
		return err
	}

	// The interrupt signal is the sole trigger for graceful shutdown:
	// Run blocks until the context is canceled, then tears down in order.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return ctrl.Run(ctx)
}

// buildStartConfig creates a Config from defaults, the optional
// configuration file, and the command's flags, in that precedence order.
func buildStartConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.ConfigFilePath = getConfigFlag(cmd)

	// If the user explicitly specified a config file path, error if not
	// found. If no path is specified, silently continue without one.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	if configPath != "" {
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		file.Apply(cfg)
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	if err := applyStartFlags(cmd, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyStartFlags copies explicitly-set flags onto the config. Unset flags
// leave the file/default values untouched, which is what makes the
// defaults < file < flags precedence work.
func applyStartFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("profile") {
		v, err := flags.GetString("profile")
		if err != nil {
			return err
		}
		cfg.Profile = v
	}

	if flags.Changed("proxies") {
		v, err := flags.GetString("proxies")
		if err != nil {
			return err
		}
		cfg.ProxyFile = v
		cfg.ProxyFileExplicit = true
	}

	if flags.Changed("rotate") {
		v, err := flags.GetInt("rotate")
		if err != nil {
			return err
		}
		cfg.RotateInterval = time.Duration(v) * time.Second
	}

	if flags.Changed("check") {
		v, err := flags.GetBool("check")
		if err != nil {
			return err
		}
		cfg.CheckOnStart = v
	}

	if flags.Changed("tor") {
		v, err := flags.GetBool("tor")
		if err != nil {
			return err
		}
		cfg.UseTor = v
	}

	if flags.Changed("embedded-tor") {
		v, err := flags.GetBool("embedded-tor")
		if err != nil {
			return err
		}
		cfg.UseEmbeddedTor = v
	}

	if flags.Changed("external-tor") {
		v, err := flags.GetString("external-tor")
		if err != nil {
			return err
		}
		cfg.ExternalTorAddress = v
	}

	if flags.Changed("doh") {
		v, err := flags.GetBool("doh")
		if err != nil {
			return err
		}
		cfg.UseDoH = v
	}

	if flags.Changed("no-log") {
		v, err := flags.GetBool("no-log")
		if err != nil {
			return err
		}
		cfg.NoLog = v
	}

	return nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getConfigFlag retrieves the global config flag from the command or its
// parent. Returns empty when the flag is absent, which means "search the
// default locations".
func getConfigFlag(cmd *cobra.Command) string {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		path, err = cmd.Root().PersistentFlags().GetString("config")
		if err != nil {
			return ""
		}
	}
	return path
}

// setupLogger creates the session logger. NoLog routes everything to
// io.Discard rather than removing the logger so callers never need a nil
// check; the secure handler redacts proxy credentials either way.
func setupLogger(cfg *config.Config, verbose bool) *slog.Logger {
	w := io.Writer(os.Stderr)
	if cfg.NoLog {
		w = io.Discard
	}
	return log.NewSecureLogger(w, verbose)
}
