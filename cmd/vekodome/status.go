package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/vekoo-go1/veko-dome-v1/internal/config"
	"github.com/vekoo-go1/veko-dome-v1/internal/history"
	"github.com/vekoo-go1/veko-dome-v1/internal/probe"
	"github.com/vekoo-go1/veko-dome-v1/internal/profile"
	"github.com/vekoo-go1/veko-dome-v1/internal/report"
	"github.com/vekoo-go1/veko-dome-v1/internal/tor"
	"github.com/vekoo-go1/veko-dome-v1/internal/transport"
)

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check the externally-observed identity without starting a session",
		Long: `Status performs a one-shot identity check: it asks public echo services
for your externally visible IP address and verifies whether traffic exits
through a known Tor relay.

No session is started, no proxy rotation happens, and no Tor process is
spawned. To check through Tor, point --external-tor at an already-running
SOCKS proxy.

Every network failure degrades to "unknown" / "not confirmed" rather than
an error, so the command always produces a report.

Examples:
  # Check the direct connection
  vekodome status

  # Check through a running Tor daemon
  vekodome status --external-tor 127.0.0.1:9050

  # Machine-readable output
  vekodome status --json

  # Write a Markdown report to a file
  vekodome status --markdown --output status.md`,
		Args: cobra.NoArgs,
		RunE: runStatusCmd,
	}

	cmd.Flags().StringP("external-tor", "e", "",
		"Check through an external Tor proxy at specified address (e.g., 127.0.0.1:9050)")
	cmd.Flags().BoolP("doh", "D", false,
		"Resolve echo service hostnames over DNS-over-HTTPS")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runStatusCmd executes the status command.
func runStatusCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildStatusConfig(cmd)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg, getVerboseFlag(cmd))

	prof, err := profile.Parse(cfg.Profile)
	if err != nil {
		return fmt.Errorf("profile %q: %w", cfg.Profile, err)
	}

	opts := transport.Options{
		Profile:       prof,
		Timeout:       cfg.RequestTimeout,
		RedirectLimit: cfg.RedirectLimit,
	}

	// An explicitly-named external proxy must answer: falling back to a
	// direct check would report an identity the operator did not ask about.
	if cfg.ExternalTorAddress != "" {
		relayClient, err := tor.NewClient(cfg.ExternalTorAddress)
		if err != nil {
			return fmt.Errorf("external tor %s: %w", cfg.ExternalTorAddress, err)
		}
		if status := relayClient.CheckConnection(cmd.Context()); status != tor.ProxyStatusOK {
			return fmt.Errorf("tor proxy check failed: %s (make sure Tor is running at %s)",
				status, cfg.ExternalTorAddress)
		}
		opts.RelayDialer = relayClient.DialContext
	}

	if cfg.UseDoH {
		var resolverOpts []transport.ResolverOption
		if opts.RelayDialer != nil {
			dohClient := transport.NewHTTPClient(transport.Options{
				RelayDialer: opts.RelayDialer,
				Timeout:     cfg.RequestTimeout,
			})
			resolverOpts = append(resolverOpts, transport.WithHTTPClient(dohClient))
		}
		opts.DoHResolver = transport.NewResolver(resolverOpts...)
	}

	client := transport.NewHTTPClient(opts)

	status := probe.New(client).Snapshot(cmd.Context())
	status.Profile = cfg.Profile
	status.DoH = cfg.UseDoH
	status.DirectMode = cfg.ExternalTorAddress == ""
	if cfg.ExternalTorAddress != "" {
		status.ActiveEndpoint = "socks5://" + cfg.ExternalTorAddress
	}

	writer, cleanup, err := buildReportWriter(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer cleanup()

	if _, err := writer.Write(status); err != nil {
		return fmt.Errorf("failed to write status report: %w", err)
	}

	// One-shot checks land in the history database with no session, so
	// 'vekodome history --checks' can show them later. Best-effort only.
	if cfg.SaveHistory {
		if store, err := history.Open(cfg.DBDir, history.DefaultOptions()); err != nil {
			logger.Warn("history disabled", "error", err)
		} else {
			if err := store.RecordIdentityCheck(cmd.Context(), 0, status); err != nil {
				logger.Warn("failed to record identity check", "error", err)
			}
			if err := store.Close(); err != nil {
				logger.Warn("failed to close history store", "error", err)
			}
		}
	}

	return nil
}

// buildStatusConfig creates a Config for a one-shot check from the
// command's flags. The configuration file contributes the profile and DoH
// defaults; session-only fields (proxies, rotation) are ignored here.
func buildStatusConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.ConfigFilePath = getConfigFlag(cmd)

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

	// A one-shot check never rotates or supervises anything; only the
	// egress and output settings survive from the file.
	cfg.UseTor = false
	cfg.UseEmbeddedTor = false
	cfg.ExternalTorAddress = ""
	cfg.CheckOnStart = false

	flags := cmd.Flags()
	var err error

	if flags.Changed("external-tor") {
		if cfg.ExternalTorAddress, err = flags.GetString("external-tor"); err != nil {
			return nil, err
		}
	}

	if flags.Changed("doh") {
		if cfg.UseDoH, err = flags.GetBool("doh"); err != nil {
			return nil, err
		}
	}

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}

	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}

	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	return cfg, nil
}

// buildReportWriter picks the report writer for the configured format and
// destination. The returned cleanup closes the output file, if any.
func buildReportWriter(cfg *config.Config, stdout io.Writer) (report.Writer, func(), error) {
	output := stdout
	cleanup := func() {}

	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		// Reports reveal the operator's public IP, so keep them
		// owner-readable only.
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create output file: %w", err)
		}
		output = f
		cleanup = func() { _ = f.Close() }
	}

	switch {
	case cfg.JSONReport:
		// The wrapped form stamps the program version so archived reports
		// stay attributable.
		return report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint()), cleanup, nil
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output), cleanup, nil
	default:
		return report.NewSimpleWriter(output), cleanup, nil
	}
}
