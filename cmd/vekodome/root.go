// Package main provides the entry point for the Veko Dome CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for Veko Dome.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vekodome",
		Short: "Traffic-anonymization session manager with rotating proxies",
		Long: `Veko Dome routes outbound HTTP traffic through a rotating set of proxy
endpoints, optionally chained through a supervised Tor process, and reports
the externally-observed identity (public IP, Tor-exit status) back to you.

A session swaps the active proxy on a timer, keeps a trail of rotations and
identity checks, and tears the Tor process down deterministically when you
interrupt it (Ctrl+C).`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("config", "",
		"Configuration file path (default: .vekodome in current or home directory)")

	// Add subcommands
	cmd.AddCommand(NewStartCmd())
	cmd.AddCommand(NewStatusCmd())
	cmd.AddCommand(NewRotateCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
