package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vekoo-go1/veko-dome-v1/internal/config"
	"github.com/vekoo-go1/veko-dome-v1/internal/history"
)

// timestampFormat is how session and check times render in text output.
const timestampFormat = "2006-01-02 15:04:05"

// NewHistoryCmd creates the history command.
// This command lists recorded sessions and their rotation / identity-check
// trails from the history database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded sessions and their rotation trails",
		Long: `History lists past anonymization sessions from the local database.

Each session row shows when it ran, its security profile and Tor mode, and
the proxy pool it rotated through. Use --session to see one session's full
trail: every rotation and every identity check it performed.

One-shot checks made with 'vekodome status' are recorded too; list them
with --checks.

Examples:
  # List the most recent sessions
  vekodome history

  # List the last 50 sessions
  vekodome history --limit 50

  # Show the full trail of session 3
  vekodome history --session 3

  # List one-shot identity checks
  vekodome history --checks

  # Machine-readable output
  vekodome history --json`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", history.DefaultListLimit,
		"Maximum number of rows to list")
	cmd.Flags().Int64P("session", "s", 0,
		"Show the full trail of the session with this ID")
	cmd.Flags().BoolP("checks", "C", false,
		"List one-shot identity checks instead of sessions")

	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	sessionID, err := cmd.Flags().GetInt64("session")
	if err != nil {
		return err
	}
	listChecks, err := cmd.Flags().GetBool("checks")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	// The store must already exist: listing history is read-only and
	// should not leave an empty database behind.
	opts := history.DefaultOptions()
	opts.CreateIfNotExists = false

	store, err := history.Open(config.XDGDataDir(), opts)
	if err != nil {
		return fmt.Errorf("no session history found (run 'vekodome start' first): %w", err)
	}
	defer store.Close()

	ctx := cmd.Context()

	switch {
	case sessionID > 0:
		return showSessionDetail(ctx, store, sessionID, jsonOutput)
	case listChecks:
		return listStandaloneChecks(ctx, store, limit, jsonOutput)
	default:
		return listSessions(ctx, store, limit, jsonOutput)
	}
}

// listSessions prints the most recent sessions, newest first.
func listSessions(ctx context.Context, store *history.Store, limit int, jsonOutput bool) error {
	sessions, err := store.ListSessions(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if jsonOutput {
		return outputJSON(sessions)
	}

	if len(sessions) == 0 {
		fmt.Println("No recorded sessions.")
		fmt.Println("\nUse 'vekodome start' to begin a session.")
		return nil
	}

	fmt.Printf("Recorded sessions (%d):\n\n", len(sessions))
	fmt.Printf("  %-4s  %-19s  %-19s  %-9s  %-8s  %-5s  %s\n",
		"ID", "Started", "Ended", "Profile", "Tor", "Pool", "Rotate")
	fmt.Println("  " + strings.Repeat("-", 78))

	for _, s := range sessions {
		fmt.Printf("  %-4d  %-19s  %-19s  %-9s  %-8s  %-5d  %ds\n",
			s.ID,
			s.StartedAt.Format(timestampFormat),
			formatEndedAt(s.EndedAt),
			s.Profile,
			s.TorMode,
			s.PoolSize,
			s.RotateIntervalSecs,
		)
	}

	fmt.Println("\nUse 'vekodome history --session <id>' to see a session's full trail.")
	return nil
}

// showSessionDetail prints one session together with its rotations and
// identity checks.
func showSessionDetail(ctx context.Context, store *history.Store, id int64, jsonOutput bool) error {
	detail, err := store.SessionDetail(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load session %d: %w", id, err)
	}

	if jsonOutput {
		return outputJSON(detail)
	}

	s := detail.Session
	fmt.Printf("Session %d\n", s.ID)
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("\nStarted:  %s\n", s.StartedAt.Format(timestampFormat))
	fmt.Printf("Ended:    %s\n", formatEndedAt(s.EndedAt))
	fmt.Printf("Profile:  %s\n", s.Profile)
	fmt.Printf("Tor mode: %s\n", s.TorMode)
	fmt.Printf("DoH:      %t\n", s.DoH)
	if s.PoolSize > 0 {
		fmt.Printf("Pool:     %d endpoints (rev %s), rotating every %ds\n",
			s.PoolSize, s.PoolFingerprint, s.RotateIntervalSecs)
	} else {
		fmt.Printf("Pool:     none (direct mode)\n")
	}

	if len(detail.Rotations) > 0 {
		fmt.Printf("\nRotations (%d):\n", len(detail.Rotations))
		for _, r := range detail.Rotations {
			fmt.Printf("  #%-4d  %-19s  %s\n",
				r.Seq, r.RotatedAt.Format(timestampFormat), r.Endpoint)
		}
	}

	if len(detail.Checks) > 0 {
		fmt.Printf("\nIdentity checks (%d):\n", len(detail.Checks))
		for _, c := range detail.Checks {
			fmt.Printf("  %-19s  ip=%-15s  tor=%-13s  %s\n",
				c.CheckedAt.Format(timestampFormat), c.PublicIP, c.TorStatus, c.ActiveEndpoint)
		}
	}

	return nil
}

// listStandaloneChecks prints one-shot identity checks, newest first.
func listStandaloneChecks(ctx context.Context, store *history.Store, limit int, jsonOutput bool) error {
	checks, err := store.ListStandaloneChecks(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list identity checks: %w", err)
	}

	if jsonOutput {
		return outputJSON(checks)
	}

	if len(checks) == 0 {
		fmt.Println("No recorded identity checks.")
		fmt.Println("\nUse 'vekodome status' to perform one.")
		return nil
	}

	fmt.Printf("One-shot identity checks (%d):\n\n", len(checks))
	fmt.Printf("  %-4s  %-19s  %-15s  %s\n", "ID", "Checked", "Public IP", "Tor")
	fmt.Println("  " + strings.Repeat("-", 56))

	for _, c := range checks {
		fmt.Printf("  %-4d  %-19s  %-15s  %s\n",
			c.ID, c.CheckedAt.Format(timestampFormat), c.PublicIP, c.TorStatus)
	}

	return nil
}

// formatEndedAt renders a session end time, which is zero while a session
// is still open (or was killed before it could stamp its end).
func formatEndedAt(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(timestampFormat)
}

// outputJSON writes any listing as indented JSON on stdout.
func outputJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
