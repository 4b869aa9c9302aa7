package report

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/vekoo-go1/veko-dome-v1/internal/model"
)

// statusRuleWidth is the width of the separator framing the status block.
// It matches the header line so the block reads as a card in the terminal.
const statusRuleWidth = 25

// titleCaser renders profile names for display ("paranoid" becomes
// "Paranoid").
var titleCaser = cases.Title(language.English)

// SimpleWriter outputs the human-readable connection status block.
// This format is designed for terminal display after an identity check.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
//  1. It works in all terminals without compatibility issues
//  2. It's easier to pipe to files or other tools
//  3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the connection status in human-readable format.
func (w *SimpleWriter) Write(status *model.ConnectionStatus) (int, error) {
	var sb strings.Builder

	sb.WriteString("\n--- Connection Status ---\n")
	sb.WriteString(ipLine(status))
	sb.WriteString("\n")
	sb.WriteString("Status: ")
	sb.WriteString(torLine(status))
	sb.WriteString("\n")
	sb.WriteString("Mode: ")
	sb.WriteString(modeLine(status))
	sb.WriteString("\n")

	if status.Profile != "" {
		sb.WriteString(fmt.Sprintf("Profile: %s\n", titleCaser.String(status.Profile)))
	}

	if w.verbose {
		w.writeDetails(&sb, status)
	}

	sb.WriteString(anonymityLine(status))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", statusRuleWidth))
	sb.WriteString("\n\n")

	return w.output.Write([]byte(sb.String()))
}

// writeDetails writes the verbose-only lines.
func (w *SimpleWriter) writeDetails(sb *strings.Builder, status *model.ConnectionStatus) {
	if !status.CheckedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Checked at: %s\n", status.CheckedAt.Format("2006-01-02 15:04:05 MST")))
	}
	if status.PoolSize > 0 {
		sb.WriteString(fmt.Sprintf("Pool: %d endpoint(s)\n", status.PoolSize))
	}
	if status.DoH {
		sb.WriteString("DNS: over HTTPS\n")
	}
}

// ipLine renders the public IP, or the explicit failure wording when no
// echo service answered.
func ipLine(status *model.ConnectionStatus) string {
	if status.PublicIP == "" || status.PublicIP == model.UnknownIP {
		return "Failed to determine IP"
	}
	return "Public IP: " + status.PublicIP
}

// torLine renders the Tor verification result.
func torLine(status *model.ConnectionStatus) string {
	if status.Tor == model.TorConfirmed {
		return "Connected via Tor"
	}
	return "Tor not confirmed"
}

// modeLine renders the routing mode (active proxy or direct connection).
func modeLine(status *model.ConnectionStatus) string {
	if status.ActiveEndpoint == "" {
		return "Direct connection"
	}
	return fmt.Sprintf("Using proxy: %s (Rotation: %ds)", status.ActiveEndpoint, status.RotateIntervalSecs)
}

// anonymityLine keeps the tongue-in-cheek guarantee for indirect traffic
// and an honest answer for direct traffic.
func anonymityLine(status *model.ConnectionStatus) string {
	if status.Anonymous() {
		return "Anonymity: 99% guaranteed"
	}
	return "Anonymity: not protected"
}
