package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vekoo-go1/veko-dome-v1/internal/model"
)

// createTestStatus returns a status for a proxied, Tor-confirmed session.
func createTestStatus() *model.ConnectionStatus {
	status := &model.ConnectionStatus{
		CheckedAt:          time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
		PublicIP:           "203.0.113.7",
		ActiveEndpoint:     "socks5://10.0.0.2:1080",
		Profile:            "paranoid",
		PoolSize:           3,
		RotateIntervalSecs: 15,
		DoH:                true,
	}
	status.SetTorStatus(model.TorConfirmed)
	return status
}

// TestSimpleWriter tests the human-readable status writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes the full status block", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		_, err := w.Write(createTestStatus())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"--- Connection Status ---",
			"Public IP: 203.0.113.7",
			"Status: Connected via Tor",
			"Mode: Using proxy: socks5://10.0.0.2:1080 (Rotation: 15s)",
			"Profile: Paranoid",
			"Anonymity: 99% guaranteed",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("direct mode is honest about anonymity", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		status := &model.ConnectionStatus{
			PublicIP:   "198.51.100.4",
			DirectMode: true,
		}
		status.SetTorStatus(model.TorNotConfirmed)

		_, err := w.Write(status)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "Mode: Direct connection") {
			t.Error("expected direct connection mode line")
		}
		if !strings.Contains(output, "Status: Tor not confirmed") {
			t.Error("expected unconfirmed Tor status line")
		}
		if !strings.Contains(output, "Anonymity: not protected") {
			t.Error("expected honest anonymity line for direct traffic")
		}
		if strings.Contains(output, "99% guaranteed") {
			t.Error("did not expect the guarantee for a direct connection")
		}
	})

	t.Run("unknown IP renders the failure wording", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		status := &model.ConnectionStatus{PublicIP: model.UnknownIP}
		status.SetTorStatus(model.TorNotConfirmed)

		_, err := w.Write(status)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "Failed to determine IP") {
			t.Error("expected failure wording for unknown IP")
		}
		if strings.Contains(output, "Public IP:") {
			t.Error("did not expect a Public IP line for unknown IP")
		}
	})

	t.Run("verbose mode includes details", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithVerbose(true))

		_, err := w.Write(createTestStatus())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "Checked at: 2025-03-14 09:26:53 UTC") {
			t.Error("expected verbose output to contain the check timestamp")
		}
		if !strings.Contains(output, "Pool: 3 endpoint(s)") {
			t.Error("expected verbose output to contain the pool size")
		}
		if !strings.Contains(output, "DNS: over HTTPS") {
			t.Error("expected verbose output to mention DoH")
		}
	})

	t.Run("non-verbose mode omits details", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf)

		_, err := w.Write(createTestStatus())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if strings.Contains(buf.String(), "Checked at:") {
			t.Error("did not expect check timestamp without verbose")
		}
	})
}

// TestJSONWriter tests the JSON status writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("output round-trips", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)

		want := createTestStatus()
		n, err := w.Write(want)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("expected %d bytes reported, got %d", buf.Len(), n)
		}

		var got model.ConnectionStatus
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if got.PublicIP != want.PublicIP {
			t.Errorf("expected public IP %q, got %q", want.PublicIP, got.PublicIP)
		}
		if got.Tor != model.TorConfirmed {
			t.Errorf("expected confirmed Tor status, got %v", got.Tor)
		}
		if got.ActiveEndpoint != want.ActiveEndpoint {
			t.Errorf("expected endpoint %q, got %q", want.ActiveEndpoint, got.ActiveEndpoint)
		}
	})

	t.Run("compact by default", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf)

		if _, err := w.Write(createTestStatus()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Compact output is a single line plus the trailing newline
		output := strings.TrimSuffix(buf.String(), "\n")
		if strings.Contains(output, "\n") {
			t.Error("expected compact single-line output")
		}
	})

	t.Run("pretty print indents", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithPrettyPrint())

		if _, err := w.Write(createTestStatus()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(buf.String(), "\n  \"") {
			t.Error("expected indented output")
		}
	})

	t.Run("full writer wraps with version", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewFullJSONWriter(&buf, "0.1.0", WithPrettyPrint())

		if _, err := w.Write(createTestStatus()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var got JSONStatus
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if got.Version != "0.1.0" {
			t.Errorf("expected version '0.1.0', got %q", got.Version)
		}
		if got.Status == nil || got.Status.PublicIP != "203.0.113.7" {
			t.Errorf("expected wrapped status, got %+v", got.Status)
		}
	})
}

// TestMarkdownWriter tests the Markdown status writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header table and tip for confirmed Tor", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		_, err := w.Write(createTestStatus())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"# Veko Dome Connection Status",
			"`203.0.113.7`",
			"confirmed",
			"Using proxy: socks5://10.0.0.2:1080 (Rotation: 15s)",
			"Paranoid",
			"[!TIP]",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("caution for direct connection", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		status := &model.ConnectionStatus{
			PublicIP:   "198.51.100.4",
			DirectMode: true,
		}
		status.SetTorStatus(model.TorNotConfirmed)

		_, err := w.Write(status)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "[!CAUTION]") {
			t.Errorf("expected a caution alert, got:\n%s", output)
		}
		if !strings.Contains(output, "Direct connection") {
			t.Error("expected direct connection mode in the table")
		}
	})

	t.Run("warning when no identity established", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		status := &model.ConnectionStatus{PublicIP: model.UnknownIP}
		status.SetTorStatus(model.TorNotConfirmed)

		_, err := w.Write(status)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(buf.String(), "[!WARNING]") {
			t.Errorf("expected a warning alert, got:\n%s", buf.String())
		}
	})

	t.Run("important for unconfirmed proxied traffic", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMarkdownWriter(&buf)

		status := &model.ConnectionStatus{
			PublicIP:       "203.0.113.9",
			ActiveEndpoint: "socks5://10.0.0.3:1080",
		}
		status.SetTorStatus(model.TorNotConfirmed)

		_, err := w.Write(status)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(buf.String(), "[!IMPORTANT]") {
			t.Errorf("expected an important alert, got:\n%s", buf.String())
		}
	})
}

// errorWriter always fails, for MultiWriter error propagation tests.
type errorWriter struct{}

func (errorWriter) Write(_ *model.ConnectionStatus) (int, error) {
	return 0, errors.New("write failed")
}

// TestMultiWriter tests fan-out to multiple writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all destinations", func(t *testing.T) {
		t.Parallel()

		var buf1, buf2 bytes.Buffer
		w := NewMultiWriter(NewSimpleWriter(&buf1), NewJSONWriter(&buf2))

		n, err := w.Write(createTestStatus())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf1.Len()+buf2.Len() {
			t.Errorf("expected total %d bytes, got %d", buf1.Len()+buf2.Len(), n)
		}

		if !strings.Contains(buf1.String(), "--- Connection Status ---") {
			t.Error("expected simple output in first buffer")
		}
		if !strings.Contains(buf2.String(), `"public_ip"`) {
			t.Error("expected JSON output in second buffer")
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewMultiWriter(errorWriter{}, NewSimpleWriter(&buf))

		if _, err := w.Write(createTestStatus()); err == nil {
			t.Fatal("expected error from failing writer")
		}
		if buf.Len() != 0 {
			t.Error("expected no output after the failing writer")
		}
	})
}
