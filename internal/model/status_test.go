package model

import (
	"testing"
	"time"
)

// TestTorStatus_String tests the string representation of Tor statuses.
func TestTorStatus_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status TorStatus
		want   string
	}{
		{
			name:   "confirmed",
			status: TorConfirmed,
			want:   "confirmed",
		},
		{
			name:   "not confirmed",
			status: TorNotConfirmed,
			want:   "not confirmed",
		},
		{
			name:   "out of range value renders as not confirmed",
			status: TorStatus(42),
			want:   "not confirmed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.status.String(); got != tt.want {
				t.Errorf("TorStatus.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestConnectionStatus_SetTorStatus tests that the text field stays in sync.
func TestConnectionStatus_SetTorStatus(t *testing.T) {
	t.Parallel()

	status := &ConnectionStatus{CheckedAt: time.Now()}

	status.SetTorStatus(TorConfirmed)
	if status.Tor != TorConfirmed || status.TorText != "confirmed" {
		t.Errorf("SetTorStatus(TorConfirmed) = (%v, %q), want (TorConfirmed, \"confirmed\")", status.Tor, status.TorText)
	}

	status.SetTorStatus(TorNotConfirmed)
	if status.Tor != TorNotConfirmed || status.TorText != "not confirmed" {
		t.Errorf("SetTorStatus(TorNotConfirmed) = (%v, %q), want (TorNotConfirmed, \"not confirmed\")", status.Tor, status.TorText)
	}
}

// TestConnectionStatus_Anonymous tests the anonymity summary logic.
func TestConnectionStatus_Anonymous(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status ConnectionStatus
		want   bool
	}{
		{
			name:   "tor confirmed",
			status: ConnectionStatus{Tor: TorConfirmed},
			want:   true,
		},
		{
			name:   "proxy active without tor",
			status: ConnectionStatus{Tor: TorNotConfirmed, ActiveEndpoint: "http://192.0.2.1:8080"},
			want:   true,
		},
		{
			name:   "direct session",
			status: ConnectionStatus{Tor: TorNotConfirmed, DirectMode: true},
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.status.Anonymous(); got != tt.want {
				t.Errorf("Anonymous() = %v, want %v", got, tt.want)
			}
		})
	}
}
