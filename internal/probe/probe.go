package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vekoo-go1/veko-dome-v1/internal/model"
)

// defaultIPEchoURLs are tried in order until one answers. The list is
// deliberately redundant: echo services rate-limit and go down, and a
// session must not lose identity visibility because one endpoint did.
var defaultIPEchoURLs = []string{
	"https://api.ipify.org",
	"https://icanhazip.com",
	"https://ifconfig.me/ip",
}

const (
	// defaultTorCheckURL reports whether the caller's traffic exits through
	// a known Tor relay.
	defaultTorCheckURL = "https://check.torproject.org/api/ip"

	// defaultMaxBodySize limits how much of an echo response is read.
	// A legitimate answer is one IP address; anything bigger is not one.
	defaultMaxBodySize = 64 * 1024
)

// Probe performs identity checks through an injected HTTP client.
//
// Design decision: We require an external http.Client rather than creating
// one internally because:
//  1. The whole point is to observe the session's egress path, so the
//     checks must use the session's transport
//  2. Tests can point the probe at httptest servers
//  3. Connection pooling is shared with session traffic
type Probe struct {
	// client is the HTTP client carrying session traffic.
	client *http.Client

	// ipEchoURLs are the candidate public IP echo endpoints, tried in order.
	ipEchoURLs []string

	// torCheckURL answers whether traffic exits through Tor.
	torCheckURL string

	// maxBodySize limits response body reads.
	maxBodySize int64
}

// Option configures a Probe.
type Option func(*Probe)

// WithIPEchoURLs replaces the candidate IP echo endpoints.
func WithIPEchoURLs(urls ...string) Option {
	return func(p *Probe) {
		p.ipEchoURLs = urls
	}
}

// WithTorCheckURL replaces the Tor confirmation endpoint.
func WithTorCheckURL(url string) Option {
	return func(p *Probe) {
		p.torCheckURL = url
	}
}

// WithMaxBodySize sets the maximum response body size read from the
// endpoints.
func WithMaxBodySize(size int64) Option {
	return func(p *Probe) {
		p.maxBodySize = size
	}
}

// New creates a probe that checks identity through the given client.
func New(client *http.Client, opts ...Option) *Probe {
	p := &Probe{
		client:      client,
		ipEchoURLs:  defaultIPEchoURLs,
		torCheckURL: defaultTorCheckURL,
		maxBodySize: defaultMaxBodySize,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// PublicIP returns the externally visible IP address as reported by the
// first echo endpoint that answers. It returns model.UnknownIP when every
// candidate fails; it never returns an error.
func (p *Probe) PublicIP(ctx context.Context) string {
	for _, echoURL := range p.ipEchoURLs {
		ip, err := p.fetchIP(ctx, echoURL)
		if err != nil {
			continue
		}
		return ip
	}
	return model.UnknownIP
}

// fetchIP asks one echo endpoint and returns the trimmed body.
func (p *Probe) fetchIP(ctx context.Context, echoURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, echoURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("echo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("echo endpoint returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBodySize))
	if err != nil {
		return "", fmt.Errorf("failed to read echo response: %w", err)
	}

	ip := strings.TrimSpace(string(body))
	if ip == "" {
		return "", fmt.Errorf("echo endpoint %q returned an empty body", echoURL)
	}
	return ip, nil
}

// torCheckResponse is the Tor Project check API envelope. Only the
// confirmation flag is inspected.
type torCheckResponse struct {
	IsTor bool `json:"IsTor"`
}

// TorStatus reports whether traffic exits through a known Tor relay.
// Any failure along the way yields TorNotConfirmed; it never returns an
// error. "Not confirmed" is deliberately weaker than "not Tor": an
// unreachable check endpoint proves nothing either way.
func (p *Probe) TorStatus(ctx context.Context) model.TorStatus {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.torCheckURL, nil)
	if err != nil {
		return model.TorNotConfirmed
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return model.TorNotConfirmed
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.TorNotConfirmed
	}

	var decoded torCheckResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, p.maxBodySize)).Decode(&decoded); err != nil {
		return model.TorNotConfirmed
	}
	if decoded.IsTor {
		return model.TorConfirmed
	}
	return model.TorNotConfirmed
}

// Snapshot runs the IP echo and the Tor confirmation concurrently and
// returns a status stamped with the check time. The caller decorates the
// session-side fields (active endpoint, profile, pool size).
func (p *Probe) Snapshot(ctx context.Context) *model.ConnectionStatus {
	status := &model.ConnectionStatus{
		CheckedAt: time.Now().UTC(),
	}

	// The two checks write disjoint fields, so no lock is needed; Wait is
	// the synchronization point.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		status.PublicIP = p.PublicIP(gctx)
		return nil
	})
	g.Go(func() error {
		status.SetTorStatus(p.TorStatus(gctx))
		return nil
	})
	_ = g.Wait() //nolint:errcheck // the checks degrade instead of erroring

	return status
}
