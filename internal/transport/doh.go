package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"
)

const (
	// defaultDoHEndpoint answers the dns-json wire format used by the
	// resolver. Cloudflare and Google both speak it; the endpoint is
	// configurable for operators who run their own.
	defaultDoHEndpoint = "https://cloudflare-dns.com/dns-query"

	// dohRequestTimeout bounds a single resolution query.
	dohRequestTimeout = 5 * time.Second

	// dohMaxBodySize caps how much of a resolver response is read. A
	// legitimate dns-json answer is a few hundred bytes.
	dohMaxBodySize = 64 * 1024

	// dnsTypeA is the record type requested and accepted in answers.
	dnsTypeA = 1

	// Cache TTL clamps. The floor absorbs zero-TTL answers so a rotation
	// burst cannot hammer the resolver; the ceiling keeps entries from
	// outliving the session's idea of the network.
	minCacheTTL = 30 * time.Second
	maxCacheTTL = 5 * time.Minute
)

// Resolver resolves hostnames over DNS-over-HTTPS using the dns-json format
// and dials the answers. It exists so that, in proxyless sessions, hostname
// lookups do not leak the operator's target list to the local resolver.
//
// Design decision: resolution failures never fail the request. DialContext
// falls back to the system resolver, because a session with degraded DNS
// privacy beats a session that cannot move traffic at all.
type Resolver struct {
	endpoint string
	client   *http.Client

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	ips       []string
	expiresAt time.Time
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithEndpoint sets the dns-json query endpoint.
func WithEndpoint(endpoint string) ResolverOption {
	return func(r *Resolver) {
		r.endpoint = endpoint
	}
}

// WithHTTPClient sets the client used for resolution queries. The default
// client uses the system resolver to reach the DoH endpoint itself, which
// is unavoidable bootstrap.
func WithHTTPClient(client *http.Client) ResolverOption {
	return func(r *Resolver) {
		r.client = client
	}
}

// NewResolver creates a DNS-over-HTTPS resolver.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		endpoint: defaultDoHEndpoint,
		client:   &http.Client{Timeout: dohRequestTimeout},
		cache:    make(map[string]cacheEntry),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// dohResponse is the dns-json answer envelope. Only the fields the resolver
// inspects are mapped.
type dohResponse struct {
	Status int         `json:"Status"`
	Answer []dohAnswer `json:"Answer"`
}

type dohAnswer struct {
	Name string `json:"name"`
	Type int    `json:"type"`
	TTL  int    `json:"TTL"`
	Data string `json:"data"`
}

// LookupHost resolves host to its A records via the configured endpoint.
// Answers are cached for their advertised TTL, clamped to sane bounds.
func (r *Resolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	r.mu.Lock()
	if entry, ok := r.cache[host]; ok && time.Now().Before(entry.expiresAt) {
		ips := entry.ips
		r.mu.Unlock()
		return ips, nil
	}
	r.mu.Unlock()

	reqURL := fmt.Sprintf("%s?name=%s&type=A", r.endpoint, host)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build DoH query: %w", err)
	}
	req.Header.Set("Accept", "application/dns-json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("DoH query failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("DoH endpoint returned status %d", resp.StatusCode)
	}

	var decoded dohResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, dohMaxBodySize)).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode DoH response: %w", err)
	}
	// Status 0 is NOERROR in DNS terms.
	if decoded.Status != 0 {
		return nil, fmt.Errorf("DoH query for %q failed with DNS status %d", host, decoded.Status)
	}

	var ips []string
	ttl := maxCacheTTL
	for _, ans := range decoded.Answer {
		if ans.Type != dnsTypeA {
			// CNAME chains and other record types ride along in answers;
			// only address records are dialable.
			continue
		}
		if net.ParseIP(ans.Data) == nil {
			continue
		}
		ips = append(ips, ans.Data)
		if d := time.Duration(ans.TTL) * time.Second; d < ttl {
			ttl = d
		}
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("%w: host %q", ErrNoDNSAnswers, host)
	}
	if ttl < minCacheTTL {
		ttl = minCacheTTL
	}

	r.mu.Lock()
	r.cache[host] = cacheEntry{ips: ips, expiresAt: time.Now().Add(ttl)}
	r.mu.Unlock()

	return ips, nil
}

// DialContext resolves the address host over DNS-over-HTTPS and dials the
// first answering IP. IP literals are dialed directly. Resolution failures
// fall back to the system resolver.
func (r *Resolver) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, fmt.Errorf("invalid dial address %q: %w", address, err)
	}

	d := &net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: 30 * time.Second,
	}

	if net.ParseIP(host) != nil {
		return d.DialContext(ctx, network, address)
	}

	ips, err := r.LookupHost(ctx, host)
	if err != nil {
		// Fall back to the system resolver rather than failing the request.
		return d.DialContext(ctx, network, address)
	}

	var lastErr error
	for _, ip := range ips {
		conn, dialErr := d.DialContext(ctx, network, net.JoinHostPort(ip, port))
		if dialErr == nil {
			return conn, nil
		}
		lastErr = dialErr
	}
	return nil, fmt.Errorf("dial %s: %w", address, lastErr)
}
