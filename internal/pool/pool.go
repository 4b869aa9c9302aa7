package pool

import (
	"bufio"
	"bytes"
	_ "embed"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"golang.org/x/crypto/sha3"
)

// defaultProxies is the embedded fallback list used when no proxy file
// exists at the default path. It ships with every entry commented out, so
// a fresh install runs in direct mode instead of pushing traffic through
// endpoints the operator never chose.
//
//go:embed default_proxies.txt
var defaultProxies []byte

// fingerprintLen is the number of hex characters kept from the pool hash.
// 16 characters (64 bits) is plenty to tell list revisions apart in the
// history database while staying readable in terminal output.
const fingerprintLen = 16

// Endpoint is a single proxy endpoint, normalized to a URL with an explicit
// scheme. Bare "host:port" entries from the proxy file become "http://host:port".
type Endpoint string

// String returns the endpoint in URL form.
func (e Endpoint) String() string { return string(e) }

// URL parses the endpoint. Endpoints built by Parse always round-trip.
func (e Endpoint) URL() (*url.URL, error) {
	return url.Parse(string(e))
}

// allowedSchemes are the proxy schemes net/http can dial directly.
var allowedSchemes = map[string]bool{
	"http":    true,
	"https":   true,
	"socks5":  true,
	"socks5h": true,
}

// normalizeEndpoint validates one proxy list entry and normalizes it to
// URL form. The entry must already be trimmed and non-empty.
func normalizeEndpoint(entry string) (Endpoint, error) {
	raw := entry
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidEndpoint, entry, err)
	}
	if !allowedSchemes[u.Scheme] {
		return "", fmt.Errorf("%w: %q: unsupported scheme %q", ErrInvalidEndpoint, entry, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: %q: missing host", ErrInvalidEndpoint, entry)
	}
	if u.Port() == "" {
		return "", fmt.Errorf("%w: %q: missing port", ErrInvalidEndpoint, entry)
	}

	return Endpoint(u.String()), nil
}

// Pool is an immutable, ordered list of proxy endpoints.
// Order matters: rotation walks the list circularly, so two pools with the
// same endpoints in different orders are different pools.
type Pool struct {
	endpoints []Endpoint
}

// NewPool builds a pool from already-normalized endpoints.
// The slice is copied; the caller keeps ownership of its argument.
func NewPool(endpoints []Endpoint) *Pool {
	return &Pool{endpoints: append([]Endpoint(nil), endpoints...)}
}

// Parse reads a proxy list: one endpoint per line, surrounding whitespace
// trimmed, blank lines and '#' comments skipped. Any malformed entry fails
// the whole parse; a half-loaded pool would rotate through a different
// sequence than the operator wrote down.
func Parse(r io.Reader) (*Pool, error) {
	var endpoints []Endpoint

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		ep, err := normalizeEndpoint(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		endpoints = append(endpoints, ep)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read proxy list: %w", err)
	}

	return &Pool{endpoints: endpoints}, nil
}

// LoadFile parses the proxy list at path.
func LoadFile(path string) (*Pool, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided proxy list path is intentional
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Default returns the pool parsed from the embedded default list.
func Default() (*Pool, error) {
	return Parse(bytes.NewReader(defaultProxies))
}

// Load resolves the proxy pool for a session. The file at path wins when it
// exists. A missing file falls back to the embedded default list, unless the
// operator explicitly named the path, in which case any read failure is an
// error the session must treat as fatal.
func Load(path string, explicit bool) (*Pool, error) {
	p, err := LoadFile(path)
	if err == nil {
		return p, nil
	}
	if os.IsNotExist(err) && !explicit {
		return Default()
	}
	return nil, fmt.Errorf("load proxy list: %w", err)
}

// Len returns the number of endpoints in the pool.
func (p *Pool) Len() int { return len(p.endpoints) }

// Empty reports whether the pool has no endpoints.
// The session layer interprets an empty pool as direct mode.
func (p *Pool) Empty() bool { return len(p.endpoints) == 0 }

// At returns the endpoint at index i.
func (p *Pool) At(i int) Endpoint { return p.endpoints[i] }

// Endpoints returns a copy of the endpoint list.
func (p *Pool) Endpoints() []Endpoint {
	return append([]Endpoint(nil), p.endpoints...)
}

// Fingerprint returns a short stable identifier for this exact endpoint
// sequence: the first 16 hex characters of the SHA3-256 hash over the
// newline-joined list. Sessions record it so history queries can tell
// which revision of the proxy list a session ran with. Empty pools have
// no fingerprint.
func (p *Pool) Fingerprint() string {
	if p.Empty() {
		return ""
	}

	h := sha3.New256()
	for i, ep := range p.endpoints {
		if i > 0 {
			h.Write([]byte{'\n'})
		}
		h.Write([]byte(ep))
	}
	return hex.EncodeToString(h.Sum(nil))[:fingerprintLen]
}
