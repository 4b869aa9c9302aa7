package profile

import (
	"math/rand/v2"
	"net/http"
	"strings"
)

// Built-in profile names, ordered from least to most restrictive.
const (
	// Standard keeps requests close to Go's defaults with a browser user
	// agent. Suitable when the proxy chain itself is the only disguise.
	Standard = "standard"

	// Stealth adds the common privacy headers browsers send by default.
	Stealth = "stealth"

	// Paranoid mimics a full browser header set, including cache busting
	// and a plausible referer, so requests blend into commodity traffic.
	Paranoid = "paranoid"
)

// Profile is a named outbound traffic disguise: a header table injected into
// every request and a pool of browser user agents to choose from.
type Profile struct {
	// Name is the profile identifier as given on the command line.
	Name string

	// Headers are set on every outbound request.
	Headers map[string]string

	// UserAgents is the pool a client-level user agent is drawn from.
	UserAgents []string
}

// desktopUserAgents are current mainstream browsers on desktop platforms.
var desktopUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_3) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:122.0) Gecko/20100101 Firefox/122.0",
}

// mobileUserAgent widens the paranoid pool so repeated sessions do not all
// look like desktops.
const mobileUserAgent = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1"

// newStandard builds the standard profile.
func newStandard() *Profile {
	return &Profile{
		Name: Standard,
		Headers: map[string]string{
			"Accept-Language": "en-US,en;q=0.9",
		},
		UserAgents: append([]string(nil), desktopUserAgents...),
	}
}

// newStealth builds the stealth profile.
func newStealth() *Profile {
	return &Profile{
		Name: Stealth,
		Headers: map[string]string{
			"Accept-Language":           "en-US,en;q=0.9",
			"DNT":                       "1",
			"Upgrade-Insecure-Requests": "1",
		},
		UserAgents: append([]string(nil), desktopUserAgents...),
	}
}

// newParanoid builds the paranoid profile. The header table matches what a
// privacy-hardened browser emits on a cold navigation: cache busting keeps
// intermediaries from replaying identifiable responses, and the referer
// makes the request look like an organic search click-through.
func newParanoid() *Profile {
	return &Profile{
		Name: Paranoid,
		Headers: map[string]string{
			"Accept-Language":           "en-US,en;q=0.9",
			"Referer":                   "https://www.google.com/",
			"DNT":                       "1",
			"Upgrade-Insecure-Requests": "1",
			"Cache-Control":             "no-cache",
			"Pragma":                    "no-cache",
		},
		UserAgents: append(append([]string(nil), desktopUserAgents...), mobileUserAgent),
	}
}

// Parse returns a fresh Profile for the given name.
// Names are case-insensitive. Unknown names return ErrUnknownProfile.
//
// Each call returns an independent copy so callers can adjust the header
// table without affecting other sessions.
func Parse(name string) (*Profile, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case Standard:
		return newStandard(), nil
	case Stealth:
		return newStealth(), nil
	case Paranoid:
		return newParanoid(), nil
	default:
		return nil, ErrUnknownProfile
	}
}

// Names returns the built-in profile names for help text and validation
// messages.
func Names() []string {
	return []string{Standard, Stealth, Paranoid}
}

// RandomUserAgent picks one user agent from the pool.
// The transport layer calls this once per client so a session keeps a
// stable user agent for its lifetime.
func (p *Profile) RandomUserAgent() string {
	if len(p.UserAgents) == 0 {
		return ""
	}
	return p.UserAgents[rand.IntN(len(p.UserAgents))]
}

// ApplyTo sets the profile's headers on h, leaving unrelated headers alone.
func (p *Profile) ApplyTo(h http.Header) {
	for k, v := range p.Headers {
		h.Set(k, v)
	}
}
