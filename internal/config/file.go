package config

import "time"

// File represents the structure of the .vekodome configuration file.
// Every field is optional; absent fields leave the built-in defaults
// untouched, and any value set here is in turn overridden by an explicit
// CLI flag.
//
// Design decision: Booleans and integers are pointers so that "not set"
// and "set to the zero value" stay distinguishable. Without this, a file
// containing "tor: false" could not be told apart from a file that never
// mentions tor, and the merge order (defaults, file, flags) would break.
type File struct {
	// Profile is the security profile name (standard, stealth, paranoid).
	Profile string `yaml:"profile,omitempty"`

	// Proxies is the path to the proxy list file.
	Proxies string `yaml:"proxies,omitempty"`

	// Tor spawns and supervises the system tor binary.
	Tor *bool `yaml:"tor,omitempty"`

	// EmbeddedTor launches a tornago-managed Tor daemon.
	EmbeddedTor *bool `yaml:"embeddedTor,omitempty"`

	// ExternalTor is the "host:port" of an already-running SOCKS proxy.
	ExternalTor string `yaml:"externalTor,omitempty"`

	// DoH resolves hostnames over DNS-over-HTTPS.
	DoH *bool `yaml:"doh,omitempty"`

	// Check performs an identity check right after session startup.
	Check *bool `yaml:"check,omitempty"`

	// Rotate is the rotation interval in seconds.
	Rotate *int `yaml:"rotate,omitempty"`

	// NoLog suppresses log output.
	NoLog *bool `yaml:"noLog,omitempty"`

	// History toggles recording to the session history database.
	History *bool `yaml:"history,omitempty"`
}

// Apply copies the file's set fields onto the config.
// Unset fields leave the config untouched.
func (f *File) Apply(c *Config) {
	if f == nil {
		return
	}
	if f.Profile != "" {
		c.Profile = f.Profile
	}
	if f.Proxies != "" {
		c.ProxyFile = f.Proxies
		c.ProxyFileExplicit = true
	}
	if f.Tor != nil {
		c.UseTor = *f.Tor
	}
	if f.EmbeddedTor != nil {
		c.UseEmbeddedTor = *f.EmbeddedTor
	}
	if f.ExternalTor != "" {
		c.ExternalTorAddress = f.ExternalTor
	}
	if f.DoH != nil {
		c.UseDoH = *f.DoH
	}
	if f.Check != nil {
		c.CheckOnStart = *f.Check
	}
	if f.Rotate != nil {
		c.RotateInterval = time.Duration(*f.Rotate) * time.Second
	}
	if f.NoLog != nil {
		c.NoLog = *f.NoLog
	}
	if f.History != nil {
		c.SaveHistory = *f.History
	}
}
