// Package main provides the entry point for the Veko Dome CLI.
//
// Veko Dome is a traffic-anonymization session manager. It routes outbound
// HTTP traffic through a rotating set of proxy endpoints, optionally chained
// through a supervised Tor process, and reports the externally-observed
// identity (public IP, Tor-exit status) back to the operator.
//
// Usage:
//
//	vekodome start --tor --check
//	vekodome status
//
// See --help for all available options.
package main

// main is the entry point for Veko Dome.
func main() {
	Execute()
}
