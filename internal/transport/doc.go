// Package transport assembles the HTTP client that carries session traffic.
//
// The client is composed from up to four layers. The proxy function reads
// the rotator's current endpoint at request time, so every request sees the
// most recent rotation without rebuilding the client. The dial layer routes
// connections through a Tor relay when one is active, otherwise through a
// DNS-over-HTTPS resolver when enabled, otherwise straight to the network.
// A round tripper injects the security profile's headers and user agent into
// every outgoing request, redirects included. Timeouts and the redirect cap
// bound each call.
//
// Design decision: There is no cookie jar. A client whose identity rotates
// must not carry tracking state from one endpoint to the next.
package transport
