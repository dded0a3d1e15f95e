// Package http provides the HTTP client adapter used by the scenario
// runner. The client is bound to a base URL and a set of default headers
// and normalizes every response into an Envelope. Non-2xx responses are
// valid envelopes; the client only returns an error for transport-level
// failures (DNS, refused connections, timeouts).
package http
