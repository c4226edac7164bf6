// Package netlog models the network activity log captured during a page load.
//
// A Log is a list of Records, one per network request, each with optional
// DevTools-style resource timing (millisecond offsets from request_time,
// -1 when a phase did not happen). Record.Origin derives the
// scheme://host[:port] key the timing analysis groups by.
//
// Parse decodes the JSON form. Loader.Load reads a log from a file path or
// fetches it from an http(s) URL, authenticating with the configured mode
// (apikey, bearer, basic, mtls) through a shared round tripper.
//
// Log.Digest returns a stable xxhash of the log's contents; the timing
// provider uses it as the memoization key.
package netlog
