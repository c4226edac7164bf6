// Package auth provides API key middleware for the rtt-audit HTTP API.
//
// When mode != "apikey", all requests pass through (useful for local
// development with auth disabled). When the key is incorrect or absent, or
// no key is configured, the middleware answers 401 without calling the
// wrapped handler.
package auth
