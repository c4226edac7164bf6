// Package api implements the HTTP REST API of rtt-audit serve.
//
// New(runner, store) returns an http.Handler that serves:
//
//	POST /api/v1/audits[?locale=]  run an audit over the JSON network log in the body
//	GET  /api/v1/audits            recent reports, newest first
//	GET  /api/v1/audits/{id}       single report; 404 if unknown or expired
//	GET  /api/v1/meta[?locale=]    audit descriptor with localized strings
//	GET  /api/v1/health            liveness and stored report count
//
// All endpoints respond with Content-Type: application/json. A log that
// does not decode answers 400; a timing analysis failure answers 502.
package api
