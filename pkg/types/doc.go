// Package types defines shared Go types used by the auditor packages.
//
// delta.go holds the scorer's input model: an OriginDelta names one origin
// and its additional RTT, which is either measured or explicitly unmeasured.
// Bookkeeping entries injected by the timing provider are tagged Synthetic
// so consumers filter on the tag rather than on key spelling.
//
// report.go holds the JSON wire types returned by the REST API and the CLI:
// Report, TableDetails and Heading.
package types
