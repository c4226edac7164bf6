// Package runner executes one network RTT audit end to end: it obtains the
// timing model for a log, scores it, renders the localized report and
// records the outcome in the metrics registry and report store.
package runner
