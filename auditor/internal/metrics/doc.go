// Package metrics instruments audit runs with Prometheus.
//
// A Recorder owns its own registry so several can coexist in tests. It
// exposes the registry over HTTP (Handler) and can also render the audit
// metrics to a file in the node_exporter textfile collector format
// (WriteTextfile), for hosts that run audits from cron rather than as a
// long-lived server.
package metrics
