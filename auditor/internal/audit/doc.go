// Package audit implements the network RTT audit.
//
// score.go provides the pure Compute(baseline, deltas) function. Each origin's
// RTT is the baseline RTT plus its additional delta; unmeasured and synthetic
// entries are skipped. Origins are ranked slowest first and the worst RTT is
// mapped onto a 0–1 score with a linear decay that reaches 0 at 150 ms.
//
// product.go turns a Result into the host-facing output (score, raw value,
// localized display value, two-column table). descriptor.go holds the static
// metadata the host reads at registration time.
package audit
