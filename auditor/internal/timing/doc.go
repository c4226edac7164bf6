// Package timing estimates network round-trip times from a network log.
//
// analyze.go derives an RTT estimate per origin. Fresh connections give the
// most direct signal: the TCP handshake (connect_start → ssl_start) and the
// TLS handshake (ssl_start → connect_end) each take one round trip, and a
// QUIC handshake (h3) takes one in total. Origins without any connection
// timing fall back to a coarse estimate: time to first byte divided by the
// number of round trips the request needed. An origin's RTT is its smallest
// estimate; the baseline RTT is the smallest over all origins and every
// origin's additional RTT is its excess over the baseline. Origins for which
// nothing could be estimated carry NaN. A synthetic SummaryKey entry
// aggregates all origins.
//
// provider.go memoizes analyses per (scope, log digest) in an ARC cache.
// Concurrent requests for the same key share one computation.
package timing
