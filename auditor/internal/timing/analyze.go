package timing

import (
	"errors"
	"math"
	"sort"

	"github.com/obsidianstack/rttaudit/auditor/internal/netlog"
	"github.com/obsidianstack/rttaudit/pkg/types"
)

// SummaryKey is the synthetic entry aggregating every origin.
const SummaryKey = "__SUMMARY__"

// ErrNoEstimates is returned when no origin in the log yields an RTT
// estimate, so no baseline exists.
var ErrNoEstimates = errors.New("timing: no RTT estimate for any origin")

// Analysis is the timing model of one network log. It is shared between
// callers and must be treated as read-only.
type Analysis struct {
	// RTT is the baseline round-trip time in ms.
	RTT float64

	// AdditionalRTTByOrigin maps origin to its RTT minus the baseline.
	// NaN marks origins that could not be estimated. SummaryKey is present.
	AdditionalRTTByOrigin map[string]float64

	// ServerResponseTimeByOrigin is the smallest time to first byte minus the
	// origin RTT, in ms. NaN when the origin RTT is unknown.
	ServerResponseTimeByOrigin map[string]float64
}

// Deltas returns the additional RTTs as tagged entries ordered by origin.
// SummaryKey is marked synthetic and NaN values unmeasured.
func (a *Analysis) Deltas() []types.OriginDelta {
	origins := make([]string, 0, len(a.AdditionalRTTByOrigin))
	for o := range a.AdditionalRTTByOrigin {
		origins = append(origins, o)
	}
	sort.Strings(origins)

	out := make([]types.OriginDelta, 0, len(origins))
	for _, o := range origins {
		out = append(out, types.OriginDelta{
			Origin:    o,
			Delta:     types.Measured(a.AdditionalRTTByOrigin[o]),
			Synthetic: o == SummaryKey,
		})
	}
	return out
}

// originSamples collects per-origin observations.
type originSamples struct {
	connection []float64 // direct handshake estimates
	coarse     []float64 // TTFB-derived estimates
	ttfb       []float64
}

// Analyze builds the timing model for l.
func Analyze(l *netlog.Log) (*Analysis, error) {
	if l == nil || len(l.Records) == 0 {
		return nil, netlog.ErrNoRecords
	}

	byOrigin := make(map[string]*originSamples)
	for _, r := range l.Records {
		origin, ok := r.Origin()
		if !ok {
			continue
		}
		s, ok := byOrigin[origin]
		if !ok {
			s = &originSamples{}
			byOrigin[origin] = s
		}
		if r.Timing == nil || r.FromDiskCache || r.FromServiceWorker {
			continue
		}
		s.connection = append(s.connection, connectionEstimates(r)...)
		if est, ok := coarseEstimate(r); ok {
			s.coarse = append(s.coarse, est)
		}
		if ttfb, ok := timeToFirstByte(r.Timing); ok {
			s.ttfb = append(s.ttfb, ttfb)
		}
	}

	rttByOrigin := make(map[string]float64, len(byOrigin)+1)
	var all []float64
	for origin, s := range byOrigin {
		est := s.connection
		if len(est) == 0 {
			est = s.coarse
		}
		rttByOrigin[origin] = minOf(est)
		all = append(all, est...)
	}
	rttByOrigin[SummaryKey] = minOf(all)

	baseline := math.Inf(1)
	for origin, rtt := range rttByOrigin {
		if origin != SummaryKey && !math.IsNaN(rtt) && rtt < baseline {
			baseline = rtt
		}
	}
	if math.IsInf(baseline, 1) {
		return nil, ErrNoEstimates
	}

	a := &Analysis{
		RTT:                        baseline,
		AdditionalRTTByOrigin:      make(map[string]float64, len(rttByOrigin)),
		ServerResponseTimeByOrigin: make(map[string]float64, len(rttByOrigin)),
	}
	var allResponse []float64
	for origin, rtt := range rttByOrigin {
		a.AdditionalRTTByOrigin[origin] = rtt - baseline // NaN stays NaN
		if origin == SummaryKey {
			continue
		}
		resp := serverResponseTime(byOrigin[origin].ttfb, rtt)
		a.ServerResponseTimeByOrigin[origin] = resp
		if !math.IsNaN(resp) {
			allResponse = append(allResponse, resp)
		}
	}
	a.ServerResponseTimeByOrigin[SummaryKey] = minOf(allResponse)
	return a, nil
}

// connectionEstimates returns handshake durations that each took one round
// trip. Reused connections carry no handshake.
func connectionEstimates(r netlog.Record) []float64 {
	t := r.Timing
	if r.ConnectionReused || t.ConnectStart < 0 || t.ConnectEnd < t.ConnectStart {
		return nil
	}

	var est []float64
	switch {
	case r.Protocol == "h3":
		est = append(est, t.ConnectEnd-t.ConnectStart)
	case t.SSLStart >= 0 && t.SSLEnd >= t.SSLStart:
		// TLS assumed to use one round trip (TLS 1.3 or false start).
		est = append(est, t.SSLStart-t.ConnectStart, t.ConnectEnd-t.SSLStart)
	default:
		est = append(est, t.ConnectEnd-t.ConnectStart)
	}

	out := est[:0]
	for _, e := range est {
		// Zero-length phases were coalesced or skipped and say nothing about RTT.
		if e > 0 && !math.IsInf(e, 0) {
			out = append(out, e)
		}
	}
	return out
}

// timeToFirstByte is send start → response headers, in ms.
func timeToFirstByte(t *netlog.Timing) (float64, bool) {
	if t.SendStart < 0 || t.ReceiveHeadersEnd < 0 {
		return 0, false
	}
	ttfb := t.ReceiveHeadersEnd - t.SendStart
	return ttfb, ttfb > 0
}

// coarseEstimate divides the time until response headers by the number of
// round trips spent in it. Server think time is included, so the result
// overestimates the RTT.
func coarseEstimate(r netlog.Record) (float64, bool) {
	t := r.Timing
	if t.ReceiveHeadersEnd < 0 {
		return 0, false
	}
	start, trips := t.SendStart, 1
	if !r.ConnectionReused && t.ConnectStart >= 0 {
		start, trips = t.ConnectStart, freshRoundTrips(r)
	}
	if start < 0 {
		return 0, false
	}
	d := t.ReceiveHeadersEnd - start
	return d / float64(trips), d > 0
}

// freshRoundTrips counts the round trips from connect start to response
// headers on a new connection.
func freshRoundTrips(r netlog.Record) int {
	if r.Protocol == "h3" {
		return 2 // QUIC handshake + request
	}
	n := 2 // TCP handshake + request
	if r.IsSecure() {
		n++
	}
	return n
}

// serverResponseTime is the smallest TTFB minus rtt, floored at 0.
func serverResponseTime(ttfb []float64, rtt float64) float64 {
	if math.IsNaN(rtt) || len(ttfb) == 0 {
		return math.NaN()
	}
	resp := minOf(ttfb) - rtt
	if resp < 0 {
		return 0
	}
	return resp
}

// minOf returns the smallest value, or NaN for an empty slice.
func minOf(vs []float64) float64 {
	if len(vs) == 0 {
		return math.NaN()
	}
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
