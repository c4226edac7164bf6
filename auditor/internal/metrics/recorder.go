package metrics

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const namespace = "rtt_audit"

// Run outcomes.
const (
	OutcomeSuccess         = "success"
	OutcomeUpstreamError   = "upstream_error"
	OutcomeInvalidBaseline = "invalid_baseline"
)

var (
	// RTT buckets from 5ms to ~2.5s.
	rttMsBuckets = prometheus.ExponentialBuckets(5, 2, 10)

	// Audit duration buckets from 1ms to ~4s.
	durationBuckets = prometheus.ExponentialBuckets(0.001, 2, 13)
)

// Recorder records audit metrics.
type Recorder struct {
	reg      *prometheus.Registry
	runs     *prometheus.CounterVec
	score    prometheus.Gauge
	maxRTT   prometheus.Histogram
	response prometheus.Histogram
	origins  prometheus.Gauge
	filtered *prometheus.CounterVec
	cache    *prometheus.CounterVec
	duration prometheus.Histogram
}

// New returns a Recorder with its metrics registered on a fresh registry,
// together with the Go runtime and process collectors.
func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prometheus.BuildFQName(namespace, "", "runs_total"),
			Help: "Audit runs by outcome.",
		}, []string{"outcome"}),
		score: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(namespace, "", "score"),
			Help: "Score of the most recent successful audit (0-1).",
		}),
		maxRTT: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    prometheus.BuildFQName(namespace, "", "max_rtt_ms"),
			Help:    "Worst origin RTT per successful audit in milliseconds.",
			Buckets: rttMsBuckets,
		}),
		response: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    prometheus.BuildFQName(namespace, "", "server_response_ms"),
			Help:    "Estimated per-origin server response time in milliseconds.",
			Buckets: rttMsBuckets,
		}),
		origins: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prometheus.BuildFQName(namespace, "", "origins"),
			Help: "Origins ranked by the most recent successful audit.",
		}),
		filtered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prometheus.BuildFQName(namespace, "", "origins_filtered_total"),
			Help: "Provider entries excluded from audit output by reason.",
		}, []string{"reason"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prometheus.BuildFQName(namespace, "timing", "cache_total"),
			Help: "Timing analysis cache lookups by result.",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    prometheus.BuildFQName(namespace, "", "duration_seconds"),
			Help:    "Wall time of an audit run including timing analysis.",
			Buckets: durationBuckets,
		}),
	}

	r.reg.MustRegister(r.runs, r.score, r.maxRTT, r.response, r.origins, r.filtered, r.cache, r.duration)
	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveRun counts one run with the given outcome.
func (r *Recorder) ObserveRun(outcome string, took time.Duration) {
	r.runs.WithLabelValues(outcome).Inc()
	r.duration.Observe(took.Seconds())
}

// ObserveResult records the figures of a successful audit.
func (r *Recorder) ObserveResult(score, maxRTT float64, origins, unmeasured, synthetic int) {
	r.score.Set(score)
	r.maxRTT.Observe(maxRTT)
	r.origins.Set(float64(origins))
	r.filtered.WithLabelValues("unmeasured").Add(float64(unmeasured))
	r.filtered.WithLabelValues("synthetic").Add(float64(synthetic))
}

// ObserveServerResponse records one origin's server response estimate.
func (r *Recorder) ObserveServerResponse(ms float64) {
	r.response.Observe(ms)
}

// ObserveCache counts one timing cache lookup.
func (r *Recorder) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cache.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gather returns the audit metric families (runtime metrics excluded).
func (r *Recorder) Gather() ([]*dto.MetricFamily, error) {
	mfs, err := r.reg.Gather()
	if err != nil {
		return nil, fmt.Errorf("metrics: gather: %w", err)
	}
	out := mfs[:0]
	for _, mf := range mfs {
		if strings.HasPrefix(mf.GetName(), namespace+"_") {
			out = append(out, mf)
		}
	}
	return out, nil
}

// WriteTextfile atomically replaces path with the audit metrics in the
// Prometheus text format.
func (r *Recorder) WriteTextfile(path string) error {
	mfs, err := r.Gather()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".rtt_audit-*.prom")
	if err != nil {
		return fmt.Errorf("metrics: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after rename

	enc := expfmt.NewEncoder(tmp, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			tmp.Close()
			return fmt.Errorf("metrics: encode %s: %w", mf.GetName(), err)
		}
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("metrics: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("metrics: rename textfile: %w", err)
	}
	return nil
}
