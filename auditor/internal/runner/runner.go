package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/obsidianstack/rttaudit/auditor/internal/audit"
	"github.com/obsidianstack/rttaudit/auditor/internal/i18n"
	"github.com/obsidianstack/rttaudit/auditor/internal/metrics"
	"github.com/obsidianstack/rttaudit/auditor/internal/netlog"
	"github.com/obsidianstack/rttaudit/auditor/internal/store"
	"github.com/obsidianstack/rttaudit/auditor/internal/timing"
	"github.com/obsidianstack/rttaudit/pkg/types"
)

// ErrInvalidBaseline is returned when the timing provider reports a
// baseline RTT that is not a finite, non-negative number.
var ErrInvalidBaseline = errors.New("runner: invalid baseline RTT")

// Sink receives every successful report, e.g. a persistent archive.
type Sink interface {
	WriteReport(ctx context.Context, rep *types.Report) error
	Name() string
}

// Runner runs audits. It is safe for concurrent use.
type Runner struct {
	provider timing.Provider
	registry atomic.Pointer[i18n.Registry]
	recorder *metrics.Recorder // may be nil
	store    *store.Store      // may be nil
	sinks    []Sink
	scope    string // memoization scope when ctx carries none
	now      func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithSink adds a sink written after each successful run. Sink failures
// are logged and do not fail the run.
func WithSink(s Sink) Option {
	return func(r *Runner) { r.sinks = append(r.sinks, s) }
}

// WithScope makes runs share the timing memoization scope s unless their
// context carries its own (see timing.WithScope). Identical logs audited in
// one scope are analyzed once.
func WithScope(s string) Option {
	return func(r *Runner) { r.scope = s }
}

// New returns a Runner. rec and st may be nil.
func New(p timing.Provider, reg *i18n.Registry, rec *metrics.Recorder, st *store.Store, opts ...Option) *Runner {
	r := &Runner{
		provider: p,
		recorder: rec,
		store:    st,
		now:      time.Now,
	}
	r.registry.Store(reg)
	for _, o := range opts {
		o(r)
	}
	return r
}

// SetRegistry replaces the bundles used by subsequent runs.
func (r *Runner) SetRegistry(reg *i18n.Registry) { r.registry.Store(reg) }

// Registry returns the bundles currently in use.
func (r *Runner) Registry() *i18n.Registry { return r.registry.Load() }

// Run audits l and renders the report in locale ("" selects the default).
// The timing analysis is memoized in ctx's scope, else the runner's scope,
// else a scope private to this run.
// Timing provider failures are returned wrapped; errors.Is still matches
// the provider's error.
func (r *Runner) Run(ctx context.Context, l *netlog.Log, locale string) (*types.Report, error) {
	start := r.now()
	id := uuid.NewString()

	scope := timing.ScopeFrom(ctx)
	if scope == "" {
		scope = r.scope
	}
	if scope == "" {
		scope = id
	}
	log := slog.With("run_id", id, "scope", scope)

	a, err := r.provider.Analyze(timing.WithScope(ctx, scope), l)
	if err != nil {
		r.observeRun(metrics.OutcomeUpstreamError, start)
		log.Warn("runner: timing analysis failed", "err", err)
		return nil, fmt.Errorf("runner: timing analysis: %w", err)
	}
	if math.IsNaN(a.RTT) || math.IsInf(a.RTT, 0) || a.RTT < 0 {
		r.observeRun(metrics.OutcomeInvalidBaseline, start)
		log.Warn("runner: rejecting baseline", "rtt", a.RTT)
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseline, a.RTT)
	}

	res := audit.Compute(a.RTT, a.Deltas())
	bundle := r.registry.Load().Bundle(locale)
	prod := res.Product(bundle)

	rep := &types.Report{
		ID:               id,
		AuditID:          audit.Meta.ID,
		Title:            audit.Meta.Title(bundle),
		Description:      audit.Meta.Description(bundle),
		ScoreDisplayMode: audit.Meta.ScoreDisplayMode,
		Locale:           bundle.Locale(),
		PageURL:          l.PageURL,
		Score:            prod.Score,
		RawValue:         prod.RawValue,
		DisplayValue:     prod.DisplayValue,
		Details:          prod.Details,
		GeneratedAt:      r.now().UTC().Format(time.RFC3339),
	}

	r.observeRun(metrics.OutcomeSuccess, start)
	if r.recorder != nil {
		r.recorder.ObserveResult(res.Score, res.MaxRTT, len(res.Entries), res.SkippedUnmeasured, res.SkippedSynthetic)
		for origin, ms := range a.ServerResponseTimeByOrigin {
			if origin == timing.SummaryKey || math.IsNaN(ms) || math.IsInf(ms, 0) {
				continue
			}
			r.recorder.ObserveServerResponse(ms)
		}
	}
	if r.store != nil {
		r.store.Put(rep)
	}
	for _, s := range r.sinks {
		if err := s.WriteReport(ctx, rep); err != nil {
			log.Warn("runner: sink write failed", "sink", s.Name(), "err", err)
		}
	}

	log.Info("runner: audit complete",
		"page_url", l.PageURL,
		"score", res.Score,
		"max_rtt_ms", res.MaxRTT,
		"origin_count", len(res.Entries),
		"skipped_unmeasured", res.SkippedUnmeasured,
		"skipped_synthetic", res.SkippedSynthetic,
	)
	return rep, nil
}

func (r *Runner) observeRun(outcome string, start time.Time) {
	if r.recorder != nil {
		r.recorder.ObserveRun(outcome, r.now().Sub(start))
	}
}
