package timing

import (
	"context"
	"fmt"
	"log/slog"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sync/singleflight"

	"github.com/obsidianstack/rttaudit/auditor/internal/netlog"
)

// Provider produces the timing model for a network log.
type Provider interface {
	Analyze(ctx context.Context, l *netlog.Log) (*Analysis, error)
}

type scopeKey struct{}

// WithScope returns a context whose memoization scope is scope. Analyses
// cached under one scope are not visible to another.
func WithScope(ctx context.Context, scope string) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// ScopeFrom returns the scope set by WithScope, or "".
func ScopeFrom(ctx context.Context) string {
	s, _ := ctx.Value(scopeKey{}).(string)
	return s
}

// CachingProvider memoizes Analyze per (scope, log digest).
//
// All methods are safe for concurrent use.
type CachingProvider struct {
	cache    *lru.ARCCache
	group    singleflight.Group
	analyze  func(*netlog.Log) (*Analysis, error)
	observer func(hit bool)
}

// Option configures a CachingProvider.
type Option func(*CachingProvider)

// WithAnalyzer replaces the analysis function. Used by tests.
func WithAnalyzer(fn func(*netlog.Log) (*Analysis, error)) Option {
	return func(p *CachingProvider) { p.analyze = fn }
}

// WithCacheObserver registers fn to be called on every cache lookup.
func WithCacheObserver(fn func(hit bool)) Option {
	return func(p *CachingProvider) { p.observer = fn }
}

// NewCachingProvider returns a provider holding at most size analyses.
func NewCachingProvider(size int, opts ...Option) (*CachingProvider, error) {
	cache, err := lru.NewARC(size)
	if err != nil {
		return nil, fmt.Errorf("timing: new cache: %w", err)
	}
	p := &CachingProvider{cache: cache, analyze: Analyze}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Analyze returns the cached analysis for l in ctx's scope, computing it at
// most once per key even under concurrent calls. Failed analyses are not
// cached. Waiting callers return ctx.Err() when ctx is cancelled.
func (p *CachingProvider) Analyze(ctx context.Context, l *netlog.Log) (*Analysis, error) {
	key := ScopeFrom(ctx) + "/" + l.Digest()

	if v, ok := p.cache.Get(key); ok {
		p.observe(true)
		return v.(*Analysis), nil
	}
	p.observe(false)

	ch := p.group.DoChan(key, func() (interface{}, error) {
		if v, ok := p.cache.Get(key); ok {
			return v, nil
		}
		a, err := p.analyze(l)
		if err != nil {
			return nil, err
		}
		p.cache.Add(key, a)
		slog.Debug("timing: analysis cached", "key", key, "origins", len(a.AdditionalRTTByOrigin)-1)
		return a, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Analysis), nil
	}
}

// Len returns the number of cached analyses.
func (p *CachingProvider) Len() int { return p.cache.Len() }

func (p *CachingProvider) observe(hit bool) {
	if p.observer != nil {
		p.observer(hit)
	}
}
