package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/obsidianstack/rttaudit/pkg/types"
)

// Entry is a report together with the time it was stored.
type Entry struct {
	Report   *types.Report
	StoredAt time.Time
}

// Store is a thread-safe in-memory report store, keyed by report ID.
type Store struct {
	mu   sync.RWMutex
	data map[string]*Entry
	ttl  time.Duration
	now  func() time.Time // injectable for deterministic tests
}

// New creates a Store with the given TTL.
func New(ttl time.Duration) *Store {
	return &Store{
		data: make(map[string]*Entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Put stores or replaces the report under rep.ID.
// Callers must not modify rep after calling Put.
func (s *Store) Put(rep *types.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[rep.ID] = &Entry{
		Report:   rep,
		StoredAt: s.now(),
	}
}

// Get returns the live report with the given ID. Expired reports that
// have not been evicted yet are reported as missing.
func (s *Store) Get(id string) (*types.Report, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[id]
	if !ok || !e.StoredAt.After(s.now().Add(-s.ttl)) {
		return nil, false
	}
	return e.Report, true
}

// List returns all live reports, newest first.
func (s *Store) List() []*types.Report {
	s.mu.RLock()
	cutoff := s.now().Add(-s.ttl)
	entries := make([]*Entry, 0, len(s.data))
	for _, e := range s.data {
		if e.StoredAt.After(cutoff) {
			entries = append(entries, e)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].StoredAt.Equal(entries[j].StoredAt) {
			return entries[i].Report.ID < entries[j].Report.ID
		}
		return entries[i].StoredAt.After(entries[j].StoredAt)
	})

	out := make([]*types.Report, len(entries))
	for i, e := range entries {
		out[i] = e.Report
	}
	return out
}

// Count returns the number of entries currently held, including expired ones.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Evict removes entries stored at or before now minus TTL and returns how
// many were removed.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.ttl)
	removed := 0
	for id, e := range s.data {
		if !e.StoredAt.After(cutoff) {
			delete(s.data, id)
			removed++
		}
	}
	return removed
}

// Run evicts expired reports every half TTL (minimum 1s) until ctx is
// cancelled.
func (s *Store) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if n := s.Evict(now); n > 0 {
				slog.Debug("store: evicted expired reports", "count", n)
			}
		}
	}
}
