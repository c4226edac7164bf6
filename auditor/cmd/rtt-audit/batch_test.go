package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/obsidianstack/rttaudit/pkg/types"
)

func TestAuditAll_OrderAndErrors(t *testing.T) {
	locations := []string{"a.json", "bad.json", "c.json", "d.json", "e.json"}
	var calls, done atomic.Int32

	results := auditAll(context.Background(), locations, 3,
		func(_ context.Context, loc string) (*types.Report, error) {
			calls.Add(1)
			if loc == "bad.json" {
				return nil, errors.New("netlog: log has no records")
			}
			return &types.Report{ID: loc}, nil
		},
		func() { done.Add(1) },
	)

	if len(results) != len(locations) {
		t.Fatalf("results: got %d, want %d", len(results), len(locations))
	}
	for i, r := range results {
		if r.Location != locations[i] {
			t.Errorf("results[%d].Location: got %q, want %q", i, r.Location, locations[i])
		}
	}
	if results[1].Err == "" || results[1].Report != nil {
		t.Errorf("bad.json: got %+v, want error only", results[1])
	}
	if results[4].Report == nil || results[4].Report.ID != "e.json" {
		t.Errorf("e.json: got %+v", results[4])
	}
	if calls.Load() != 5 || done.Load() != 5 {
		t.Errorf("calls=%d done=%d, want 5/5", calls.Load(), done.Load())
	}
	if n := countFailed(results); n != 1 {
		t.Errorf("countFailed: got %d, want 1", n)
	}
}

func TestAuditAll_ZeroWorkers(t *testing.T) {
	results := auditAll(context.Background(), []string{"x"}, 0,
		func(context.Context, string) (*types.Report, error) { return &types.Report{}, nil },
		func() {},
	)
	if len(results) != 1 || results[0].Report == nil {
		t.Fatalf("got %+v", results)
	}
}

func TestWriteBatch_Table(t *testing.T) {
	results := []batchResult{
		{Location: "home.json", Report: sampleReport()},
		{Location: "broken.json", Err: "netlog: decode: EOF"},
	}
	var buf bytes.Buffer
	if err := writeBatch(&buf, results, formatTable); err != nil {
		t.Fatalf("writeBatch: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines: got %d, want 3:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[1], "home.json") || !strings.HasSuffix(lines[1], "https://slow.example.net") {
		t.Errorf("ok row: got %q", lines[1])
	}
	if !strings.Contains(lines[1], "0.20") || !strings.Contains(lines[1], "120 ms") {
		t.Errorf("ok row figures: got %q", lines[1])
	}
	if !strings.HasSuffix(lines[2], "error: netlog: decode: EOF") {
		t.Errorf("error row: got %q", lines[2])
	}
}

func TestWriteBatch_JSONLines(t *testing.T) {
	results := []batchResult{
		{Location: "home.json", Report: sampleReport()},
		{Location: "broken.json", Err: "boom"},
	}
	var buf bytes.Buffer
	if err := writeBatch(&buf, results, formatJSON); err != nil {
		t.Fatalf("writeBatch: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines: got %d, want 2", len(lines))
	}
	var second batchResult
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("line 2: %v", err)
	}
	if second.Location != "broken.json" || second.Err != "boom" || second.Report != nil {
		t.Errorf("line 2: got %+v", second)
	}
}
