package audit

import (
	"math"
	"testing"

	"github.com/obsidianstack/rttaudit/pkg/types"
)

// almostEqual returns true if a and b are within epsilon of each other.
func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

// --- ComputeMap() scenarios ---

func TestComputeMap_Scenarios(t *testing.T) {
	tests := []struct {
		name        string
		baseline    float64
		in          map[string]float64
		wantEntries []Entry
		wantMax     float64
		wantScore   float64
	}{
		{
			name:     "internal key excluded, slowest first",
			baseline: 50,
			in:       map[string]float64{"https://a.com": 10, "https://b.com": 120, "__internal": 5},
			wantEntries: []Entry{
				{Origin: "https://b.com", RTT: 170},
				{Origin: "https://a.com", RTT: 60},
			},
			wantMax:   170,
			wantScore: 0, // max(1-170/150, 0)
		},
		{
			name:        "empty map",
			baseline:    0,
			in:          map[string]float64{},
			wantEntries: []Entry{},
			wantMax:     0,
			wantScore:   1,
		},
		{
			name:        "NaN delta filtered",
			baseline:    30,
			in:          map[string]float64{"https://c.com": math.NaN()},
			wantEntries: []Entry{},
			wantMax:     0,
			wantScore:   1,
		},
		{
			name:        "single origin under ceiling",
			baseline:    100,
			in:          map[string]float64{"https://x.com": 25},
			wantEntries: []Entry{{Origin: "https://x.com", RTT: 125}},
			wantMax:     125,
			wantScore:   1 - 125.0/150.0, // ≈ 0.1667
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := ComputeMap(tc.baseline, tc.in)

			if !almostEqual(res.MaxRTT, tc.wantMax, 1e-9) {
				t.Errorf("MaxRTT = %.4f, want %.4f", res.MaxRTT, tc.wantMax)
			}
			if !almostEqual(res.Score, tc.wantScore, 1e-4) {
				t.Errorf("Score = %.4f, want %.4f", res.Score, tc.wantScore)
			}
			if len(res.Entries) != len(tc.wantEntries) {
				t.Fatalf("Entries len = %d, want %d (%+v)", len(res.Entries), len(tc.wantEntries), res.Entries)
			}
			for i, want := range tc.wantEntries {
				if res.Entries[i] != want {
					t.Errorf("Entries[%d] = %+v, want %+v", i, res.Entries[i], want)
				}
			}
		})
	}
}

// --- Filters ---

func TestCompute_NonFiniteNeverListed(t *testing.T) {
	in := map[string]float64{
		"https://nan.com":    math.NaN(),
		"https://inf.com":    math.Inf(1),
		"https://neginf.com": math.Inf(-1),
		"https://ok.com":     5,
	}
	res := ComputeMap(10, in)

	if len(res.Entries) != 1 || res.Entries[0].Origin != "https://ok.com" {
		t.Fatalf("Entries = %+v, want only ok.com", res.Entries)
	}
	if res.SkippedUnmeasured != 3 {
		t.Errorf("SkippedUnmeasured = %d, want 3", res.SkippedUnmeasured)
	}
}

func TestCompute_SyntheticNeverListed(t *testing.T) {
	// A synthetic entry is excluded no matter how large its delta is.
	in := []types.OriginDelta{
		{Origin: "__SUMMARY__", Delta: types.Measured(10000), Synthetic: true},
		{Origin: "https://real.com", Delta: types.Measured(1)},
		{Origin: "__other", Delta: types.Measured(0), Synthetic: true},
	}
	res := Compute(20, in)

	if len(res.Entries) != 1 || res.Entries[0].Origin != "https://real.com" {
		t.Fatalf("Entries = %+v, want only real.com", res.Entries)
	}
	if res.MaxRTT != 21 {
		t.Errorf("MaxRTT = %.2f, want 21 (synthetic delta must not count)", res.MaxRTT)
	}
	if res.SkippedSynthetic != 2 {
		t.Errorf("SkippedSynthetic = %d, want 2", res.SkippedSynthetic)
	}
}

func TestCompute_FiltersOnTagNotName(t *testing.T) {
	// Tagged input is trusted as-is: an untagged "__" origin is a real
	// origin, and a tagged plain origin is bookkeeping.
	in := []types.OriginDelta{
		{Origin: "__weird-but-real", Delta: types.Measured(3)},
		{Origin: "https://bookkeeping.example", Delta: types.Measured(4), Synthetic: true},
	}
	res := Compute(0, in)
	if len(res.Entries) != 1 || res.Entries[0].Origin != "__weird-but-real" {
		t.Errorf("Entries = %+v, want only the untagged origin", res.Entries)
	}
}

func TestCompute_UnmeasuredDelta(t *testing.T) {
	in := []types.OriginDelta{
		{Origin: "https://unknown.com", Delta: types.Unmeasured()},
	}
	res := Compute(40, in)
	if len(res.Entries) != 0 {
		t.Errorf("Entries = %+v, want none", res.Entries)
	}
	if res.MaxRTT != 0 || res.Score != 1 {
		t.Errorf("MaxRTT=%.2f Score=%.2f, want 0 and 1", res.MaxRTT, res.Score)
	}
}

// --- Ordering ---

func TestCompute_SortedDescending(t *testing.T) {
	in := map[string]float64{
		"https://a.com": 3, "https://b.com": 40, "https://c.com": 17,
		"https://d.com": 0, "https://e.com": 99, "https://f.com": 17.5,
	}
	res := ComputeMap(12, in)
	for i := 1; i < len(res.Entries); i++ {
		if res.Entries[i-1].RTT < res.Entries[i].RTT {
			t.Errorf("Entries[%d].RTT=%.2f < Entries[%d].RTT=%.2f", i-1, res.Entries[i-1].RTT, i, res.Entries[i].RTT)
		}
	}
	if res.Entries[0].Origin != "https://e.com" {
		t.Errorf("first origin = %q, want e.com", res.Entries[0].Origin)
	}
}

func TestCompute_TiesKeepInputOrder(t *testing.T) {
	in := []types.OriginDelta{
		{Origin: "https://z.com", Delta: types.Measured(10)},
		{Origin: "https://m.com", Delta: types.Measured(20)},
		{Origin: "https://a.com", Delta: types.Measured(10)},
	}
	res := Compute(0, in)
	want := []string{"https://m.com", "https://z.com", "https://a.com"}
	for i, o := range want {
		if res.Entries[i].Origin != o {
			t.Errorf("Entries[%d].Origin = %q, want %q", i, res.Entries[i].Origin, o)
		}
	}
}

func TestComputeMap_TiesByOriginName(t *testing.T) {
	in := map[string]float64{"https://z.com": 10, "https://a.com": 10, "https://m.com": 10}
	// Run several times: map iteration order varies, the result must not.
	for i := 0; i < 20; i++ {
		res := ComputeMap(0, in)
		want := []string{"https://a.com", "https://m.com", "https://z.com"}
		for j, o := range want {
			if res.Entries[j].Origin != o {
				t.Fatalf("run %d: Entries[%d].Origin = %q, want %q", i, j, res.Entries[j].Origin, o)
			}
		}
	}
}

// --- Score ---

func TestScoreFromMaxRTT(t *testing.T) {
	tests := []struct {
		maxRTT, want float64
	}{
		{0, 1},
		{15, 0.9},
		{75, 0.5},
		{149.999, 0.0000067},
		{150, 0},
		{151, 0},
		{10000, 0},
	}
	for _, tc := range tests {
		got := scoreFromMaxRTT(tc.maxRTT)
		if !almostEqual(got, tc.want, 1e-6) {
			t.Errorf("scoreFromMaxRTT(%.3f) = %.7f, want %.7f", tc.maxRTT, got, tc.want)
		}
	}
}

func TestCompute_ScoreMonotonicAndInRange(t *testing.T) {
	// Property: for non-negative deltas, score never increases as the worst
	// delta grows, and stays within [0, 1].
	prev := 2.0
	for delta := 0.0; delta <= 300; delta += 2.5 {
		res := ComputeMap(10, map[string]float64{"https://a.com": 0, "https://slow.com": delta})
		if res.Score < 0 || res.Score > 1 {
			t.Fatalf("Score %.4f out of [0,1] at delta %.1f", res.Score, delta)
		}
		if res.Score > prev {
			t.Fatalf("Score increased from %.4f to %.4f at delta %.1f", prev, res.Score, delta)
		}
		if res.MaxRTT >= acceptableRTTMs && res.Score != 0 {
			t.Fatalf("MaxRTT %.1f >= ceiling but Score = %.4f", res.MaxRTT, res.Score)
		}
		prev = res.Score
	}
}

func TestCompute_ScoreOneOnlyAtZero(t *testing.T) {
	if res := ComputeMap(0, map[string]float64{"https://a.com": 0}); res.Score != 1 {
		t.Errorf("zero RTT Score = %.4f, want 1", res.Score)
	}
	if res := ComputeMap(0, map[string]float64{"https://a.com": 0.001}); res.Score == 1 {
		t.Error("non-zero RTT must not score 1")
	}
}

func TestCompute_Idempotent(t *testing.T) {
	in := types.DeltasFromMap(map[string]float64{
		"https://a.com": 10, "https://b.com": 30, "__SUMMARY__": 0, "https://c.com": math.NaN(),
	})
	first := Compute(25, in)
	second := Compute(25, in)

	if first.Score != second.Score || first.MaxRTT != second.MaxRTT {
		t.Fatalf("results differ: %+v vs %+v", first, second)
	}
	if len(first.Entries) != len(second.Entries) {
		t.Fatalf("entry counts differ: %d vs %d", len(first.Entries), len(second.Entries))
	}
	for i := range first.Entries {
		if first.Entries[i] != second.Entries[i] {
			t.Errorf("Entries[%d] differ: %+v vs %+v", i, first.Entries[i], second.Entries[i])
		}
	}
}

func TestCompute_NonFiniteBaselinePropagates(t *testing.T) {
	res := ComputeMap(math.NaN(), map[string]float64{"https://a.com": 10})
	if !math.IsNaN(res.MaxRTT) || !math.IsNaN(res.Score) {
		t.Errorf("MaxRTT=%v Score=%v, want NaN for NaN baseline", res.MaxRTT, res.Score)
	}
}
