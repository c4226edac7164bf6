package audit

import (
	"math"
	"sort"

	"github.com/obsidianstack/rttaudit/pkg/types"
)

// acceptableRTTMs is the max RTT at which the score reaches 0.
const acceptableRTTMs = 150.0

// Entry is one ranked origin.
type Entry struct {
	Origin string
	RTT    float64 // baseline + additional delta, in ms
}

// Result is the outcome of one Compute call.
type Result struct {
	// Score is in [0, 1]; 1 means every origin answered instantly.
	Score float64

	// MaxRTT is the largest Entry.RTT, or 0 when Entries is empty.
	MaxRTT float64

	// Entries are sorted by RTT descending. Equal RTTs keep input order.
	Entries []Entry

	// SkippedUnmeasured and SkippedSynthetic count the inputs dropped by
	// each filter. An entry that is both synthetic and unmeasured counts as
	// unmeasured.
	SkippedUnmeasured int
	SkippedSynthetic  int
}

// Compute ranks origins by estimated RTT and scores the worst one.
//
// baseline must be a finite, non-negative RTT in ms; it is not revalidated,
// and a non-finite baseline yields a non-finite MaxRTT and Score.
// Compute never fails: unmeasured deltas and synthetic entries are skipped.
func Compute(baseline float64, deltas []types.OriginDelta) Result {
	var res Result
	entries := make([]Entry, 0, len(deltas))

	for _, d := range deltas {
		delta, ok := d.Delta.Value()
		if !ok {
			res.SkippedUnmeasured++
			continue
		}
		if d.Synthetic {
			res.SkippedSynthetic++
			continue
		}

		rtt := baseline + delta
		entries = append(entries, Entry{Origin: d.Origin, RTT: rtt})
		res.MaxRTT = math.Max(rtt, res.MaxRTT)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].RTT > entries[j].RTT
	})

	res.Entries = entries
	res.Score = scoreFromMaxRTT(res.MaxRTT)
	return res
}

// ComputeMap is Compute over the map-shaped provider output. Keys with the
// "__" prefix are synthetic, non-finite values are unmeasured, and equal RTTs
// are ordered by origin name.
func ComputeMap(baseline float64, additionalByOrigin map[string]float64) Result {
	return Compute(baseline, types.DeltasFromMap(additionalByOrigin))
}

// scoreFromMaxRTT applies max(1 - maxRTT/150, 0).
func scoreFromMaxRTT(maxRTT float64) float64 {
	score := 1 - maxRTT/acceptableRTTMs
	if score < 0 {
		return 0
	}
	return score
}
