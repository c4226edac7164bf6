package types

import (
	"math"
	"sort"
	"strings"
)

// InternalPrefix marks provider bookkeeping keys in the map-shaped timing
// output (for example "__SUMMARY__"). Such keys never name a real origin.
const InternalPrefix = "__"

// Delta is an additional-RTT measurement in milliseconds. The zero value is
// unmeasured.
type Delta struct {
	ms       float64
	measured bool
}

// Measured returns a measured Delta of v milliseconds. A non-finite v yields
// an unmeasured Delta.
func Measured(v float64) Delta {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Delta{}
	}
	return Delta{ms: v, measured: true}
}

// Unmeasured returns a Delta for an origin the provider could not estimate.
func Unmeasured() Delta { return Delta{} }

// Value returns the delta in milliseconds and whether it was measured.
func (d Delta) Value() (float64, bool) { return d.ms, d.measured }

// IsMeasured reports whether d carries a usable measurement.
func (d Delta) IsMeasured() bool { return d.measured }

// OriginDelta is one entry of the provider's additional-RTT output.
type OriginDelta struct {
	Origin string
	Delta  Delta

	// Synthetic is set for provider bookkeeping entries that do not
	// represent a network origin.
	Synthetic bool
}

// DeltasFromMap converts the map-shaped provider contract into tagged
// entries. Keys with InternalPrefix become Synthetic and non-finite values
// become Unmeasured. Entries are ordered by origin so the result does not
// depend on map iteration order.
func DeltasFromMap(m map[string]float64) []OriginDelta {
	origins := make([]string, 0, len(m))
	for o := range m {
		origins = append(origins, o)
	}
	sort.Strings(origins)

	out := make([]OriginDelta, 0, len(origins))
	for _, o := range origins {
		out = append(out, OriginDelta{
			Origin:    o,
			Delta:     Measured(m[o]),
			Synthetic: strings.HasPrefix(o, InternalPrefix),
		})
	}
	return out
}
