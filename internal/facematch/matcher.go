package facematch

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/kozaktomas/presence-station/internal/constants"
)

// Policy decides which gallery entry wins when several are within tolerance.
type Policy int

const (
	// FirstWithinTolerance returns the first entry in gallery order whose distance
	// is within tolerance, even if a later entry is closer.
	FirstWithinTolerance Policy = iota
	// ClosestWithinTolerance returns the entry with the smallest distance within tolerance.
	ClosestWithinTolerance
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case FirstWithinTolerance:
		return "first-within-tolerance"
	case ClosestWithinTolerance:
		return "closest-within-tolerance"
	default:
		return "unknown"
	}
}

// Matcher compares probes against a gallery with a fixed tolerance and policy.
type Matcher struct {
	tolerance float64
	policy    Policy
}

// NewMatcher creates a matcher. A non-positive tolerance falls back to the default.
func NewMatcher(tolerance float64, policy Policy) *Matcher {
	if tolerance <= 0 {
		tolerance = constants.DefaultMatchTolerance
	}
	return &Matcher{tolerance: tolerance, policy: policy}
}

// Tolerance returns the configured distance tolerance.
func (m *Matcher) Tolerance() float64 {
	return m.tolerance
}

// Policy returns the configured tie-break policy.
func (m *Matcher) Policy() Policy {
	return m.policy
}

// Match returns the key of the winning gallery entry, or an unknown result.
// An empty gallery always yields an unknown result.
func (m *Matcher) Match(probe Embedding, gallery Gallery) MatchResult {
	best := -1
	bestDist := math.Inf(1)

	for i, entry := range gallery {
		d := Distance(probe, entry.Embedding)
		if d > m.tolerance {
			continue
		}
		if m.policy == FirstWithinTolerance {
			return Known(entry.Key)
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}

	if best < 0 {
		return MatchResult{Key: Unknown}
	}
	return Known(gallery[best].Key)
}

// Distance returns the cosine distance between two embeddings, from 0 (same
// direction) to 2 (opposite). Embeddings of different or zero dimension and
// zero vectors are infinitely far apart.
func Distance(a, b Embedding) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return math.Inf(1)
	}
	// Clamp rounding errors to [-1, 1].
	sim := max(-1, min(1, floats.Dot(a, b)/(na*nb)))
	return 1 - sim
}
