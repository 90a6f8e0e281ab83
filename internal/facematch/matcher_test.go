package facematch

import (
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name     string
		a        Embedding
		b        Embedding
		expected float64
	}{
		{name: "identical", a: Embedding{1, 2, 3}, b: Embedding{1, 2, 3}, expected: 0},
		{name: "scale does not matter", a: Embedding{1, 2, 3}, b: Embedding{2, 4, 6}, expected: 0},
		{name: "orthogonal", a: Embedding{1, 0}, b: Embedding{0, 1}, expected: 1},
		{name: "opposite", a: Embedding{1, 0}, b: Embedding{-3, 0}, expected: 2},
		{name: "similarity 0.6", a: Embedding{1, 0}, b: Embedding{3, 4}, expected: 0.4},
		{name: "dimension mismatch", a: Embedding{1, 2}, b: Embedding{1, 2, 3}, expected: math.Inf(1)},
		{name: "empty", a: Embedding{}, b: Embedding{}, expected: math.Inf(1)},
		{name: "zero vector", a: Embedding{0, 0}, b: Embedding{1, 0}, expected: math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.a, tt.b)
			if math.IsInf(tt.expected, 1) {
				if !math.IsInf(got, 1) {
					t.Errorf("Distance() = %v, want +Inf", got)
				}
				return
			}
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("Distance() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// unitAt returns a 2-d vector whose cosine distance to {1, 0} is d.
func unitAt(d float64) Embedding {
	c := 1 - d
	return Embedding{c, math.Sqrt(1 - c*c)}
}

var query = Embedding{1, 0}

func TestMatch_FirstWithinTolerance(t *testing.T) {
	gallery := Gallery{
		{Key: "far", Embedding: Embedding{-1, 0}},
		{Key: "first", Embedding: unitAt(0.4)},
		{Key: "closest", Embedding: unitAt(0.1)},
	}
	m := NewMatcher(0.5, FirstWithinTolerance)

	got := m.Match(query, gallery)
	if got.Key != "first" {
		t.Errorf("Match() = %q, want %q (first entry within tolerance wins)", got.Key, "first")
	}
}

func TestMatch_GalleryOrderDecides(t *testing.T) {
	m := NewMatcher(0.5, FirstWithinTolerance)
	a := Entry{Key: "a", Embedding: unitAt(0.3)}
	b := Entry{Key: "b", Embedding: unitAt(0.2)}

	if got := m.Match(query, Gallery{a, b}); got.Key != "a" {
		t.Errorf("Match(a,b) = %q, want a", got.Key)
	}
	if got := m.Match(query, Gallery{b, a}); got.Key != "b" {
		t.Errorf("Match(b,a) = %q, want b", got.Key)
	}
}

func TestMatch_ClosestWithinTolerance(t *testing.T) {
	gallery := Gallery{
		{Key: "first", Embedding: unitAt(0.4)},
		{Key: "closest", Embedding: unitAt(0.1)},
	}
	m := NewMatcher(0.5, ClosestWithinTolerance)

	if got := m.Match(query, gallery); got.Key != "closest" {
		t.Errorf("Match() = %q, want closest", got.Key)
	}
}

func TestMatch_Unknown(t *testing.T) {
	m := NewMatcher(0.5, FirstWithinTolerance)

	tests := []struct {
		name    string
		gallery Gallery
	}{
		{name: "empty gallery", gallery: nil},
		{name: "all too far", gallery: Gallery{{Key: "x", Embedding: Embedding{0, 1}}}},
		{name: "dimension mismatch", gallery: Gallery{{Key: "x", Embedding: Embedding{1, 0, 0}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Match(query, tt.gallery)
			if !got.IsUnknown() {
				t.Errorf("Match() = %q, want unknown", got.Key)
			}
			if got.String() != "Unknown" {
				t.Errorf("String() = %q, want Unknown", got.String())
			}
		})
	}
}

func TestMatch_ToleranceIsInclusive(t *testing.T) {
	edge := Embedding{1, 1}
	m := NewMatcher(Distance(query, edge), FirstWithinTolerance)
	gallery := Gallery{{Key: "edge", Embedding: edge}}

	if got := m.Match(query, gallery); got.Key != "edge" {
		t.Errorf("Match() at exactly tolerance = %q, want edge", got.Key)
	}
}

// Embedding servers return vectors whose same-person similarity is well
// below 1; similarity 0.85 must still match at the default tolerance.
func TestMatch_DefaultToleranceAcceptsSamePerson(t *testing.T) {
	m := NewMatcher(0, FirstWithinTolerance)
	gallery := Gallery{{Key: "Alice", Embedding: unitAt(0.15)}}

	if got := m.Match(query, gallery); got.Key != "Alice" {
		t.Errorf("Match() = %q, want Alice", got.Key)
	}
}

func TestNewMatcher_DefaultTolerance(t *testing.T) {
	m := NewMatcher(0, FirstWithinTolerance)
	if m.Tolerance() != 0.5 {
		t.Errorf("Tolerance() = %v, want 0.5", m.Tolerance())
	}
	if m.Policy().String() != "first-within-tolerance" {
		t.Errorf("Policy() = %v", m.Policy())
	}
}

func TestFromFloat32(t *testing.T) {
	got := FromFloat32([]float32{0.5, -1})
	if len(got) != 2 || got[0] != 0.5 || got[1] != -1 {
		t.Errorf("FromFloat32() = %v", got)
	}
}

func TestGalleryKeys(t *testing.T) {
	g := Gallery{{Key: "b"}, {Key: "a"}}
	keys := g.Keys()
	if len(keys) != 2 || keys[0] != "b" || keys[1] != "a" {
		t.Errorf("Keys() = %v, want [b a]", keys)
	}
}
