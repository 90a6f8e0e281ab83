// Package facematch matches a probe face embedding against the registered gallery.
package facematch

// Embedding is a fixed-dimension face descriptor produced by the embedding server.
type Embedding []float64

// FromFloat32 converts an embedding as returned by the embedding server.
func FromFloat32(v []float32) Embedding {
	out := make(Embedding, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

// Entry is one registered identity in the gallery.
type Entry struct {
	Key       string
	Embedding Embedding
}

// Gallery is the ordered collection of registered identities.
// Order matters: see FirstWithinTolerance.
type Gallery []Entry

// Keys returns the identity keys in gallery order.
func (g Gallery) Keys() []string {
	keys := make([]string, len(g))
	for i, e := range g {
		keys[i] = e.Key
	}
	return keys
}

// Unknown is the sentinel key returned when no gallery entry matches.
const Unknown = ""

// MatchResult is the ephemeral outcome of one match attempt.
type MatchResult struct {
	Key string
}

// IsUnknown reports whether the probe matched nobody.
func (r MatchResult) IsUnknown() bool {
	return r.Key == Unknown
}

// Known returns a result for the given identity key.
func Known(key string) MatchResult {
	return MatchResult{Key: key}
}

// String returns the key or "Unknown".
func (r MatchResult) String() string {
	if r.IsUnknown() {
		return "Unknown"
	}
	return r.Key
}
