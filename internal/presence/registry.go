// Package presence holds the set of identities currently checked in.
package presence

import (
	"sort"
	"sync"
	"time"
)

// Entry is one present identity and the time it checked in.
type Entry struct {
	Key       string    `json:"key"`
	CheckedIn time.Time `json:"checked_in"`
}

// Registry is the authoritative in-memory presence map.
// All methods are safe for concurrent use. Mutations are expected to come from a
// single writer (the attendance processor); readers may run at any time.
type Registry struct {
	mu      sync.RWMutex
	present map[string]time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{present: make(map[string]time.Time)}
}

// Contains reports whether key is currently present.
func (r *Registry) Contains(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.present[key]
	return ok
}

// Since returns the check-in time of key.
func (r *Registry) Since(key string) (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ts, ok := r.present[key]
	return ts, ok
}

// CheckIn records key as present from ts. An existing entry is overwritten.
func (r *Registry) CheckIn(key string, ts time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.present[key] = ts
}

// CheckOut removes key. It reports whether key was present.
func (r *Registry) CheckOut(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.present[key]; !ok {
		return false
	}
	delete(r.present, key)
	return true
}

// Count returns the number of present identities.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.present)
}

// Snapshot returns the present identities ordered by check-in time, then key.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	entries := make([]Entry, 0, len(r.present))
	for k, ts := range r.present {
		entries = append(entries, Entry{Key: k, CheckedIn: ts})
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CheckedIn.Equal(entries[j].CheckedIn) {
			return entries[i].Key < entries[j].Key
		}
		return entries[i].CheckedIn.Before(entries[j].CheckedIn)
	})
	return entries
}
