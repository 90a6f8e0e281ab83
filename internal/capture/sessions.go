package capture

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for unknown or closed session IDs.
var ErrSessionNotFound = errors.New("capture session not found")

// ErrTooManySessions is returned when the open session limit is reached.
var ErrTooManySessions = errors.New("too many open capture sessions")

// Session is one recognition session of a station, owning a single gate.
type Session[T any] struct {
	ID       string    `json:"id"`
	Station  string    `json:"station,omitempty"`
	OpenedAt time.Time `json:"opened_at"`
	Gate     *Gate[T]  `json:"-"`
}

// Sessions tracks open capture sessions.
type Sessions[T any] struct {
	interval time.Duration
	limit    int

	mu       sync.RWMutex
	sessions map[string]*Session[T]
}

// NewSessions creates a session manager. Every gate uses the given debounce interval.
func NewSessions[T any](interval time.Duration, limit int) *Sessions[T] {
	return &Sessions[T]{
		interval: interval,
		limit:    limit,
		sessions: make(map[string]*Session[T]),
	}
}

// Open starts a new session for station.
func (s *Sessions[T]) Open(station string) (*Session[T], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.limit > 0 && len(s.sessions) >= s.limit {
		return nil, ErrTooManySessions
	}

	sess := &Session[T]{
		ID:       uuid.NewString(),
		Station:  station,
		OpenedAt: time.Now(),
		Gate:     NewGate[T](s.interval),
	}
	s.sessions[sess.ID] = sess
	return sess, nil
}

// Get returns an open session.
func (s *Sessions[T]) Get(id string) (*Session[T], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Close discards a session and whatever frame it holds.
func (s *Sessions[T]) Close(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// List returns open sessions, oldest first.
func (s *Sessions[T]) List() []*Session[T] {
	s.mu.RLock()
	out := make([]*Session[T], 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out
}

// CloseIdle closes sessions opened before cutoff and returns how many were closed.
func (s *Sessions[T]) CloseIdle(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	closed := 0
	for id, sess := range s.sessions {
		if sess.OpenedAt.Before(cutoff) {
			delete(s.sessions, id)
			closed++
		}
	}
	return closed
}
