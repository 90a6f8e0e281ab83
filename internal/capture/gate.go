// Package capture turns a continuous stream of frames into single capture events.
package capture

import (
	"errors"
	"sync"
	"time"

	"github.com/kozaktomas/presence-station/internal/constants"
)

// ErrNothingCaptured is returned by Confirm when the gate holds no frame.
var ErrNothingCaptured = errors.New("no frame captured")

// State is the gate state.
type State string

// State constants
const (
	StateIdle       State = "idle"
	StateCaptured   State = "captured"
	StateCommitting State = "committing"
)

// Gate is a debounce state machine holding at most one captured frame of type T.
//
//	idle --face && now-last > interval--> captured
//	captured --Retake--> idle (last reset to zero, immediate re-capture allowed)
//	captured --Take--> committing; exactly one caller gets the frame
//	committing --Reset--> idle, or --Release--> captured when the commit failed
type Gate[T any] struct {
	interval time.Duration

	mu          sync.Mutex
	lastCapture time.Time
	held        *T
	committing  bool
}

// NewGate creates a gate. A non-positive interval falls back to the default.
func NewGate[T any](interval time.Duration) *Gate[T] {
	if interval <= 0 {
		interval = constants.DefaultDebounceInterval
	}
	return &Gate[T]{interval: interval}
}

// Offer presents one frame to the gate. It returns true when the frame was captured.
func (g *Gate[T]) Offer(frame T, faceDetected bool, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.held != nil || !faceDetected {
		return false
	}
	if !g.lastCapture.IsZero() && now.Sub(g.lastCapture) <= g.interval {
		return false
	}

	g.held = &frame
	g.lastCapture = now
	return true
}

// Retake drops the held frame and allows an immediate re-capture.
// A frame that is being committed is kept.
func (g *Gate[T]) Retake() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.committing {
		return
	}
	g.held = nil
	g.lastCapture = time.Time{}
}

// Held returns the held frame without claiming it.
func (g *Gate[T]) Held() (T, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held == nil {
		var zero T
		return zero, ErrNothingCaptured
	}
	return *g.held, nil
}

// Take claims the held frame for commit. Until Reset or Release is called,
// further calls return ErrNothingCaptured.
func (g *Gate[T]) Take() (T, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held == nil || g.committing {
		var zero T
		return zero, ErrNothingCaptured
	}
	g.committing = true
	return *g.held, nil
}

// Release hands a claimed frame back after a failed commit so it can be taken again.
func (g *Gate[T]) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.committing = false
}

// Reset returns the gate to idle after a claimed frame was committed.
// The debounce timestamp is kept.
func (g *Gate[T]) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.held = nil
	g.committing = false
}

// State returns the current gate state.
func (g *Gate[T]) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch {
	case g.committing:
		return StateCommitting
	case g.held != nil:
		return StateCaptured
	default:
		return StateIdle
	}
}
