// Package events fans station events out to any number of listeners.
package events

import (
	"sync"
	"time"

	"github.com/kozaktomas/presence-station/internal/constants"
)

// Event types
const (
	TypeCheckedIn     = "checked_in"
	TypeCheckedOut    = "checked_out"
	TypeRejected      = "rejected"
	TypeCaptured      = "captured"
	TypeActuator      = "actuator"
	TypeReading       = "reading"
	TypeSensorFailure = "sensor_failure"
	TypeGallery       = "gallery"
)

// Event is one notification published by the station.
type Event struct {
	Type    string    `json:"type"`
	Message string    `json:"message,omitempty"`
	Data    any       `json:"data,omitempty"`
	At      time.Time `json:"at"`
}

// Publisher accepts events. Implementations must not block.
type Publisher interface {
	Publish(event Event)
}

// Discard is a Publisher that drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) {}

// Broadcaster provides listener management and event broadcasting.
type Broadcaster struct {
	listeners []chan Event
	mu        sync.RWMutex
}

// NewBroadcaster creates a broadcaster with no listeners.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// AddListener adds an event listener.
func (b *Broadcaster) AddListener() chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, constants.EventChannelBuffer)
	b.listeners = append(b.listeners, ch)
	return ch
}

// RemoveListener removes an event listener and closes its channel.
func (b *Broadcaster) RemoveListener(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// Publish sends an event to all listeners.
func (b *Broadcaster) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, listener := range b.listeners {
		select {
		case listener <- event:
		default:
			// Listener buffer full, skip.
		}
	}
}

// ListenerCount returns the number of attached listeners.
func (b *Broadcaster) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}
