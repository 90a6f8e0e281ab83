// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Face matching constants
const (
	// DefaultMatchTolerance is the maximum cosine distance between a probe and a
	// gallery embedding for the two to be considered the same person.
	// Lower values = stricter matching
	DefaultMatchTolerance = 0.5
)

// Capture constants
const (
	// DefaultDebounceInterval is the minimum time between two automatic captures of the same gate
	DefaultDebounceInterval = time.Second

	// MaxFrameSize is the maximum dimension (width or height) of a frame sent for embedding
	MaxFrameSize = 1280

	// MaxCameraFailures is the number of consecutive failed camera reads after which
	// the kiosk loop gives up
	MaxCameraFailures = 50

	// CameraRetryDelay is the pause after a failed camera read
	CameraRetryDelay = 100 * time.Millisecond

	// FrameJPEGQuality is the quality used when re-encoding normalized frames
	FrameJPEGQuality = 85
)

// Environmental control constants
const (
	// DefaultControlInterval is the period of the environmental controller tick
	DefaultControlInterval = 5 * time.Second

	// DefaultFanThreshold is the temperature in °C above which the fan runs in AUTO mode
	DefaultFanThreshold = 25.0

	// DefaultSensorAttempts is the number of temperature read attempts per tick
	DefaultSensorAttempts = 8

	// DefaultSensorRetryDelay is the initial backoff between two read attempts
	DefaultSensorRetryDelay = 500 * time.Millisecond

	// DefaultSensorTimeout bounds a single read attempt
	DefaultSensorTimeout = 2 * time.Second
)

// Feedback constants
const (
	// BuzzerPulse is the length of a single buzzer pulse
	BuzzerPulse = 80 * time.Millisecond

	// BuzzerGap is the pause between two pulses of one pattern
	BuzzerGap = 80 * time.Millisecond

	// FeedbackQueueSize is the number of pending patterns before new ones are dropped
	FeedbackQueueSize = 16
)

// Attendance log constants
const (
	// LogTimeLayout is the timestamp layout of the attendance log
	LogTimeLayout = "2006-01-02 15:04:05"
)
