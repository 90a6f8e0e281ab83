// Package constants provides shared constants used across the codebase.
package constants

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100
)

// File upload constants
const (
	// MaxUploadSize is the maximum file upload size in bytes (20MB)
	MaxUploadSize = 20 << 20
)

// Session constants
const (
	// MaxOpenSessions is the maximum number of concurrent capture sessions
	MaxOpenSessions = 32
)
