// Package attendance turns recognition results into IN/OUT events and keeps the
// append-only attendance log consistent with the presence registry.
package attendance

import (
	"errors"
	"fmt"
	"time"
)

// Action is the direction of an attendance event.
type Action string

// Action constants
const (
	ActionIn  Action = "IN"
	ActionOut Action = "OUT"
)

// ErrLogAppend is returned when an event could not be durably written.
// The presence registry is left untouched in that case.
var ErrLogAppend = errors.New("attendance log append failed")

// ErrMalformedLine is returned when a log line cannot be parsed.
var ErrMalformedLine = errors.New("malformed attendance log line")

// Entry is one immutable attendance log record.
type Entry struct {
	Key       string    `json:"key"`
	Action    Action    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// OutcomeKind classifies the result of processing a recognition result.
type OutcomeKind string

// OutcomeKind constants
const (
	OutcomeCheckedIn  OutcomeKind = "checked_in"
	OutcomeCheckedOut OutcomeKind = "checked_out"
	OutcomeRejected   OutcomeKind = "rejected"
)

// RejectUnknown is the rejection reason for faces that matched nobody.
const RejectUnknown = "unknown"

// Outcome is what happened to one recognition result.
type Outcome struct {
	Kind      OutcomeKind `json:"kind"`
	Key       string      `json:"key,omitempty"`
	Timestamp time.Time   `json:"timestamp,omitzero"`
	Reason    string      `json:"reason,omitempty"`
}

// Rejected reports whether the outcome is a rejection.
func (o Outcome) Rejected() bool {
	return o.Kind == OutcomeRejected
}

// Message returns the user-facing status text for the outcome.
func (o Outcome) Message() string {
	switch o.Kind {
	case OutcomeCheckedIn:
		return fmt.Sprintf("%s checked in at %s", o.Key, o.Timestamp.Format("15:04:05"))
	case OutcomeCheckedOut:
		return fmt.Sprintf("%s checked out at %s", o.Key, o.Timestamp.Format("15:04:05"))
	default:
		if o.Reason == RejectUnknown {
			return "Face not recognized"
		}
		return "Rejected: " + o.Reason
	}
}
