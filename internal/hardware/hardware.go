// Package hardware defines the actuator and sensor boundary of the station and an
// in-memory board that implements it.
package hardware

import (
	"context"
	"errors"
)

// ActuatorID names a binary output of the board.
type ActuatorID string

// Actuators wired to the station.
const (
	Fan    ActuatorID = "fan"
	Light  ActuatorID = "light"
	Buzzer ActuatorID = "buzzer"
)

// ErrUnknownActuator is returned for IDs the board does not drive.
var ErrUnknownActuator = errors.New("unknown actuator")

// ErrNoReading is returned when the sensor produced no usable value.
var ErrNoReading = errors.New("sensor returned no reading")

// ParseActuator resolves a user-supplied actuator name.
func ParseActuator(name string) (ActuatorID, error) {
	switch ActuatorID(name) {
	case Fan, Light, Buzzer:
		return ActuatorID(name), nil
	}
	return "", ErrUnknownActuator
}

// Reading is one temperature/humidity sample.
type Reading struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

// Actuators switches binary outputs.
type Actuators interface {
	SetActuator(ctx context.Context, id ActuatorID, on bool) error
}

// Sensor reads the climate sensor. Reads may fail transiently.
type Sensor interface {
	ReadTemperature(ctx context.Context) (Reading, error)
}
