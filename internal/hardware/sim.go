package hardware

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Write records one actuator change made on a SimBoard.
type Write struct {
	ID ActuatorID
	On bool
}

// SimBoard is an in-memory board with relays, a buzzer and a climate sensor.
// It is used when no physical driver is attached and in tests.
type SimBoard struct {
	logger *zap.Logger

	mu        sync.Mutex
	outputs   map[ActuatorID]bool
	writes    []Write
	reading   Reading
	failReads int
	failWrite map[ActuatorID]error
}

// NewSimBoard creates a board with every output off and the given initial reading.
func NewSimBoard(initial Reading, logger *zap.Logger) *SimBoard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimBoard{
		logger:    logger,
		outputs:   map[ActuatorID]bool{Fan: false, Light: false, Buzzer: false},
		reading:   initial,
		failWrite: make(map[ActuatorID]error),
	}
}

// SetActuator switches an output.
func (b *SimBoard) SetActuator(ctx context.Context, id ActuatorID, on bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.outputs[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownActuator, id)
	}
	if err := b.failWrite[id]; err != nil {
		return err
	}
	b.outputs[id] = on
	b.writes = append(b.writes, Write{ID: id, On: on})
	if id != Buzzer {
		b.logger.Debug("relay switched", zap.String("actuator", string(id)), zap.Bool("on", on))
	}
	return nil
}

// ReadTemperature returns the current simulated reading.
func (b *SimBoard) ReadTemperature(ctx context.Context) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failReads > 0 {
		b.failReads--
		return Reading{}, ErrNoReading
	}
	return b.reading, nil
}

// SetReading changes the simulated climate.
func (b *SimBoard) SetReading(r Reading) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reading = r
}

// FailNextReads makes the next n reads fail.
func (b *SimBoard) FailNextReads(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failReads = n
}

// FailWrites makes every write to id fail with err. A nil err clears the failure.
func (b *SimBoard) FailWrites(id ActuatorID, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.failWrite, id)
		return
	}
	b.failWrite[id] = err
}

// Output returns the current level of an output.
func (b *SimBoard) Output(id ActuatorID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.outputs[id]
}

// Writes returns every write made so far, optionally filtered by id.
func (b *SimBoard) Writes(id ActuatorID) []Write {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Write
	for _, w := range b.writes {
		if id == "" || w.ID == id {
			out = append(out, w)
		}
	}
	return out
}
