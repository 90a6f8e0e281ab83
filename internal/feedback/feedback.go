// Package feedback gives audible and spoken feedback without blocking callers.
package feedback

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kozaktomas/presence-station/internal/constants"
	"github.com/kozaktomas/presence-station/internal/hardware"
)

// Pattern is a buzzer signal. The pulse count tells which actuator changed and how.
type Pattern struct {
	Name   string `json:"name"`
	Pulses int    `json:"pulses"`
}

// Patterns for actuator transitions.
var (
	FanOn    = Pattern{Name: "fan_on", Pulses: 2}
	FanOff   = Pattern{Name: "fan_off", Pulses: 1}
	LightOn  = Pattern{Name: "light_on", Pulses: 3}
	LightOff = Pattern{Name: "light_off", Pulses: 4}
)

// Notifier is a fire-and-forget feedback sink. Implementations must not block.
type Notifier interface {
	Notify(p Pattern)
	Speak(text string)
}

// Discard is a Notifier that ignores everything.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(Pattern) {}
func (discard) Speak(string)   {}

// Buzzer pulses the buzzer output for each pattern on a background worker.
// Spoken text is written to the log; there is no speech synthesis on the station.
type Buzzer struct {
	out    hardware.Actuators
	logger *zap.Logger
	pulse  time.Duration
	gap    time.Duration
	queue  chan Pattern
}

// NewBuzzer creates a buzzer driving the hardware.Buzzer output of out.
func NewBuzzer(out hardware.Actuators, logger *zap.Logger) *Buzzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Buzzer{
		out:    out,
		logger: logger,
		pulse:  constants.BuzzerPulse,
		gap:    constants.BuzzerGap,
		queue:  make(chan Pattern, constants.FeedbackQueueSize),
	}
}

// Notify queues a pattern. When the queue is full the pattern is dropped.
func (b *Buzzer) Notify(p Pattern) {
	select {
	case b.queue <- p:
	default:
		b.logger.Debug("feedback queue full, pattern dropped", zap.String("pattern", p.Name))
	}
}

// Speak announces text.
func (b *Buzzer) Speak(text string) {
	b.logger.Info("announce", zap.String("text", text))
}

// Run plays queued patterns until ctx is done.
func (b *Buzzer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-b.queue:
			b.play(ctx, p)
		}
	}
}

func (b *Buzzer) play(ctx context.Context, p Pattern) {
	for i := range p.Pulses {
		if err := b.out.SetActuator(ctx, hardware.Buzzer, true); err != nil {
			b.logger.Warn("buzzer write failed", zap.String("pattern", p.Name), zap.Error(err))
			return
		}
		sleep(ctx, b.pulse)
		// The buzzer must never be left on, even when ctx is already cancelled.
		if err := b.out.SetActuator(context.WithoutCancel(ctx), hardware.Buzzer, false); err != nil {
			b.logger.Warn("buzzer write failed", zap.String("pattern", p.Name), zap.Error(err))
			return
		}
		if i < p.Pulses-1 {
			sleep(ctx, b.gap)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
