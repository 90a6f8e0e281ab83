// Package climate runs the fan and light control loop of the station.
package climate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/kozaktomas/presence-station/internal/constants"
	"github.com/kozaktomas/presence-station/internal/events"
	"github.com/kozaktomas/presence-station/internal/feedback"
	"github.com/kozaktomas/presence-station/internal/hardware"
)

// Mode tells whether an actuator follows the control loop.
type Mode string

const (
	Auto   Mode = "AUTO"
	Manual Mode = "MANUAL"
)

// Occupancy reports how many people are present.
type Occupancy interface {
	Count() int
}

// Config holds the controller parameters.
type Config struct {
	Interval       time.Duration
	FanThreshold   float64
	SensorAttempts int
	SensorDelay    time.Duration
	SensorTimeout  time.Duration
}

// DefaultConfig returns the station defaults.
func DefaultConfig() Config {
	return Config{
		Interval:       constants.DefaultControlInterval,
		FanThreshold:   constants.DefaultFanThreshold,
		SensorAttempts: constants.DefaultSensorAttempts,
		SensorDelay:    constants.DefaultSensorRetryDelay,
		SensorTimeout:  constants.DefaultSensorTimeout,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.SensorAttempts <= 0 {
		c.SensorAttempts = d.SensorAttempts
	}
	if c.SensorDelay <= 0 {
		c.SensorDelay = d.SensorDelay
	}
	if c.SensorTimeout <= 0 {
		c.SensorTimeout = d.SensorTimeout
	}
	return c
}

// ActuatorState is the recorded level and mode of one actuator.
type ActuatorState struct {
	On   bool `json:"on"`
	Mode Mode `json:"mode"`
}

// State is a point-in-time view of the controller.
type State struct {
	Fan         ActuatorState     `json:"fan"`
	Light       ActuatorState     `json:"light"`
	Threshold   float64           `json:"threshold"`
	LastReading *hardware.Reading `json:"last_reading,omitempty"`
	ReadAt      time.Time         `json:"read_at,omitzero"`
	Occupancy   int               `json:"occupancy"`
}

// TickReport describes what one tick observed and changed.
type TickReport struct {
	Reading      *hardware.Reading
	SensorErr    error
	Occupancy    int
	FanChanged   bool
	LightChanged bool
}

// Controller owns the fan and light state. The zero value is not usable; use NewController.
type Controller struct {
	cfg      Config
	sensor   hardware.Sensor
	out      hardware.Actuators
	presence Occupancy
	notifier feedback.Notifier
	events   events.Publisher
	logger   *zap.Logger

	// tickMu serialises ticks and manual changes; mu guards the fields below it.
	tickMu  sync.Mutex
	mu      sync.Mutex
	fan     ActuatorState
	light   ActuatorState
	reading *hardware.Reading
	readAt  time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithNotifier sets the feedback sink for actuator transitions.
func WithNotifier(n feedback.Notifier) Option {
	return func(c *Controller) { c.notifier = n }
}

// WithPublisher sets the event sink.
func WithPublisher(p events.Publisher) Option {
	return func(c *Controller) { c.events = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// NewController creates a controller with both actuators OFF in AUTO mode.
func NewController(cfg Config, sensor hardware.Sensor, out hardware.Actuators, presence Occupancy, opts ...Option) *Controller {
	c := &Controller{
		cfg:      cfg.withDefaults(),
		sensor:   sensor,
		out:      out,
		presence: presence,
		notifier: feedback.Discard,
		events:   events.Discard,
		logger:   zap.NewNop(),
		fan:      ActuatorState{Mode: Auto},
		light:    ActuatorState{Mode: Auto},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tick runs one control cycle. The light follows occupancy before the sensor is
// read, so a failing sensor never delays it.
func (c *Controller) Tick(ctx context.Context) TickReport {
	c.tickMu.Lock()
	defer c.tickMu.Unlock()

	var report TickReport

	report.Occupancy = c.presence.Count()
	report.LightChanged = c.decideLight(ctx, report.Occupancy > 0)

	reading, err := c.readWithRetry(ctx)
	if err != nil {
		report.SensorErr = err
		c.logger.Warn("sensor read failed, skipping fan decision", zap.Error(err))
		c.events.Publish(events.Event{Type: events.TypeSensorFailure, Message: err.Error()})
		return report
	}

	report.Reading = &reading
	c.mu.Lock()
	c.reading = &reading
	c.readAt = time.Now()
	c.mu.Unlock()
	c.events.Publish(events.Event{Type: events.TypeReading, Data: reading})

	report.FanChanged = c.decideFan(ctx, reading.Temperature)
	return report
}

func (c *Controller) decideFan(ctx context.Context, temp float64) bool {
	c.mu.Lock()
	fan := c.fan
	c.mu.Unlock()

	if fan.Mode == Manual {
		return false
	}
	switch {
	case temp > c.cfg.FanThreshold && !fan.On:
		return c.apply(ctx, hardware.Fan, true, Auto)
	case temp <= c.cfg.FanThreshold && fan.On:
		return c.apply(ctx, hardware.Fan, false, Auto)
	}
	return false
}

func (c *Controller) decideLight(ctx context.Context, occupied bool) bool {
	c.mu.Lock()
	on := c.light.On
	c.mu.Unlock()

	if occupied == on {
		return false
	}
	return c.apply(ctx, hardware.Light, occupied, Auto)
}

func (c *Controller) readWithRetry(ctx context.Context) (hardware.Reading, error) {
	var reading hardware.Reading

	// Flat delay between attempts, as the sensor needs no longer to settle.
	policy := backoff.NewConstantBackOff(c.cfg.SensorDelay)
	retries := uint64(c.cfg.SensorAttempts - 1)

	attempt := 0
	op := func() error {
		attempt++
		actx, cancel := context.WithTimeout(ctx, c.cfg.SensorTimeout)
		defer cancel()

		r, err := c.sensor.ReadTemperature(actx)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			c.logger.Debug("sensor read attempt failed", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		reading = r
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, retries), ctx))
	if err != nil {
		return hardware.Reading{}, fmt.Errorf("read sensor after %d attempts: %w", attempt, err)
	}
	return reading, nil
}

// apply writes the actuator and, on success, records the new level and mode.
func (c *Controller) apply(ctx context.Context, id hardware.ActuatorID, on bool, mode Mode) bool {
	if err := c.out.SetActuator(ctx, id, on); err != nil {
		c.logger.Error("actuator write failed",
			zap.String("actuator", string(id)), zap.Bool("on", on), zap.Error(err))
		return false
	}

	c.mu.Lock()
	switch id {
	case hardware.Fan:
		c.fan = ActuatorState{On: on, Mode: mode}
	case hardware.Light:
		c.light = ActuatorState{On: on, Mode: mode}
	}
	c.mu.Unlock()

	c.logger.Info("actuator switched",
		zap.String("actuator", string(id)), zap.Bool("on", on), zap.String("mode", string(mode)))
	c.notifier.Notify(pattern(id, on))
	c.events.Publish(events.Event{
		Type:    events.TypeActuator,
		Message: fmt.Sprintf("%s %s", id, onOff(on)),
		Data:    map[string]any{"actuator": id, "on": on, "mode": mode},
	})
	return true
}

// ToggleFan flips the fan and switches it to MANUAL for good.
func (c *Controller) ToggleFan(ctx context.Context) (ActuatorState, error) {
	c.tickMu.Lock()
	defer c.tickMu.Unlock()

	c.mu.Lock()
	target := !c.fan.On
	c.mu.Unlock()
	return c.setManualFan(ctx, target)
}

// SetFan drives the fan to on and switches it to MANUAL for good.
func (c *Controller) SetFan(ctx context.Context, on bool) (ActuatorState, error) {
	c.tickMu.Lock()
	defer c.tickMu.Unlock()
	return c.setManualFan(ctx, on)
}

func (c *Controller) setManualFan(ctx context.Context, on bool) (ActuatorState, error) {
	// The user asked for manual control even if the relay does not respond.
	c.mu.Lock()
	c.fan.Mode = Manual
	c.mu.Unlock()

	err := c.setActuator(ctx, hardware.Fan, on, Manual)

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fan, err
}

// ToggleLight flips the light once. The next tick may undo it.
func (c *Controller) ToggleLight(ctx context.Context) (ActuatorState, error) {
	c.tickMu.Lock()
	defer c.tickMu.Unlock()

	c.mu.Lock()
	target := !c.light.On
	c.mu.Unlock()
	return c.setLight(ctx, target)
}

// SetLight drives the light to on. The next tick may undo it.
func (c *Controller) SetLight(ctx context.Context, on bool) (ActuatorState, error) {
	c.tickMu.Lock()
	defer c.tickMu.Unlock()
	return c.setLight(ctx, on)
}

func (c *Controller) setLight(ctx context.Context, on bool) (ActuatorState, error) {
	err := c.setActuator(ctx, hardware.Light, on, Auto)

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.light, err
}

// ErrActuator wraps failed actuator writes from manual changes.
var ErrActuator = errors.New("actuator write failed")

func (c *Controller) setActuator(ctx context.Context, id hardware.ActuatorID, on bool, mode Mode) error {
	c.mu.Lock()
	var current bool
	if id == hardware.Fan {
		current = c.fan.On
	} else {
		current = c.light.On
	}
	c.mu.Unlock()

	if current == on {
		return nil
	}
	if !c.apply(ctx, id, on, mode) {
		return fmt.Errorf("%w: %s", ErrActuator, id)
	}
	return nil
}

// State returns a snapshot of the controller.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := State{
		Fan:       c.fan,
		Light:     c.light,
		Threshold: c.cfg.FanThreshold,
		ReadAt:    c.readAt,
		Occupancy: c.presence.Count(),
	}
	if c.reading != nil {
		r := *c.reading
		s.LastReading = &r
	}
	return s
}

// Run ticks every configured interval until ctx is done.
func (c *Controller) Run(ctx context.Context) error {
	s := gocron.NewScheduler(time.Local)
	s.SingletonModeAll()

	_, err := s.Every(c.cfg.Interval).Do(func() { c.Tick(ctx) })
	if err != nil {
		return fmt.Errorf("schedule control tick: %w", err)
	}

	c.logger.Info("control loop started",
		zap.Duration("interval", c.cfg.Interval), zap.Float64("fan_threshold", c.cfg.FanThreshold))
	s.StartAsync()
	<-ctx.Done()
	s.Stop()
	c.logger.Info("control loop stopped")
	return nil
}

func pattern(id hardware.ActuatorID, on bool) feedback.Pattern {
	switch {
	case id == hardware.Fan && on:
		return feedback.FanOn
	case id == hardware.Fan:
		return feedback.FanOff
	case on:
		return feedback.LightOn
	default:
		return feedback.LightOff
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
