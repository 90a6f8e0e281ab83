package attendance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kozaktomas/presence-station/internal/facematch"
	"github.com/kozaktomas/presence-station/internal/presence"
)

// Processor applies the IN/OUT toggle for recognized identities.
// It is the single writer of the presence registry.
type Processor struct {
	registry *presence.Registry
	log      Log
	now      func() time.Time
	logger   *zap.Logger

	// mu serializes decide, append and mutate so two stations committing the same
	// identity cannot both observe "absent".
	mu sync.Mutex
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithClock overrides the time source.
func WithClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) { p.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) ProcessorOption {
	return func(p *Processor) { p.logger = logger }
}

// NewProcessor creates a processor over registry and log.
func NewProcessor(registry *presence.Registry, log Log, opts ...ProcessorOption) *Processor {
	p := &Processor{
		registry: registry,
		log:      log,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process turns one recognition result into an outcome.
// Unknown results are rejected without touching the registry or the log.
// If the log append fails the registry is not modified and an error wrapping
// ErrLogAppend is returned.
func (p *Processor) Process(ctx context.Context, result facematch.MatchResult) (Outcome, error) {
	if result.IsUnknown() {
		p.logger.Debug("rejected unknown face")
		return Outcome{Kind: OutcomeRejected, Reason: RejectUnknown}, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key := result.Key
	ts := p.now().Truncate(time.Second)

	action := ActionIn
	if p.registry.Contains(key) {
		action = ActionOut
	}

	if err := p.log.Append(ctx, Entry{Key: key, Action: action, Timestamp: ts}); err != nil {
		p.logger.Error("attendance not recorded",
			zap.String("key", key),
			zap.String("action", string(action)),
			zap.Error(err))
		return Outcome{}, fmt.Errorf("%w: %w", ErrLogAppend, err)
	}

	if action == ActionIn {
		p.registry.CheckIn(key, ts)
		p.logger.Info("checked in", zap.String("key", key), zap.Time("at", ts))
		return Outcome{Kind: OutcomeCheckedIn, Key: key, Timestamp: ts}, nil
	}

	p.registry.CheckOut(key)
	p.logger.Info("checked out", zap.String("key", key), zap.Time("at", ts))
	return Outcome{Kind: OutcomeCheckedOut, Key: key, Timestamp: ts}, nil
}
