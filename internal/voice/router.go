// Package voice routes spoken or typed text either to a device command or to the assistant.
package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kozaktomas/presence-station/internal/assistant"
	"github.com/kozaktomas/presence-station/internal/climate"
	"github.com/kozaktomas/presence-station/internal/feedback"
)

// Response kinds.
const (
	KindCommand = "command"
	KindAnswer  = "answer"
)

// ErrEmptyCommand is returned for blank input.
var ErrEmptyCommand = errors.New("empty command")

// ErrNoAssistant is returned for questions when no assistant is configured.
var ErrNoAssistant = errors.New("no assistant configured")

// Devices are the actuators a command can drive.
type Devices interface {
	SetFan(ctx context.Context, on bool) (climate.ActuatorState, error)
	SetLight(ctx context.Context, on bool) (climate.ActuatorState, error)
}

// Response is the result of one command.
type Response struct {
	Kind   string `json:"kind"`
	Action Action `json:"action,omitempty"`
	Text   string `json:"text"`
}

// Router classifies text against a vocabulary.
type Router struct {
	vocab    Vocabulary
	devices  Devices
	answerer assistant.Answerer
	notifier feedback.Notifier
	logger   *zap.Logger
}

// NewRouter creates a router. answerer may be nil, in which case questions fail with ErrNoAssistant.
func NewRouter(vocab Vocabulary, devices Devices, answerer assistant.Answerer, notifier feedback.Notifier, logger *zap.Logger) *Router {
	if notifier == nil {
		notifier = feedback.Discard
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		vocab:    vocab,
		devices:  devices,
		answerer: answerer,
		notifier: notifier,
		logger:   logger,
	}
}

// HandleCommand runs a device command when text contains a known phrase and asks
// the assistant otherwise. The reply is spoken through the notifier.
func (r *Router) HandleCommand(ctx context.Context, text string) (Response, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Response{}, ErrEmptyCommand
	}

	if cmd, ok := r.vocab.Classify(text); ok {
		return r.execute(ctx, cmd)
	}

	if r.answerer == nil {
		return Response{}, ErrNoAssistant
	}

	r.logger.Debug("forwarding question", zap.String("assistant", r.answerer.Name()))
	answer, err := r.answerer.Ask(ctx, text)
	if err != nil {
		return Response{}, fmt.Errorf("ask %s: %w", r.answerer.Name(), err)
	}
	r.notifier.Speak(answer)
	return Response{Kind: KindAnswer, Text: answer}, nil
}

func (r *Router) execute(ctx context.Context, cmd Command) (Response, error) {
	var err error
	switch cmd.Action {
	case LightOn:
		_, err = r.devices.SetLight(ctx, true)
	case LightOff:
		_, err = r.devices.SetLight(ctx, false)
	case FanOn:
		_, err = r.devices.SetFan(ctx, true)
	case FanOff:
		_, err = r.devices.SetFan(ctx, false)
	}
	if err != nil {
		return Response{}, fmt.Errorf("%s: %w", cmd.Action, err)
	}

	r.logger.Info("voice command executed", zap.String("action", string(cmd.Action)))
	reply := cmd.Reply
	if reply == "" {
		reply = strings.ReplaceAll(string(cmd.Action), "_", " ")
	}
	r.notifier.Speak(reply)
	return Response{Kind: KindCommand, Action: cmd.Action, Text: reply}, nil
}
