package station

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/kozaktomas/presence-station/internal/constants"
)

// FrameSource delivers camera frames. A source with no more frames returns an
// error wrapping io.EOF; any other error is a failed read.
type FrameSource interface {
	Frame(ctx context.Context) ([]byte, error)
}

// Choice is the user's answer for a captured frame.
type Choice int

// Choice constants
const (
	ChoiceConfirm Choice = iota
	ChoiceRetake
	ChoiceQuit
)

// Prompter asks the user what to do with a captured frame. retry is set when
// the previous confirm of the same frame failed.
type Prompter interface {
	Ask(ctx context.Context, retry bool) (Choice, error)
}

// Kiosk runs the capture loop of one station: frames in, prompt on capture,
// attendance recorded on confirm.
type Kiosk struct {
	svc         *Service
	src         FrameSource
	prompt      Prompter
	out         io.Writer
	station     string
	retryDelay  time.Duration
	maxFailures int
}

// NewKiosk creates a kiosk loop writing status lines to out.
func NewKiosk(svc *Service, src FrameSource, prompt Prompter, out io.Writer, station string) *Kiosk {
	return &Kiosk{
		svc:         svc,
		src:         src,
		prompt:      prompt,
		out:         out,
		station:     station,
		retryDelay:  constants.CameraRetryDelay,
		maxFailures: constants.MaxCameraFailures,
	}
}

// Run loops until the user quits, the source runs out of frames or ctx is done.
// Failed camera reads are reported and skipped; only a long run of them is fatal.
func (k *Kiosk) Run(ctx context.Context) error {
	sess, err := k.svc.OpenSession(k.station)
	if err != nil {
		return err
	}
	defer k.svc.Close(sess.ID)

	failures := 0
	for {
		data, err := k.src.Frame(ctx)
		if ctx.Err() != nil || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			failures++
			fmt.Fprintf(k.out, "Camera error: %v\n", err)
			if failures >= k.maxFailures {
				return fmt.Errorf("camera failed %d times in a row: %w", failures, err)
			}
			pause(ctx, k.retryDelay)
			continue
		}
		failures = 0

		res, err := k.svc.SubmitFrame(ctx, sess.ID, data)
		if err != nil {
			fmt.Fprintln(k.out, StatusText(err))
			continue
		}
		if !res.Captured {
			continue
		}
		fmt.Fprintln(k.out, res.Status)

		quit, err := k.decide(ctx, sess.ID)
		if err != nil || quit {
			return err
		}
	}
}

// decide prompts until the captured frame is confirmed, retaken or the user quits.
func (k *Kiosk) decide(ctx context.Context, sessionID string) (bool, error) {
	retry := false
	for {
		choice, err := k.prompt.Ask(ctx, retry)
		if err != nil {
			// Closed input ends the loop like quit.
			return true, nil
		}

		switch choice {
		case ChoiceQuit:
			return true, nil
		case ChoiceRetake:
			return false, k.svc.Retake(sessionID)
		default:
			outcome, err := k.svc.Confirm(ctx, sessionID)
			if err != nil {
				fmt.Fprintln(k.out, StatusText(err))
				retry = true
				continue
			}
			fmt.Fprintln(k.out, outcome.Message())
			return false, nil
		}
	}
}

func pause(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
