// Package station orchestrates recognition: frames come in, identities are matched,
// captures are confirmed and attendance is recorded.
package station

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/kozaktomas/presence-station/internal/attendance"
	"github.com/kozaktomas/presence-station/internal/capture"
	"github.com/kozaktomas/presence-station/internal/constants"
	"github.com/kozaktomas/presence-station/internal/events"
	"github.com/kozaktomas/presence-station/internal/facematch"
	"github.com/kozaktomas/presence-station/internal/feedback"
	"github.com/kozaktomas/presence-station/internal/fingerprint"
	"github.com/kozaktomas/presence-station/internal/frame"
)

// ErrInvalidFrame is returned for frames that cannot be decoded.
var ErrInvalidFrame = errors.New("invalid frame")

// GalleryProvider returns the current gallery.
type GalleryProvider interface {
	Gallery() facematch.Gallery
}

// Candidate is a captured frame waiting for confirmation.
type Candidate struct {
	Frame      []byte
	Result     facematch.MatchResult
	CapturedAt time.Time
}

// FrameResult describes what happened to a submitted frame.
type FrameResult struct {
	FaceDetected bool          `json:"face_detected"`
	Captured     bool          `json:"captured"`
	State        capture.State `json:"state"`
	Match        string        `json:"match,omitempty"`
	Status       string        `json:"status"`
}

// Config holds the service parameters.
type Config struct {
	Tolerance        float64
	DebounceInterval time.Duration
	MaxSessions      int
	Frame            frame.Options
}

// DefaultConfig returns the station defaults.
func DefaultConfig() Config {
	return Config{
		Tolerance:        constants.DefaultMatchTolerance,
		DebounceInterval: constants.DefaultDebounceInterval,
		MaxSessions:      constants.MaxOpenSessions,
		Frame:            frame.Options{MaxSize: constants.MaxFrameSize},
	}
}

// Service is safe for concurrent use by several stations.
type Service struct {
	cfg       Config
	extractor fingerprint.Extractor
	gallery   GalleryProvider
	matcher   *facematch.Matcher
	sessions  *capture.Sessions[Candidate]
	processor *attendance.Processor
	notifier  feedback.Notifier
	events    events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets the feedback sink.
func WithNotifier(n feedback.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithPublisher sets the event sink.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.events = p }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock overrides the time source used for debouncing.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires the recognition pipeline.
func NewService(cfg Config, extractor fingerprint.Extractor, gallery GalleryProvider, processor *attendance.Processor, opts ...Option) *Service {
	s := &Service{
		cfg:       cfg,
		extractor: extractor,
		gallery:   gallery,
		matcher:   facematch.NewMatcher(cfg.Tolerance, facematch.FirstWithinTolerance),
		sessions:  capture.NewSessions[Candidate](cfg.DebounceInterval, cfg.MaxSessions),
		processor: processor,
		notifier:  feedback.Discard,
		events:    events.Discard,
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenSession starts a capture session.
func (s *Service) OpenSession(station string) (*capture.Session[Candidate], error) {
	sess, err := s.sessions.Open(station)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("capture session opened", zap.String("session", sess.ID), zap.String("station", station))
	return sess, nil
}

// Sessions returns the open sessions.
func (s *Service) Sessions() []*capture.Session[Candidate] {
	return s.sessions.List()
}

// SubmitFrame runs one frame through extraction, matching and the session's gate.
// A frame without a face is not an error.
func (s *Service) SubmitFrame(ctx context.Context, sessionID string, image []byte) (FrameResult, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return FrameResult{}, err
	}
	if state := sess.Gate.State(); state != capture.StateIdle {
		return FrameResult{FaceDetected: true, State: state, Status: "Confirm or retake the captured photo"}, nil
	}

	data, emb, err := s.extract(ctx, image)
	if errors.Is(err, fingerprint.ErrNoFace) {
		return FrameResult{State: sess.Gate.State(), Status: StatusText(err)}, nil
	}
	if err != nil {
		return FrameResult{}, err
	}

	result := s.matcher.Match(emb, s.gallery.Gallery())
	now := s.now()
	captured := sess.Gate.Offer(Candidate{Frame: data, Result: result, CapturedAt: now}, true, now)

	fr := FrameResult{FaceDetected: true, Captured: captured, State: sess.Gate.State()}
	if !captured {
		fr.Status = "Hold still"
		return fr, nil
	}

	fr.Match = result.Key
	fr.Status = fmt.Sprintf("Captured %s. Confirm or retake.", displayName(result))
	s.events.Publish(events.Event{
		Type:    events.TypeCaptured,
		Message: fr.Status,
		Data:    map[string]string{"session": sess.ID, "match": result.String()},
	})
	return fr, nil
}

// Retake drops the captured frame of a session.
func (s *Service) Retake(sessionID string) error {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return err
	}
	sess.Gate.Retake()
	return nil
}

// Captured returns the frame held by a session.
func (s *Service) Captured(sessionID string) (Candidate, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return Candidate{}, err
	}
	return sess.Gate.Held()
}

// Confirm records attendance for the captured frame of a session. A frame is
// committed at most once; concurrent confirms of the same frame get ErrNothingCaptured.
// When the log write fails the frame stays captured so the user can try again.
func (s *Service) Confirm(ctx context.Context, sessionID string) (attendance.Outcome, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return attendance.Outcome{}, err
	}
	cand, err := sess.Gate.Take()
	if err != nil {
		return attendance.Outcome{}, err
	}

	outcome, err := s.processor.Process(ctx, cand.Result)
	if err != nil {
		sess.Gate.Release()
		s.logger.Error("attendance commit failed", zap.String("session", sess.ID), zap.Error(err))
		return attendance.Outcome{}, err
	}
	sess.Gate.Reset()
	s.announce(outcome)
	return outcome, nil
}

// Close discards a session. Nothing is recorded for a frame that was never confirmed.
func (s *Service) Close(sessionID string) error {
	return s.sessions.Close(sessionID)
}

// Snapshot recognises a single frame and records attendance immediately.
func (s *Service) Snapshot(ctx context.Context, image []byte) (attendance.Outcome, error) {
	_, emb, err := s.extract(ctx, image)
	if err != nil {
		return attendance.Outcome{}, err
	}

	result := s.matcher.Match(emb, s.gallery.Gallery())
	outcome, err := s.processor.Process(ctx, result)
	if err != nil {
		return attendance.Outcome{}, err
	}
	s.announce(outcome)
	return outcome, nil
}

// RunJanitor closes sessions older than maxAge every interval until ctx is done.
func (s *Service) RunJanitor(ctx context.Context, interval, maxAge time.Duration) error {
	sched := gocron.NewScheduler(time.Local)
	sched.SingletonModeAll()

	_, err := sched.Every(interval).Do(func() {
		if n := s.sessions.CloseIdle(s.now().Add(-maxAge)); n > 0 {
			s.logger.Info("closed idle capture sessions", zap.Int("count", n))
		}
	})
	if err != nil {
		return fmt.Errorf("schedule session janitor: %w", err)
	}

	sched.StartAsync()
	<-ctx.Done()
	sched.Stop()
	return nil
}

func (s *Service) extract(ctx context.Context, image []byte) ([]byte, facematch.Embedding, error) {
	data, err := frame.Normalize(image, s.cfg.Frame)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidFrame, err)
	}
	emb, err := s.extractor.ExtractFace(ctx, data)
	if err != nil {
		return nil, nil, err
	}
	return data, emb, nil
}

func (s *Service) announce(o attendance.Outcome) {
	var typ, speech string
	switch o.Kind {
	case attendance.OutcomeCheckedIn:
		typ, speech = events.TypeCheckedIn, "Welcome, "+facematch.DisplayName(o.Key)
	case attendance.OutcomeCheckedOut:
		typ, speech = events.TypeCheckedOut, "Goodbye, "+facematch.DisplayName(o.Key)
	default:
		typ, speech = events.TypeRejected, o.Message()
	}

	s.logger.Info("attendance", zap.String("outcome", string(o.Kind)), zap.String("key", o.Key))
	s.notifier.Speak(speech)
	s.events.Publish(events.Event{Type: typ, Message: o.Message(), Data: o})
}

func displayName(r facematch.MatchResult) string {
	if r.IsUnknown() {
		return "an unknown face"
	}
	return facematch.DisplayName(r.Key)
}

// StatusText maps errors of the recognition path to short user-facing texts.
func StatusText(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, fingerprint.ErrNoFace):
		return "Face not detected"
	case errors.Is(err, ErrInvalidFrame):
		return "Camera error"
	case errors.Is(err, capture.ErrNothingCaptured):
		return "Nothing captured yet"
	case errors.Is(err, capture.ErrSessionNotFound):
		return "Session expired"
	case errors.Is(err, attendance.ErrLogAppend):
		return "Could not save attendance, please try again"
	default:
		return "Recognition failed"
	}
}
