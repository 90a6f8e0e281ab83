package station

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/presence-station/internal/attendance"
	"github.com/kozaktomas/presence-station/internal/capture"
	"github.com/kozaktomas/presence-station/internal/climate"
	"github.com/kozaktomas/presence-station/internal/events"
	"github.com/kozaktomas/presence-station/internal/facematch"
	"github.com/kozaktomas/presence-station/internal/feedback"
	"github.com/kozaktomas/presence-station/internal/fingerprint"
	"github.com/kozaktomas/presence-station/internal/frame"
	"github.com/kozaktomas/presence-station/internal/hardware"
	"github.com/kozaktomas/presence-station/internal/presence"
)

// colorExtractor maps the dominant colour of a frame to a coarse embedding
// centred on zero, so white and red point in different directions.
// Near-black frames contain no face.
type colorExtractor struct{}

func (colorExtractor) ExtractFace(_ context.Context, data []byte) (facematch.Embedding, error) {
	img, err := frame.Decode(data)
	if err != nil {
		return nil, err
	}
	r, g, b, _ := img.At(0, 0).RGBA()
	if r>>8+g>>8+b>>8 < 30 {
		return nil, fingerprint.ErrNoFace
	}
	return facematch.Embedding{float64(r>>14) - 1.5, float64(g>>14) - 1.5, float64(b>>14) - 1.5}, nil
}

type staticGallery facematch.Gallery

func (g staticGallery) Gallery() facematch.Gallery { return facematch.Gallery(g) }

type speech struct {
	mu    sync.Mutex
	lines []string
}

func (s *speech) Notify(feedback.Pattern) {}

func (s *speech) Speak(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, text)
}

func solidPNG(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := range 8 {
		for x := range 8 {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	red   = color.RGBA{R: 255, A: 255}
	black = color.RGBA{A: 255}
)

// aliceGallery holds Alice as a white face. Red faces are unknown.
var aliceGallery = staticGallery{{Key: "Alice", Embedding: facematch.Embedding{1.5, 1.5, 1.5}}}

type fixture struct {
	svc      *Service
	registry *presence.Registry
	log      *attendance.FileLog
	speech   *speech
	clock    *time.Time
}

func newFixture(t *testing.T, g staticGallery) *fixture {
	t.Helper()
	log, err := attendance.NewFileLog(filepath.Join(t.TempDir(), "time_logs.txt"), time.UTC)
	if err != nil {
		t.Fatal(err)
	}

	clock := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	now := func() time.Time { return clock }

	registry := presence.NewRegistry()
	processor := attendance.NewProcessor(registry, log, attendance.WithClock(now))
	sp := &speech{}
	svc := NewService(DefaultConfig(), colorExtractor{}, g, processor, WithNotifier(sp), WithClock(now))
	return &fixture{svc: svc, registry: registry, log: log, speech: sp, clock: &clock}
}

func (f *fixture) advance(d time.Duration) { *f.clock = f.clock.Add(d) }

func (f *fixture) logLines(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(f.log.Path())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestSubmitFrame_CaptureAndConfirm(t *testing.T) {
	f := newFixture(t, aliceGallery)
	ctx := context.Background()

	sess, err := f.svc.OpenSession("front-door")
	if err != nil {
		t.Fatal(err)
	}

	res, err := f.svc.SubmitFrame(ctx, sess.ID, solidPNG(t, black))
	if err != nil {
		t.Fatalf("SubmitFrame(no face) error = %v", err)
	}
	if res.FaceDetected || res.Captured || res.Status != "Face not detected" {
		t.Errorf("SubmitFrame(no face) = %+v", res)
	}

	res, err = f.svc.SubmitFrame(ctx, sess.ID, solidPNG(t, white))
	if err != nil {
		t.Fatalf("SubmitFrame() error = %v", err)
	}
	if !res.Captured || res.Match != "Alice" || res.State != capture.StateCaptured {
		t.Errorf("SubmitFrame() = %+v", res)
	}

	// Further frames are ignored while a capture is held.
	f.advance(5 * time.Second)
	res, err = f.svc.SubmitFrame(ctx, sess.ID, solidPNG(t, red))
	if err != nil || res.Captured {
		t.Errorf("SubmitFrame() while captured = %+v, %v", res, err)
	}

	outcome, err := f.svc.Confirm(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if outcome.Kind != attendance.OutcomeCheckedIn || outcome.Key != "Alice" {
		t.Errorf("Confirm() = %+v", outcome)
	}
	if lines := f.logLines(t); len(lines) != 1 || lines[0] != "Alice,IN,2026-03-02 08:00:05" {
		t.Errorf("log = %v", lines)
	}
	if _, err := f.svc.Confirm(ctx, sess.ID); !errors.Is(err, capture.ErrNothingCaptured) {
		t.Errorf("second Confirm() error = %v, want ErrNothingCaptured", err)
	}
	if len(f.speech.lines) != 1 || f.speech.lines[0] != "Welcome, Alice" {
		t.Errorf("speech = %v", f.speech.lines)
	}
}

func TestSubmitFrame_Debounce(t *testing.T) {
	f := newFixture(t, aliceGallery)
	ctx := context.Background()
	sess, _ := f.svc.OpenSession("")

	if res, _ := f.svc.SubmitFrame(ctx, sess.ID, solidPNG(t, white)); !res.Captured {
		t.Fatal("first frame should be captured")
	}
	if _, err := f.svc.Confirm(ctx, sess.ID); err != nil {
		t.Fatal(err)
	}

	// Within the debounce interval the same face is not captured again.
	for range 5 {
		f.advance(100 * time.Millisecond)
		if res, _ := f.svc.SubmitFrame(ctx, sess.ID, solidPNG(t, white)); res.Captured {
			t.Fatal("frame captured inside the debounce interval")
		}
	}
	f.advance(600 * time.Millisecond)
	if res, _ := f.svc.SubmitFrame(ctx, sess.ID, solidPNG(t, white)); !res.Captured {
		t.Error("frame after the debounce interval should be captured")
	}
}

func TestRetakeAndClose(t *testing.T) {
	f := newFixture(t, aliceGallery)
	ctx := context.Background()
	sess, _ := f.svc.OpenSession("")

	if res, _ := f.svc.SubmitFrame(ctx, sess.ID, solidPNG(t, red)); !res.Captured || res.Match != "" {
		t.Fatalf("unknown face should be captured without a match, got %+v", res)
	}
	if err := f.svc.Retake(sess.ID); err != nil {
		t.Fatal(err)
	}
	// Retake allows an immediate re-capture.
	if res, _ := f.svc.SubmitFrame(ctx, sess.ID, solidPNG(t, white)); !res.Captured || res.Match != "Alice" {
		t.Fatalf("re-capture after retake = %+v", res)
	}

	if err := f.svc.Close(sess.ID); err != nil {
		t.Fatal(err)
	}
	if f.registry.Count() != 0 || f.logLines(t) != nil {
		t.Error("closing a session must not record attendance")
	}
	if _, err := f.svc.SubmitFrame(ctx, sess.ID, solidPNG(t, white)); !errors.Is(err, capture.ErrSessionNotFound) {
		t.Errorf("SubmitFrame() after Close error = %v", err)
	}
}

func TestConfirm_UnknownIsRejected(t *testing.T) {
	f := newFixture(t, aliceGallery)
	ctx := context.Background()
	sess, _ := f.svc.OpenSession("")

	if _, err := f.svc.SubmitFrame(ctx, sess.ID, solidPNG(t, red)); err != nil {
		t.Fatal(err)
	}
	outcome, err := f.svc.Confirm(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if !outcome.Rejected() || outcome.Message() != "Face not recognized" {
		t.Errorf("Confirm() = %+v", outcome)
	}
	if f.logLines(t) != nil || f.registry.Count() != 0 {
		t.Error("unknown face must not be recorded")
	}
}

func TestSnapshot(t *testing.T) {
	f := newFixture(t, aliceGallery)
	ctx := context.Background()

	if _, err := f.svc.Snapshot(ctx, solidPNG(t, black)); !errors.Is(err, fingerprint.ErrNoFace) {
		t.Errorf("Snapshot(no face) error = %v, want ErrNoFace", err)
	}
	if _, err := f.svc.Snapshot(ctx, []byte("garbage")); !errors.Is(err, ErrInvalidFrame) {
		t.Errorf("Snapshot(garbage) error = %v, want ErrInvalidFrame", err)
	}

	out, err := f.svc.Snapshot(ctx, solidPNG(t, white))
	if err != nil || out.Kind != attendance.OutcomeCheckedIn {
		t.Fatalf("Snapshot() = %+v, %v", out, err)
	}
	f.advance(time.Hour)
	out, err = f.svc.Snapshot(ctx, solidPNG(t, white))
	if err != nil || out.Kind != attendance.OutcomeCheckedOut {
		t.Fatalf("Snapshot() = %+v, %v", out, err)
	}
	if got := f.speech.lines; len(got) != 2 || got[1] != "Goodbye, Alice" {
		t.Errorf("speech = %v", got)
	}
}

func TestEmptyGalleryNeverRecords(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for _, c := range []color.Color{white, red} {
		out, err := f.svc.Snapshot(ctx, solidPNG(t, c))
		if err != nil {
			t.Fatalf("Snapshot() error = %v", err)
		}
		if !out.Rejected() {
			t.Errorf("Snapshot() = %+v, want rejected", out)
		}
	}
	if f.logLines(t) != nil {
		t.Error("empty gallery must never produce log entries")
	}
}

func TestConfirm_LogFailureKeepsCapture(t *testing.T) {
	f := newFixture(t, aliceGallery)
	ctx := context.Background()
	sess, _ := f.svc.OpenSession("")
	if _, err := f.svc.SubmitFrame(ctx, sess.ID, solidPNG(t, white)); err != nil {
		t.Fatal(err)
	}

	// Replace the log file with a directory so the append fails.
	if err := os.Mkdir(f.log.Path(), 0o700); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Confirm(ctx, sess.ID); !errors.Is(err, attendance.ErrLogAppend) {
		t.Fatalf("Confirm() error = %v, want ErrLogAppend", err)
	}
	if f.registry.Contains("Alice") {
		t.Error("registry changed despite failed log write")
	}
	if _, err := f.svc.Captured(sess.ID); err != nil {
		t.Errorf("capture should be kept for a retry, got %v", err)
	}

	if err := os.Remove(f.log.Path()); err != nil {
		t.Fatal(err)
	}
	outcome, err := f.svc.Confirm(ctx, sess.ID)
	if err != nil {
		t.Fatalf("Confirm() retry error = %v", err)
	}
	if outcome.Kind != attendance.OutcomeCheckedIn {
		t.Errorf("Confirm() retry = %+v, want checked in", outcome)
	}
}

// slowLog delays every append so overlapping confirms race on the same frame.
type slowLog struct {
	attendance.Log
	delay time.Duration
}

func (l slowLog) Append(ctx context.Context, e attendance.Entry) error {
	time.Sleep(l.delay)
	return l.Log.Append(ctx, e)
}

func TestConfirm_ConcurrentCommitsOnce(t *testing.T) {
	log, err := attendance.NewFileLog(filepath.Join(t.TempDir(), "time_logs.txt"), time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	registry := presence.NewRegistry()
	processor := attendance.NewProcessor(registry, slowLog{Log: log, delay: 50 * time.Millisecond})
	svc := NewService(DefaultConfig(), colorExtractor{}, aliceGallery, processor)
	ctx := context.Background()

	sess, _ := svc.OpenSession("")
	if res, err := svc.SubmitFrame(ctx, sess.ID, solidPNG(t, white)); err != nil || !res.Captured {
		t.Fatalf("SubmitFrame() = %+v, %v", res, err)
	}

	const confirms = 5
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		outcomes  []attendance.Outcome
		conflicts int
	)
	for range confirms {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, err := svc.Confirm(ctx, sess.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				outcomes = append(outcomes, o)
			case errors.Is(err, capture.ErrNothingCaptured):
				conflicts++
			default:
				t.Errorf("Confirm() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if len(outcomes) != 1 || outcomes[0].Kind != attendance.OutcomeCheckedIn {
		t.Fatalf("outcomes = %+v, want a single check-in", outcomes)
	}
	if conflicts != confirms-1 {
		t.Errorf("conflicts = %d, want %d", conflicts, confirms-1)
	}
	entries, err := log.Entries(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("log has %d entries, want 1: %+v", len(entries), entries)
	}
	if !registry.Contains("Alice") {
		t.Error("Alice should be present after one confirmed frame")
	}
}

// Recognising A twice drives the light on and off through the controller.
func TestEndToEnd_PresenceDrivesLight(t *testing.T) {
	f := newFixture(t, aliceGallery)
	ctx := context.Background()

	board := hardware.NewSimBoard(hardware.Reading{Temperature: 21}, nil)
	ctrl := climate.NewController(climate.Config{SensorAttempts: 1}, board, board, f.registry)

	if _, err := f.svc.Snapshot(ctx, solidPNG(t, white)); err != nil {
		t.Fatal(err)
	}
	if !f.registry.Contains("Alice") || f.registry.Count() != 1 {
		t.Fatal("Alice should be present")
	}
	ctrl.Tick(ctx)
	if !ctrl.State().Light.On {
		t.Error("light should be on while Alice is present")
	}

	f.advance(30 * time.Minute)
	if _, err := f.svc.Snapshot(ctx, solidPNG(t, white)); err != nil {
		t.Fatal(err)
	}
	if f.registry.Count() != 0 {
		t.Fatal("registry should be empty")
	}
	ctrl.Tick(ctx)
	if ctrl.State().Light.On {
		t.Error("light should be off once Alice left")
	}

	want := []string{"Alice,IN,2026-03-02 08:00:00", "Alice,OUT,2026-03-02 08:30:00"}
	lines := f.logLines(t)
	if len(lines) != 2 || lines[0] != want[0] || lines[1] != want[1] {
		t.Errorf("log = %v, want %v", lines, want)
	}
}

func TestEventsPublished(t *testing.T) {
	f := newFixture(t, aliceGallery)
	b := events.NewBroadcaster()
	f.svc.events = b
	ch := b.AddListener()
	defer b.RemoveListener(ch)

	if _, err := f.svc.Snapshot(context.Background(), solidPNG(t, white)); err != nil {
		t.Fatal(err)
	}
	select {
	case ev := <-ch:
		if ev.Type != events.TypeCheckedIn {
			t.Errorf("event type = %s, want %s", ev.Type, events.TypeCheckedIn)
		}
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestStatusText(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fingerprint.ErrNoFace, "Face not detected"},
		{ErrInvalidFrame, "Camera error"},
		{capture.ErrSessionNotFound, "Session expired"},
		{attendance.ErrLogAppend, "Could not save attendance, please try again"},
		{errors.New("boom"), "Recognition failed"},
	}
	for _, tt := range tests {
		if got := StatusText(tt.err); got != tt.want {
			t.Errorf("StatusText(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
