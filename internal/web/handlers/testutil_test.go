package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kozaktomas/presence-station/internal/attendance"
	"github.com/kozaktomas/presence-station/internal/climate"
	"github.com/kozaktomas/presence-station/internal/events"
	"github.com/kozaktomas/presence-station/internal/facematch"
	"github.com/kozaktomas/presence-station/internal/fingerprint"
	"github.com/kozaktomas/presence-station/internal/frame"
	"github.com/kozaktomas/presence-station/internal/gallery"
	"github.com/kozaktomas/presence-station/internal/hardware"
	"github.com/kozaktomas/presence-station/internal/presence"
	"github.com/kozaktomas/presence-station/internal/station"
	"github.com/kozaktomas/presence-station/internal/voice"
)

// colorExtractor maps the top-left pixel of a frame to a coarse embedding
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

var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	red   = color.RGBA{R: 255, A: 255}
	black = color.RGBA{A: 255}
)

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

type testEnv struct {
	router      chi.Router
	registry    *presence.Registry
	log         *attendance.FileLog
	store       *gallery.Store
	board       *hardware.SimBoard
	ctrl        *climate.Controller
	broadcaster *events.Broadcaster
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	log, err := attendance.NewFileLog(filepath.Join(dir, "time_logs.txt"), time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	store, err := gallery.NewStore(filepath.Join(dir, "known_faces"), filepath.Join(dir, "worker_data"), colorExtractor{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	vocab, err := voice.DefaultVocabulary()
	if err != nil {
		t.Fatal(err)
	}

	registry := presence.NewRegistry()
	broadcaster := events.NewBroadcaster()
	processor := attendance.NewProcessor(registry, log)
	svc := station.NewService(station.DefaultConfig(), colorExtractor{}, store, processor, station.WithPublisher(broadcaster))
	board := hardware.NewSimBoard(hardware.Reading{Temperature: 22, Humidity: 40}, nil)
	ctrl := climate.NewController(climate.DefaultConfig(), board, board, registry)
	commands := voice.NewRouter(vocab, ctrl, nil, nil, nil)

	sessions := NewSessionsHandler(svc, zap.NewNop())
	presenceHandler := NewPresenceHandler(registry, log)
	identities := NewIdentitiesHandler(store, broadcaster, zap.NewNop())
	climateHandler := NewClimateHandler(ctrl)
	commandsHandler := NewCommandsHandler(commands)

	r := chi.NewRouter()
	r.Get("/health", HealthCheck)
	r.Post("/sessions", sessions.Open)
	r.Get("/sessions", sessions.List)
	r.Post("/sessions/{id}/frames", sessions.SubmitFrame)
	r.Get("/sessions/{id}/frame", sessions.Captured)
	r.Post("/sessions/{id}/retake", sessions.Retake)
	r.Post("/sessions/{id}/confirm", sessions.Confirm)
	r.Delete("/sessions/{id}", sessions.Close)
	r.Post("/snapshot", sessions.Snapshot)
	r.Get("/presence", presenceHandler.Presence)
	r.Get("/attendance", presenceHandler.Attendance)
	r.Get("/identities", identities.List)
	r.Post("/identities", identities.Register)
	r.Post("/identities/reload", identities.Reload)
	r.Get("/climate", climateHandler.Get)
	r.Post("/climate/{actuator}/toggle", climateHandler.Toggle)
	r.Post("/commands", commandsHandler.Handle)

	return &testEnv{
		router:      r,
		registry:    registry,
		log:         log,
		store:       store,
		board:       board,
		ctrl:        ctrl,
		broadcaster: broadcaster,
	}
}

func (e *testEnv) do(t *testing.T, method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// register stores an identity through the API.
func (e *testEnv) register(t *testing.T, fullName string, photo []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, photo, map[string]string{"full_name": fullName, "department": "R&D"})
	return e.do(t, http.MethodPost, "/identities", contentType, body)
}

func multipartBody(t *testing.T, photo []byte, fields map[string]string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if photo != nil {
		part, err := w.CreateFormFile(photoField, "photo.png")
		if err != nil {
			t.Fatal(err)
		}
		part.Write(photo)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes(), w.FormDataContentType()
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to unmarshal response %q: %v", rec.Body.String(), err)
	}
	return v
}
