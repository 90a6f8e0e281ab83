package handlers

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/presence-station/internal/events"
)

func TestSendSSEEvent(t *testing.T) {
	rec := httptest.NewRecorder()
	sendSSEEvent(rec, rec, "checked_in", map[string]string{"key": "Alice"})

	want := "event: checked_in\ndata: {\"key\":\"Alice\"}\n\n"
	if got := rec.Body.String(); got != want {
		t.Errorf("sendSSEEvent() wrote %q, want %q", got, want)
	}
	if !rec.Flushed {
		t.Error("event should be flushed")
	}
}

func TestEventsStream(t *testing.T) {
	b := events.NewBroadcaster()
	srv := httptest.NewServer(http.HandlerFunc(NewEventsHandler(b).Stream))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	readEvent := func() string {
		t.Helper()
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read event: %v", err)
		}
		// data line and blank separator
		reader.ReadString('\n')
		reader.ReadString('\n')
		return strings.TrimSpace(strings.TrimPrefix(line, "event: "))
	}

	if got := readEvent(); got != "connected" {
		t.Fatalf("first event = %q, want connected", got)
	}

	b.Publish(events.Event{Type: events.TypeActuator, Message: "fan on"})
	if got := readEvent(); got != events.TypeActuator {
		t.Errorf("event = %q, want %s", got, events.TypeActuator)
	}

	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for b.ListenerCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := b.ListenerCount(); n != 0 {
		t.Errorf("listener not removed after disconnect, %d left", n)
	}
}
