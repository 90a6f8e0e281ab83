package handlers

import (
	"net/http"
	"testing"

	"github.com/kozaktomas/presence-station/internal/climate"
	"github.com/kozaktomas/presence-station/internal/hardware"
	"github.com/kozaktomas/presence-station/internal/voice"
)

func TestCommands(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/commands", "application/json", []byte(`{"text":"Turn on the fan please"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[voice.Response](t, rec)
	if resp.Kind != voice.KindCommand || resp.Action != voice.FanOn {
		t.Errorf("response = %+v", resp)
	}
	if !env.board.Output(hardware.Fan) || env.ctrl.State().Fan.Mode != climate.Manual {
		t.Error("fan should be on in manual mode")
	}

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", "{", http.StatusBadRequest},
		{"empty text", `{"text":"  "}`, http.StatusBadRequest},
		{"question without assistant", `{"text":"what is the weather"}`, http.StatusNotImplemented},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/commands", "application/json", []byte(tc.body))
			if rec.Code != tc.want {
				t.Errorf("expected status %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}
