package proxy

import (
	"net/http"
	"testing"

	"github.com/vango-dev/wiretap/pkg/store"
)

func TestStateWithoutRelay(t *testing.T) {
	h := newHarness(t, Config{Upstream: "ws://127.0.0.1:1/ws"})

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"get state", http.MethodGet, "/api/state", nil, http.StatusServiceUnavailable, "W001"},
		{"put state", http.MethodPut, "/api/state", stateRequest{StateCode: "a"}, http.StatusServiceUnavailable, "W001"},
		{"put figure", http.MethodPut, "/api/figure", figureRequest{Figure: "a"}, http.StatusServiceUnavailable, "W001"},
		{"capture", http.MethodPost, "/api/records/capture", recordRequest{Name: "a"}, http.StatusServiceUnavailable, "W001"},
		{"bad wait", http.MethodGet, "/api/state?wait=soon", nil, http.StatusBadRequest, "W007"},
		{"negative wait", http.MethodGet, "/api/state?wait=-1s", nil, http.StatusBadRequest, "W007"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := h.do(t, tt.method, tt.path, tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", resp.StatusCode, tt.wantStatus, body)
			}
			if got := decode[errorResponse](t, body); got.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestStateWaitTimesOut(t *testing.T) {
	up := newUpstream(t, nil)
	h := newHarness(t, Config{Upstream: up.url()})

	// A relay with no observed frames has a state but no code yet.
	rl := h.server.newRelay()
	h.server.state = rl.state

	resp, body := h.do(t, http.MethodGet, "/api/state?wait=20ms", nil)
	if resp.StatusCode != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504 (%s)", resp.StatusCode, body)
	}
	if got := decode[errorResponse](t, body); got.Code != "W002" {
		t.Errorf("code = %q, want W002", got.Code)
	}

	resp, body = h.do(t, http.MethodPut, "/api/state", stateRequest{StateCode: "a"})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("PUT before capture = %d %s, want 503", resp.StatusCode, body)
	}
}

func TestRecordsCRUD(t *testing.T) {
	h := newHarness(t, Config{Upstream: "ws://127.0.0.1:1/ws"})

	resp, body := h.do(t, http.MethodGet, "/api/records", nil)
	if resp.StatusCode != http.StatusOK || string(body) != "[]\n" {
		t.Fatalf("empty list = %d %q", resp.StatusCode, body)
	}

	resp, body = h.do(t, http.MethodPost, "/api/records", recordRequest{Name: "  ", StateCode: "hr-1"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create = %d %s", resp.StatusCode, body)
	}
	rec := decode[store.Record](t, body)
	if rec.Name != store.DefaultName || rec.ID == "" {
		t.Errorf("created = %+v", rec)
	}

	resp, body = h.do(t, http.MethodGet, "/api/records/"+rec.ID, nil)
	if resp.StatusCode != http.StatusOK || decode[store.Record](t, body).StateCode != "hr-1" {
		t.Errorf("get = %d %s", resp.StatusCode, body)
	}

	// A rename without a code keeps the saved one.
	resp, body = h.do(t, http.MethodPut, "/api/records/"+rec.ID, recordRequest{Name: "beach"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rename = %d %s", resp.StatusCode, body)
	}
	if got := decode[store.Record](t, body); got.Name != "beach" || got.StateCode != "hr-1" {
		t.Errorf("renamed = %+v", got)
	}

	resp, body = h.do(t, http.MethodPut, "/api/records/"+rec.ID, recordRequest{Name: "beach", StateCode: "hr-2"})
	if got := decode[store.Record](t, body); resp.StatusCode != http.StatusOK || got.StateCode != "hr-2" {
		t.Errorf("update = %d %s", resp.StatusCode, body)
	}

	resp, body = h.do(t, http.MethodGet, "/api/records", nil)
	if list := decode[[]store.Record](t, body); len(list) != 1 {
		t.Errorf("list = %s", body)
	}

	resp, _ = h.do(t, http.MethodDelete, "/api/records/"+rec.ID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("delete = %d", resp.StatusCode)
	}
	if h.backend.Saves() != 4 {
		t.Errorf("Saves() = %d, want 4", h.backend.Saves())
	}
}

func TestRecordErrors(t *testing.T) {
	h := newHarness(t, Config{Upstream: "ws://127.0.0.1:1/ws"})

	tests := []struct {
		name       string
		method     string
		path       string
		body       any
		wantStatus int
		wantCode   string
	}{
		{"get missing", http.MethodGet, "/api/records/nope", nil, http.StatusNotFound, "W120"},
		{"update missing", http.MethodPut, "/api/records/nope", recordRequest{StateCode: "a"}, http.StatusNotFound, "W120"},
		{"rename missing", http.MethodPut, "/api/records/nope", recordRequest{Name: "a"}, http.StatusNotFound, "W120"},
		{"delete missing", http.MethodDelete, "/api/records/nope", nil, http.StatusNotFound, "W120"},
		{"apply missing", http.MethodPost, "/api/records/nope/apply", nil, http.StatusNotFound, "W120"},
		{"create empty code", http.MethodPost, "/api/records", recordRequest{Name: "a"}, http.StatusBadRequest, "W006"},
		{"create bad body", http.MethodPost, "/api/records", "not an object", http.StatusBadRequest, "W007"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := h.do(t, tt.method, tt.path, tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", resp.StatusCode, tt.wantStatus, body)
			}
			if got := decode[errorResponse](t, body); got.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", got.Code, tt.wantCode)
			}
		})
	}
}

func TestHealthWithoutRelay(t *testing.T) {
	h := newHarness(t, Config{Upstream: "ws://127.0.0.1:1/ws"})
	resp, body := h.do(t, http.MethodGet, "/healthz", nil)
	got := decode[map[string]any](t, body)
	if resp.StatusCode != http.StatusOK || got["status"] != "ok" || got["relay"] != false {
		t.Errorf("healthz = %d %s", resp.StatusCode, body)
	}
}
