package admin

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"droneops-formation/internal/formation"
	"droneops-formation/internal/mission"
)

type fakeController struct {
	status    mission.Status
	requested []formation.Mode
	err       error
}

func (f *fakeController) Status() mission.Status { return f.status }

func (f *fakeController) Enqueue(m formation.Mode) error {
	if f.err != nil {
		return f.err
	}
	f.requested = append(f.requested, m)
	return nil
}

func newFake() *fakeController {
	return &fakeController{status: mission.Status{
		MissionID: "m1",
		RunID:     "r1",
		Mode:      formation.Alongside,
		Vehicles: []formation.VehicleState{
			{ID: "uav-1", Slot: 0},
			{ID: "uav-2", Slot: 1},
		},
	}}
}

func TestHandleStatus(t *testing.T) {
	ctl := newFake()
	server := NewServer(ctl)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got struct {
		MissionID string `json:"mission_id"`
		Mode      string `json:"mode"`
		Vehicles  []struct {
			ID string `json:"id"`
		} `json:"vehicles"`
	}
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.MissionID != "m1" || got.Mode != "alongside" || len(got.Vehicles) != 2 {
		t.Fatalf("unexpected status %+v", got)
	}
}

func TestHandleVehicles(t *testing.T) {
	server := NewServer(newFake())
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/vehicles", nil))

	var got []formation.VehicleState
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[1].ID != "uav-2" {
		t.Fatalf("unexpected vehicles %+v", got)
	}
}

func TestHandleMode(t *testing.T) {
	cases := []struct {
		name string
		mode string
		err  error
		code int
	}{
		{"accepted", "land", nil, http.StatusAccepted},
		{"unknown", "hover", nil, http.StatusBadRequest},
		{"illegal", "descend_to_altitude", fmt.Errorf("%w: x", formation.ErrIllegalTransition), http.StatusConflict},
		{"queue full", "land", mission.ErrQueueFull, http.StatusServiceUnavailable},
		{"other", "land", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctl := newFake()
			ctl.err = tc.err
			server := NewServer(ctl)
			req := httptest.NewRequest(http.MethodPost, "/mode?mode="+tc.mode, nil)
			w := httptest.NewRecorder()
			server.Handler().ServeHTTP(w, req)
			if w.Code != tc.code {
				t.Fatalf("expected %d, got %d: %s", tc.code, w.Code, w.Body.String())
			}
			if tc.code == http.StatusAccepted && (len(ctl.requested) != 1 || ctl.requested[0] != formation.Land) {
				t.Fatalf("unexpected requests %v", ctl.requested)
			}
		})
	}
}

func TestHandleModeFormRedirect(t *testing.T) {
	ctl := newFake()
	server := NewServer(ctl)
	form := url.Values{"mode": {"vertical_weave"}, "redirect": {"1"}}
	req := httptest.NewRequest(http.MethodPost, "/mode", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", w.Code)
	}
	if len(ctl.requested) != 1 || ctl.requested[0] != formation.VerticalWeave {
		t.Fatalf("unexpected requests %v", ctl.requested)
	}
}

func TestModeRequiresPost(t *testing.T) {
	server := NewServer(newFake())
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/mode?mode=land", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestHandleIndex(t *testing.T) {
	server := NewServer(newFake())
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{"Formation m1", "uav-2", `value="land"`, `value="vertical_weave"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("status page missing %q", want)
		}
	}
	if strings.Contains(body, `value="alongside"`) {
		t.Fatal("current mode offered as a request")
	}
}

func TestRequestable(t *testing.T) {
	if got := requestable(formation.Takeoff); len(got) != 1 || got[0] != formation.Idle {
		t.Fatalf("takeoff should only allow reset, got %v", got)
	}
	if got := requestable(formation.Idle); len(got) != 0 {
		t.Fatalf("idle allows no requests, got %v", got)
	}
}
