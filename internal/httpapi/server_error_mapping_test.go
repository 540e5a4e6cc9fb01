package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"profiled/internal/hardware"
	"profiled/internal/manager"
	"profiled/pkg/types"
)

type teapotError struct{}

func (teapotError) Error() string   { return "teapot" }
func (teapotError) StatusCode() int { return http.StatusTeapot }

func TestSwitch_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", manager.ErrProfileNotFound("x"), http.StatusNotFound},
		{"incompatible", &manager.IncompatibleHardwareError{ProfileID: "p2", Reason: "requires at least 2 GPU(s), 1 available"}, http.StatusUnprocessableEntity},
		{"probe", &hardware.UnavailableError{}, http.StatusServiceUnavailable},
		{"closed", manager.ErrClosed, http.StatusServiceUnavailable},
		{"http error", teapotError{}, http.StatusTeapot},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			svc := &mockService{switchErr: c.err}
			w := do(t, NewMux(svc), http.MethodPost, "/models/switch", `{"profile_id":"p2"}`)
			if w.Code != c.want {
				t.Fatalf("expected %d, got %d", c.want, w.Code)
			}
			var body types.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != c.want || body.Error != c.err.Error() {
				t.Fatalf("unexpected error body %+v", body)
			}
		})
	}
}

func TestRecommendations_ProbeUnavailableMaps503(t *testing.T) {
	svc := &mockService{recErr: &hardware.UnavailableError{}}
	w := do(t, NewMux(svc), http.MethodGet, "/models/hardware-recommendations", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestRecommendations_OK(t *testing.T) {
	svc := &mockService{recResp: types.RecommendationsResponse{
		RecommendedProfiles: []types.ProfileCompatibility{{ProfileID: "p1", Compatible: true}},
	}}
	w := do(t, NewMux(svc), http.MethodGet, "/models/hardware-recommendations", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got types.RecommendationsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.RecommendedProfiles) != 1 || got.RecommendedProfiles[0].ProfileID != "p1" {
		t.Fatalf("unexpected body %+v", got)
	}
}
