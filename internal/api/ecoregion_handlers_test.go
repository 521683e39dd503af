package api

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestByCoordinates(t *testing.T) {
	h := NewEcoregionHandlers(newTestResolver())

	rr := doJSON(t, h.ByCoordinates, http.MethodGet, "/ecoregion/by-coordinates?lat=45.5&lon=-110.25", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp EcoregionResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.EcoCode != "NA0528" {
		t.Errorf("expected NA0528, got %q", resp.EcoCode)
	}
}

func TestByCoordinates_Errors(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		target     string
		wantStatus int
		wantCode   string
	}{
		{"missing lat", http.MethodGet, "/ecoregion/by-coordinates?lon=1", http.StatusBadRequest, ErrCodeValidation},
		{"missing lon", http.MethodGet, "/ecoregion/by-coordinates?lat=1", http.StatusBadRequest, ErrCodeValidation},
		{"non-numeric lat", http.MethodGet, "/ecoregion/by-coordinates?lat=north&lon=1", http.StatusBadRequest, ErrCodeValidation},
		{"longitude out of range", http.MethodGet, "/ecoregion/by-coordinates?lat=45&lon=181", http.StatusBadRequest, ErrCodeValidation},
		{"outside every region", http.MethodGet, "/ecoregion/by-coordinates?lat=-33&lon=151", http.StatusNotFound, ErrCodeNotFound},
		{"wrong method", http.MethodPost, "/ecoregion/by-coordinates?lat=45&lon=-110", http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed},
	}

	h := NewEcoregionHandlers(newTestResolver())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doJSON(t, h.ByCoordinates, tt.method, tt.target, nil)
			if rr.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d: %s", tt.wantStatus, rr.Code, rr.Body.String())
			}
			if code := decodeError(t, rr); code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, code)
			}
		})
	}
}
