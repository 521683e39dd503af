package api

import (
	"net/http"

	"github.com/wildlife-vision/speciesid/internal/ecoregion"
	"github.com/wildlife-vision/speciesid/internal/geo"
)

// EcoregionHandlers serves coordinate to ecoregion lookups.
type EcoregionHandlers struct {
	resolver ecoregion.Resolver
}

// NewEcoregionHandlers creates EcoregionHandlers.
func NewEcoregionHandlers(resolver ecoregion.Resolver) *EcoregionHandlers {
	return &EcoregionHandlers{resolver: resolver}
}

// EcoregionResponse is the body of GET /ecoregion/by-coordinates.
type EcoregionResponse struct {
	EcoCode string `json:"eco_code"`
}

// ByCoordinates handles GET /ecoregion/by-coordinates?lat=&lon=.
func (h *EcoregionHandlers) ByCoordinates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	lat, err := queryFloat(r, "lat")
	if err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}
	lon, err := queryFloat(r, "lon")
	if err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}
	if err := geo.ValidateCoordinates(lat, lon); err != nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	code, err := h.resolver.ByCoordinates(r.Context(), lat, lon)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, EcoregionResponse{EcoCode: code})
}
