package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wildlife-vision/speciesid/internal/seed"
)

// SeedHandlers serves signed seed manifests.
type SeedHandlers struct {
	service *seed.Service
	token   string
}

// NewSeedHandlers creates SeedHandlers. service may be nil when no bucket is
// configured; an empty token leaves the route open.
func NewSeedHandlers(service *seed.Service, token string) *SeedHandlers {
	return &SeedHandlers{service: service, token: token}
}

// Manifest handles GET /seed/manifest?version=&ttl=.
func (h *SeedHandlers) Manifest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	if err := seed.CheckBearer(r.Header.Get("Authorization"), h.token); err != nil {
		if ErrorCode(err) == ErrCodeAuthFailed {
			w.Header().Set("WWW-Authenticate", `Bearer realm="seed"`)
		}
		writeDomainError(w, r, err)
		return
	}

	if h.service == nil {
		WriteError(w, r.Context(), http.StatusServiceUnavailable, ErrCodeUnavailable, "Seed storage is not configured")
		return
	}

	q := r.URL.Query()
	var ttl time.Duration
	if raw := strings.TrimSpace(q.Get("ttl")); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil {
			WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation, "ttl must be an integer number of seconds")
			return
		}
		ttl = time.Duration(secs) * time.Second
		if err := seed.ValidateTTL(ttl); err != nil {
			writeDomainError(w, r, err)
			return
		}
	}

	manifest, err := h.service.Manifest(r.Context(), strings.TrimSpace(q.Get("version")), ttl)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, r, http.StatusOK, manifest)
}
