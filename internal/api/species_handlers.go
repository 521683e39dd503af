package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/wildlife-vision/speciesid/internal/color"
	"github.com/wildlife-vision/speciesid/internal/identify"
	"github.com/wildlife-vision/speciesid/internal/ranking"
	"github.com/wildlife-vision/speciesid/internal/species"
)

// SpeciesHandlers serves identification, reranking and the ecoregion species list.
type SpeciesHandlers struct {
	service *identify.Service
	store   species.Store
	logger  *slog.Logger
}

// NewSpeciesHandlers creates SpeciesHandlers.
func NewSpeciesHandlers(service *identify.Service, store species.Store, logger *slog.Logger) *SpeciesHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &SpeciesHandlers{service: service, store: store, logger: logger}
}

// IdentifyRequest is the body of POST /species/identify-by-embedding.
// Omitted weights fall back to the calibrated defaults.
type IdentifyRequest struct {
	ImageID     int64     `json:"image_id"`
	Embedding   []float64 `json:"embedding"`
	Lat         *float64  `json:"lat"`
	Lon         *float64  `json:"lon"`
	TopN        *int      `json:"top_n"`
	ImageWeight *float64  `json:"image_weight"`
	TextWeight  *float64  `json:"text_weight"`
	ColorWeight *float64  `json:"color_weight"`
}

// IdentifiedCandidate is a candidate in an identify response.
type IdentifiedCandidate struct {
	CommonName      string        `json:"common_name"`
	Species         string        `json:"species"`
	EcoCode         string        `json:"eco_code"`
	ImageSimilarity float64       `json:"image_similarity"`
	TextSimilarity  float64       `json:"text_similarity"`
	ColorSimilarity *float64      `json:"color_similarity"`
	ImageColors     color.Profile `json:"image_colors"`
	SpeciesColors   color.Profile `json:"species_colors"`
	CombinedScore   float64       `json:"combined_score"`
	Probability     float64       `json:"probability"`
}

// IdentifyResponse is the identify response body.
type IdentifyResponse struct {
	TopCandidates []IdentifiedCandidate `json:"top_candidates"`
	BestMatch     IdentifiedCandidate   `json:"best_match"`
	Rationale     string                `json:"rationale"`
}

// RerankCandidate is a candidate in a rerank request or response. A null
// color_similarity is read as zero.
type RerankCandidate struct {
	CommonName      string   `json:"common_name"`
	Species         string   `json:"species"`
	EcoCode         string   `json:"eco_code"`
	ImageSimilarity float64  `json:"image_similarity"`
	TextSimilarity  float64  `json:"text_similarity"`
	ColorSimilarity *float64 `json:"color_similarity"`
	CombinedScore   float64  `json:"combined_score"`
	Probability     float64  `json:"probability"`
}

// RerankRequest is the body of POST /species/rerank-with-weights.
type RerankRequest struct {
	TopCandidates []RerankCandidate `json:"top_candidates"`
	ImageWeight   *float64          `json:"image_weight"`
	TextWeight    *float64          `json:"text_weight"`
	ColorWeight   *float64          `json:"color_weight"`
}

// RerankedCandidate is a candidate in a rerank response.
type RerankedCandidate struct {
	CommonName      string  `json:"common_name"`
	Species         string  `json:"species"`
	EcoCode         string  `json:"eco_code"`
	ImageSimilarity float64 `json:"image_similarity"`
	TextSimilarity  float64 `json:"text_similarity"`
	ColorSimilarity float64 `json:"color_similarity"`
	CombinedScore   float64 `json:"combined_score"`
	Probability     float64 `json:"probability"`
}

// RerankResponse is the rerank response body.
type RerankResponse struct {
	TopCandidates []RerankedCandidate `json:"top_candidates"`
	BestMatch     RerankedCandidate   `json:"best_match"`
	Rationale     string              `json:"rationale"`
}

// Identify handles POST /species/identify-by-embedding.
func (h *SpeciesHandlers) Identify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req IdentifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Lat == nil || req.Lon == nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation, "lat and lon are required")
		return
	}
	if req.TopN != nil && *req.TopN < 1 {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation, "top_n must be at least 1")
		return
	}

	in := identify.Request{
		ImageID:   req.ImageID,
		Embedding: req.Embedding,
		Lat:       *req.Lat,
		Lon:       *req.Lon,
	}
	if req.TopN != nil {
		in.TopN = *req.TopN
	}
	if req.ImageWeight != nil || req.TextWeight != nil || req.ColorWeight != nil {
		in.Weights = &ranking.WeightOverrides{
			Image: req.ImageWeight,
			Text:  req.TextWeight,
			Color: req.ColorWeight,
		}
	}

	res, err := h.service.Identify(r.Context(), in)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := IdentifyResponse{
		TopCandidates: make([]IdentifiedCandidate, len(res.Candidates)),
		BestMatch:     toIdentified(res.BestMatch),
		Rationale:     res.Rationale,
	}
	for i, c := range res.Candidates {
		out.TopCandidates[i] = toIdentified(c)
	}
	writeJSON(w, r, http.StatusOK, out)
}

// Rerank handles POST /species/rerank-with-weights.
func (h *SpeciesHandlers) Rerank(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req RerankRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ImageWeight == nil || req.TextWeight == nil {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation, "image_weight and text_weight are required")
		return
	}

	weights := ranking.Weights{Image: *req.ImageWeight, Text: *req.TextWeight}
	if req.ColorWeight != nil {
		weights.Color = *req.ColorWeight
	}

	cands := make([]ranking.Candidate, len(req.TopCandidates))
	for i, c := range req.TopCandidates {
		cands[i] = ranking.Candidate{
			CommonName:      c.CommonName,
			SpeciesID:       c.Species,
			EcoregionCode:   c.EcoCode,
			ImageSimilarity: c.ImageSimilarity,
			TextSimilarity:  c.TextSimilarity,
			ColorSimilarity: c.ColorSimilarity,
		}
	}

	res, err := h.service.Rerank(r.Context(), identify.RerankRequest{Candidates: cands, Weights: weights})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := RerankResponse{
		TopCandidates: make([]RerankedCandidate, len(res.Candidates)),
		BestMatch:     toReranked(res.BestMatch),
		Rationale:     res.Rationale,
	}
	for i, c := range res.Candidates {
		out.TopCandidates[i] = toReranked(c)
	}
	writeJSON(w, r, http.StatusOK, out)
}

// ByEcoregion handles GET /species/by-ecoregion?eco_code=.
func (h *SpeciesHandlers) ByEcoregion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	code := strings.TrimSpace(r.URL.Query().Get("eco_code"))
	if code == "" {
		WriteError(w, r.Context(), http.StatusBadRequest, ErrCodeValidation, "query parameter \"eco_code\" is required")
		return
	}

	grouped, err := h.store.ByEcoregion(r.Context(), code)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, grouped)
}

func toIdentified(c ranking.Candidate) IdentifiedCandidate {
	return IdentifiedCandidate{
		CommonName:      c.CommonName,
		Species:         c.SpeciesID,
		EcoCode:         c.EcoregionCode,
		ImageSimilarity: c.ImageSimilarity,
		TextSimilarity:  c.TextSimilarity,
		ColorSimilarity: c.ColorSimilarity,
		ImageColors:     c.ImageColors,
		SpeciesColors:   c.SpeciesColors,
		CombinedScore:   c.CombinedScore,
		Probability:     c.Probability,
	}
}

func toReranked(c ranking.Candidate) RerankedCandidate {
	return RerankedCandidate{
		CommonName:      c.CommonName,
		Species:         c.SpeciesID,
		EcoCode:         c.EcoregionCode,
		ImageSimilarity: c.ImageSimilarity,
		TextSimilarity:  c.TextSimilarity,
		ColorSimilarity: c.ColorValue(),
		CombinedScore:   c.CombinedScore,
		Probability:     c.Probability,
	}
}
