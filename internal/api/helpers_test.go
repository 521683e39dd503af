package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/wildlife-vision/speciesid/internal/color"
	"github.com/wildlife-vision/speciesid/internal/ecoregion"
	"github.com/wildlife-vision/speciesid/internal/identify"
	"github.com/wildlife-vision/speciesid/internal/ranking"
	"github.com/wildlife-vision/speciesid/internal/seed"
	"github.com/wildlife-vision/speciesid/internal/species"
)

func strPtr(s string) *string { return &s }

func newTestStore() *species.InMemoryStore {
	s := species.NewInMemoryStore(nil)
	s.AddSpecies(species.Entry{
		Species:        "Vulpes vulpes",
		CommonName:     "Red Fox",
		EcoCode:        "NA0528",
		ImageEmbedding: []float64{1, 0, 0},
		TextEmbedding:  []float64{1, 0, 0},
		Colors:         color.Profile{"orange": 0.7, "white": 0.3},
	})
	s.AddSpecies(species.Entry{
		Species:        "Urocyon cinereoargenteus",
		CommonName:     "Gray Fox",
		EcoCode:        "NA0528",
		ImageEmbedding: []float64{0.6, 0.8, 0},
		TextEmbedding:  []float64{0, 1, 0},
		Colors:         color.Profile{"gray": 0.8, "orange": 0.2},
	})
	s.SetVocabulary("gray", "orange", "white")
	s.SetImageColors(42, color.Profile{"orange": 0.7, "white": 0.3})
	s.AddRegionRows(
		species.RegionRow{EcoregionCode: "NA0528", EcoregionName: "Northern Rockies", ClassName: "Mammalia", CommonName: "Red Fox", ConservationStatus: strPtr("LC")},
		species.RegionRow{EcoregionCode: "NA0528", EcoregionName: "Northern Rockies", ClassName: "Aves", CommonName: "Golden Eagle"},
		species.RegionRow{EcoregionCode: "NA0528", EcoregionName: "Northern Rockies", ClassName: "Mammalia", CommonName: "Gray Fox", ConservationStatus: strPtr("LC")},
	)
	return s
}

func newTestSpeciesHandlers(store species.Store) *SpeciesHandlers {
	svc := identify.NewService(store, identify.Config{Defaults: *ranking.DefaultWeights(), MaxTopN: 10}, nil, nil)
	return NewSpeciesHandlers(svc, store, nil)
}

func newTestResolver() *ecoregion.InMemoryResolver {
	return ecoregion.NewInMemoryResolver(ecoregion.Region{
		Code: "NA0528", Name: "Northern Rockies",
		MinLat: 40, MaxLat: 50, MinLon: -120, MaxLon: -100,
	})
}

// memObjects is an in-memory seed.ObjectStore.
type memObjects struct {
	objects map[string][]byte
	listErr error
}

func (m *memObjects) List(_ context.Context, prefix string) ([]seed.Object, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []seed.Object
	for k, v := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, seed.Object{Key: k, Size: int64(len(v))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *memObjects) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("no such key %s", key)
	}
	return v, nil
}

func (m *memObjects) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("https://seed.test/%s?expires=%d", key, int(ttl.Seconds())), nil
}

// doJSON sends body to h and returns the recorder.
func doJSON(t *testing.T, h http.HandlerFunc, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

// decodeError returns the error code of an envelope response.
func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode error body %q: %v", rr.Body.String(), err)
	}
	return resp.Error.Code
}
