package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/species/identify-by-embedding", "/species/identify-by-embedding"},
		{"/species/rerank-with-weights", "/species/rerank-with-weights"},
		{"/species/by-ecoregion", "/species/by-ecoregion"},
		{"/ecoregion/by-coordinates/", "/ecoregion/by-coordinates"},
		{"/seed/manifest", "/seed/manifest"},
		{"/metrics", "/metrics"},
		{"/", OtherRoute},
		{"/species/123", OtherRoute},
		{"/wp-admin/login.php", OtherRoute},
	}
	for _, tt := range tests {
		if got := Route(tt.path); got != tt.want {
			t.Errorf("Route(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestHTTPMetrics(t *testing.T) {
	m := NewMetrics()
	handler := HTTPMetrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/species/rerank-with-weights" {
			w.WriteHeader(http.StatusUnprocessableEntity)
		}
		_, _ = w.Write([]byte("body"))
	}))

	requests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodPost, "/species/rerank-with-weights", `{"candidates":[]}`},
		{http.MethodGet, "/species/by-ecoregion", ""},
		{http.MethodGet, "/species/by-ecoregion", ""},
		{http.MethodGet, "/random/1", ""},
		{http.MethodGet, "/random/2", ""},
		{http.MethodGet, "/health", ""},
	}
	for _, r := range requests {
		req := httptest.NewRequest(r.method, r.path, strings.NewReader(r.body))
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	tests := []struct {
		labels []string
		want   float64
	}{
		{[]string{"POST", "/species/rerank-with-weights", "422"}, 1},
		{[]string{"GET", "/species/by-ecoregion", "200"}, 2},
		{[]string{"GET", OtherRoute, "200"}, 2},
		{[]string{"GET", "/health", "200"}, 0},
	}
	for _, tt := range tests {
		got := counterValue(t, m.httpRequestsTotal, tt.labels...)
		if got != tt.want {
			t.Errorf("http_requests_total%v = %v, want %v", tt.labels, got, tt.want)
		}
	}
}

func TestHTTPMetrics_Sizes(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	handler := HTTPMetrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("12345"))
		_, _ = w.Write([]byte("678"))
	}))
	req := httptest.NewRequest(http.MethodPost, "/species/identify-by-embedding", strings.NewReader("0123456789"))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}
	sums := map[string]float64{}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			if h := metric.GetHistogram(); h != nil {
				sums[mf.GetName()] = h.GetSampleSum()
			}
		}
	}
	if sums[MetricHTTPRequestSizeBytes] != 10 {
		t.Errorf("expected request size 10, got %v", sums[MetricHTTPRequestSizeBytes])
	}
	if sums[MetricHTTPResponseSizeBytes] != 8 {
		t.Errorf("expected response size 8, got %v", sums[MetricHTTPResponseSizeBytes])
	}
}

func TestMetricsResponseWriter_WriteHeaderOnce(t *testing.T) {
	rec := httptest.NewRecorder()
	mrw := newMetricsResponseWriter(rec)

	mrw.WriteHeader(http.StatusNotFound)
	mrw.WriteHeader(http.StatusOK)

	if mrw.statusCode != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", mrw.statusCode)
	}
}
