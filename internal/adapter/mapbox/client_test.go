package mapbox

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/sanitation-analytics-service/internal/domain"
	"github.com/couchcryptid/sanitation-analytics-service/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testToken         = "test-token"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testMetrics() *observability.Metrics {
	return observability.NewMetricsForTesting()
}

func testClient(baseURL string, timeout time.Duration) *Client {
	c := NewClient(testToken, timeout, testMetrics(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.baseURL = baseURL
	return c
}

func writeFeatures(t *testing.T, w http.ResponseWriter, features ...feature) {
	t.Helper()
	w.Header().Set(headerContentType, contentTypeJSON)
	require.NoError(t, json.NewEncoder(w).Encode(response{Features: features}))
}

func TestClient_ForwardGeocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "250 BROADWAY, MANHATTAN, New York, NY")
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, testToken, r.URL.Query().Get("access_token"))
		assert.Equal(t, nycBBox, r.URL.Query().Get("bbox"))

		writeFeatures(t, w, feature{
			Center:    []float64{-74.0086, 40.7131},
			PlaceName: "250 Broadway, New York, New York 10007, United States",
			Text:      "Broadway",
			Relevance: 0.95,
		})
	}))
	defer srv.Close()

	c := testClient(srv.URL, 5*time.Second)
	result, err := c.ForwardGeocode(context.Background(), "250 BROADWAY", domain.RegionManhattan)
	require.NoError(t, err)

	assert.Equal(t, 40.7131, result.Lat)
	assert.Equal(t, -74.0086, result.Lng)
	assert.Equal(t, "Broadway", result.PlaceName)
	assert.Equal(t, 0.95, result.Confidence)
}

func TestClient_ReverseGeocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "-74.006000,40.712800.json")
		writeFeatures(t, w, feature{
			Center:    []float64{-74.006, 40.7128},
			PlaceName: "City Hall Park, New York",
			Text:      "City Hall Park",
			Relevance: 0.98,
		})
	}))
	defer srv.Close()

	c := testClient(srv.URL, 5*time.Second)
	result, err := c.ReverseGeocode(context.Background(), 40.7128, -74.006)
	require.NoError(t, err)

	assert.Equal(t, "City Hall Park, New York", result.FormattedAddress)
	assert.Equal(t, 0.98, result.Confidence)
}

func TestClient_ForwardGeocode_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeFeatures(t, w)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 5*time.Second)
	result, err := c.ForwardGeocode(context.Background(), "NONEXISTENT", domain.RegionUnspecified)
	require.NoError(t, err)
	assert.Zero(t, result.Lat)
	assert.Empty(t, result.FormattedAddress)
}

func TestClient_ForwardGeocode_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Not Authorized"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 5*time.Second)
	_, err := c.ForwardGeocode(context.Background(), "250 BROADWAY", domain.RegionManhattan)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestClient_ForwardGeocode_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 50*time.Millisecond)
	_, err := c.ForwardGeocode(context.Background(), "250 BROADWAY", domain.RegionManhattan)
	require.Error(t, err)
}

func TestForwardQuery(t *testing.T) {
	tests := []struct {
		address string
		region  domain.Region
		want    string
	}{
		{"  1 MAIN ST ", domain.RegionBrooklyn, "1 MAIN ST, BROOKLYN, New York, NY"},
		{"1 MAIN ST", domain.RegionUnspecified, "1 MAIN ST, New York, NY"},
		{"1 MAIN ST", "", "1 MAIN ST, New York, NY"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, forwardQuery(tt.address, tt.region))
		})
	}
}
