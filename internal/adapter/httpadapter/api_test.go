package httpadapter_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/couchcryptid/sanitation-analytics-service/internal/adapter/httpadapter"
	"github.com/couchcryptid/sanitation-analytics-service/internal/domain"
	"github.com/couchcryptid/sanitation-analytics-service/internal/observability"
	"github.com/couchcryptid/sanitation-analytics-service/internal/store"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

var (
	courtSt = domain.Geo{Lat: 40.6928, Lng: -73.9903}
	flushing = domain.Geo{Lat: 40.7590, Lng: -73.8300}
)

func request(id, zone string, region domain.Region, loc domain.Geo, daysAgo int) domain.Event {
	l := loc
	return domain.Event{
		ID:        id,
		Kind:      domain.KindServiceRequest,
		Timestamp: now.AddDate(0, 0, -daysAgo),
		Category:  domain.CategoryOverflow,
		Region:    region,
		ZoneID:    zone,
		Location:  &l,
		Priority:  domain.PriorityNormal,
		Status:    domain.StatusOpen,
	}
}

func pickup(id, zone string, tons float64, daysAgo int) domain.Event {
	return domain.Event{
		ID:        id,
		Kind:      domain.KindCollection,
		Timestamp: now.AddDate(0, 0, -daysAgo),
		Category:  "residential",
		Region:    domain.RegionQueens,
		ZoneID:    zone,
		Status:    domain.StatusCompleted,
		Tonnage:   &tons,
	}
}

func seedEvents() []domain.Event {
	events := []domain.Event{
		request("qn-1", "QN-07", domain.RegionQueens, flushing, 3),
		pickup("qn-c1", "QN-07", 10, 1),
		pickup("qn-c2", "QN-07", 12, 2),
	}
	for i := 1; i <= 5; i++ {
		e := request("bk-"+string(rune('0'+i)), "BK-02", domain.RegionBrooklyn, courtSt, i)
		if i == 1 {
			e.Priority = domain.PriorityUrgent
		}
		events = append(events, e)
	}
	return events
}

type failingQuery struct{}

func (failingQuery) Query(context.Context, domain.Filter) ([]domain.Event, error) {
	return nil, errors.New("connection refused")
}

func newAPIServer(t *testing.T, events domain.EventQuery) (*httpadapter.Server, *observability.Metrics) {
	t.Helper()
	metrics := observability.NewMetricsForTesting()
	api := httpadapter.NewAPI(events, httpadapter.Options{
		Clock:               clockwork.NewFakeClockAt(now),
		HotspotLookbackDays: 28,
	}, metrics, discardLogger())
	return httpadapter.NewServer(":0", &mockReadiness{}, api, discardLogger()), metrics
}

func seededServer(t *testing.T) (*httpadapter.Server, *observability.Metrics) {
	t.Helper()
	mem := store.NewMemory(store.Options{Clock: clockwork.NewFakeClockAt(now)})
	require.NoError(t, mem.LoadBatch(context.Background(), seedEvents()))
	return newAPIServer(t, mem)
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v))
	return v
}

type errorBody struct {
	Error     string            `json:"error"`
	Fields    map[string]string `json:"fields"`
	RequestID string            `json:"request_id"`
}

func TestForecast_ByRegion(t *testing.T) {
	srv, _ := seededServer(t)
	rec := serve(srv, "/api/v1/forecast?group_by=region&horizon_days=7&lookback_days=30")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode[struct {
		GroupBy      string                  `json:"group_by"`
		LookbackDays int                     `json:"lookback_days"`
		Forecasts    []domain.ForecastResult `json:"forecasts"`
	}](t, rec.Body.Bytes())

	assert.Equal(t, "region", body.GroupBy)
	assert.Equal(t, 30, body.LookbackDays)
	require.Len(t, body.Forecasts, 2)
	assert.Equal(t, "BROOKLYN", body.Forecasts[0].Key)
	assert.Equal(t, "QUEENS", body.Forecasts[1].Key)
	for _, f := range body.Forecasts {
		assert.GreaterOrEqual(t, f.PredictedCount, 0)
	}
}

func TestForecast_TopRanksByPredicted(t *testing.T) {
	srv, _ := seededServer(t)
	rec := serve(srv, "/api/v1/forecast?group_by=zone&horizon_days=7&lookback_days=30&top=1")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Forecasts []domain.ForecastResult `json:"forecasts"`
	}](t, rec.Body.Bytes())
	require.Len(t, body.Forecasts, 1)
}

func TestForecast_InvalidParameters(t *testing.T) {
	srv, _ := seededServer(t)

	tests := []struct {
		name  string
		query string
		field string
	}{
		{"unknown group", "group_by=borough", "group_by"},
		{"zero horizon", "horizon_days=0", "horizon_days"},
		{"huge lookback", "lookback_days=5000", "lookback_days"},
		{"bad measure", "measure=weight", "measure"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(srv, "/api/v1/forecast?"+tt.query)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			body := decode[errorBody](t, rec.Body.Bytes())
			assert.Contains(t, body.Fields, tt.field)
			assert.NotEmpty(t, body.RequestID)
		})
	}
}

func TestForecast_UnparsableParameter(t *testing.T) {
	srv, _ := seededServer(t)
	rec := serve(srv, "/api/v1/forecast?horizon_days=soon&as_of=yesterday")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorBody](t, rec.Body.Bytes())
	assert.Contains(t, body.Error, "horizon_days")
	assert.Contains(t, body.Error, "as_of")
}

func TestForecastTonnage(t *testing.T) {
	srv, _ := seededServer(t)
	rec := serve(srv, "/api/v1/forecast/tonnage?horizon_days=7")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Forecasts []domain.ForecastResult `json:"forecasts"`
	}](t, rec.Body.Bytes())
	require.Len(t, body.Forecasts, 1)
	assert.Equal(t, "residential", body.Forecasts[0].Key)
	assert.Greater(t, body.Forecasts[0].PredictedTotal, 0.0)
}

func TestHeatmap(t *testing.T) {
	srv, _ := seededServer(t)
	rec := serve(srv, "/api/v1/heatmap?grid_size=0.01")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[domain.HeatmapResult](t, rec.Body.Bytes())
	assert.Equal(t, 6, body.MatchedEvents)
	require.Len(t, body.Cells, 2)
	assert.Equal(t, 5, body.Cells[0].Count)
	assert.Equal(t, 100, body.Cells[0].Intensity)
}

func TestHeatmap_EmptyIsNotAnError(t *testing.T) {
	srv, _ := seededServer(t)
	rec := serve(srv, "/api/v1/heatmap?region=staten+island")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[domain.HeatmapResult](t, rec.Body.Bytes())
	assert.True(t, body.Empty())
	assert.NotNil(t, body.Cells)
}

func TestHeatmap_GridOutOfRange(t *testing.T) {
	srv, _ := seededServer(t)
	rec := serve(srv, "/api/v1/heatmap?grid_size=0.5")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "must be at most 0.1", decode[errorBody](t, rec.Body.Bytes()).Fields["grid_size"])
}

func TestHeatmap_PartialBounds(t *testing.T) {
	srv, _ := seededServer(t)
	rec := serve(srv, "/api/v1/heatmap?min_lat=40.5")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHotspots(t *testing.T) {
	srv, _ := seededServer(t)
	rec := serve(srv, "/api/v1/hotspots?min_count=3")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Count    int              `json:"count"`
		Hotspots []domain.Hotspot `json:"hotspots"`
	}](t, rec.Body.Bytes())
	require.Equal(t, 1, body.Count)
	assert.Equal(t, 5, body.Hotspots[0].Count)
	assert.Equal(t, 1, body.Hotspots[0].UrgentCount)
	assert.Equal(t, []string{domain.CategoryOverflow}, body.Hotspots[0].RequestTypes)
}

func TestPredictedHotspots(t *testing.T) {
	srv, _ := seededServer(t)
	rec := serve(srv, "/api/v1/hotspots/predicted?days_ahead=7&min_count=1")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		LookbackDays int              `json:"lookback_days"`
		Hotspots     []domain.Hotspot `json:"hotspots"`
	}](t, rec.Body.Bytes())
	assert.Equal(t, 28, body.LookbackDays)
	require.Len(t, body.Hotspots, 2)
	for _, h := range body.Hotspots {
		assert.True(t, h.Predicted)
		assert.GreaterOrEqual(t, h.Confidence, 0.0)
		assert.LessOrEqual(t, h.Confidence, 100.0)
	}
}

func TestNearby(t *testing.T) {
	srv, _ := seededServer(t)
	rec := serve(srv, "/api/v1/nearby?lat=40.6930&lng=-73.9900&radius_meters=500&limit=3")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Count  int            `json:"count"`
		Events []domain.Event `json:"events"`
	}](t, rec.Body.Bytes())
	assert.Equal(t, 3, body.Count)
	for _, e := range body.Events {
		assert.Equal(t, "BK-02", e.ZoneID)
	}
}

func TestNearby_Validation(t *testing.T) {
	srv, _ := seededServer(t)

	rec := serve(srv, "/api/v1/nearby?lng=-73.99")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorBody](t, rec.Body.Bytes()).Error, "lat: is required")

	rec = serve(srv, "/api/v1/nearby?lat=40.69&lng=-73.99&radius_meters=50")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "must be at least 100", decode[errorBody](t, rec.Body.Bytes()).Fields["radius_meters"])
}

func TestNearby_NoMatchesReturnsEmptyList(t *testing.T) {
	srv, _ := seededServer(t)
	rec := serve(srv, "/api/v1/nearby?lat=40.58&lng=-74.15&radius_meters=100")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.JSONEq(t, `[]`, string(decode[map[string]json.RawMessage](t, rec.Body.Bytes())["events"]))
}

func TestInBounds(t *testing.T) {
	srv, _ := seededServer(t)
	rec := serve(srv, "/api/v1/in-bounds?min_lat=40.6&max_lat=40.8&min_lng=-74.0&max_lng=-73.8&limit=10")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Events []domain.Event `json:"events"`
	}](t, rec.Body.Bytes())
	require.Len(t, body.Events, 6)
	// Most recent first.
	assert.Equal(t, "bk-1", body.Events[0].ID)
}

func TestInBounds_Validation(t *testing.T) {
	srv, _ := seededServer(t)

	rec := serve(srv, "/api/v1/in-bounds")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(srv, "/api/v1/in-bounds?min_lat=41&max_lat=40&min_lng=-74&max_lng=-73")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "must not exceed max_lat", decode[errorBody](t, rec.Body.Bytes()).Fields["min_lat"])
}

func TestRisk_AllZones(t *testing.T) {
	srv, _ := seededServer(t)
	rec := serve(srv, "/api/v1/risk")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[struct {
		Count       int                     `json:"count"`
		Assessments []domain.RiskAssessment `json:"assessments"`
	}](t, rec.Body.Bytes())
	require.Equal(t, 2, body.Count)
	assert.Equal(t, "BK-02", body.Assessments[0].ZoneID)
	assert.Equal(t, domain.RiskHigh, body.Assessments[0].RiskLevel)
	assert.Equal(t, 5, body.Assessments[0].OverflowCount90d)
	assert.Equal(t, "QN-07", body.Assessments[1].ZoneID)
	assert.Equal(t, 2, body.Assessments[1].RecentCollections7d)
}

func TestRisk_SingleZone(t *testing.T) {
	srv, _ := seededServer(t)

	rec := serve(srv, "/api/v1/risk?zone_id=qn-07")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "QN-07", decode[domain.RiskAssessment](t, rec.Body.Bytes()).ZoneID)

	rec = serve(srv, "/api/v1/risk?zone_id=SI-01")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQueryFailureReturns500(t *testing.T) {
	srv, metrics := newAPIServer(t, failingQuery{})
	rec := serve(srv, "/api/v1/risk")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[errorBody](t, rec.Body.Bytes())
	assert.Equal(t, "internal error", body.Error)
	assert.NotContains(t, rec.Body.String(), "connection refused")
	assert.InDelta(t, 1, counterValue(t, metrics.AnalyticsRequests.WithLabelValues("risk", "500")), 0)
}

func TestAnalyticsMetricsRecorded(t *testing.T) {
	srv, metrics := seededServer(t)
	serve(srv, "/api/v1/heatmap")
	serve(srv, "/api/v1/heatmap?grid_size=1")

	assert.InDelta(t, 1, counterValue(t, metrics.AnalyticsRequests.WithLabelValues("heatmap", "200")), 0)
	assert.InDelta(t, 1, counterValue(t, metrics.AnalyticsRequests.WithLabelValues("heatmap", "400")), 0)
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var pb dto.Metric
	require.NoError(t, c.Write(&pb))
	return pb.GetCounter().GetValue()
}
