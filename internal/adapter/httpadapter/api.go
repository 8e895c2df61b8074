package httpadapter

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/sanitation-analytics-service/internal/domain"
	"github.com/couchcryptid/sanitation-analytics-service/internal/forecast"
	"github.com/couchcryptid/sanitation-analytics-service/internal/geo"
	"github.com/couchcryptid/sanitation-analytics-service/internal/observability"
	"github.com/couchcryptid/sanitation-analytics-service/internal/risk"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"
)

// Options configures the analytics API. Zero fields take defaults.
type Options struct {
	Forecaster          *forecast.Forecaster
	Risk                risk.Config
	HotspotLookbackDays int
	Clock               clockwork.Clock
}

// API serves the analytics endpoints over an event query source.
type API struct {
	events          domain.EventQuery
	forecaster      *forecast.Forecaster
	risk            risk.Config
	hotspotLookback int
	clock           clockwork.Clock
	validate        *validator.Validate
	metrics         *observability.Metrics
	logger          *slog.Logger
}

// NewAPI creates the analytics API.
func NewAPI(events domain.EventQuery, opts Options, metrics *observability.Metrics, logger *slog.Logger) *API {
	if opts.Forecaster == nil {
		opts.Forecaster = forecast.New(forecast.Config{})
	}
	if opts.HotspotLookbackDays <= 0 {
		opts.HotspotLookbackDays = 90
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &API{
		events:          events,
		forecaster:      opts.Forecaster,
		risk:            opts.Risk,
		hotspotLookback: opts.HotspotLookbackDays,
		clock:           opts.Clock,
		validate:        newValidator(),
		metrics:         metrics,
		logger:          logger,
	}
}

// Register mounts the /api/v1 routes on mux.
func (a *API) Register(mux *http.ServeMux) {
	routes := []struct {
		pattern  string
		endpoint string
		handler  http.HandlerFunc
	}{
		{"GET /api/v1/forecast", "forecast", a.handleForecast},
		{"GET /api/v1/forecast/tonnage", "forecast_tonnage", a.handleTonnage},
		{"GET /api/v1/heatmap", "heatmap", a.handleHeatmap},
		{"GET /api/v1/hotspots", "hotspots", a.handleHotspots},
		{"GET /api/v1/hotspots/predicted", "hotspots_predicted", a.handlePredictedHotspots},
		{"GET /api/v1/nearby", "nearby", a.handleNearby},
		{"GET /api/v1/in-bounds", "in_bounds", a.handleInBounds},
		{"GET /api/v1/risk", "risk", a.handleRisk},
	}
	for _, rt := range routes {
		mux.HandleFunc(rt.pattern, instrument(a.metrics, rt.endpoint, rt.handler))
	}
}

func (a *API) now() time.Time {
	return a.clock.Now().UTC()
}

func (a *API) asOfOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return a.now()
	}
	return t.UTC()
}

// bind finishes parsing and runs struct validation.
func (a *API) bind(q *queryParams, req any) error {
	if err := q.err(); err != nil {
		return &paramError{err: err}
	}
	return a.validate.Struct(req)
}

func (a *API) query(ctx context.Context, f domain.Filter) ([]domain.Event, error) {
	events, err := a.events.Query(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return events, nil
}

func (a *API) handleForecast(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r.URL.Query())
	req := forecastRequest{
		GroupBy:      q.strOr("group_by", string(forecast.GroupByRegion)),
		Measure:      q.strOr("measure", string(forecast.MeasureCount)),
		HorizonDays:  q.int("horizon_days", 30),
		LookbackDays: q.int("lookback_days", 0),
		Top:          q.int("top", 0),
		AsOf:         q.date("as_of"),
	}
	if err := a.bind(q, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	asOf := a.asOfOrNow(req.AsOf)
	lookback := req.LookbackDays
	if lookback == 0 {
		lookback = a.forecaster.LookbackDays()
	}
	from, to := domain.DayWindow(asOf, lookback)
	events, err := a.query(r.Context(), domain.Filter{From: from, To: to})
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	results, err := a.forecaster.Forecast(events, forecast.Params{
		GroupBy:      forecast.GroupBy(req.GroupBy),
		HorizonDays:  req.HorizonDays,
		LookbackDays: lookback,
		AsOf:         asOf,
		Measure:      forecast.Measure(req.Measure),
	})
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	if req.Top > 0 {
		results = forecast.RankByPredicted(results)
		if len(results) > req.Top {
			results = results[:req.Top]
		}
	}

	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"group_by":      req.GroupBy,
		"measure":       req.Measure,
		"horizon_days":  req.HorizonDays,
		"lookback_days": lookback,
		"as_of":         asOf,
		"forecasts":     results,
	})
}

func (a *API) handleTonnage(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r.URL.Query())
	req := tonnageRequest{
		HorizonDays: q.int("horizon_days", 7),
		AsOf:        q.date("as_of"),
	}
	if err := a.bind(q, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	asOf := a.asOfOrNow(req.AsOf)
	from, to := domain.DayWindow(asOf, a.forecaster.LookbackDays())
	events, err := a.query(r.Context(), domain.Filter{From: from, To: to, Kind: domain.KindCollection})
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	results, err := a.forecaster.ForecastTonnage(events, req.HorizonDays, asOf)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"horizon_days": req.HorizonDays,
		"as_of":        asOf,
		"forecasts":    results,
	})
}

func (a *API) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r.URL.Query())
	req := heatmapRequest{
		GridSize: q.float("grid_size", 0.01),
		Days:     q.int("days", 30),
		Category: q.str("category"),
		Region:   q.str("region"),
		Bounds:   q.bounds(false),
	}
	if err := a.bind(q, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	var region domain.Region
	if req.Region != "" {
		region = domain.NormalizeRegion(req.Region)
	}
	from, to := domain.DayWindow(a.now(), req.Days)
	events, err := a.query(r.Context(), domain.Filter{
		From:     from,
		To:       to,
		Region:   region,
		Category: req.Category,
		Bounds:   req.Bounds.bbox(),
	})
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	result, err := geo.Heatmap(events, geo.HeatmapParams{
		GridSize: req.GridSize,
		Bounds:   req.Bounds.bbox(),
		Category: req.Category,
		Region:   region,
	})
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, result)
}

func (a *API) handleHotspots(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r.URL.Query())
	req := hotspotRequest{
		Limit:    q.int("limit", 10),
		GridSize: q.float("grid_size", 0.001),
		MinCount: q.int("min_count", 3),
		Days:     q.int("days", 30),
		Category: q.str("category"),
	}
	if err := a.bind(q, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	from, to := domain.DayWindow(a.now(), req.Days)
	events, err := a.query(r.Context(), domain.Filter{
		From:     from,
		To:       to,
		Kind:     domain.KindServiceRequest,
		Category: req.Category,
	})
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	hotspots, err := geo.Hotspots(events, geo.HotspotParams{
		GridSize: req.GridSize,
		TopN:     req.Limit,
		MinCount: req.MinCount,
	})
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"count":    len(hotspots),
		"hotspots": hotspots,
	})
}

func (a *API) handlePredictedHotspots(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r.URL.Query())
	req := predictedHotspotRequest{
		DaysAhead:    q.int("days_ahead", 7),
		Limit:        q.int("limit", 20),
		GridSize:     q.float("grid_size", 0.001),
		MinCount:     q.int("min_count", 3),
		LookbackDays: q.int("lookback_days", a.hotspotLookback),
		AsOf:         q.date("as_of"),
	}
	if err := a.bind(q, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	asOf := a.asOfOrNow(req.AsOf)
	from, to := domain.DayWindow(asOf, req.LookbackDays)
	events, err := a.query(r.Context(), domain.Filter{From: from, To: to, Kind: domain.KindServiceRequest})
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	hotspots, err := geo.PredictHotspots(events, geo.PredictParams{
		HotspotParams: geo.HotspotParams{
			GridSize: req.GridSize,
			TopN:     req.Limit,
			MinCount: req.MinCount,
		},
		HorizonDays:  req.DaysAhead,
		LookbackDays: req.LookbackDays,
		AsOf:         asOf,
	})
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"days_ahead":    req.DaysAhead,
		"lookback_days": req.LookbackDays,
		"as_of":         asOf,
		"count":         len(hotspots),
		"hotspots":      hotspots,
	})
}

func (a *API) handleNearby(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r.URL.Query())
	req := nearbyRequest{
		Lat:          q.requiredFloat("lat"),
		Lng:          q.requiredFloat("lng"),
		RadiusMeters: q.float("radius_meters", 1000),
		Limit:        q.int("limit", 50),
		Days:         q.int("days", 30),
	}
	if err := a.bind(q, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	box := geo.BoundingBox(domain.Geo{Lat: req.Lat, Lng: req.Lng}, req.RadiusMeters)
	from, to := domain.DayWindow(a.now(), req.Days)
	events, err := a.query(r.Context(), domain.Filter{From: from, To: to, Bounds: &box})
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	nearby, err := geo.Nearby(events, req.Lat, req.Lng, req.RadiusMeters, req.Limit)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"center":        domain.Geo{Lat: req.Lat, Lng: req.Lng},
		"radius_meters": req.RadiusMeters,
		"count":         len(nearby),
		"events":        nonNil(nearby),
	})
}

func (a *API) handleInBounds(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r.URL.Query())
	req := inBoundsRequest{
		Bounds: q.bounds(true),
		Limit:  q.int("limit", 100),
		Days:   q.int("days", 30),
	}
	if err := a.bind(q, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	box := req.Bounds.bbox()
	from, to := domain.DayWindow(a.now(), req.Days)
	events, err := a.query(r.Context(), domain.Filter{From: from, To: to, Bounds: box})
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	inBounds, err := geo.InBounds(events, *box, req.Limit)
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"bounds": box,
		"count":  len(inBounds),
		"events": nonNil(inBounds),
	})
}

func (a *API) handleRisk(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r.URL.Query())
	req := riskRequest{
		ZoneID: strings.ToUpper(q.str("zone_id")),
		Limit:  q.int("limit", 0),
		AsOf:   q.date("as_of"),
	}
	if err := a.bind(q, &req); err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	asOf := a.asOfOrNow(req.AsOf)
	events, err := a.query(r.Context(), domain.Filter{
		From: asOf.AddDate(0, 0, -risk.OverflowWindowDays),
		To:   asOf.Add(time.Nanosecond),
	})
	if err != nil {
		writeError(w, r, a.logger, err)
		return
	}

	// Baselines come from every zone, so the whole batch is scored even when
	// one zone is requested.
	assessments := risk.AssessAll(events, asOf, a.risk)
	if req.ZoneID != "" {
		for _, zone := range assessments {
			if zone.ZoneID == req.ZoneID {
				sharedobs.WriteJSON(w, http.StatusOK, zone)
				return
			}
		}
		writeNotFound(w, r, fmt.Sprintf("no overflow or collection activity for zone %s", req.ZoneID))
		return
	}

	if req.Limit > 0 && len(assessments) > req.Limit {
		assessments = assessments[:req.Limit]
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"as_of":       asOf,
		"count":       len(assessments),
		"assessments": assessments,
	})
}

func nonNil(events []domain.Event) []domain.Event {
	if events == nil {
		return []domain.Event{}
	}
	return events
}
