package httpadapter

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/sanitation-analytics-service/internal/domain"
	"github.com/go-playground/validator/v10"
)

// queryParams reads typed values from a query string and collects parse
// errors so a request reports every bad parameter at once.
type queryParams struct {
	values url.Values
	errs   []error
}

func newQueryParams(v url.Values) *queryParams {
	return &queryParams{values: v}
}

func (q *queryParams) has(name string) bool {
	return strings.TrimSpace(q.values.Get(name)) != ""
}

func (q *queryParams) str(name string) string {
	return strings.TrimSpace(q.values.Get(name))
}

func (q *queryParams) strOr(name, def string) string {
	if s := q.str(name); s != "" {
		return s
	}
	return def
}

func (q *queryParams) int(name string, def int) int {
	if !q.has(name) {
		return def
	}
	n, err := strconv.Atoi(q.str(name))
	if err != nil {
		q.errs = append(q.errs, fmt.Errorf("%s: must be an integer", name))
		return def
	}
	return n
}

func (q *queryParams) float(name string, def float64) float64 {
	if !q.has(name) {
		return def
	}
	f, err := strconv.ParseFloat(q.str(name), 64)
	if err != nil {
		q.errs = append(q.errs, fmt.Errorf("%s: must be a number", name))
		return def
	}
	return f
}

func (q *queryParams) requiredFloat(name string) float64 {
	if !q.has(name) {
		q.errs = append(q.errs, fmt.Errorf("%s: is required", name))
		return 0
	}
	return q.float(name, 0)
}

// date accepts YYYY-MM-DD or RFC 3339. Missing values return the zero time.
func (q *queryParams) date(name string) time.Time {
	s := q.str(name)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		q.errs = append(q.errs, fmt.Errorf("%s: must be YYYY-MM-DD or RFC 3339", name))
		return time.Time{}
	}
	return t.UTC()
}

var boundsNames = []string{"min_lat", "min_lng", "max_lat", "max_lng"}

// bounds returns nil when no bound is given and an error unless all four are.
func (q *queryParams) bounds(required bool) *boundsParams {
	present := 0
	for _, n := range boundsNames {
		if q.has(n) {
			present++
		}
	}
	if present == 0 && !required {
		return nil
	}
	if present != len(boundsNames) {
		q.errs = append(q.errs, errors.New("min_lat, min_lng, max_lat, max_lng: all four bounds are required together"))
		return nil
	}
	return &boundsParams{
		MinLat: q.float("min_lat", 0),
		MinLng: q.float("min_lng", 0),
		MaxLat: q.float("max_lat", 0),
		MaxLng: q.float("max_lng", 0),
	}
}

func (q *queryParams) err() error {
	return errors.Join(q.errs...)
}

type boundsParams struct {
	MinLat float64 `query:"min_lat" validate:"gte=-90,lte=90,ltefield=MaxLat"`
	MinLng float64 `query:"min_lng" validate:"gte=-180,lte=180,ltefield=MaxLng"`
	MaxLat float64 `query:"max_lat" validate:"gte=-90,lte=90"`
	MaxLng float64 `query:"max_lng" validate:"gte=-180,lte=180"`
}

func (b *boundsParams) bbox() *domain.BBox {
	if b == nil {
		return nil
	}
	return &domain.BBox{MinLat: b.MinLat, MinLng: b.MinLng, MaxLat: b.MaxLat, MaxLng: b.MaxLng}
}

type forecastRequest struct {
	GroupBy      string    `query:"group_by" validate:"oneof=region category zone"`
	Measure      string    `query:"measure" validate:"oneof=count tonnage"`
	HorizonDays  int       `query:"horizon_days" validate:"min=1,max=365"`
	LookbackDays int       `query:"lookback_days" validate:"min=0,max=730"`
	Top          int       `query:"top" validate:"min=0,max=100"`
	AsOf         time.Time `query:"as_of"`
}

type tonnageRequest struct {
	HorizonDays int       `query:"horizon_days" validate:"min=1,max=90"`
	AsOf        time.Time `query:"as_of"`
}

type heatmapRequest struct {
	GridSize float64       `query:"grid_size" validate:"min=0.001,max=0.1"`
	Days     int           `query:"days" validate:"min=1,max=365"`
	Category string        `query:"category" validate:"omitempty,max=64"`
	Region   string        `query:"region" validate:"omitempty,max=32"`
	Bounds   *boundsParams `query:"bounds" validate:"omitempty"`
}

type hotspotRequest struct {
	Limit    int     `query:"limit" validate:"min=1,max=100"`
	GridSize float64 `query:"grid_size" validate:"min=0.001,max=0.1"`
	MinCount int     `query:"min_count" validate:"min=1,max=1000"`
	Days     int     `query:"days" validate:"min=1,max=365"`
	Category string  `query:"category" validate:"omitempty,max=64"`
}

type predictedHotspotRequest struct {
	DaysAhead    int       `query:"days_ahead" validate:"min=1,max=30"`
	Limit        int       `query:"limit" validate:"min=1,max=100"`
	GridSize     float64   `query:"grid_size" validate:"min=0.001,max=0.1"`
	MinCount     int       `query:"min_count" validate:"min=1,max=1000"`
	LookbackDays int       `query:"lookback_days" validate:"min=7,max=365"`
	AsOf         time.Time `query:"as_of"`
}

type nearbyRequest struct {
	Lat          float64 `query:"lat" validate:"gte=-90,lte=90"`
	Lng          float64 `query:"lng" validate:"gte=-180,lte=180"`
	RadiusMeters float64 `query:"radius_meters" validate:"min=100,max=10000"`
	Limit        int     `query:"limit" validate:"min=1,max=500"`
	Days         int     `query:"days" validate:"min=1,max=365"`
}

type inBoundsRequest struct {
	Bounds *boundsParams `query:"bounds" validate:"required"`
	Limit  int           `query:"limit" validate:"min=1,max=1000"`
	Days   int           `query:"days" validate:"min=1,max=365"`
}

type riskRequest struct {
	ZoneID string    `query:"zone_id" validate:"omitempty,max=16"`
	Limit  int       `query:"limit" validate:"min=0,max=100"`
	AsOf   time.Time `query:"as_of"`
}

// newValidator reports field errors under their query parameter names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("query"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// fieldMessages converts validator errors to parameter -> message pairs.
func fieldMessages(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		var msg string
		switch fe.Tag() {
		case "required":
			msg = "is required"
		case "min", "gte":
			msg = "must be at least " + fe.Param()
		case "max", "lte":
			msg = "must be at most " + fe.Param()
		case "oneof":
			msg = "must be one of: " + fe.Param()
		case "ltefield":
			msg = "must not exceed " + strings.Replace(fe.Field(), "min_", "max_", 1)
		default:
			msg = "is invalid"
		}
		out[fe.Field()] = msg
	}
	return out
}
