// Package forecast projects short-horizon event volume per region, category,
// or zone from daily series using a least-squares trend, a weekday seasonal
// adjustment, and a confidence score.
package forecast

import (
	"math"
	"sort"
	"time"

	"github.com/couchcryptid/sanitation-analytics-service/internal/domain"
	"github.com/couchcryptid/sanitation-analytics-service/internal/stats"
)

// GroupBy selects the grouping key of a forecast.
type GroupBy string

const (
	GroupByRegion   GroupBy = "region"
	GroupByCategory GroupBy = "category"
	GroupByZone     GroupBy = "zone"
)

// Measure selects what is summed per day.
type Measure string

const (
	MeasureCount   Measure = "count"
	MeasureTonnage Measure = "tonnage"
)

const (
	// DefaultLookbackDays is the history window used when Params.LookbackDays is zero.
	DefaultLookbackDays = 180

	recentDays = 7
	epsilon    = 1e-9
	day        = 24 * time.Hour
)

// Params configures one forecast call.
type Params struct {
	GroupBy     GroupBy
	HorizonDays int
	// LookbackDays defaults to the forecaster's configured lookback when zero.
	LookbackDays int
	// AsOf is the last day of history. Zero means now.
	AsOf    time.Time
	Measure Measure
}

// Config holds the tunable coefficients. Zero fields take defaults.
type Config struct {
	Weights             stats.ConfidenceWeights
	DefaultLookbackDays int
}

// Forecaster computes forecasts. It holds only configuration and is safe for
// concurrent use.
type Forecaster struct {
	weights  stats.ConfidenceWeights
	lookback int
}

// New creates a Forecaster, filling zero Config fields with defaults.
func New(cfg Config) *Forecaster {
	if len(cfg.Weights.Tiers) == 0 {
		cfg.Weights = stats.DefaultConfidenceWeights()
	}
	if cfg.DefaultLookbackDays <= 0 {
		cfg.DefaultLookbackDays = DefaultLookbackDays
	}
	return &Forecaster{weights: cfg.Weights, lookback: cfg.DefaultLookbackDays}
}

// Forecast returns one result per grouping key observed in the window,
// sorted by key.
func (f *Forecaster) Forecast(events []domain.Event, p Params) ([]domain.ForecastResult, error) {
	p, err := f.resolve(p)
	if err != nil {
		return nil, err
	}

	start, end := domain.DayWindow(p.AsOf, p.LookbackDays)

	series := make(map[string]map[int]float64)
	for _, e := range events {
		ts := e.Timestamp.UTC()
		if ts.Before(start) || !ts.Before(end) {
			continue
		}
		key := groupKey(e, p.GroupBy)
		if key == "" {
			continue
		}
		v := 1.0
		if p.Measure == MeasureTonnage {
			if e.Tonnage == nil {
				continue
			}
			v = *e.Tonnage
		}
		daily, ok := series[key]
		if !ok {
			daily = make(map[int]float64)
			series[key] = daily
		}
		daily[int(ts.Sub(start)/day)] += v
	}

	keys := make([]string, 0, len(series))
	for k := range series {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	results := make([]domain.ForecastResult, 0, len(keys))
	for _, k := range keys {
		results = append(results, f.forecastKey(k, series[k], start, end, p.HorizonDays))
	}
	return results, nil
}

// ForecastTonnage projects collected tonnage per waste type from completed
// collection records.
func (f *Forecaster) ForecastTonnage(events []domain.Event, horizonDays int, asOf time.Time) ([]domain.ForecastResult, error) {
	collections := make([]domain.Event, 0, len(events))
	for _, e := range events {
		if e.Kind == domain.KindCollection && e.Status == domain.StatusCompleted {
			collections = append(collections, e)
		}
	}
	return f.Forecast(collections, Params{
		GroupBy:     GroupByCategory,
		HorizonDays: horizonDays,
		AsOf:        asOf,
		Measure:     MeasureTonnage,
	})
}

// LookbackDays is the history window used when Params.LookbackDays is zero.
func (f *Forecaster) LookbackDays() int {
	return f.lookback
}

// RankByPredicted returns a copy of results sorted by predicted count
// descending, then key.
func RankByPredicted(results []domain.ForecastResult) []domain.ForecastResult {
	ranked := append([]domain.ForecastResult(nil), results...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].PredictedCount != ranked[j].PredictedCount {
			return ranked[i].PredictedCount > ranked[j].PredictedCount
		}
		return ranked[i].Key < ranked[j].Key
	})
	return ranked
}

func (f *Forecaster) resolve(p Params) (Params, error) {
	switch p.GroupBy {
	case GroupByRegion, GroupByCategory, GroupByZone:
	default:
		return p, domain.NewInvalidParameter("group_by", p.GroupBy, "must be region, category, or zone")
	}
	switch p.Measure {
	case "":
		p.Measure = MeasureCount
	case MeasureCount, MeasureTonnage:
	default:
		return p, domain.NewInvalidParameter("measure", p.Measure, "must be count or tonnage")
	}
	if err := domain.RequirePositive("horizon_days", p.HorizonDays); err != nil {
		return p, err
	}
	if p.LookbackDays == 0 {
		p.LookbackDays = f.lookback
	}
	if err := domain.RequirePositive("lookback_days", p.LookbackDays); err != nil {
		return p, err
	}
	p.AsOf = domain.AsOfOrNow(p.AsOf)
	return p, nil
}

func (f *Forecaster) forecastKey(key string, daily map[int]float64, start, end time.Time, horizon int) domain.ForecastResult {
	days := make([]int, 0, len(daily))
	for d := range daily {
		days = append(days, d)
	}
	sort.Ints(days)

	values := make([]float64, len(days))
	points := make([]stats.Point, len(days))
	weekdays := make(map[int][]float64)
	for i, d := range days {
		values[i] = daily[d]
		points[i] = stats.Point{X: float64(d), Y: values[i]}
		wd := int(start.AddDate(0, 0, d).Weekday())
		weekdays[wd] = append(weekdays[wd], values[i])
	}

	historical := stats.Mean(values)
	current := stats.Mean(values[max(0, len(values)-recentDays):])

	res := domain.ForecastResult{
		Key:                key,
		CurrentDailyAvg:    current,
		HistoricalDailyAvg: historical,
		Trend:              domain.TrendStable,
		SeasonalFactor:     1,
		DataPoints:         len(days),
	}

	slope, intercept, err := stats.LinearTrend(points)
	if err != nil {
		// Fewer than two observed days: flat, zero-confidence forecast.
		return res
	}

	last := float64(days[len(days)-1])
	predicted := math.Max(0, slope*(last+float64(horizon)/2)+intercept)
	seasonal := stats.WeekdayFactor(weekdays, end, horizon)
	predicted *= seasonal

	res.Slope = slope
	res.SeasonalFactor = seasonal
	res.PredictedDailyAvg = predicted
	res.PredictedTotal = predicted * float64(horizon)
	res.PredictedCount = int(math.Round(res.PredictedTotal))
	res.PercentChange = 100 * (predicted - current) / math.Max(current, epsilon)
	res.Trend = stats.TrendLabel(slope, historical)
	res.Confidence = stats.Confidence(stats.ConfidenceInput{
		SampleSize:    len(days),
		DaysOfHistory: days[len(days)-1] - days[0] + 1,
		Mean:          historical,
		Variance:      stats.Variance(values),
	}, f.weights)
	return res
}

func groupKey(e domain.Event, by GroupBy) string {
	switch by {
	case GroupByRegion:
		if !e.Region.IsSpecified() {
			return ""
		}
		return string(e.Region)
	case GroupByCategory:
		return e.Category
	case GroupByZone:
		return e.ZoneID
	}
	return ""
}
