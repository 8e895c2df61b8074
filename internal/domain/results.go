package domain

import "time"

// Trend is the direction label attached to a forecast.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// RiskLevel buckets an overflow risk score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ForecastResult is the projection for one grouping key.
type ForecastResult struct {
	Key                string  `json:"key"`
	PredictedCount     int     `json:"predicted_count"`
	PredictedTotal     float64 `json:"predicted_total"`
	PredictedDailyAvg  float64 `json:"predicted_daily_avg"`
	CurrentDailyAvg    float64 `json:"current_daily_avg"`
	HistoricalDailyAvg float64 `json:"historical_daily_avg"`
	Trend              Trend   `json:"trend"`
	PercentChange      float64 `json:"percent_change"`
	Confidence         float64 `json:"confidence"`
	SeasonalFactor     float64 `json:"seasonal_factor"`
	Slope              float64 `json:"slope"`
	DataPoints         int     `json:"data_points"`
}

// HeatCell is one occupied grid cell.
type HeatCell struct {
	Center      Geo `json:"center"`
	Count       int `json:"count"`
	UrgentCount int `json:"urgent_count"`
	Intensity   int `json:"intensity"`
}

// HeatmapResult is the set of occupied cells plus summary counts.
type HeatmapResult struct {
	Cells         []HeatCell `json:"cells"`
	Count         int        `json:"count"`
	MinCount      int        `json:"min_count"`
	MaxCount      int        `json:"max_count"`
	GridSize      float64    `json:"grid_size"`
	TotalEvents   int        `json:"total_events"`
	MatchedEvents int        `json:"matched_events"`
}

// Empty reports whether no event matched the heatmap filters.
func (r HeatmapResult) Empty() bool {
	return r.MatchedEvents == 0
}

// Hotspot is a cluster of adjacent occupied cells.
type Hotspot struct {
	Center         Geo       `json:"center"`
	Count          int       `json:"count"`
	UrgentCount    int       `json:"urgent_count"`
	CellCount      int       `json:"cell_count"`
	Intensity      int       `json:"intensity"`
	RequestTypes   []string  `json:"request_types"`
	EarliestAt     time.Time `json:"earliest_at"`
	Predicted      bool      `json:"predicted,omitempty"`
	PredictedCount int       `json:"predicted_count,omitempty"`
	Confidence     float64   `json:"confidence,omitempty"`
}

// RiskAssessment is the overflow risk for one zone.
type RiskAssessment struct {
	ZoneID              string    `json:"zone_id"`
	RiskScore           float64   `json:"risk_score"`
	RiskLevel           RiskLevel `json:"risk_level"`
	OverflowCount90d    int       `json:"overflow_count_90d"`
	RecentOverflow7d    int       `json:"recent_overflow_7d"`
	RecentCollections7d int       `json:"recent_collections_7d"`
	Recommendation      string    `json:"recommendation"`
	AssessedAt          time.Time `json:"assessed_at"`
}
