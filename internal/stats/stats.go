// Package stats provides the numeric primitives shared by the forecaster and
// the spatial aggregator: least-squares trend fitting, trend labelling,
// seasonal adjustment, and confidence scoring.
//
// Every function is pure and safe for concurrent use.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/couchcryptid/sanitation-analytics-service/internal/domain"
)

// trendThreshold is the relative slope beyond which a series is labelled
// increasing or decreasing.
const trendThreshold = 0.05

// Point is one (x, y) observation, typically (day index, daily value).
type Point struct {
	X float64
	Y float64
}

// LinearTrend fits y = slope*x + intercept by ordinary least squares.
// It returns domain.ErrInsufficientData when fewer than two distinct x
// values are present.
func LinearTrend(points []Point) (slope, intercept float64, err error) {
	if len(points) < 2 {
		return 0, 0, domain.ErrInsufficientData
	}

	n := float64(len(points))
	var sumX, sumY float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
	}
	meanX := sumX / n
	meanY := sumY / n

	var sxx, sxy float64
	for _, p := range points {
		dx := p.X - meanX
		sxx += dx * dx
		sxy += dx * (p.Y - meanY)
	}
	if sxx == 0 {
		return 0, 0, domain.ErrInsufficientData
	}

	slope = sxy / sxx
	intercept = meanY - slope*meanX
	return slope, intercept, nil
}

// TrendLabel classifies a slope relative to the series mean. Means below 1
// are treated as 1 so sparse series do not flip labels on noise.
func TrendLabel(slope, mean float64) domain.Trend {
	relative := slope / math.Max(mean, 1)
	switch {
	case relative > trendThreshold:
		return domain.TrendIncreasing
	case relative < -trendThreshold:
		return domain.TrendDecreasing
	default:
		return domain.TrendStable
	}
}

// SeasonalFactor compares the current period against the long-run average.
// history maps a period (month, weekday, ...) to the averages observed for
// that period. It returns 1 when the current period has fewer than two
// observations or the overall mean is not positive, and never less than 0.1.
func SeasonalFactor(history map[int][]float64, current int) float64 {
	cur := history[current]
	if len(cur) < 2 {
		return 1
	}

	periods := make([]int, 0, len(history))
	for period := range history {
		periods = append(periods, period)
	}
	sort.Ints(periods)

	var all []float64
	for _, period := range periods {
		all = append(all, history[period]...)
	}
	overall := Mean(all)
	if overall <= 0 {
		return 1
	}
	return math.Max(0.1, Mean(cur)/overall)
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Variance returns the population variance, or 0 for fewer than two values.
func Variance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := Mean(values)
	var ss float64
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return ss / float64(len(values))
}

// Median returns the median without modifying values, or 0 when empty.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

// WeekdayFactor averages SeasonalFactor over days consecutive target days
// starting at from, using the day of week as the seasonal period. It returns 1
// when days is not positive.
func WeekdayFactor(history map[int][]float64, from time.Time, days int) float64 {
	if days <= 0 {
		return 1
	}
	var sum float64
	for i := 0; i < days; i++ {
		day := from.AddDate(0, 0, i)
		sum += SeasonalFactor(history, int(day.Weekday()))
	}
	return sum / float64(days)
}
