package stats

import (
	"testing"
	"time"

	"github.com/couchcryptid/sanitation-analytics-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearTrend(t *testing.T) {
	t.Run("perfect line", func(t *testing.T) {
		slope, intercept, err := LinearTrend([]Point{{0, 1}, {1, 3}, {2, 5}, {3, 7}})
		require.NoError(t, err)
		assert.InDelta(t, 2.0, slope, 1e-9)
		assert.InDelta(t, 1.0, intercept, 1e-9)
	})

	t.Run("flat series", func(t *testing.T) {
		slope, intercept, err := LinearTrend([]Point{{0, 4}, {5, 4}, {9, 4}})
		require.NoError(t, err)
		assert.InDelta(t, 0.0, slope, 1e-9)
		assert.InDelta(t, 4.0, intercept, 1e-9)
	})

	t.Run("single point", func(t *testing.T) {
		_, _, err := LinearTrend([]Point{{3, 9}})
		assert.ErrorIs(t, err, domain.ErrInsufficientData)
	})

	t.Run("repeated x", func(t *testing.T) {
		_, _, err := LinearTrend([]Point{{3, 9}, {3, 1}})
		assert.ErrorIs(t, err, domain.ErrInsufficientData)
	})

	t.Run("empty", func(t *testing.T) {
		_, _, err := LinearTrend(nil)
		assert.ErrorIs(t, err, domain.ErrInsufficientData)
	})
}

func TestTrendLabel(t *testing.T) {
	tests := []struct {
		name        string
		slope, mean float64
		want        domain.Trend
	}{
		{"increasing", 1, 10, domain.TrendIncreasing},
		{"decreasing", -1, 10, domain.TrendDecreasing},
		{"at threshold is stable", 0.5, 10, domain.TrendStable},
		{"small mean uses floor of 1", 0.04, 0.01, domain.TrendStable},
		{"small mean steep slope", 0.2, 0.01, domain.TrendIncreasing},
		{"zero", 0, 0, domain.TrendStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TrendLabel(tt.slope, tt.mean))
		})
	}
}

func TestSeasonalFactor(t *testing.T) {
	history := map[int][]float64{
		1: {10, 10},
		2: {5, 5},
		7: {20, 20},
	}
	// overall mean = (10+10+5+5+20+20)/6 = 11.666...
	assert.InDelta(t, 20/(70.0/6), SeasonalFactor(history, 7), 1e-9)
	assert.InDelta(t, 5/(70.0/6), SeasonalFactor(history, 2), 1e-9)

	t.Run("too few observations", func(t *testing.T) {
		assert.InDelta(t, 1.0, SeasonalFactor(map[int][]float64{3: {100}, 4: {1, 2}}, 3), 1e-9)
		assert.InDelta(t, 1.0, SeasonalFactor(history, 11), 1e-9)
	})

	t.Run("floor", func(t *testing.T) {
		h := map[int][]float64{1: {0, 0}, 2: {100, 100}}
		assert.InDelta(t, 0.1, SeasonalFactor(h, 1), 1e-9)
	})

	t.Run("non-positive overall mean", func(t *testing.T) {
		assert.InDelta(t, 1.0, SeasonalFactor(map[int][]float64{1: {0, 0}}, 1), 1e-9)
	})
}

func TestMeanVarianceMedian(t *testing.T) {
	assert.InDelta(t, 0.0, Mean(nil), 1e-9)
	assert.InDelta(t, 2.5, Mean([]float64{1, 2, 3, 4}), 1e-9)
	assert.InDelta(t, 1.25, Variance([]float64{1, 2, 3, 4}), 1e-9)
	assert.InDelta(t, 0.0, Variance([]float64{7}), 1e-9)

	in := []float64{5, 1, 3}
	assert.InDelta(t, 3.0, Median(in), 1e-9)
	assert.Equal(t, []float64{5, 1, 3}, in, "median must not reorder input")
	assert.InDelta(t, 2.5, Median([]float64{4, 1, 2, 3}), 1e-9)
	assert.InDelta(t, 0.0, Median(nil), 1e-9)

	assert.InDelta(t, 10.0, Clamp(12, 0, 10), 1e-9)
	assert.InDelta(t, 0.0, Clamp(-1, 0, 10), 1e-9)
}

func TestWeekdayFactor(t *testing.T) {
	// Mondays average 30, every other weekday averages 10.
	history := map[int][]float64{}
	for wd := 0; wd < 7; wd++ {
		history[wd] = []float64{10, 10}
	}
	history[int(time.Monday)] = []float64{30, 30}
	overall := (30.0*2 + 10*12) / 14

	monday := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	assert.InDelta(t, 30/overall, WeekdayFactor(history, monday, 1), 1e-9)

	week := WeekdayFactor(history, monday, 7)
	assert.InDelta(t, (30/overall+6*10/overall)/7, week, 1e-9)

	assert.InDelta(t, 1.0, WeekdayFactor(history, monday, 0), 1e-9)
	assert.InDelta(t, 1.0, WeekdayFactor(nil, monday, 5), 1e-9)
}
