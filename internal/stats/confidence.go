package stats

import "math"

// ConfidenceInput describes the series a confidence score is computed for.
type ConfidenceInput struct {
	SampleSize    int
	DaysOfHistory int
	Mean          float64
	Variance      float64
}

// Tier maps a minimum sample size to a base score.
type Tier struct {
	MinSamples int
	Score      float64
}

// ConfidenceWeights holds the tunable coefficients of Confidence.
type ConfidenceWeights struct {
	// Tiers must be ordered by MinSamples descending. Samples below the
	// last tier get BaseScore.
	Tiers     []Tier
	BaseScore float64

	// HistoryDays is the span at which history stops reducing confidence.
	// HistoryFloor is the multiplier applied with zero days of history.
	HistoryDays  int
	HistoryFloor float64

	CVThreshold  float64
	CVSlope      float64
	MaxCVPenalty float64

	Floor   float64
	Ceiling float64
}

// DefaultConfidenceWeights returns the production coefficients.
func DefaultConfidenceWeights() ConfidenceWeights {
	return ConfidenceWeights{
		Tiers: []Tier{
			{MinSamples: 30, Score: 85},
			{MinSamples: 14, Score: 70},
			{MinSamples: 7, Score: 50},
		},
		BaseScore:    30,
		HistoryDays:  90,
		HistoryFloor: 0.8,
		CVThreshold:  0.5,
		CVSlope:      0.5,
		MaxCVPenalty: 0.3,
		Floor:        30,
		Ceiling:      95,
	}
}

// Confidence scores a forecast on [0, 100]. An empty sample scores 0. The
// score never decreases as the sample grows and never increases as the
// variance grows.
func Confidence(in ConfidenceInput, w ConfidenceWeights) float64 {
	if in.SampleSize <= 0 {
		return 0
	}

	score := w.BaseScore
	for _, tier := range w.Tiers {
		if in.SampleSize >= tier.MinSamples {
			score = tier.Score
			break
		}
	}

	if w.HistoryDays > 0 {
		ratio := math.Min(float64(in.DaysOfHistory)/float64(w.HistoryDays), 1)
		ratio = math.Max(ratio, 0)
		score *= w.HistoryFloor + (1-w.HistoryFloor)*ratio
	}

	if in.Mean > 0 && in.Variance > 0 {
		cv := math.Sqrt(in.Variance) / in.Mean
		if cv > w.CVThreshold {
			penalty := math.Min(w.MaxCVPenalty, (cv-w.CVThreshold)*w.CVSlope)
			score *= 1 - penalty
		}
	}

	score = Clamp(score, w.Floor, w.Ceiling)
	return Clamp(score, 0, 100)
}
