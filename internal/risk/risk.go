// Package risk scores collection zones for overflow risk from recent
// overflow complaints and completed collections, relative to citywide
// medians for the same batch.
package risk

import (
	"math"
	"sort"
	"time"

	"github.com/couchcryptid/sanitation-analytics-service/internal/domain"
	"github.com/couchcryptid/sanitation-analytics-service/internal/stats"
)

const (
	// OverflowWindowDays is the lookback for overflow complaints.
	OverflowWindowDays = 90
	// CollectionWindowDays is the lookback for completed collections and
	// recent overflow.
	CollectionWindowDays = 7
)

// Baselines are the citywide reference values a zone is compared against.
type Baselines struct {
	ExpectedOverflow90d float64 `json:"expected_overflow_90d"`
	CollectionFreq7d    float64 `json:"collection_freq_7d"`
}

// Config holds the scoring thresholds and recommendation table. Zero fields
// take defaults.
type Config struct {
	HighThreshold   float64
	MediumThreshold float64
	Recommendations map[domain.RiskLevel]string
	// Baselines, when set, replaces the per-batch citywide medians.
	Baselines *Baselines
}

// DefaultRecommendations maps each risk level to its operational guidance.
func DefaultRecommendations() map[domain.RiskLevel]string {
	return map[domain.RiskLevel]string{
		domain.RiskHigh:   "Increase collection frequency",
		domain.RiskMedium: "Monitor closely",
		domain.RiskLow:    "Normal operations",
	}
}

// Scorer assesses zones against a fixed set of baselines.
type Scorer struct {
	cfg       Config
	baselines Baselines
}

// NewScorer creates a Scorer. Non-positive baselines fall back to 1.
func NewScorer(cfg Config, b Baselines) *Scorer {
	if cfg.HighThreshold <= 0 {
		cfg.HighThreshold = 66
	}
	if cfg.MediumThreshold <= 0 {
		cfg.MediumThreshold = 33
	}
	if cfg.Recommendations == nil {
		cfg.Recommendations = DefaultRecommendations()
	}
	if b.ExpectedOverflow90d <= 0 {
		b.ExpectedOverflow90d = 1
	}
	if b.CollectionFreq7d <= 0 {
		b.CollectionFreq7d = 1
	}
	return &Scorer{cfg: cfg, baselines: b}
}

// Baselines returns the reference values the scorer uses.
func (s *Scorer) Baselines() Baselines {
	return s.baselines
}

// ComputeBaselines returns the median overflow count and median completed
// collection count across the zones of a batch. A median of zero or less
// falls back to 1.
func ComputeBaselines(overflowByZone, collectionsByZone map[string]int) Baselines {
	return Baselines{
		ExpectedOverflow90d: medianOrOne(overflowByZone),
		CollectionFreq7d:    medianOrOne(collectionsByZone),
	}
}

func medianOrOne(counts map[string]int) float64 {
	values := make([]float64, 0, len(counts))
	for _, c := range counts {
		values = append(values, float64(c))
	}
	m := stats.Median(values)
	if m <= 0 {
		return 1
	}
	return m
}

// Score computes the bounded risk score for the given counts.
func (s *Scorer) Score(overflow90d, collections7d int) float64 {
	overflowRatio := float64(overflow90d) / s.baselines.ExpectedOverflow90d
	collectionRatio := s.baselines.CollectionFreq7d / float64(max(collections7d, 1))
	return stats.Clamp(100*overflowRatio*collectionRatio, 0, 100)
}

// Level buckets a score.
func (s *Scorer) Level(score float64) domain.RiskLevel {
	switch {
	case score >= s.cfg.HighThreshold:
		return domain.RiskHigh
	case score >= s.cfg.MediumThreshold:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

// Assess scores one zone. overflow90d holds the zone's overflow complaints of
// the last 90 days and collections7d its completed collections of the last 7
// days; callers select them. asOf anchors the recent-overflow count and
// defaults to now.
func (s *Scorer) Assess(zoneID string, overflow90d, collections7d []domain.Event, asOf time.Time) domain.RiskAssessment {
	asOf = domain.AsOfOrNow(asOf)
	recentFrom := asOf.AddDate(0, 0, -CollectionWindowDays)

	recent := 0
	for _, e := range overflow90d {
		if !e.Timestamp.Before(recentFrom) {
			recent++
		}
	}

	score := math.Round(s.Score(len(overflow90d), len(collections7d))*10) / 10
	level := s.Level(score)
	return domain.RiskAssessment{
		ZoneID:              zoneID,
		RiskScore:           score,
		RiskLevel:           level,
		OverflowCount90d:    len(overflow90d),
		RecentOverflow7d:    recent,
		RecentCollections7d: len(collections7d),
		Recommendation:      s.cfg.Recommendations[level],
		AssessedAt:          asOf,
	}
}

// AssessAll selects overflow complaints of the last 90 days and completed
// collections of the last 7 days from events, derives baselines for the
// batch, and assesses every zone present. Results are sorted by score
// descending, then zone id.
func AssessAll(events []domain.Event, asOf time.Time, cfg Config) []domain.RiskAssessment {
	asOf = domain.AsOfOrNow(asOf)
	overflowFrom := asOf.AddDate(0, 0, -OverflowWindowDays)
	collectionFrom := asOf.AddDate(0, 0, -CollectionWindowDays)

	overflow := make(map[string][]domain.Event)
	collections := make(map[string][]domain.Event)
	zones := make(map[string]struct{})
	for _, e := range events {
		if e.ZoneID == "" || e.Timestamp.After(asOf) {
			continue
		}
		switch {
		case IsOverflow(e) && !e.Timestamp.Before(overflowFrom):
			overflow[e.ZoneID] = append(overflow[e.ZoneID], e)
			zones[e.ZoneID] = struct{}{}
		case IsCompletedCollection(e) && !e.Timestamp.Before(collectionFrom):
			collections[e.ZoneID] = append(collections[e.ZoneID], e)
			zones[e.ZoneID] = struct{}{}
		}
	}

	ids := make([]string, 0, len(zones))
	overflowCounts := make(map[string]int, len(zones))
	collectionCounts := make(map[string]int, len(zones))
	for z := range zones {
		ids = append(ids, z)
		overflowCounts[z] = len(overflow[z])
		collectionCounts[z] = len(collections[z])
	}
	sort.Strings(ids)

	b := ComputeBaselines(overflowCounts, collectionCounts)
	if cfg.Baselines != nil {
		b = *cfg.Baselines
	}
	scorer := NewScorer(cfg, b)

	out := make([]domain.RiskAssessment, 0, len(ids))
	for _, z := range ids {
		out = append(out, scorer.Assess(z, overflow[z], collections[z], asOf))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RiskScore != out[j].RiskScore {
			return out[i].RiskScore > out[j].RiskScore
		}
		return out[i].ZoneID < out[j].ZoneID
	})
	return out
}

// IsOverflow reports whether e is an overflow service request.
func IsOverflow(e domain.Event) bool {
	return e.Kind == domain.KindServiceRequest && e.Category == domain.CategoryOverflow
}

// IsCompletedCollection reports whether e is a completed collection.
func IsCompletedCollection(e domain.Event) bool {
	return e.Kind == domain.KindCollection && e.Status == domain.StatusCompleted
}
