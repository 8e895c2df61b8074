package geo

import (
	"sort"

	"github.com/couchcryptid/sanitation-analytics-service/internal/domain"
)

// HeatmapParams configures a heatmap. Zero filter fields match everything.
type HeatmapParams struct {
	GridSize float64
	Bounds   *domain.BBox
	Category string
	Region   domain.Region
}

// Heatmap bins located events into grid cells. When no event matches the
// filters it returns an empty result with a nil error; use
// HeatmapResult.Empty to tell it apart from a result with cells.
func Heatmap(events []domain.Event, p HeatmapParams) (domain.HeatmapResult, error) {
	if err := validateGrid(p.GridSize); err != nil {
		return domain.HeatmapResult{}, err
	}
	if p.Bounds != nil {
		if err := p.Bounds.Validate(); err != nil {
			return domain.HeatmapResult{}, err
		}
	}

	filter := domain.Filter{Category: p.Category, Region: p.Region, Bounds: p.Bounds}
	matched := make([]domain.Event, 0, len(events))
	for _, e := range events {
		if e.Location != nil && filter.Match(e) {
			matched = append(matched, e)
		}
	}

	result := domain.HeatmapResult{
		Cells:         []domain.HeatCell{},
		GridSize:      p.GridSize,
		TotalEvents:   len(events),
		MatchedEvents: len(matched),
	}
	if len(matched) == 0 {
		return result, nil
	}

	cells := bin(matched, p.GridSize)
	result.MinCount = cells[0].count
	for _, c := range cells {
		result.MaxCount = max(result.MaxCount, c.count)
		result.MinCount = min(result.MinCount, c.count)
	}

	for _, c := range cells {
		result.Cells = append(result.Cells, domain.HeatCell{
			Center:      c.key.center(p.GridSize),
			Count:       c.count,
			UrgentCount: c.urgent,
			Intensity:   intensity(c.count, result.MaxCount),
		})
	}
	sort.SliceStable(result.Cells, func(i, j int) bool {
		a, b := result.Cells[i], result.Cells[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.UrgentCount != b.UrgentCount {
			return a.UrgentCount > b.UrgentCount
		}
		if a.Center.Lat != b.Center.Lat {
			return a.Center.Lat < b.Center.Lat
		}
		return a.Center.Lng < b.Center.Lng
	})
	result.Count = len(result.Cells)
	return result, nil
}
