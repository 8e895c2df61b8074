package geo

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/couchcryptid/sanitation-analytics-service/internal/domain"
)

type cellKey struct {
	lat int64
	lng int64
}

func (k cellKey) less(o cellKey) bool {
	if k.lat != o.lat {
		return k.lat < o.lat
	}
	return k.lng < o.lng
}

type cell struct {
	key        cellKey
	count      int
	urgent     int
	earliest   time.Time
	categories map[string]struct{}
	days       map[int64]struct{}
}

func quantize(g domain.Geo, grid float64) cellKey {
	return cellKey{
		lat: int64(math.Floor(g.Lat / grid)),
		lng: int64(math.Floor(g.Lng / grid)),
	}
}

func (k cellKey) center(grid float64) domain.Geo {
	return domain.Geo{
		Lat: float64(k.lat)*grid + grid/2,
		Lng: float64(k.lng)*grid + grid/2,
	}
}

// bin accumulates located events into grid cells and returns them ordered
// by cell index.
func bin(events []domain.Event, grid float64) []*cell {
	cells := make(map[cellKey]*cell)
	for _, e := range events {
		if e.Location == nil {
			continue
		}
		k := quantize(*e.Location, grid)
		c, ok := cells[k]
		if !ok {
			c = &cell{
				key:        k,
				earliest:   e.Timestamp,
				categories: make(map[string]struct{}),
				days:       make(map[int64]struct{}),
			}
			cells[k] = c
		}
		c.count++
		if e.IsUrgent() {
			c.urgent++
		}
		if e.Timestamp.Before(c.earliest) {
			c.earliest = e.Timestamp
		}
		if e.Category != "" {
			c.categories[e.Category] = struct{}{}
		}
		c.days[dayNumber(e.Timestamp)] = struct{}{}
	}

	out := make([]*cell, 0, len(cells))
	for _, c := range cells {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key.less(out[j].key) })
	return out
}

func dayNumber(t time.Time) int64 {
	return int64(math.Floor(float64(t.UTC().Unix()) / 86400))
}

func intensity(count, maxCount int) int {
	return int(math.Round(100 * float64(count) / float64(max(maxCount, 1))))
}

// minGridSize keeps cell indices of any valid coordinate well inside int64.
const minGridSize = 1e-9

func validateGrid(grid float64) error {
	if err := domain.RequirePositive("grid_size", grid); err != nil {
		return err
	}
	if grid < minGridSize {
		return domain.NewInvalidParameter("grid_size", grid, fmt.Sprintf("must be at least %g", minGridSize))
	}
	return nil
}
