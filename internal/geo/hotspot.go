package geo

import (
	"math"
	"sort"
	"time"

	"github.com/couchcryptid/sanitation-analytics-service/internal/domain"
	"github.com/couchcryptid/sanitation-analytics-service/internal/stats"
)

// HotspotParams configures hotspot detection.
type HotspotParams struct {
	GridSize float64
	// TopN bounds the number of hotspots returned.
	TopN int
	// MinCount drops clusters with fewer events. Values below 1 keep all.
	MinCount int
}

// PredictParams configures forward-looking hotspot projection.
type PredictParams struct {
	HotspotParams
	HorizonDays  int
	LookbackDays int
	// AsOf is the last day of history. Zero means now.
	AsOf time.Time
}

type cluster struct {
	cells      []*cell
	centroid   domain.Geo
	count      int
	urgent     int
	earliest   time.Time
	categories map[string]struct{}
	days       map[int64]struct{}
}

// Hotspots groups each dense cell with its adjacent occupied cells and returns at most TopN
// clusters ranked by count, then urgent count, then earliest event.
func Hotspots(events []domain.Event, p HotspotParams) ([]domain.Hotspot, error) {
	if err := validateHotspot(p); err != nil {
		return nil, err
	}
	clusters := clusterCells(bin(events, p.GridSize), p.GridSize, p.MinCount)
	rankClusters(clusters)
	if len(clusters) > p.TopN {
		clusters = clusters[:p.TopN]
	}

	maxCount := 0
	for _, c := range clusters {
		maxCount = max(maxCount, c.count)
	}
	out := make([]domain.Hotspot, len(clusters))
	for i, c := range clusters {
		out[i] = c.hotspot(maxCount)
	}
	return out, nil
}

// PredictHotspots projects each historical cluster's volume over the horizon
// from its average daily rate in the lookback window, adjusted by the
// citywide weekday pattern. Confidence is the share of weeks in the window in
// which the cluster was active.
func PredictHotspots(events []domain.Event, p PredictParams) ([]domain.Hotspot, error) {
	if err := validateHotspot(p.HotspotParams); err != nil {
		return nil, err
	}
	if err := domain.RequirePositive("horizon_days", p.HorizonDays); err != nil {
		return nil, err
	}
	if err := domain.RequirePositive("lookback_days", p.LookbackDays); err != nil {
		return nil, err
	}

	start, end := domain.DayWindow(domain.AsOfOrNow(p.AsOf), p.LookbackDays)

	windowed := make([]domain.Event, 0, len(events))
	daily := make(map[int64]float64)
	for _, e := range events {
		if e.Location == nil || e.Timestamp.Before(start) || !e.Timestamp.Before(end) {
			continue
		}
		windowed = append(windowed, e)
		daily[dayNumber(e.Timestamp)]++
	}

	startDay := dayNumber(start)
	weekdays := make(map[int][]float64)
	for _, d := range sortedDays(daily) {
		wd := int(start.AddDate(0, 0, int(d-startDay)).Weekday())
		weekdays[wd] = append(weekdays[wd], daily[d])
	}
	seasonal := stats.WeekdayFactor(weekdays, end, p.HorizonDays)

	clusters := clusterCells(bin(windowed, p.GridSize), p.GridSize, p.MinCount)
	rankClusters(clusters)

	weeksInWindow := float64((p.LookbackDays + 6) / 7)
	maxCount := 0
	for _, c := range clusters {
		maxCount = max(maxCount, c.count)
	}

	out := make([]domain.Hotspot, len(clusters))
	for i, c := range clusters {
		h := c.hotspot(maxCount)
		rate := float64(c.count) / float64(p.LookbackDays)
		h.Predicted = true
		h.PredictedCount = int(math.Round(rate * float64(p.HorizonDays) * seasonal))

		weeks := make(map[int64]struct{})
		for d := range c.days {
			weeks[(d-startDay)/7] = struct{}{}
		}
		h.Confidence = stats.Clamp(100*float64(len(weeks))/weeksInWindow, 0, 100)
		out[i] = h
	}

	// clusters are already in historical rank order, so a stable sort keeps it
	// as the final tie-break.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PredictedCount != out[j].PredictedCount {
			return out[i].PredictedCount > out[j].PredictedCount
		}
		return out[i].Confidence > out[j].Confidence
	})
	if len(out) > p.TopN {
		out = out[:p.TopN]
	}
	return out, nil
}

func validateHotspot(p HotspotParams) error {
	if err := validateGrid(p.GridSize); err != nil {
		return err
	}
	return domain.RequirePositive("top_n", p.TopN)
}

// clusterCells seeds clusters from the densest unvisited cell and absorbs
// only that seed's unvisited 8-neighbours, so every member cell lies within
// one cell width of its seed. Clusters never chain through their neighbours.
func clusterCells(cells []*cell, grid float64, minCount int) []*cluster {
	byKey := make(map[cellKey]*cell, len(cells))
	for _, c := range cells {
		byKey[c.key] = c
	}

	seeds := make([]*cell, len(cells))
	copy(seeds, cells)
	sort.SliceStable(seeds, func(i, j int) bool {
		a, b := seeds[i], seeds[j]
		if a.count != b.count {
			return a.count > b.count
		}
		if a.urgent != b.urgent {
			return a.urgent > b.urgent
		}
		if !a.earliest.Equal(b.earliest) {
			return a.earliest.Before(b.earliest)
		}
		return a.key.less(b.key)
	})

	visited := make(map[cellKey]bool, len(cells))
	var clusters []*cluster
	for _, seed := range seeds {
		if visited[seed.key] {
			continue
		}
		visited[seed.key] = true
		cl := &cluster{
			earliest:   seed.earliest,
			categories: make(map[string]struct{}),
			days:       make(map[int64]struct{}),
		}
		cl.add(seed)
		for dLat := int64(-1); dLat <= 1; dLat++ {
			for dLng := int64(-1); dLng <= 1; dLng++ {
				k := cellKey{lat: seed.key.lat + dLat, lng: seed.key.lng + dLng}
				n, ok := byKey[k]
				if !ok || visited[k] {
					continue
				}
				visited[k] = true
				cl.add(n)
			}
		}
		if cl.count >= minCount {
			cl.centroid = cl.center(grid)
			clusters = append(clusters, cl)
		}
	}
	return clusters
}

func (cl *cluster) add(c *cell) {
	cl.cells = append(cl.cells, c)
	cl.count += c.count
	cl.urgent += c.urgent
	if c.earliest.Before(cl.earliest) {
		cl.earliest = c.earliest
	}
	for cat := range c.categories {
		cl.categories[cat] = struct{}{}
	}
	for d := range c.days {
		cl.days[d] = struct{}{}
	}
}

// center is the count-weighted centroid of the member cell centers.
func (cl *cluster) center(grid float64) domain.Geo {
	var lat, lng float64
	for _, c := range cl.cells {
		center := c.key.center(grid)
		w := float64(c.count)
		lat += center.Lat * w
		lng += center.Lng * w
	}
	total := float64(max(cl.count, 1))
	return domain.Geo{Lat: lat / total, Lng: lng / total}
}

func (cl *cluster) hotspot(maxCount int) domain.Hotspot {
	types := make([]string, 0, len(cl.categories))
	for cat := range cl.categories {
		types = append(types, cat)
	}
	sort.Strings(types)

	return domain.Hotspot{
		Center:       cl.centroid,
		Count:        cl.count,
		UrgentCount:  cl.urgent,
		CellCount:    len(cl.cells),
		Intensity:    intensity(cl.count, maxCount),
		RequestTypes: types,
		EarliestAt:   cl.earliest,
	}
}

func rankClusters(clusters []*cluster) {
	sort.SliceStable(clusters, func(i, j int) bool {
		a, b := clusters[i], clusters[j]
		if a.count != b.count {
			return a.count > b.count
		}
		if a.urgent != b.urgent {
			return a.urgent > b.urgent
		}
		if !a.earliest.Equal(b.earliest) {
			return a.earliest.Before(b.earliest)
		}
		ca, cb := a.centroid, b.centroid
		if ca.Lat != cb.Lat {
			return ca.Lat < cb.Lat
		}
		return ca.Lng < cb.Lng
	})
}

func sortedDays(daily map[int64]float64) []int64 {
	days := make([]int64, 0, len(daily))
	for d := range daily {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days
}
