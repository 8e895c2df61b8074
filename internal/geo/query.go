package geo

import (
	"sort"

	"github.com/couchcryptid/sanitation-analytics-service/internal/domain"
)

// Nearby returns located events whose great-circle distance to (lat, lng) is
// at most radiusMeters, nearest first. A limit of zero or less returns every
// match.
func Nearby(events []domain.Event, lat, lng, radiusMeters float64, limit int) ([]domain.Event, error) {
	if err := domain.ValidateCoordinate(lat, lng); err != nil {
		return nil, err
	}
	if err := domain.RequirePositive("radius_meters", radiusMeters); err != nil {
		return nil, err
	}

	origin := domain.Geo{Lat: lat, Lng: lng}
	type hit struct {
		event    domain.Event
		distance float64
	}
	var hits []hit
	for _, e := range events {
		if e.Location == nil {
			continue
		}
		if d := Haversine(origin, *e.Location); d <= radiusMeters {
			hits = append(hits, hit{event: e, distance: d})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].distance != hits[j].distance {
			return hits[i].distance < hits[j].distance
		}
		if !hits[i].event.Timestamp.Equal(hits[j].event.Timestamp) {
			return hits[i].event.Timestamp.Before(hits[j].event.Timestamp)
		}
		return hits[i].event.ID < hits[j].event.ID
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]domain.Event, len(hits))
	for i, h := range hits {
		out[i] = h.event
	}
	return out, nil
}

// InBounds returns located events inside bounds, most recent first.
func InBounds(events []domain.Event, bounds domain.BBox, limit int) ([]domain.Event, error) {
	if err := bounds.Validate(); err != nil {
		return nil, err
	}

	var out []domain.Event
	for _, e := range events {
		if e.Location != nil && bounds.Contains(*e.Location) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
