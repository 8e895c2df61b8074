package domain

import "time"

// BBox is an axis-aligned latitude/longitude rectangle. Edges are inclusive.
type BBox struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// Validate checks ordering and coordinate ranges.
func (b BBox) Validate() error {
	if err := ValidateCoordinate(b.MinLat, b.MinLng); err != nil {
		return err
	}
	if err := ValidateCoordinate(b.MaxLat, b.MaxLng); err != nil {
		return err
	}
	if b.MinLat > b.MaxLat {
		return NewInvalidParameter("min_lat", b.MinLat, "must not exceed max_lat")
	}
	if b.MinLng > b.MaxLng {
		return NewInvalidParameter("min_lng", b.MinLng, "must not exceed max_lng")
	}
	return nil
}

// Contains reports whether g lies inside the box.
func (b BBox) Contains(g Geo) bool {
	return g.Lat >= b.MinLat && g.Lat <= b.MaxLat && g.Lng >= b.MinLng && g.Lng <= b.MaxLng
}

// Filter selects events from an event source. Zero fields match everything.
// From is inclusive and To is exclusive. A positive Limit keeps the most
// recent matches; results are always ordered by timestamp ascending.
type Filter struct {
	From     time.Time
	To       time.Time
	Kind     Kind
	Region   Region
	Category string
	ZoneID   string
	Bounds   *BBox
	Limit    int
}

// Match reports whether e satisfies every non-zero field of f.
func (f Filter) Match(e Event) bool {
	if !f.From.IsZero() && e.Timestamp.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !e.Timestamp.Before(f.To) {
		return false
	}
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.Region != "" && e.Region != f.Region {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.ZoneID != "" && e.ZoneID != f.ZoneID {
		return false
	}
	if f.Bounds != nil && (e.Location == nil || !f.Bounds.Contains(*e.Location)) {
		return false
	}
	return true
}
