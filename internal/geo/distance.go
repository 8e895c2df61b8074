package geo

import (
	"math"

	"github.com/couchcryptid/sanitation-analytics-service/internal/domain"
)

// EarthRadiusMeters is the mean Earth radius used for great-circle distances.
const EarthRadiusMeters = 6371000

// Haversine returns the great-circle distance between a and b in meters.
func Haversine(a, b domain.Geo) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusMeters * c
}

// BoundingBox returns a box that contains every point within radiusMeters of
// center. It is a prefilter for Nearby, not an exact circle. When the circle
// crosses the antimeridian the box spans every longitude.
func BoundingBox(center domain.Geo, radiusMeters float64) domain.BBox {
	dLat := radiusMeters / EarthRadiusMeters * 180 / math.Pi
	cosLat := math.Cos(center.Lat * math.Pi / 180)
	dLng := 180.0
	if cosLat > 1e-6 {
		dLng = math.Min(dLat/cosLat, 180)
	}
	box := domain.BBox{
		MinLat: math.Max(center.Lat-dLat, -90),
		MaxLat: math.Min(center.Lat+dLat, 90),
		MinLng: center.Lng - dLng,
		MaxLng: center.Lng + dLng,
	}
	if box.MinLng < -180 || box.MaxLng > 180 {
		box.MinLng, box.MaxLng = -180, 180
	}
	return box
}
