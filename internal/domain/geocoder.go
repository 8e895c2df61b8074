package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lng              float64
	FormattedAddress string
	PlaceName        string
	Confidence       float64 // 0.0–1.0 provider confidence score
}

// Geocoder resolves incident addresses and coordinates.
type Geocoder interface {
	// ForwardGeocode converts a street address within a region to coordinates.
	ForwardGeocode(ctx context.Context, address string, region Region) (GeocodingResult, error)

	// ReverseGeocode converts coordinates to an address.
	ReverseGeocode(ctx context.Context, lat, lng float64) (GeocodingResult, error)
}
