package domain

import (
	"context"
	"log/slog"
)

// EnrichWithGeocoding fills in coordinates for events that only carry an
// address, and an address for events that only carry coordinates. If geocoder
// is nil or the lookup fails, the event is returned with GeoSource set
// accordingly.
func EnrichWithGeocoding(ctx context.Context, event Event, geocoder Geocoder, logger *slog.Logger) Event {
	if geocoder == nil {
		return event
	}

	switch {
	case !event.HasLocation() && event.Address != "":
		result, err := geocoder.ForwardGeocode(ctx, event.Address, event.Region)
		if err != nil {
			logger.Warn("forward geocoding failed",
				"event_id", event.ID,
				"address", event.Address,
				"region", event.Region,
				"error", err,
			)
			event.GeoSource = "failed"
			return event
		}
		if result.Lat == 0 && result.Lng == 0 {
			event.GeoSource = "failed"
			return event
		}
		if ValidateCoordinate(result.Lat, result.Lng) != nil {
			event.GeoSource = "failed"
			return event
		}
		event.Location = &Geo{Lat: result.Lat, Lng: result.Lng}
		event.GeoConfidence = result.Confidence
		event.GeoSource = "forward"
		return event

	case event.HasLocation() && event.Address == "":
		result, err := geocoder.ReverseGeocode(ctx, event.Location.Lat, event.Location.Lng)
		if err != nil {
			logger.Warn("reverse geocoding failed",
				"event_id", event.ID,
				"lat", event.Location.Lat,
				"lng", event.Location.Lng,
				"error", err,
			)
			return event
		}
		if result.FormattedAddress != "" {
			event.Address = result.FormattedAddress
			event.GeoConfidence = result.Confidence
			event.GeoSource = "reverse"
		}
		return event
	}

	return event
}
