package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/sanitation-analytics-service/internal/domain"
)

// EventTransformer parses raw collector records and optionally fills in
// missing coordinates or addresses through a geocoder.
type EventTransformer struct {
	geocoder domain.Geocoder
	logger   *slog.Logger
}

// NewTransformer creates an EventTransformer. Pass a nil geocoder to disable
// geocoding enrichment.
func NewTransformer(geocoder domain.Geocoder, logger *slog.Logger) *EventTransformer {
	return &EventTransformer{geocoder: geocoder, logger: logger}
}

func (t *EventTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.Event, error) {
	event, err := domain.ParseRawEvent(raw)
	if err != nil {
		return domain.Event{}, err
	}
	return domain.EnrichWithGeocoding(ctx, event, t.geocoder, t.logger), nil
}
