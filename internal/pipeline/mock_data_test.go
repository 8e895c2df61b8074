package pipeline_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/sanitation-analytics-service/internal/domain"
	"github.com/couchcryptid/sanitation-analytics-service/internal/geo"
	"github.com/couchcryptid/sanitation-analytics-service/internal/pipeline"
	"github.com/couchcryptid/sanitation-analytics-service/internal/risk"
	"github.com/couchcryptid/sanitation-analytics-service/internal/store"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixtureAsOf = time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)

// TestTransformer_WithMockFixture runs the NYC fixture through the
// transformer and the in-memory store, then checks the analytics see the
// expected zones and categories.
func TestTransformer_WithMockFixture(t *testing.T) {
	records := readFixture(t)
	require.Len(t, records, 36)

	transformer := pipeline.NewTransformer(nil, discardLogger())
	events := make([]domain.Event, 0, len(records))
	var failed []string
	for _, rec := range records {
		payload, err := json.Marshal(rec)
		require.NoError(t, err)

		event, err := transformer.Transform(context.Background(), domain.RawEvent{
			Key:   []byte(rec.UniqueKey),
			Value: payload,
			Topic: "sanitation-events",
		})
		if err != nil {
			failed = append(failed, rec.UniqueKey)
			continue
		}
		events = append(events, event)
	}
	assert.Equal(t, []string{"59200002"}, failed, "only the record with an unparsable date should fail")

	mem := store.NewMemory(store.Options{
		Retention: 90 * 24 * time.Hour,
		Clock:     clockwork.NewFakeClockAt(fixtureAsOf),
	})
	require.NoError(t, mem.LoadBatch(context.Background(), events))
	require.Equal(t, 35, mem.Len())

	stored, err := mem.Query(context.Background(), domain.Filter{})
	require.NoError(t, err)

	t.Run("kinds and zones", func(t *testing.T) {
		zones := map[string]int{}
		collections := 0
		for _, e := range stored {
			zones[e.ZoneID]++
			if e.Kind == domain.KindCollection {
				collections++
				assert.NotNil(t, e.Tonnage)
			}
		}
		assert.Equal(t, 10, collections)
		assert.Equal(t, 1, zones["QN-07"])
		for _, z := range []string{"MN-12", "BK-02", "BX-01"} {
			assert.Equal(t, 8+collectionsPerZone(z), zones[z], z)
		}
	})

	t.Run("address-only record has no location without a geocoder", func(t *testing.T) {
		qn, err := mem.Query(context.Background(), domain.Filter{ZoneID: "QN-07"})
		require.NoError(t, err)
		require.Len(t, qn, 1)
		assert.Nil(t, qn[0].Location)
		assert.Equal(t, "41-17 MAIN STREET", qn[0].Address)
	})

	t.Run("heatmap partitions located events", func(t *testing.T) {
		result, err := geo.Heatmap(stored, geo.HeatmapParams{GridSize: 0.01})
		require.NoError(t, err)

		sum := 0
		for _, c := range result.Cells {
			sum += c.Count
		}
		assert.Equal(t, 34, sum)
		assert.Equal(t, 100, result.Cells[0].Intensity)
	})

	t.Run("risk covers every zone with overflow or collections", func(t *testing.T) {
		assessments := risk.AssessAll(stored, fixtureAsOf, risk.Config{})
		require.Len(t, assessments, 3)
		for _, a := range assessments {
			assert.Equal(t, 3, a.OverflowCount90d, a.ZoneID)
			assert.Equal(t, 1, a.RecentCollections7d, a.ZoneID)
		}
	})
}

func collectionsPerZone(zone string) int {
	// Ten collection records cycle MN-12, BK-02, BX-01.
	if zone == "MN-12" {
		return 4
	}
	return 3
}

func readFixture(t *testing.T) []domain.RawRecord {
	t.Helper()

	path := filepath.Join("..", "..", "data", "mock", "sanitation_events_sample.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var records []domain.RawRecord
	require.NoError(t, json.Unmarshal(data, &records))
	return records
}
