//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/sanitation-analytics-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node KRaft broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("sanitation-test"),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial broker")
	defer conn.Close()

	ctrl, err := conn.Controller()
	require.NoError(t, err, "controller")

	cc, err := kafkago.Dial("tcp", net.JoinHostPort(ctrl.Host, strconv.Itoa(ctrl.Port)))
	require.NoError(t, err, "dial controller")
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// startPostgres runs a PostGIS container and returns its connection URL.
func startPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tcpostgres.Run(ctx, "postgis/postgis:16-3.4",
		tcpostgres.WithDatabase("sanitation"),
		tcpostgres.WithUsername("sanitation"),
		tcpostgres.WithPassword("sanitation"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return url
}

func loadMockData(t *testing.T) []domain.RawRecord {
	t.Helper()

	path := filepath.Join("..", "..", "data", "mock", "sanitation_events_sample.json")
	data, err := os.ReadFile(path)
	require.NoError(t, err, "read mock data")

	var records []domain.RawRecord
	require.NoError(t, json.Unmarshal(data, &records))
	require.NotEmpty(t, records)
	return records
}

// publishRecords writes each record as JSON to topic, stamped with msgTime.
func publishRecords(ctx context.Context, t *testing.T, broker, topic string, msgTime time.Time, records []domain.RawRecord) {
	t.Helper()

	producer := &kafkago.Writer{
		Addr:  kafkago.TCP(broker),
		Topic: topic,
	}
	t.Cleanup(func() { _ = producer.Close() })

	msgs := make([]kafkago.Message, 0, len(records))
	for i, rec := range records {
		payload, err := json.Marshal(rec)
		require.NoError(t, err)
		msgs = append(msgs, kafkago.Message{
			Key:   []byte(fmt.Sprintf("record-%d", i)),
			Value: payload,
			Time:  msgTime,
		})
	}
	require.NoError(t, producer.WriteMessages(ctx, msgs...))
}

// parseFixture runs the raw records through the domain parser the way the
// pipeline does, using msgTime as the fallback timestamp.
func parseFixture(t *testing.T, records []domain.RawRecord, msgTime time.Time) []domain.Event {
	t.Helper()

	events := make([]domain.Event, 0, len(records))
	for _, rec := range records {
		e, err := domain.FromRecord(rec, msgTime)
		require.NoError(t, err, rec.UniqueKey)
		events = append(events, e)
	}
	return events
}
