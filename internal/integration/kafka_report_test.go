//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/climate-report/internal/adapter/kafka"
	"github.com/couchcryptid/climate-report/internal/config"
	"github.com/couchcryptid/climate-report/internal/domain"
	"github.com/couchcryptid/climate-report/internal/observability"
	"github.com/couchcryptid/climate-report/internal/pipeline"
	"github.com/couchcryptid/climate-report/internal/report"
)

const testReportTopic = "test-climate-region-summaries"

const tdv = "CA\t1428300000000\t9prcjqk3yc80\t93.0\t0.0\t100.0\t0.0\t95644.0\t277.58716\n" +
	"WA\t1435510800000\tc23nb62w20st\t30.0\t0.0\t0.0\t1.0\t101000.0\t300.0\n" +
	"WA\t1451448000000\tc23nb62w20st\t80.0\t1.0\t90.0\t0.0\t101000.0\t290.0\n" +
	"WA\t1451448000000\tc23nb62w20st\t180.0\t1.0\t90.0\t0.0\t101000.0\t290.0\n"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("climate-report-test"),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "start kafka container")

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// TestAggregateAndPublish runs the aggregation pass over a TDV stream and
// publishes the resulting summaries, then reads them back from the topic.
func TestAggregateAndPublish(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testReportTopic)

	cfg := &config.Config{
		KafkaBrokers:     []string{broker},
		KafkaReportTopic: testReportTopic,
	}

	table := domain.NewTable(0)
	agg := pipeline.New(table, domain.DefaultMaxLineLength, discardLogger(), observability.NewMetricsForTesting())
	res, err := agg.Run(ctx, []pipeline.Source{pipeline.ReaderSource{Label: "inline.tdv", Reader: strings.NewReader(tdv)}})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), res.Sources[0].TotalRejected())

	generatedAt := time.Date(2016, time.January, 1, 0, 0, 0, 0, time.UTC)
	rep := report.Build("integration-run", generatedAt, table.All(), time.UTC)

	writer := kafka.NewWriter(cfg, discardLogger())
	require.NoError(t, writer.Publish(ctx, rep))
	require.NoError(t, writer.Close())

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     testReportTopic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  1 << 20,
	})
	defer consumer.Close()

	got := make(map[string]report.RegionSummary)
	for range rep.Regions {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read from report topic")

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		assert.Equal(t, "integration-run", headers["run_id"])
		assert.Equal(t, generatedAt.Format(time.RFC3339), headers["generated_at"])

		var summary report.RegionSummary
		require.NoError(t, json.Unmarshal(msg.Value, &summary))
		assert.Equal(t, string(msg.Key), summary.Region)
		got[summary.Region] = summary
	}

	require.Len(t, got, 2)
	assert.Equal(t, uint64(1), got["CA"].Records)
	assert.Equal(t, uint64(2), got["WA"].Records)
	assert.InDelta(t, 71.3, got["WA"].AvgTemperatureF, 0)
	assert.Equal(t, 300.0, got["WA"].MaxTemperature.Kelvin)
}
