package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/climate-report/internal/config"
	"github.com/couchcryptid/climate-report/internal/report"
)

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes region summaries to a Kafka topic, one message per region.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured report topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaReportTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes every region summary of rep and writes them in a single
// WriteMessages call. Keys are region codes so a region's history stays on one
// partition.
func (w *Writer) Publish(ctx context.Context, rep report.Report) error {
	if len(rep.Regions) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(rep.Regions))
	for i := range rep.Regions {
		msg, err := serializeToMessage(rep.RunID, rep.GeneratedAt, rep.Regions[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d region summaries: %w", len(msgs), err)
	}
	w.logger.Info("published region summaries", "count", len(msgs), "run_id", rep.RunID)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a RegionSummary into a Kafka message.
func serializeToMessage(runID string, generatedAt time.Time, summary report.RegionSummary) (kafkago.Message, error) {
	data, err := json.Marshal(summary)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize region summary: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(summary.Region),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(runID)},
			{Key: "generated_at", Value: []byte(generatedAt.Format(time.RFC3339))},
		},
	}, nil
}
