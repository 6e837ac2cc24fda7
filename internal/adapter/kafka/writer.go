package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/soil-water-etl/internal/config"
	"github.com/couchcryptid/soil-water-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes root-zone records to a Kafka topic, one message per date.
// It implements pipeline.RecordLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchFlushInterval,
	}
	return &Writer{writer: w, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string { return "kafka" }

// LoadBatch serializes every record of the evaluation and publishes them in a
// single WriteMessages call. Records are keyed by site and date so reruns of a
// date land on the same partition.
func (w *Writer) LoadBatch(ctx context.Context, eval domain.Evaluation) error {
	if len(eval.Records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(eval.Records))
	for i := range eval.Records {
		msg, err := serializeToMessage(eval.Site, eval.ProcessedAt, eval.Records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d root-zone records: %w", len(msgs), err)
	}
	w.logger.Debug("published root-zone records", "site", eval.Site, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a RootZoneRecord into a Kafka message.
func serializeToMessage(site string, processedAt time.Time, rec domain.RootZoneRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize root-zone record %s: %w", rec.Date, err)
	}
	return kafkago.Message{
		Key:   []byte(site + "/" + rec.Date),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "site", Value: []byte(site)},
			{Key: "processed_at", Value: []byte(processedAt.Format(time.RFC3339))},
		},
	}, nil
}
