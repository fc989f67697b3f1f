// Package kafka publishes processed school records to a topic for
// downstream consumers that prefer a stream over polling the snapshot
// file. Publishing is optional; the snapshot file stays the contract.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/skolkartan/school-data-etl/internal/config"
	"github.com/skolkartan/school-data-etl/internal/domain"
)

// Writer produces processed school records to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
	clock  func() time.Time
}

// NewWriter creates a Kafka producer for the configured topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger, clock: time.Now}
}

// PublishSchools serializes and publishes the full processed list in a
// single WriteMessages call.
func (w *Writer) PublishSchools(ctx context.Context, schools []domain.NormalizedSchool) error {
	if len(schools) == 0 {
		return nil
	}
	publishedAt := w.clock().UTC().Format(time.RFC3339)
	msgs := make([]kafkago.Message, len(schools))
	for i := range schools {
		msg, err := serializeToMessage(schools[i], publishedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return err
	}
	w.logger.Info("published processed schools", "count", len(schools), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a NormalizedSchool into a Kafka message keyed
// by the unit code.
func serializeToMessage(school domain.NormalizedSchool, publishedAt string) (kafkago.Message, error) {
	data, err := json.Marshal(school)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize school %s: %w", school.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(school.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "category", Value: []byte(school.Category)},
			{Key: "published_at", Value: []byte(publishedAt)},
		},
	}, nil
}
