package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/OCHA-DAP/hdx-foodsecurity-CERF/internal/config"
	"github.com/OCHA-DAP/hdx-foodsecurity-CERF/internal/domain"
)

// messageWriter is the subset of *kafkago.Writer used by Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes summary rows to a Kafka topic.
// It implements pipeline.SummaryLoader.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaSinkTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// Name identifies the sink in logs and metrics.
func (w *Writer) Name() string { return "kafka" }

// LoadSummary publishes one message per summary row in a single
// WriteMessages call. Rows for the same country and phase share a key, so
// they land on the same partition in order.
func (w *Writer) LoadSummary(ctx context.Context, sum domain.Summary) error {
	if len(sum.Rows) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(sum.Rows))
	for i := range sum.Rows {
		msg, err := serializeToMessage(sum.Rows[i], sum.GeneratedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d summary rows: %w", len(msgs), err)
	}
	w.logger.Info("summary published", "phase", sum.Phase, "rows", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// summaryMessage is the JSON value of one published row.
type summaryMessage struct {
	domain.SummaryRow
	GeneratedAt time.Time `json:"generated_at"`
}

// serializeToMessage marshals a summary row into a Kafka message keyed
// "<country>|<phase>".
func serializeToMessage(row domain.SummaryRow, generatedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(summaryMessage{SummaryRow: row, GeneratedAt: generatedAt})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize summary row %s: %w", row.Country, err)
	}
	return kafkago.Message{
		Key:   []byte(row.Country + "|" + string(row.Phase)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "phase", Value: []byte(row.Phase)},
			{Key: "reference_year", Value: []byte(strconv.Itoa(row.ReferenceYear))},
			{Key: "generated_at", Value: []byte(generatedAt.Format(time.RFC3339))},
		},
	}, nil
}
