// Package notify relays outbox events to subscribers and downstream consumers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"personfinder/pkg/email"
	"personfinder/pkg/platform/outbox"
)

// Publisher delivers a batch of events. A nil error means every event in the
// batch was accepted and may be marked published.
type Publisher interface {
	Publish(ctx context.Context, events []outbox.Event) error
}

// Producer is the subset of *kgo.Client used for publishing.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaPublisher writes events to a topic keyed by aggregate id so all events
// for one person land on the same partition in order.
type KafkaPublisher struct {
	producer Producer
	topic    string
	tracer   trace.Tracer
}

func NewKafkaPublisher(producer Producer, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		tracer:   otel.Tracer("personfinder/notify"),
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, events []outbox.Event) error {
	if len(events) == 0 {
		return nil
	}
	ctx, span := p.tracer.Start(ctx, "outbox.publish",
		trace.WithAttributes(
			attribute.String("topic", p.topic),
			attribute.Int("events", len(events)),
		))
	defer span.End()

	records := make([]*kgo.Record, 0, len(events))
	for _, event := range events {
		record, err := toRecord(p.topic, event)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "encode failed")
			return err
		}
		records = append(records, record)
	}

	if err := p.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "produce failed")
		return fmt.Errorf("produce to %s: %w", p.topic, err)
	}
	return nil
}

func toRecord(topic string, event outbox.Event) (*kgo.Record, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event %s: %w", event.ID, err)
	}
	return &kgo.Record{
		Topic: topic,
		Key:   []byte(event.AggregateID),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "domain", Value: []byte(event.Domain)},
		},
	}, nil
}

// LogPublisher writes events to the log. Used when no brokers are configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, events []outbox.Event) error {
	for _, event := range events {
		attrs := []any{
			"event_id", event.ID.String(),
			"event_type", string(event.Type),
			"domain", event.Domain,
			"aggregate_id", event.AggregateID,
		}
		if addr, ok := event.Payload["email"].(string); ok {
			attrs = append(attrs, "email", email.Mask(addr))
		}
		if event.RequestID != "" {
			attrs = append(attrs, "request_id", event.RequestID)
		}
		p.logger.InfoContext(ctx, "event published", attrs...)
	}
	return nil
}
