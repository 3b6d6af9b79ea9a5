package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/investment-simulator/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes trigger events to Kafka. It implements trigger.Sink.
type Producer struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
		now:    time.Now,
	}
}

// TriggerActivated publishes a trigger activated event
func (p *Producer) TriggerActivated(ctx context.Context, rec models.TriggerRecord) error {
	return p.publish(ctx, rec.SecurityTicker, models.TriggerEvent{
		EventType: models.EventTriggerActivated,
		Trigger:   rec,
		Timestamp: p.now(),
	})
}

// TriggerAcknowledged publishes a trigger acknowledged event
func (p *Producer) TriggerAcknowledged(ctx context.Context, rec models.TriggerRecord) error {
	return p.publish(ctx, rec.SecurityTicker, models.TriggerEvent{
		EventType: models.EventTriggerAcknowledged,
		Trigger:   rec,
		Timestamp: p.now(),
	})
}

func (p *Producer) publish(ctx context.Context, key string, event models.TriggerEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
