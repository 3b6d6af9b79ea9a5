package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/trogers1052/investment-simulator/internal/models"
)

// OperationSubmitter accepts new buy operations
type OperationSubmitter interface {
	SubmitOperation(ctx context.Context, req models.OperationRequest) (models.SubmitResult, error)
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
	Config() kafka.ReaderConfig
}

// Consumer ingests operation submissions from Kafka. Rejected submissions are
// logged and committed; they are not retried.
type Consumer struct {
	reader    messageReader
	submitter OperationSubmitter
	logger    zerolog.Logger
}

// NewConsumer creates a new Kafka consumer for operation commands
func NewConsumer(brokers []string, topic, groupID string, submitter OperationSubmitter, logger zerolog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader:    reader,
		submitter: submitter,
		logger:    logger.With().Str("component", "kafka-consumer").Logger(),
	}
}

// Start begins consuming messages from Kafka
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info().Str("topic", c.reader.Config().Topic).Msg("Starting Kafka consumer")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("Kafka consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return c.reader.Close()
				}
				c.logger.Error().Err(err).Msg("Error reading message")
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				c.logger.Error().Err(err).Int64("offset", msg.Offset).Msg("Error processing message")
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event models.OperationEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal operation event: %w", err)
	}

	if event.EventType != models.EventOperationSubmitted {
		c.logger.Debug().Str("event_type", event.EventType).Msg("Ignoring event type")
		return nil
	}

	result, err := c.submitter.SubmitOperation(ctx, event.Data)
	if err != nil {
		return fmt.Errorf("failed to submit operation from %s: %w", event.Source, err)
	}

	c.logger.Info().
		Int("operation_id", result.Operation.ID).
		Str("source", event.Source).
		Bool("triggered", result.TriggeredImmediately).
		Msg("Operation submitted from Kafka")
	return nil
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
