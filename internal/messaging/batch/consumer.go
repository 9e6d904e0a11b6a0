package batch

import (
	"context"
	"encoding/json"
	"log"

	"gumdrop/internal/domain/campaign"
	"gumdrop/internal/kafka"
)

// Handler reacts to decoded notify batches.
type Handler interface {
	HandleBatch(ctx context.Context, b campaign.NotifyBatch) error
}

// HandlerFunc makes ordinary functions usable as batch handlers.
type HandlerFunc func(ctx context.Context, b campaign.NotifyBatch) error

// HandleBatch implements Handler.
func (f HandlerFunc) HandleBatch(ctx context.Context, b campaign.NotifyBatch) error {
	return f(ctx, b)
}

// Decode turns a raw message into a handler call. Undecodable payloads are logged and skipped.
func Decode(handler Handler) kafka.HandlerFunc {
	return func(ctx context.Context, key, value []byte) error {
		var b campaign.NotifyBatch
		if err := json.Unmarshal(value, &b); err != nil {
			log.Printf("batch consumer: decode error key=%s: %v", key, err)
			return nil
		}
		if b.BatchID == "" {
			b.BatchID = string(key)
		}
		return handler.HandleBatch(ctx, b)
	}
}

// Consumer wraps a low-level Kafka consumer and decodes notify batches.
type Consumer struct {
	consumer *kafka.Consumer
}

// NewConsumer wires the handler through the low-level consumer.
func NewConsumer(brokers []string, groupID, topic string, handler Handler) (*Consumer, error) {
	cons, err := kafka.NewConsumer(brokers, groupID, topic, Decode(handler))
	if err != nil {
		return nil, err
	}
	return &Consumer{consumer: cons}, nil
}

// Start begins consuming batches.
func (c *Consumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

// Close cleans up resources.
func (c *Consumer) Close() error {
	return c.consumer.Close()
}
