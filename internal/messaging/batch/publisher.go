package batch

import (
	"context"
	"encoding/json"

	"gumdrop/internal/domain/campaign"
	"gumdrop/internal/kafka"
)

// Publisher converts notify batches into Kafka messages keyed by batch id.
type Publisher struct {
	producer *kafka.Producer
}

// NewPublisher constructs a Publisher.
func NewPublisher(producer *kafka.Producer) *Publisher {
	return &Publisher{producer: producer}
}

// Publish pushes a notify batch onto Kafka.
func (p *Publisher) Publish(ctx context.Context, b campaign.NotifyBatch) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return err
	}
	return p.producer.Send(ctx, b.BatchID, payload)
}
