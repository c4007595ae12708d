package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fekuna/omnipos-catalog-sync/internal/model"
	"github.com/google/uuid"
)

const (
	EventProductCreated = "ProductCreated"
	EventProductUpdated = "ProductUpdated"
)

// Producer writes keyed messages to the product topic.
type Producer interface {
	Publish(ctx context.Context, key, value []byte) error
}

type ProductEvent struct {
	EventID   string         `json:"event_id"`
	EventType string         `json:"event_type"`
	Payload   *model.Product `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

// KafkaPublisher emits product events keyed by docId so every event of one product
// lands on the same partition.
type KafkaPublisher struct {
	producer Producer
	now      func() time.Time
}

func NewKafkaPublisher(producer Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, now: time.Now}
}

func (p *KafkaPublisher) PublishCreated(ctx context.Context, product *model.Product) error {
	return p.publish(ctx, EventProductCreated, product)
}

func (p *KafkaPublisher) PublishUpdated(ctx context.Context, product *model.Product) error {
	return p.publish(ctx, EventProductUpdated, product)
}

func (p *KafkaPublisher) publish(ctx context.Context, eventType string, product *model.Product) error {
	event := ProductEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Payload:   product,
		Timestamp: p.now().UTC(),
	}
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, []byte(product.DocID), value)
}
