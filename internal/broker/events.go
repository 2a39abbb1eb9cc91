package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"digital-store/internal/models"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing order lifecycle events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

// PublishCheckoutInitiated publishes a CheckoutInitiated event keyed by
// order number.
func (ep *EventPublisher) PublishCheckoutInitiated(ctx context.Context, orderNumber, paypalOrderID string, total float64, itemCount int) error {
	event := &models.CheckoutInitiatedEvent{
		BaseEvent:     newBaseEvent(models.EventTypeCheckoutInitiated),
		OrderNumber:   orderNumber,
		PayPalOrderID: paypalOrderID,
		TotalAmount:   total,
		ItemCount:     itemCount,
	}
	return ep.producer.PublishEvent(ctx, orderNumber, event)
}

// PublishOrderCompleted publishes an OrderCompleted event
func (ep *EventPublisher) PublishOrderCompleted(ctx context.Context, orderNumber, paypalOrderID string, total float64, email string) error {
	event := &models.OrderCompletedEvent{
		BaseEvent:     newBaseEvent(models.EventTypeOrderCompleted),
		OrderNumber:   orderNumber,
		PayPalOrderID: paypalOrderID,
		TotalAmount:   total,
		Email:         email,
	}
	return ep.producer.PublishEvent(ctx, orderNumber, event)
}

// PublishOrderFailed publishes an OrderFailed event
func (ep *EventPublisher) PublishOrderFailed(ctx context.Context, orderNumber, paypalOrderID, reason string) error {
	event := &models.OrderFailedEvent{
		BaseEvent:     newBaseEvent(models.EventTypeOrderFailed),
		OrderNumber:   orderNumber,
		PayPalOrderID: paypalOrderID,
		Reason:        reason,
	}
	return ep.producer.PublishEvent(ctx, orderNumber, event)
}

// DecodeEvent unmarshals the common envelope of an incoming message
func DecodeEvent(msg kafka.Message) (models.BaseEvent, error) {
	var base models.BaseEvent
	if err := json.Unmarshal(msg.Value, &base); err != nil {
		return base, fmt.Errorf("failed to unmarshal base event: %w", err)
	}
	return base, nil
}
