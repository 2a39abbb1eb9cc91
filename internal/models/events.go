package models

import "time"

// Event types published to the order-events topic
const (
	EventTypeCheckoutInitiated = "CHECKOUT_INITIATED"
	EventTypeOrderCompleted    = "ORDER_COMPLETED"
	EventTypeOrderFailed       = "ORDER_FAILED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// CheckoutInitiatedEvent published when a provider order has been
// created and the local order persisted.
type CheckoutInitiatedEvent struct {
	BaseEvent
	OrderNumber   string  `json:"order_number"`
	PayPalOrderID string  `json:"paypal_order_id"`
	TotalAmount   float64 `json:"total_amount"`
	ItemCount     int     `json:"item_count"`
}

// OrderCompletedEvent published after a successful capture.
type OrderCompletedEvent struct {
	BaseEvent
	OrderNumber   string  `json:"order_number"`
	PayPalOrderID string  `json:"paypal_order_id"`
	TotalAmount   float64 `json:"total_amount"`
	Email         string  `json:"email,omitempty"`
}

// OrderFailedEvent published when the provider rejects a capture.
type OrderFailedEvent struct {
	BaseEvent
	OrderNumber   string `json:"order_number"`
	PayPalOrderID string `json:"paypal_order_id"`
	Reason        string `json:"reason"`
}
