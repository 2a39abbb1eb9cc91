package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"digital-store/internal/broker"
	"digital-store/internal/models"
	"digital-store/internal/service"

	"github.com/segmentio/kafka-go"
)

// MailWorker consumes order lifecycle events and sends receipt emails.
// Delivery is best-effort: a failed send is logged, never retried.
type MailWorker struct {
	consumer *broker.Consumer
	mailer   service.MailSender
}

// NewMailWorker creates a new mail worker
func NewMailWorker(consumer *broker.Consumer, mailer service.MailSender) *MailWorker {
	return &MailWorker{
		consumer: consumer,
		mailer:   mailer,
	}
}

// Start starts the worker
func (w *MailWorker) Start(ctx context.Context) error {
	log.Println("Starting mail worker...")
	return w.consumer.StartConsuming(ctx, w.handleMessage)
}

// Stop stops the worker
func (w *MailWorker) Stop() error {
	log.Println("Stopping mail worker...")
	return w.consumer.Close()
}

func (w *MailWorker) handleMessage(ctx context.Context, msg kafka.Message) error {
	base, err := broker.DecodeEvent(msg)
	if err != nil {
		return err
	}

	if base.EventType != models.EventTypeOrderCompleted {
		return nil
	}

	var event models.OrderCompletedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal OrderCompleted event: %w", err)
	}

	if event.Email == "" || !w.mailer.Enabled() {
		return nil
	}

	body := fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
<h2>Thank you for your purchase!</h2>
<p>Your order <strong>%s</strong> has been completed.</p>
<p>Total: $%.2f</p>
<p>Your digital products are now available in your account.</p>
</div>`, event.OrderNumber, event.TotalAmount)

	if err := w.mailer.Send(event.Email, fmt.Sprintf("Order %s - Digital Store", event.OrderNumber), body); err != nil {
		log.Printf("Failed to send receipt for order %s: %v", event.OrderNumber, err)
	}
	return nil
}
