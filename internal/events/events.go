// Package events publishes order domain events to SQS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/imrishuroy/go-marketplace-api/internal/aws"
)

// Event types
const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
	TypeOrderTracking      = "order.tracking_appended"
)

// Event is the JSON message body sent to the orders queue.
type Event struct {
	Type           string    `json:"type"`
	OrderID        string    `json:"order_id"`
	TransactionID  string    `json:"transaction_id,omitempty"`
	ProductID      string    `json:"product_id,omitempty"`
	Status         string    `json:"status,omitempty"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	Location       string    `json:"location,omitempty"`
	Note           string    `json:"note,omitempty"`
	At             time.Time `json:"at"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// SQSPublisher sends each event as one SQS message.
type SQSPublisher struct {
	queue *aws.Publisher
	now   func() time.Time
}

func NewSQSPublisher(queue *aws.Publisher) *SQSPublisher {
	return &SQSPublisher{queue: queue, now: time.Now}
}

func (p *SQSPublisher) Publish(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = p.now().UTC()
	}
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	attrs := map[string]string{
		"event_type":     e.Type,
		"order_id":       e.OrderID,
		"transaction_id": e.TransactionID,
	}
	if err := p.queue.Send(ctx, string(body), attrs); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

// Noop discards events; used when no queue is configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
