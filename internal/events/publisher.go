package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"commerce-service/internal/models"
)

const (
	OrderCreated = "order.created"
	OrderPaid    = "order.paid"
)

// OrderEvent is the payload published for order lifecycle changes
type OrderEvent struct {
	ID            string               `json:"id"`
	Type          string               `json:"type"`
	OrderID       uint                 `json:"order_id"`
	UserID        uint                 `json:"user_id"`
	TotalAmount   int64                `json:"total_amount"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	PaymentMode   models.PaymentMode   `json:"payment_mode"`
	SessionID     string               `json:"session_id,omitempty"`
	Items         int                  `json:"items"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

// Publisher publishes order events
type Publisher interface {
	PublishOrder(ctx context.Context, eventType string, order *models.Order) error
}

// NATSPublisher publishes order events to JetStream
type NATSPublisher struct {
	client *Client
	logger *logrus.Logger
}

// NewNATSPublisher creates a new order event publisher
func NewNATSPublisher(client *Client, logger *logrus.Logger) *NATSPublisher {
	return &NATSPublisher{client: client, logger: logger}
}

// PublishOrder publishes an order event. A disconnected client skips the publish.
func (p *NATSPublisher) PublishOrder(ctx context.Context, eventType string, order *models.Order) error {
	if p.client == nil || !p.client.IsConnected() {
		p.logger.Warn("NATS not connected, skipping event publish")
		return nil
	}

	event := NewOrderEvent(eventType, order)
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	ack, err := p.client.js.Publish(eventType, data, nats.Context(ctx), nats.MsgId(event.ID))
	if err != nil {
		p.logger.WithFields(logrus.Fields{
			"event_type": eventType,
			"order_id":   order.ID,
		}).WithError(err).Error("Failed to publish order event")
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"event_type": eventType,
		"order_id":   order.ID,
		"sequence":   ack.Sequence,
		"stream":     ack.Stream,
	}).Debug("Published order event")
	return nil
}

// NewOrderEvent builds the event payload for an order
func NewOrderEvent(eventType string, order *models.Order) OrderEvent {
	event := OrderEvent{
		ID:            uuid.New().String(),
		Type:          eventType,
		OrderID:       order.ID,
		UserID:        order.UserID,
		TotalAmount:   order.TotalAmount,
		PaymentStatus: order.PaymentStatus,
		PaymentMode:   order.PaymentMode,
		Items:         len(order.Items),
		OccurredAt:    time.Now().UTC(),
	}
	if order.CheckoutSessionID != nil {
		event.SessionID = *order.CheckoutSessionID
	}
	return event
}

// NoOpPublisher drops every event. Used when NATS_URL is not configured.
type NoOpPublisher struct{}

func (NoOpPublisher) PublishOrder(ctx context.Context, eventType string, order *models.Order) error {
	return nil
}
