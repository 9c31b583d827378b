package events

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"commerce-service/internal/models"
)

func TestNewOrderEvent(t *testing.T) {
	session := "cs_test_1"
	productID := uint(3)
	order := &models.Order{
		ID:                12,
		UserID:            4,
		TotalAmount:       150,
		PaymentStatus:     models.PaymentStatusPaid,
		PaymentMode:       models.PaymentModeCard,
		CheckoutSessionID: &session,
		Items:             []models.OrderItem{{ProductID: &productID, Quantity: 3}},
	}

	event := NewOrderEvent(OrderPaid, order)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, OrderPaid, event.Type)
	assert.Equal(t, uint(12), event.OrderID)
	assert.Equal(t, uint(4), event.UserID)
	assert.Equal(t, int64(150), event.TotalAmount)
	assert.Equal(t, "cs_test_1", event.SessionID)
	assert.Equal(t, 1, event.Items)
	assert.False(t, event.OccurredAt.IsZero())

	assert.NotEqual(t, event.ID, NewOrderEvent(OrderPaid, order).ID)
}

func TestPublishWithoutConnectionIsSkipped(t *testing.T) {
	publisher := NewNATSPublisher(nil, logrus.New())
	assert.NoError(t, publisher.PublishOrder(context.Background(), OrderCreated, &models.Order{ID: 1}))
	assert.NoError(t, NoOpPublisher{}.PublishOrder(context.Background(), OrderCreated, &models.Order{ID: 1}))
}
