package services

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce-service/internal/events"
	"commerce-service/internal/models"
	"commerce-service/internal/payments"
	"commerce-service/internal/payments/paymentstest"
)

func sessionMetadata(userID uint) map[string]string {
	return map[string]string{
		"user":     strconv.FormatUint(uint64(userID), 10),
		"street":   "1 Main St",
		"city":     "Springfield",
		"state":    "IL",
		"zip_code": "62701",
		"phone_no": "5551234",
		"country":  "US",
	}
}

func signed(payload []byte) string {
	return paymentstest.SignatureHeader(payload, testWebhookSecret, time.Now())
}

func TestCheckoutService_CreateCheckoutSession(t *testing.T) {
	env := newTestEnv()
	buyer := env.seedUser("buyer@example.com", false)

	session, err := env.checkout.CreateCheckoutSession(context.Background(), &buyer, models.CheckoutSessionRequest{
		ShippingDetails: shipping(),
		OrderItems: []models.CheckoutLineRequest{
			{Product: 7, Name: "Laptop", Image: "https://cdn.example.com/l.png", Quantity: 2, Price: int64Ptr(999)},
		},
	}, "http://localhost:8080")
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", session.ID)
	assert.NotEmpty(t, session.URL)

	created := env.gateway.Created()
	require.Len(t, created, 1)
	params := created[0]
	assert.Equal(t, "buyer@example.com", params.CustomerEmail)
	assert.Equal(t, "usd", params.Currency)
	assert.Equal(t, "https://shop.example.com", params.SuccessURL)
	assert.Equal(t, "https://shop.example.com", params.CancelURL)
	require.Len(t, params.Items, 1)
	assert.Equal(t, int64(99900), params.Items[0].UnitAmount)
	assert.Equal(t, int64(2), params.Items[0].Quantity)
	assert.Equal(t, uint(7), params.Items[0].ProductID)
	assert.Equal(t, sessionMetadata(buyer.ID), params.Metadata)

	// nothing is stored until the gateway confirms payment
	assert.Equal(t, 0, env.store.OrderCount())
}

func TestCheckoutService_CreateCheckoutSessionFallbackURL(t *testing.T) {
	env := newTestEnv()
	env.checkout.config.FrontendURL = ""
	buyer := env.seedUser("buyer@example.com", false)

	_, err := env.checkout.CreateCheckoutSession(context.Background(), &buyer, models.CheckoutSessionRequest{
		ShippingDetails: shipping(),
		OrderItems:      []models.CheckoutLineRequest{{Product: 1, Name: "Laptop", Quantity: 1, Price: int64Ptr(5)}},
	}, "http://api.example.com")
	require.NoError(t, err)
	assert.Equal(t, "http://api.example.com", env.gateway.Created()[0].SuccessURL)
}

func TestCheckoutService_CreateCheckoutSessionErrors(t *testing.T) {
	env := newTestEnv()
	buyer := env.seedUser("buyer@example.com", false)
	ctx := context.Background()

	_, err := env.checkout.CreateCheckoutSession(ctx, &buyer, models.CheckoutSessionRequest{ShippingDetails: shipping()}, "")
	assert.True(t, errors.Is(err, ErrValidation))

	env.gateway.CreateErr = errors.New("stripe unavailable")
	_, err = env.checkout.CreateCheckoutSession(ctx, &buyer, models.CheckoutSessionRequest{
		ShippingDetails: shipping(),
		OrderItems:      []models.CheckoutLineRequest{{Product: 1, Name: "Laptop", Quantity: 1, Price: int64Ptr(5)}},
	}, "")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrValidation))
}

func TestCheckoutService_WebhookCreatesPaidOrder(t *testing.T) {
	env := newTestEnv()
	seller := env.seedUser("seller@example.com", false)
	buyer := env.seedUser("buyer@example.com", false)
	laptop := env.seedProduct(seller.ID, "Laptop", 999, 10)
	mouse := env.seedProduct(seller.ID, "Mouse", 25, 10)

	env.gateway.SetLineItems("cs_test_paid", []payments.SessionLineItem{
		{Name: "Laptop", Image: "https://cdn.example.com/l.png", Quantity: 2, UnitAmount: 99900, ProductMetadataID: strconv.Itoa(int(laptop.ID))},
		{Name: "Mouse", Quantity: 1, UnitAmount: 2500, ProductMetadataID: strconv.Itoa(int(mouse.ID))},
	})
	payload := paymentstest.CompletedSessionPayload("evt_1", "cs_test_paid", 202300, sessionMetadata(buyer.ID))

	result, err := env.checkout.HandleWebhook(context.Background(), payload, signed(payload))
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, result.Outcome)

	order := result.Order
	require.NotNil(t, order)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, models.PaymentModeCard, order.PaymentMode)
	assert.Equal(t, int64(2023), order.TotalAmount)
	assert.Equal(t, buyer.ID, order.UserID)
	assert.Equal(t, "Springfield", order.City)
	require.NotNil(t, order.CheckoutSessionID)
	assert.Equal(t, "cs_test_paid", *order.CheckoutSessionID)

	require.Len(t, order.Items, 2)
	assert.Equal(t, int64(999), order.Items[0].Price)
	assert.Equal(t, "https://cdn.example.com/l.png", order.Items[0].Image)
	assert.Equal(t, 8, env.store.ProductStock(laptop.ID))
	assert.Equal(t, 9, env.store.ProductStock(mouse.ID))

	published := env.publisher.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.OrderPaid, published[0].Type)

	recorded := env.store.RecordedEvents()
	require.Contains(t, recorded, "evt_1")
	assert.Equal(t, WebhookProcessed, recorded["evt_1"].Result)
	assert.Equal(t, "cs_test_paid", recorded["evt_1"].SessionID)
}

func TestCheckoutService_WebhookIsIdempotent(t *testing.T) {
	env := newTestEnv()
	seller := env.seedUser("seller@example.com", false)
	buyer := env.seedUser("buyer@example.com", false)
	laptop := env.seedProduct(seller.ID, "Laptop", 999, 10)

	env.gateway.SetLineItems("cs_test_dup", []payments.SessionLineItem{
		{Name: "Laptop", Quantity: 1, UnitAmount: 99900, ProductMetadataID: strconv.Itoa(int(laptop.ID))},
	})
	payload := paymentstest.CompletedSessionPayload("evt_dup", "cs_test_dup", 99900, sessionMetadata(buyer.ID))
	ctx := context.Background()

	first, err := env.checkout.HandleWebhook(ctx, payload, signed(payload))
	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, first.Outcome)

	second, err := env.checkout.HandleWebhook(ctx, payload, signed(payload))
	require.NoError(t, err)
	assert.Equal(t, WebhookDuplicate, second.Outcome)

	assert.Equal(t, 1, env.store.OrderCount())
	assert.Equal(t, 9, env.store.ProductStock(laptop.ID))
	assert.Equal(t, 1, env.gateway.ListCalls())
	assert.Len(t, env.publisher.published(), 1)
	assert.Equal(t, WebhookDuplicate, env.store.RecordedEvents()["evt_dup"].Result)
}

func TestCheckoutService_WebhookRejectsBadSignature(t *testing.T) {
	env := newTestEnv()
	buyer := env.seedUser("buyer@example.com", false)
	payload := paymentstest.CompletedSessionPayload("evt_sig", "cs_test_sig", 100, sessionMetadata(buyer.ID))
	ctx := context.Background()

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong secret", header: paymentstest.SignatureHeader(payload, "whsec_other", time.Now())},
		{name: "stale timestamp", header: paymentstest.SignatureHeader(payload, testWebhookSecret, time.Now().Add(-time.Hour))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.checkout.HandleWebhook(ctx, payload, tt.header)
			assert.True(t, errors.Is(err, ErrInvalidSignature))
			assert.Equal(t, "Invalid Signature", Message(err))
		})
	}
	assert.Equal(t, 0, env.store.OrderCount())
	assert.Empty(t, env.store.RecordedEvents())
}

func TestCheckoutService_WebhookRejectsBadPayload(t *testing.T) {
	env := newTestEnv()
	payload := []byte(`{"id": "evt_broken", "type":`)

	_, err := env.checkout.HandleWebhook(context.Background(), payload, signed(payload))
	assert.True(t, errors.Is(err, ErrInvalidPayload))
	assert.Equal(t, "Invalid Payload", Message(err))
	assert.Equal(t, 0, env.store.OrderCount())
}

func TestCheckoutService_WebhookIgnoresOtherEvents(t *testing.T) {
	env := newTestEnv()
	payload := paymentstest.EventPayload("evt_other", "payment_intent.succeeded")

	result, err := env.checkout.HandleWebhook(context.Background(), payload, signed(payload))
	require.NoError(t, err)
	assert.Equal(t, WebhookIgnored, result.Outcome)
	assert.Nil(t, result.Order)
	assert.Equal(t, 0, env.store.OrderCount())
	assert.Equal(t, 0, env.gateway.ListCalls())
	assert.Equal(t, WebhookIgnored, env.store.RecordedEvents()["evt_other"].Result)
}

func TestCheckoutService_WebhookRejectsBadMetadata(t *testing.T) {
	env := newTestEnv()
	meta := sessionMetadata(0)
	meta["user"] = "not-a-number"
	payload := paymentstest.CompletedSessionPayload("evt_meta", "cs_test_meta", 100, meta)

	_, err := env.checkout.HandleWebhook(context.Background(), payload, signed(payload))
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, 0, env.store.OrderCount())
	assert.Equal(t, "rejected", env.store.RecordedEvents()["evt_meta"].Result)
}

func TestCheckoutService_WebhookRejectsUnknownProduct(t *testing.T) {
	env := newTestEnv()
	seller := env.seedUser("seller@example.com", false)
	buyer := env.seedUser("buyer@example.com", false)
	laptop := env.seedProduct(seller.ID, "Laptop", 999, 10)

	env.gateway.SetLineItems("cs_test_gone", []payments.SessionLineItem{
		{Name: "Laptop", Quantity: 1, UnitAmount: 99900, ProductMetadataID: strconv.Itoa(int(laptop.ID))},
		{Name: "Ghost", Quantity: 1, UnitAmount: 100, ProductMetadataID: "404"},
	})
	payload := paymentstest.CompletedSessionPayload("evt_gone", "cs_test_gone", 100000, sessionMetadata(buyer.ID))

	_, err := env.checkout.HandleWebhook(context.Background(), payload, signed(payload))
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, 0, env.store.OrderCount())
	assert.Equal(t, 0, env.store.OrderItemCount())
	assert.Equal(t, 10, env.store.ProductStock(laptop.ID))

	env.gateway.SetLineItems("cs_test_badref", []payments.SessionLineItem{
		{Name: "Laptop", Quantity: 1, UnitAmount: 99900, ProductMetadataID: ""},
	})
	payload = paymentstest.CompletedSessionPayload("evt_badref", "cs_test_badref", 99900, sessionMetadata(buyer.ID))
	_, err = env.checkout.HandleWebhook(context.Background(), payload, signed(payload))
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestCheckoutService_WebhookGatewayFailure(t *testing.T) {
	env := newTestEnv()
	buyer := env.seedUser("buyer@example.com", false)
	env.gateway.ListErr = errors.New("stripe unavailable")
	payload := paymentstest.CompletedSessionPayload("evt_down", "cs_test_down", 100, sessionMetadata(buyer.ID))

	_, err := env.checkout.HandleWebhook(context.Background(), payload, signed(payload))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrValidation))
	assert.Equal(t, 0, env.store.OrderCount())
	assert.Equal(t, "failed", env.store.RecordedEvents()["evt_down"].Result)
}
