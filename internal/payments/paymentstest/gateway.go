// Package paymentstest provides a payments.Gateway double and webhook signing helpers for tests.
package paymentstest

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"commerce-service/internal/payments"
)

// Gateway records created sessions and serves canned line items.
// Webhook verification uses the real signature check with Secret.
type Gateway struct {
	Secret string

	mu        sync.Mutex
	created   []payments.CheckoutParams
	lineItems map[string][]payments.SessionLineItem
	listCalls int

	CreateErr error
	ListErr   error
}

// NewGateway creates a gateway double verifying webhooks with secret
func NewGateway(secret string) *Gateway {
	return &Gateway{Secret: secret, lineItems: map[string][]payments.SessionLineItem{}}
}

var _ payments.Gateway = (*Gateway)(nil)

func (g *Gateway) CreateCheckoutSession(ctx context.Context, params payments.CheckoutParams) (*payments.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.CreateErr != nil {
		return nil, g.CreateErr
	}
	g.created = append(g.created, params)
	id := fmt.Sprintf("cs_test_%d", len(g.created))
	return &payments.Session{ID: id, URL: "https://checkout.stripe.test/pay/" + id}, nil
}

func (g *Gateway) ConstructEvent(payload []byte, signatureHeader string) (*payments.Event, error) {
	return payments.VerifyEvent(payload, signatureHeader, g.Secret)
}

func (g *Gateway) ListLineItems(ctx context.Context, sessionID string) ([]payments.SessionLineItem, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listCalls++
	if g.ListErr != nil {
		return nil, g.ListErr
	}
	return g.lineItems[sessionID], nil
}

// SetLineItems registers the purchased lines of a session
func (g *Gateway) SetLineItems(sessionID string, items []payments.SessionLineItem) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lineItems[sessionID] = items
}

// Created returns the parameters of every created session
func (g *Gateway) Created() []payments.CheckoutParams {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]payments.CheckoutParams(nil), g.created...)
}

// ListCalls returns how often line items were requested
func (g *Gateway) ListCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.listCalls
}

// SignatureHeader builds a Stripe-Signature header for payload signed with secret at ts
func SignatureHeader(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.", ts.Unix())))
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

// CompletedSessionPayload builds a checkout.session.completed event body
func CompletedSessionPayload(eventID, sessionID string, amountTotal int64, metadata map[string]string) []byte {
	body := map[string]interface{}{
		"id":          eventID,
		"object":      "event",
		"api_version": "2023-10-16",
		"type":        payments.EventCheckoutSessionCompleted,
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id":             sessionID,
				"object":         "checkout.session",
				"amount_total":   amountTotal,
				"customer_email": "buyer@example.com",
				"metadata":       metadata,
			},
		},
	}
	data, _ := json.Marshal(body)
	return data
}

// EventPayload builds a minimal event body of the given type
func EventPayload(eventID, eventType string) []byte {
	body := map[string]interface{}{
		"id":          eventID,
		"object":      "event",
		"api_version": "2023-10-16",
		"type":        eventType,
		"data": map[string]interface{}{
			"object": map[string]interface{}{"id": "obj_1", "object": "payment_intent"},
		},
	}
	data, _ := json.Marshal(body)
	return data
}
