package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

const (
	// EventCheckoutSessionCompleted is the only event type that finalizes an order
	EventCheckoutSessionCompleted = "checkout.session.completed"

	// MetadataProductID links a gateway product back to the catalog product
	MetadataProductID = "product_id"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidPayload   = errors.New("invalid webhook payload")
	ErrGatewayOpen      = errors.New("payment gateway unavailable")
)

// CheckoutItem is one line of a hosted checkout session. UnitAmount is in the smallest currency unit.
type CheckoutItem struct {
	ProductID  uint
	Name       string
	Image      string
	Quantity   int64
	UnitAmount int64
}

// CheckoutParams describes a hosted checkout session
type CheckoutParams struct {
	CustomerEmail string
	Currency      string
	SuccessURL    string
	CancelURL     string
	Items         []CheckoutItem
	Metadata      map[string]string
}

// Session is a created checkout session
type Session struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CompletedSession is the checkout session carried by a completion event
type CompletedSession struct {
	ID            string
	AmountTotal   int64
	CustomerEmail string
	Metadata      map[string]string
}

// Event is a verified gateway event
type Event struct {
	ID      string
	Type    string
	Raw     json.RawMessage
	Session *CompletedSession
}

// SessionLineItem is a purchased line of a completed session. UnitAmount is in the smallest currency unit.
type SessionLineItem struct {
	Name              string
	Image             string
	Quantity          int64
	UnitAmount        int64
	ProductMetadataID string
}

// Gateway is the payment processor used for hosted checkout
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*Session, error)
	// ConstructEvent verifies the signature header and decodes the event
	ConstructEvent(payload []byte, signatureHeader string) (*Event, error)
	ListLineItems(ctx context.Context, sessionID string) ([]SessionLineItem, error)
}

// VerifyEvent checks payload against the signature header and decodes it.
// Signature problems return ErrInvalidSignature, anything else ErrInvalidPayload.
func VerifyEvent(payload []byte, signatureHeader, secret string) (*Event, error) {
	stripeEvent, err := webhook.ConstructEventWithOptions(payload, signatureHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		switch {
		case errors.Is(err, webhook.ErrNotSigned),
			errors.Is(err, webhook.ErrInvalidHeader),
			errors.Is(err, webhook.ErrNoValidSignature),
			errors.Is(err, webhook.ErrTooOld):
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
	}

	event := &Event{
		ID:   stripeEvent.ID,
		Type: string(stripeEvent.Type),
	}
	if stripeEvent.Data != nil {
		event.Raw = stripeEvent.Data.Raw
	}

	if event.Type == EventCheckoutSessionCompleted {
		var sess stripe.CheckoutSession
		if len(event.Raw) == 0 {
			return nil, fmt.Errorf("%w: missing session object", ErrInvalidPayload)
		}
		if err := json.Unmarshal(event.Raw, &sess); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		if sess.ID == "" {
			return nil, fmt.Errorf("%w: missing session id", ErrInvalidPayload)
		}
		email := sess.CustomerEmail
		if email == "" && sess.CustomerDetails != nil {
			email = sess.CustomerDetails.Email
		}
		event.Session = &CompletedSession{
			ID:            sess.ID,
			AmountTotal:   sess.AmountTotal,
			CustomerEmail: email,
			Metadata:      sess.Metadata,
		}
	}

	return event, nil
}
