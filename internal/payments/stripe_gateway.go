package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeGateway implements Gateway on top of the Stripe API.
// Outbound API calls go through a circuit breaker.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	breaker       *gobreaker.CircuitBreaker
	logger        *logrus.Logger
}

// NewStripeGateway creates a Stripe backed gateway
func NewStripeGateway(secretKey, webhookSecret string, logger *logrus.Logger) *StripeGateway {
	if logger == nil {
		logger = logrus.New()
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "stripe",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// Card and request errors are the caller's problem, not an outage
			var stripeErr *stripe.Error
			if errors.As(err, &stripeErr) {
				return stripeErr.HTTPStatusCode < 500 && stripeErr.HTTPStatusCode != 429
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &StripeGateway{
		api:           client.New(secretKey, nil),
		webhookSecret: webhookSecret,
		breaker:       breaker,
		logger:        logger,
	}
}

func (g *StripeGateway) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := g.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrGatewayOpen, err)
	}
	return result, err
}

// CreateCheckoutSession creates a hosted card payment session
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*Session, error) {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(params.Items))
	for _, item := range params.Items {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
			Metadata: map[string]string{
				MetadataProductID: strconv.FormatUint(uint64(item.ProductID), 10),
			},
		}
		if item.Image != "" {
			productData.Images = stripe.StringSlice([]string{item.Image})
		}

		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(params.Currency),
				ProductData: productData,
				UnitAmount:  stripe.Int64(item.UnitAmount),
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}

	sessionParams := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems:          lineItems,
		SuccessURL:         stripe.String(params.SuccessURL),
		CancelURL:          stripe.String(params.CancelURL),
	}
	if params.CustomerEmail != "" {
		sessionParams.CustomerEmail = stripe.String(params.CustomerEmail)
	}
	for key, value := range params.Metadata {
		sessionParams.AddMetadata(key, value)
	}
	sessionParams.Context = ctx

	result, err := g.execute(func() (interface{}, error) {
		return g.api.CheckoutSessions.New(sessionParams)
	})
	if err != nil {
		g.logger.WithError(err).Error("Failed to create checkout session")
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	sess := result.(*stripe.CheckoutSession)
	return &Session{ID: sess.ID, URL: sess.URL}, nil
}

// ConstructEvent verifies a webhook delivery with the configured secret
func (g *StripeGateway) ConstructEvent(payload []byte, signatureHeader string) (*Event, error) {
	return VerifyEvent(payload, signatureHeader, g.webhookSecret)
}

// ListLineItems returns the purchased lines of a session with their products expanded
func (g *StripeGateway) ListLineItems(ctx context.Context, sessionID string) ([]SessionLineItem, error) {
	result, err := g.execute(func() (interface{}, error) {
		params := &stripe.CheckoutSessionListLineItemsParams{
			Session: stripe.String(sessionID),
		}
		params.AddExpand("data.price.product")
		params.Context = ctx

		var items []SessionLineItem
		iter := g.api.CheckoutSessions.ListLineItems(params)
		for iter.Next() {
			items = append(items, toSessionLineItem(iter.LineItem()))
		}
		if err := iter.Err(); err != nil {
			return nil, err
		}
		return items, nil
	})
	if err != nil {
		g.logger.WithError(err).WithField("session_id", sessionID).Error("Failed to list session line items")
		return nil, fmt.Errorf("failed to list line items: %w", err)
	}
	return result.([]SessionLineItem), nil
}

func toSessionLineItem(li *stripe.LineItem) SessionLineItem {
	item := SessionLineItem{
		Name:     li.Description,
		Quantity: li.Quantity,
	}
	if li.Price == nil {
		return item
	}
	item.UnitAmount = li.Price.UnitAmount
	if product := li.Price.Product; product != nil {
		if product.Name != "" {
			item.Name = product.Name
		}
		if len(product.Images) > 0 {
			item.Image = product.Images[0]
		}
		item.ProductMetadataID = product.Metadata[MetadataProductID]
	}
	return item
}
