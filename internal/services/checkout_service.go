package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"commerce-service/internal/events"
	"commerce-service/internal/metrics"
	"commerce-service/internal/models"
	"commerce-service/internal/payments"
	"commerce-service/internal/repository"
)

// Webhook outcomes
const (
	WebhookProcessed = "processed"
	WebhookDuplicate = "duplicate"
	WebhookIgnored   = "ignored"
)

// Session metadata keys
const (
	metaUser    = "user"
	metaStreet  = "street"
	metaCity    = "city"
	metaState   = "state"
	metaZipCode = "zip_code"
	metaPhoneNo = "phone_no"
	metaCountry = "country"
)

var errAlreadyProcessed = errors.New("checkout session already processed")

// WebhookResult describes how a webhook delivery was handled
type WebhookResult struct {
	Outcome string
	Order   *models.Order
}

// CheckoutConfig holds the hosted checkout settings
type CheckoutConfig struct {
	Currency    string
	FrontendURL string
}

// CheckoutService creates hosted checkout sessions and finalizes orders from gateway webhooks
type CheckoutService struct {
	store   repository.Store
	gateway payments.Gateway
	orders  *OrderService
	config  CheckoutConfig
	logger  *logrus.Logger
	now     func() time.Time
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(store repository.Store, gateway payments.Gateway, orders *OrderService, cfg CheckoutConfig, logger *logrus.Logger) *CheckoutService {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	return &CheckoutService{
		store:   store,
		gateway: gateway,
		orders:  orders,
		config:  cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// CreateCheckoutSession starts a hosted card payment for the buyer. No order is stored until the
// gateway reports the session completed. fallbackURL is used when no frontend URL is configured.
func (s *CheckoutService) CreateCheckoutSession(ctx context.Context, user *models.User, req models.CheckoutSessionRequest, fallbackURL string) (*payments.Session, error) {
	if len(req.OrderItems) == 0 {
		return nil, newError(ErrValidation, msgNoOrderItems)
	}

	items := make([]payments.CheckoutItem, 0, len(req.OrderItems))
	for _, item := range req.OrderItems {
		price, err := validateLine(item.Quantity, item.Price)
		if err != nil {
			return nil, err
		}
		items = append(items, payments.CheckoutItem{
			ProductID:  item.Product,
			Name:       item.Name,
			Image:      item.Image,
			Quantity:   int64(item.Quantity),
			UnitAmount: price * 100,
		})
	}

	returnURL := s.config.FrontendURL
	if returnURL == "" {
		returnURL = fallbackURL
	}

	params := payments.CheckoutParams{
		CustomerEmail: user.Email,
		Currency:      s.config.Currency,
		SuccessURL:    returnURL,
		CancelURL:     returnURL,
		Items:         items,
		Metadata: map[string]string{
			metaStreet:  req.Street,
			metaCity:    req.City,
			metaState:   req.State,
			metaZipCode: req.ZipCode,
			metaPhoneNo: req.PhoneNo,
			metaCountry: req.Country,
			metaUser:    strconv.FormatUint(uint64(user.ID), 10),
		},
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, params)
	if err != nil {
		metrics.RecordCheckoutSession("failed")
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	metrics.RecordCheckoutSession("created")
	s.logger.WithFields(logrus.Fields{
		"user_id":    user.ID,
		"session_id": session.ID,
		"items":      len(items),
	}).Info("Checkout session created")
	return session, nil
}

// HandleWebhook verifies a gateway delivery and, for completed checkout sessions, materializes
// exactly one paid order per session.
func (s *CheckoutService) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) (*WebhookResult, error) {
	event, err := s.gateway.ConstructEvent(payload, signatureHeader)
	if err != nil {
		if errors.Is(err, payments.ErrInvalidSignature) {
			metrics.RecordWebhookEvent("", "invalid_signature")
			s.logger.WithError(err).Warn("Rejected webhook with invalid signature")
			return nil, newError(ErrInvalidSignature, "Invalid Signature")
		}
		metrics.RecordWebhookEvent("", "invalid_payload")
		s.logger.WithError(err).Warn("Rejected webhook with invalid payload")
		return nil, newError(ErrInvalidPayload, "Invalid Payload")
	}

	log := s.logger.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
	})

	result, err := s.processEvent(ctx, event)
	outcome := "failed"
	if err == nil {
		outcome = result.Outcome
	} else if errors.Is(err, ErrValidation) {
		outcome = "rejected"
	}
	metrics.RecordWebhookEvent(event.Type, outcome)
	s.recordEvent(ctx, event, payload, outcome)

	if err != nil {
		log.WithError(err).Error("Failed to process webhook event")
		return nil, err
	}
	log.WithField("outcome", result.Outcome).Info("Processed webhook event")
	return result, nil
}

func (s *CheckoutService) processEvent(ctx context.Context, event *payments.Event) (*WebhookResult, error) {
	if event.Type != payments.EventCheckoutSessionCompleted || event.Session == nil {
		return &WebhookResult{Outcome: WebhookIgnored}, nil
	}
	session := event.Session

	exists, err := s.store.Orders().ExistsByCheckoutSession(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check checkout session: %w", err)
	}
	if exists {
		return &WebhookResult{Outcome: WebhookDuplicate}, nil
	}

	order, err := orderFromSession(session)
	if err != nil {
		return nil, err
	}

	lineItems, err := s.gateway.ListLineItems(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch session line items: %w", err)
	}

	lines := make([]orderLine, 0, len(lineItems))
	for _, item := range lineItems {
		productID, err := strconv.ParseUint(strings.TrimSpace(item.ProductMetadataID), 10, 64)
		if err != nil || productID == 0 {
			return nil, newError(ErrValidation, "Invalid product reference in checkout session")
		}
		lines = append(lines, orderLine{
			ProductID: uint(productID),
			Quantity:  int(item.Quantity),
			Price:     item.UnitAmount / 100,
			Image:     item.Image,
		})
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Orders().Create(ctx, order); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return errAlreadyProcessed
			}
			return fmt.Errorf("failed to create order: %w", err)
		}
		if err := materializeItems(ctx, tx, order, lines); err != nil {
			if errors.Is(err, ErrNotFound) {
				return newError(ErrValidation, "%s", Message(err))
			}
			return err
		}
		return nil
	})
	if errors.Is(err, errAlreadyProcessed) {
		return &WebhookResult{Outcome: WebhookDuplicate}, nil
	}
	if err != nil {
		return nil, err
	}

	s.orders.afterOrderCreated(ctx, order, "checkout", events.OrderPaid)
	return &WebhookResult{Outcome: WebhookProcessed, Order: order}, nil
}

// orderFromSession builds the paid order header from session metadata
func orderFromSession(session *payments.CompletedSession) (*models.Order, error) {
	meta := session.Metadata
	userID, err := strconv.ParseUint(strings.TrimSpace(meta[metaUser]), 10, 64)
	if err != nil || userID == 0 {
		return nil, newError(ErrValidation, "Invalid user reference in checkout session")
	}

	sessionID := session.ID
	return &models.Order{
		Street:            meta[metaStreet],
		City:              meta[metaCity],
		State:             meta[metaState],
		ZipCode:           meta[metaZipCode],
		PhoneNo:           meta[metaPhoneNo],
		Country:           meta[metaCountry],
		TotalAmount:       session.AmountTotal / 100,
		PaymentStatus:     models.PaymentStatusPaid,
		PaymentMode:       models.PaymentModeCard,
		Status:            models.DefaultOrderStatus,
		UserID:            uint(userID),
		CheckoutSessionID: &sessionID,
	}, nil
}

// recordEvent stores the audit row of a verified event. Failures are logged only.
func (s *CheckoutService) recordEvent(ctx context.Context, event *payments.Event, payload []byte, outcome string) {
	record := &models.WebhookEvent{
		EventID:     event.ID,
		Type:        event.Type,
		Result:      outcome,
		Payload:     datatypes.JSON(payload),
		ProcessedAt: s.now(),
	}
	if event.Session != nil {
		record.SessionID = event.Session.ID
	}
	if err := s.store.WebhookEvents().Record(ctx, record); err != nil {
		s.logger.WithError(err).WithField("event_id", event.ID).Warn("Failed to record webhook event")
	}
}
