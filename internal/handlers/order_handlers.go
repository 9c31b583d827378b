package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"commerce-service/internal/middleware"
	"commerce-service/internal/models"
	"commerce-service/internal/services"
)

// maxWebhookBody bounds the webhook payload read into memory
const maxWebhookBody = 65536

// OrderHandler handles orders, checkout sessions and the payment webhook
type OrderHandler struct {
	orders   *services.OrderService
	checkout *services.CheckoutService
	logger   *logrus.Logger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orders *services.OrderService, checkout *services.CheckoutService, logger *logrus.Logger) *OrderHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &OrderHandler{orders: orders, checkout: checkout, logger: logger}
}

// NewOrder places a cash-on-delivery order
// @Summary Place an order
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CreateOrderRequest true "Order"
// @Success 200 {object} models.Order
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/orders [post]
func (h *OrderHandler) NewOrder(c *gin.Context) {
	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := h.orders.NewOrder(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// ListOrders lists orders
// @Summary List orders
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param user query int false "User ID"
// @Param status query string false "Status"
// @Param payment_status query string false "Payment status"
// @Param payment_mode query string false "Payment mode"
// @Param page query int false "Page number"
// @Success 200 {object} models.OrderListResponse
// @Router /api/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	filter := models.OrderFilter{
		Status:        c.Query("status"),
		PaymentStatus: c.Query("payment_status"),
		PaymentMode:   c.Query("payment_mode"),
		Page:          queryPage(c),
	}
	if raw := c.Query("user"); raw != "" {
		userID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "user must be an integer"})
			return
		}
		id := uint(userID)
		filter.UserID = &id
	}

	resp, err := h.orders.ListOrders(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetOrder returns one order with its items
// @Summary Get order
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path int true "Order ID"
// @Success 200 {object} map[string]models.Order
// @Failure 404 {object} models.ErrorResponse
// @Router /api/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// ProcessOrder sets an order status
// @Summary Process order
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Order ID"
// @Param request body models.ProcessOrderRequest true "Status"
// @Success 200 {object} map[string]models.Order
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/orders/{id}/process [put]
func (h *OrderHandler) ProcessOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.ProcessOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := h.orders.ProcessOrder(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// DeleteOrder removes an order
// @Summary Delete order
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path int true "Order ID"
// @Success 200 {object} models.DetailsResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/orders/{id}/delete [delete]
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.orders.DeleteOrder(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, models.DetailsResponse{Details: "Order cancelled."})
}

// CreateCheckoutSession starts a hosted card payment
// @Summary Create checkout session
// @Tags checkout
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.CheckoutSessionRequest true "Checkout"
// @Success 200 {object} map[string]models.CheckoutSession
// @Failure 400 {object} models.ErrorResponse
// @Router /api/checkout/session [post]
func (h *OrderHandler) CreateCheckoutSession(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "Authentication credentials were not provided"})
		return
	}
	var req models.CheckoutSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	session, err := h.checkout.CreateCheckoutSession(c.Request.Context(), user, req, requestOrigin(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": models.CheckoutSession{ID: session.ID, URL: session.URL}})
}

// StripeWebhook finalizes paid checkout sessions
// @Summary Payment gateway webhook
// @Tags checkout
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Webhook signature"
// @Success 200 {object} models.DetailsResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /api/webhook/payment [post]
func (h *OrderHandler) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: fmt.Sprintf("Payload exceeds %d bytes", maxWebhookBody)})
			return
		}
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid Payload"})
		return
	}

	result, err := h.checkout.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	switch result.Outcome {
	case services.WebhookProcessed:
		c.JSON(http.StatusOK, models.DetailsResponse{Details: "Payment successful"})
	case services.WebhookDuplicate:
		c.JSON(http.StatusOK, models.DetailsResponse{Details: "Payment already processed"})
	default:
		c.JSON(http.StatusOK, models.DetailsResponse{Details: "Event ignored"})
	}
}

func requestOrigin(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if forwarded := c.GetHeader("X-Forwarded-Proto"); forwarded != "" {
		scheme = forwarded
	}
	return fmt.Sprintf("%s://%s", scheme, c.Request.Host)
}
