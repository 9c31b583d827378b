package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"commerce-service/internal/events"
	"commerce-service/internal/metrics"
	"commerce-service/internal/models"
	"commerce-service/internal/repository"
)

const (
	ordersPerPage = 10

	msgNoOrderItems = "No order Items. Please add at least one product"

	// Upper bounds keep line totals and cent amounts well inside int64
	maxLineQuantity = 10000
	maxLinePrice    = 100000000
)

// validateLine checks a caller supplied quantity and unit price
func validateLine(quantity int, price *int64) (int64, error) {
	if quantity < 1 {
		return 0, newError(ErrValidation, "Quantity must be at least 1")
	}
	if quantity > maxLineQuantity {
		return 0, newError(ErrValidation, "Quantity must not exceed %d", maxLineQuantity)
	}
	if price == nil {
		return 0, newError(ErrValidation, "Price is required")
	}
	if *price < 0 {
		return 0, newError(ErrValidation, "Price must not be negative")
	}
	if *price > maxLinePrice {
		return 0, newError(ErrValidation, "Price must not exceed %d", maxLinePrice)
	}
	return *price, nil
}

// orderLine is one line to materialize into an OrderItem. An empty Image falls back to the product's first image.
type orderLine struct {
	ProductID uint
	Quantity  int
	Price     int64
	Image     string
}

// OrderService creates, lists and administers orders
type OrderService struct {
	store     repository.Store
	catalog   *CatalogService
	publisher events.Publisher
	logger    *logrus.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store repository.Store, catalog *CatalogService, publisher events.Publisher, logger *logrus.Logger) *OrderService {
	if logger == nil {
		logger = logrus.New()
	}
	if publisher == nil {
		publisher = events.NoOpPublisher{}
	}
	return &OrderService{store: store, catalog: catalog, publisher: publisher, logger: logger}
}

// NewOrder places an unpaid cash-on-delivery order. Prices are taken from the request.
// The order, its items and the stock decrements are written in one transaction.
func (s *OrderService) NewOrder(ctx context.Context, userID uint, req models.CreateOrderRequest) (*models.Order, error) {
	if len(req.OrderItems) == 0 {
		return nil, newError(ErrValidation, msgNoOrderItems)
	}

	order := &models.Order{
		Street:        req.Street,
		City:          req.City,
		State:         req.State,
		ZipCode:       req.ZipCode,
		PhoneNo:       req.PhoneNo,
		Country:       req.Country,
		PaymentStatus: models.PaymentStatusUnpaid,
		PaymentMode:   models.PaymentModeCOD,
		Status:        models.DefaultOrderStatus,
		UserID:        userID,
	}

	lines := make([]orderLine, 0, len(req.OrderItems))
	for _, item := range req.OrderItems {
		price, err := validateLine(item.Quantity, item.Price)
		if err != nil {
			return nil, err
		}
		lines = append(lines, orderLine{
			ProductID: item.Product,
			Quantity:  item.Quantity,
			Price:     price,
		})
		order.TotalAmount += price * int64(item.Quantity)
	}

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		return materializeItems(ctx, tx, order, lines)
	})
	if err != nil {
		return nil, err
	}

	s.afterOrderCreated(ctx, order, "direct", events.OrderCreated)
	return order, nil
}

// materializeItems snapshots each line into an OrderItem and decrements the product stock by its quantity
func materializeItems(ctx context.Context, tx repository.Store, order *models.Order, lines []orderLine) error {
	order.Items = make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		product, err := tx.Products().GetByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return newError(ErrNotFound, "Product %d not found", line.ProductID)
			}
			return fmt.Errorf("failed to load product: %w", err)
		}

		productID := product.ID
		item := models.OrderItem{
			OrderID:   order.ID,
			ProductID: &productID,
			Name:      product.Name,
			Quantity:  line.Quantity,
			Price:     line.Price,
			Image:     line.Image,
		}
		if item.Image == "" {
			item.Image = product.PrimaryImage()
		}

		if err := tx.Orders().CreateItem(ctx, &item); err != nil {
			return fmt.Errorf("failed to create order item: %w", err)
		}
		if err := tx.Products().DecrementStock(ctx, product.ID, line.Quantity); err != nil {
			return fmt.Errorf("failed to update stock: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	return nil
}

// afterOrderCreated runs the best effort side effects of a committed order
func (s *OrderService) afterOrderCreated(ctx context.Context, order *models.Order, source, eventType string) {
	productIDs := make([]uint, 0, len(order.Items))
	for _, item := range order.Items {
		if item.ProductID != nil {
			productIDs = append(productIDs, *item.ProductID)
		}
	}
	if s.catalog != nil {
		s.catalog.InvalidateProduct(ctx, productIDs...)
	}

	metrics.RecordOrderCreated(source, string(order.PaymentMode), order.TotalAmount)

	if err := s.publisher.PublishOrder(ctx, eventType, order); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("Failed to publish order event")
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"user_id":      order.UserID,
		"source":       source,
		"total_amount": order.TotalAmount,
		"items":        len(order.Items),
	}).Info("Order created")
}

// ListOrders returns one page of orders matching the filter
func (s *OrderService) ListOrders(ctx context.Context, filter models.OrderFilter) (*models.OrderListResponse, error) {
	filter.PageSize = ordersPerPage
	orders, count, err := s.store.Orders().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return &models.OrderListResponse{
		Count:      count,
		ResPerPage: ordersPerPage,
		Orders:     orders,
	}, nil
}

// GetOrder returns an order with its items
func (s *OrderService) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	order, err := s.store.Orders().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, "Order not found")
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return order, nil
}

// ProcessOrder sets the order status. Any value is accepted.
func (s *OrderService) ProcessOrder(ctx context.Context, id uint, status string) (*models.Order, error) {
	if err := s.store.Orders().UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, "Order not found")
		}
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"order_id": id,
		"status":   status,
	}).Info("Order status updated")
	return s.GetOrder(ctx, id)
}

// DeleteOrder removes an order and its items
func (s *OrderService) DeleteOrder(ctx context.Context, id uint) error {
	if err := s.store.Orders().Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(ErrNotFound, "Order not found")
		}
		return fmt.Errorf("failed to delete order: %w", err)
	}
	s.logger.WithField("order_id", id).Info("Order deleted")
	return nil
}
