package repository

import (
	"context"

	"gorm.io/gorm"

	"commerce-service/internal/models"
)

// OrderRepository persists orders and their item snapshots
type OrderRepository interface {
	// Create inserts the order header. Items are added with CreateItem.
	Create(ctx context.Context, order *models.Order) error
	CreateItem(ctx context.Context, item *models.OrderItem) error
	GetByID(ctx context.Context, id uint) (*models.Order, error)
	List(ctx context.Context, filter models.OrderFilter) ([]models.Order, int64, error)
	UpdateStatus(ctx context.Context, id uint, status string) error
	Delete(ctx context.Context, id uint) error
	ExistsByCheckoutSession(ctx context.Context, sessionID string) (bool, error)
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	return translateError(r.db.WithContext(ctx).Omit("Items").Create(order).Error)
}

func (r *orderRepository) CreateItem(ctx context.Context, item *models.OrderItem) error {
	return translateError(r.db.WithContext(ctx).Omit("Product").Create(item).Error)
}

func (r *orderRepository) GetByID(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&order, id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &order, nil
}

func (r *orderRepository) List(ctx context.Context, filter models.OrderFilter) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Order{})

	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.PaymentStatus != "" {
		query = query.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.PaymentMode != "" {
		query = query.Where("payment_mode = ?", filter.PaymentMode)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	_, size, offset := normalizePage(filter.Page, filter.PageSize, 10)

	err := query.Preload("Items").
		Order("id ASC").Offset(offset).Limit(size).
		Find(&orders).Error
	return orders, total, err
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	result := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *orderRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Order{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *orderRepository) ExistsByCheckoutSession(ctx context.Context, sessionID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("checkout_session_id = ?", sessionID).
		Count(&count).Error
	return count > 0, err
}
