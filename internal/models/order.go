package models

import (
	"time"

	"gorm.io/datatypes"
)

// PaymentStatus tracks whether an order has been paid for
type PaymentStatus string

const (
	PaymentStatusPaid   PaymentStatus = "PAID"
	PaymentStatusUnpaid PaymentStatus = "UNPAID"
)

// PaymentMode records how an order is settled
type PaymentMode string

const (
	PaymentModeCOD  PaymentMode = "COD"
	PaymentModeCard PaymentMode = "CARD"
)

// DefaultOrderStatus is assigned to new orders. Admins may later set any value.
const DefaultOrderStatus = "Processing"

// Order is a placed order, created directly or finalized from a gateway checkout session
type Order struct {
	ID                uint          `json:"id" gorm:"primaryKey"`
	Street            string        `json:"street" gorm:"type:varchar(500);not null"`
	City              string        `json:"city" gorm:"type:varchar(100);not null"`
	State             string        `json:"state" gorm:"type:varchar(100);not null"`
	ZipCode           string        `json:"zip_code" gorm:"type:varchar(100);not null"`
	PhoneNo           string        `json:"phone_no" gorm:"type:varchar(100);not null"`
	Country           string        `json:"country" gorm:"type:varchar(100);not null"`
	TotalAmount       int64         `json:"total_amount" gorm:"not null;default:0"`
	PaymentStatus     PaymentStatus `json:"payment_status" gorm:"type:varchar(20);index;not null;default:'UNPAID'"`
	PaymentMode       PaymentMode   `json:"payment_mode" gorm:"type:varchar(20);not null;default:'COD'"`
	Status            string        `json:"status" gorm:"type:varchar(60);index;not null;default:'Processing'"`
	UserID            uint          `json:"user" gorm:"index;not null"`
	CheckoutSessionID *string       `json:"checkout_session_id,omitempty" gorm:"type:varchar(255);uniqueIndex"`
	Items             []OrderItem   `json:"orderItems" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// TableName specifies the table name for Order
func (Order) TableName() string {
	return "orders"
}

// ComputeTotal sums price*quantity over the items
func (o *Order) ComputeTotal() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.Subtotal()
	}
	return total
}

// OrderItem is a snapshot of a product taken when the order was placed
type OrderItem struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	OrderID   uint      `json:"order" gorm:"index;not null"`
	ProductID *uint     `json:"product" gorm:"index"`
	Product   *Product  `json:"-" gorm:"foreignKey:ProductID;constraint:OnDelete:SET NULL"`
	Name      string    `json:"name" gorm:"type:varchar(200);not null"`
	Quantity  int       `json:"quantity" gorm:"not null;default:1"`
	Price     int64     `json:"price" gorm:"not null"`
	Image     string    `json:"image" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for OrderItem
func (OrderItem) TableName() string {
	return "order_items"
}

// Subtotal returns price*quantity for the line
func (i *OrderItem) Subtotal() int64 {
	return i.Price * int64(i.Quantity)
}

// WebhookEvent is the audit record of a verified payment gateway event
type WebhookEvent struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	EventID     string         `json:"event_id" gorm:"type:varchar(255);uniqueIndex;not null"`
	Type        string         `json:"type" gorm:"type:varchar(100);index;not null"`
	SessionID   string         `json:"session_id" gorm:"type:varchar(255);index"`
	Result      string         `json:"result" gorm:"type:varchar(50)"`
	Payload     datatypes.JSON `json:"payload" gorm:"type:jsonb"`
	ProcessedAt time.Time      `json:"processed_at"`
}

// TableName specifies the table name for WebhookEvent
func (WebhookEvent) TableName() string {
	return "webhook_events"
}

// OrderFilter narrows order listings
type OrderFilter struct {
	UserID        *uint
	Status        string
	PaymentStatus string
	PaymentMode   string
	Page          int
	PageSize      int
}

// OrderListResponse is the paginated order listing
type OrderListResponse struct {
	Count      int64   `json:"count"`
	ResPerPage int     `json:"resPerPage"`
	Orders     []Order `json:"orders"`
}
