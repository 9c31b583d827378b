package models

import (
	"time"
)

// Product is a catalog entry owned by the seller that created it
type Product struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Name        string         `json:"name" gorm:"type:varchar(200);not null"`
	Description string         `json:"description" gorm:"type:text;not null"`
	Price       int64          `json:"price" gorm:"not null;default:0"`
	Brand       string         `json:"brand" gorm:"type:varchar(100);index;not null"`
	Category    string         `json:"category" gorm:"type:varchar(100);index;not null"`
	Stock       int            `json:"stock" gorm:"not null;default:0"`
	Ratings     float64        `json:"ratings" gorm:"not null;default:0"`
	UserID      uint           `json:"user" gorm:"index;not null"`
	User        *User          `json:"-" gorm:"foreignKey:UserID"`
	Images      []ProductImage `json:"images" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	Reviews     []Review       `json:"reviews" gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TableName specifies the table name for Product
func (Product) TableName() string {
	return "products"
}

// IsOwnedBy reports whether the given user created the product
func (p *Product) IsOwnedBy(userID uint) bool {
	return p.UserID == userID
}

// PrimaryImage returns the first image URL, or "" when the product has none
func (p *Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].Image
}

// ProductImage references image data hosted in the blob store
type ProductImage struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ProductID uint      `json:"product" gorm:"index;not null"`
	Image     string    `json:"image" gorm:"type:text;not null"`
	ObjectKey string    `json:"-" gorm:"type:varchar(500)"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for ProductImage
func (ProductImage) TableName() string {
	return "product_images"
}

// Review is a user's rating of a product. A user holds at most one review per product.
type Review struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ProductID uint      `json:"product" gorm:"uniqueIndex:idx_review_product_user;not null"`
	UserID    uint      `json:"user" gorm:"uniqueIndex:idx_review_product_user;not null"`
	Rating    int       `json:"rating" gorm:"not null;default:0"`
	Comment   string    `json:"comment" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Review
func (Review) TableName() string {
	return "reviews"
}

// ProductFilter narrows product listings
type ProductFilter struct {
	Keyword  string
	Category string
	Brand    string
	MinPrice *int64
	MaxPrice *int64
	Page     int
	PageSize int
}

// ProductListResponse is the paginated product listing
type ProductListResponse struct {
	Products   []Product `json:"products"`
	Count      int64     `json:"count"`
	ResPerPage int       `json:"resPerPage"`
}
