package repository

import (
	"context"

	"gorm.io/gorm"

	"commerce-service/internal/models"
)

// InventorySummary aggregates stock levels across the catalog
type InventorySummary struct {
	Products   int64
	TotalStock int64
	OutOfStock int64
	LowStock   int64
}

// ProductRepository persists catalog products and their images
type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	// GetByID loads the product with its images and reviews
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	List(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error)
	// Update saves the editable columns. Ratings are left untouched.
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id uint) error
	// DecrementStock subtracts quantity from the product stock in a single statement
	DecrementStock(ctx context.Context, id uint, quantity int) error

	CreateImage(ctx context.Context, image *models.ProductImage) error
	GetImage(ctx context.Context, id uint) (*models.ProductImage, error)
	ListImages(ctx context.Context, productID uint) ([]models.ProductImage, error)
	DeleteImage(ctx context.Context, id uint) error

	InventorySummary(ctx context.Context, lowStockThreshold int) (*InventorySummary, error)
}

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *models.Product) error {
	return translateError(r.db.WithContext(ctx).Omit("Images", "Reviews", "User").Create(product).Error)
}

func (r *productRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Reviews", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&product, id).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &product, nil
}

func (r *productRepository) List(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error) {
	var products []models.Product
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Product{})

	if filter.Keyword != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Keyword+"%")
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Brand != "" {
		query = query.Where("brand = ?", filter.Brand)
	}
	if filter.MinPrice != nil {
		query = query.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", *filter.MaxPrice)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	_, size, offset := normalizePage(filter.Page, filter.PageSize, 5)

	err := query.Preload("Images").Preload("Reviews").
		Order("id ASC").Offset(offset).Limit(size).
		Find(&products).Error
	return products, total, err
}

func (r *productRepository) Update(ctx context.Context, product *models.Product) error {
	err := r.db.WithContext(ctx).Model(product).
		Select("name", "description", "price", "brand", "category", "stock").
		Updates(product).Error
	return translateError(err)
}

func (r *productRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Product{}, id)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepository) DecrementStock(ctx context.Context, id uint, quantity int) error {
	result := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepository) CreateImage(ctx context.Context, image *models.ProductImage) error {
	return translateError(r.db.WithContext(ctx).Create(image).Error)
}

func (r *productRepository) GetImage(ctx context.Context, id uint) (*models.ProductImage, error) {
	var image models.ProductImage
	if err := r.db.WithContext(ctx).First(&image, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &image, nil
}

func (r *productRepository) ListImages(ctx context.Context, productID uint) ([]models.ProductImage, error) {
	var images []models.ProductImage
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).Order("id ASC").Find(&images).Error
	return images, err
}

func (r *productRepository) DeleteImage(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.ProductImage{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *productRepository) InventorySummary(ctx context.Context, lowStockThreshold int) (*InventorySummary, error) {
	var summary InventorySummary
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Select(`COUNT(*) AS products,
			COALESCE(SUM(stock), 0) AS total_stock,
			COUNT(*) FILTER (WHERE stock <= 0) AS out_of_stock,
			COUNT(*) FILTER (WHERE stock > 0 AND stock <= ?) AS low_stock`, lowStockThreshold).
		Scan(&summary).Error
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
