package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"commerce-service/internal/cache"
	"commerce-service/internal/models"
	"commerce-service/internal/repository"
	"commerce-service/internal/storage"
)

const productsPerPage = 5

var allowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// ImageFile is an uploaded image ready to be stored
type ImageFile struct {
	Filename    string
	ContentType string
	Content     io.Reader
}

// CatalogService manages products and their images
type CatalogService struct {
	store    repository.Store
	storage  storage.Provider
	cache    cache.Cache
	cacheTTL time.Duration
	logger   *logrus.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store repository.Store, provider storage.Provider, productCache cache.Cache, cacheTTL time.Duration, logger *logrus.Logger) *CatalogService {
	if logger == nil {
		logger = logrus.New()
	}
	if productCache == nil {
		productCache = cache.NewNoOpCache()
	}
	return &CatalogService{
		store:    store,
		storage:  provider,
		cache:    productCache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// ListProducts returns one page of products matching the filter
func (s *CatalogService) ListProducts(ctx context.Context, filter models.ProductFilter) (*models.ProductListResponse, error) {
	filter.PageSize = productsPerPage
	products, count, err := s.store.Products().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if products == nil {
		products = []models.Product{}
	}
	return &models.ProductListResponse{
		Products:   products,
		Count:      count,
		ResPerPage: productsPerPage,
	}, nil
}

// GetProduct returns a product with its images and reviews, served from cache when possible
func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	key := cache.ProductCacheKey(id)

	var cached models.Product
	if err := s.cache.GetJSON(ctx, key, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.WithError(err).WithField("product_id", id).Warn("Product cache read failed")
	}

	product, err := s.loadProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, key, product, s.cacheTTL); err != nil {
		s.logger.WithError(err).WithField("product_id", id).Warn("Product cache write failed")
	}
	return product, nil
}

func (s *CatalogService) loadProduct(ctx context.Context, id uint) (*models.Product, error) {
	product, err := s.store.Products().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrNotFound, "Product not found")
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return product, nil
}

// InvalidateProduct drops the cached product detail
func (s *CatalogService) InvalidateProduct(ctx context.Context, ids ...uint) {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, cache.ProductCacheKey(id))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.WithError(err).Warn("Product cache invalidation failed")
	}
}

// CreateProduct creates a product owned by userID
func (s *CatalogService) CreateProduct(ctx context.Context, userID uint, req models.CreateProductRequest) (*models.Product, error) {
	product := &models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
		Brand:       req.Brand,
		Category:    req.Category,
		Stock:       *req.Stock,
		UserID:      userID,
	}
	if err := s.store.Products().Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	product.Images = []models.ProductImage{}
	product.Reviews = []models.Review{}

	s.logger.WithFields(logrus.Fields{
		"product_id": product.ID,
		"user_id":    userID,
	}).Info("Product created")
	return product, nil
}

// UpdateProduct applies a partial update. Only the owner may update a product.
func (s *CatalogService) UpdateProduct(ctx context.Context, userID, id uint, req models.UpdateProductRequest) (*models.Product, error) {
	product, err := s.loadProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.IsOwnedBy(userID) {
		return nil, newError(ErrForbidden, "Only the owner of the product can update this")
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Brand != nil {
		product.Brand = *req.Brand
	}
	if req.Category != nil {
		product.Category = *req.Category
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}

	if err := s.store.Products().Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	s.InvalidateProduct(ctx, id)
	return product, nil
}

// DeleteProduct removes a product, its image rows and their blobs. Only the owner may delete a product.
func (s *CatalogService) DeleteProduct(ctx context.Context, userID, id uint) error {
	product, err := s.loadProduct(ctx, id)
	if err != nil {
		return err
	}
	if !product.IsOwnedBy(userID) {
		return newError(ErrForbidden, "Only the owner of the product can delete this")
	}

	if err := s.store.Products().Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(ErrNotFound, "Product not found")
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}

	for _, image := range product.Images {
		s.deleteBlob(ctx, image)
	}
	s.InvalidateProduct(ctx, id)

	s.logger.WithFields(logrus.Fields{
		"product_id": id,
		"images":     len(product.Images),
	}).Info("Product deleted")
	return nil
}

// UploadImages stores each file under products/<id>/ and records it against the product
func (s *CatalogService) UploadImages(ctx context.Context, userID, productID uint, files []ImageFile) ([]models.ProductImage, error) {
	if len(files) == 0 {
		return nil, newError(ErrValidation, "Please upload at least one image")
	}

	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsOwnedBy(userID) {
		return nil, newError(ErrForbidden, "Only the owner of the product can update this")
	}

	for _, file := range files {
		ext := strings.ToLower(filepath.Ext(file.Filename))
		if !allowedImageExtensions[ext] {
			return nil, newError(ErrValidation, "Unsupported image type: %s", file.Filename)
		}
	}

	images := make([]models.ProductImage, 0, len(files))
	for _, file := range files {
		key := fmt.Sprintf("products/%d/%s%s", productID, uuid.New().String(), strings.ToLower(filepath.Ext(file.Filename)))

		url, err := s.storage.Upload(ctx, key, file.ContentType, file.Content)
		if err != nil {
			s.discardImages(ctx, images)
			return nil, fmt.Errorf("failed to upload image: %w", err)
		}

		image := models.ProductImage{
			ProductID: productID,
			Image:     url,
			ObjectKey: key,
		}
		if err := s.store.Products().CreateImage(ctx, &image); err != nil {
			s.deleteBlob(ctx, image)
			s.discardImages(ctx, images)
			return nil, fmt.Errorf("failed to save image: %w", err)
		}
		images = append(images, image)
	}

	s.InvalidateProduct(ctx, productID)
	return images, nil
}

// DeleteImage removes one product image. Only the product owner may delete it.
func (s *CatalogService) DeleteImage(ctx context.Context, userID, imageID uint) error {
	image, err := s.store.Products().GetImage(ctx, imageID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(ErrNotFound, "Image not found")
		}
		return fmt.Errorf("failed to load image: %w", err)
	}

	product, err := s.loadProduct(ctx, image.ProductID)
	if err != nil {
		return err
	}
	if !product.IsOwnedBy(userID) {
		return newError(ErrForbidden, "Only the owner of the product can delete this")
	}

	if err := s.store.Products().DeleteImage(ctx, imageID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return newError(ErrNotFound, "Image not found")
		}
		return fmt.Errorf("failed to delete image: %w", err)
	}

	s.deleteBlob(ctx, *image)
	s.InvalidateProduct(ctx, image.ProductID)
	return nil
}

// discardImages undoes the already stored part of a failed upload batch
func (s *CatalogService) discardImages(ctx context.Context, images []models.ProductImage) {
	for _, image := range images {
		if err := s.store.Products().DeleteImage(ctx, image.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.logger.WithError(err).WithField("image_id", image.ID).Warn("Failed to discard image row")
		}
		s.deleteBlob(ctx, image)
	}
}

// deleteBlob removes stored image data. Failures are logged and otherwise ignored.
func (s *CatalogService) deleteBlob(ctx context.Context, image models.ProductImage) {
	if image.ObjectKey == "" || s.storage == nil {
		return
	}
	if err := s.storage.Delete(ctx, image.ObjectKey); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"image_id": image.ID,
			"key":      image.ObjectKey,
		}).Warn("Failed to delete image blob")
	}
}
