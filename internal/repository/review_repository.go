package repository

import (
	"context"

	"gorm.io/gorm"

	"commerce-service/internal/models"
)

// ReviewRepository persists product reviews and keeps the product rating in step
type ReviewRepository interface {
	GetByProductAndUser(ctx context.Context, productID, userID uint) (*models.Review, error)
	Create(ctx context.Context, review *models.Review) error
	Update(ctx context.Context, review *models.Review) error
	Delete(ctx context.Context, id uint) error
	// RecomputeRating sets products.ratings to the mean of its current reviews, or 0 when none remain
	RecomputeRating(ctx context.Context, productID uint) (float64, error)
}

type reviewRepository struct {
	db *gorm.DB
}

// NewReviewRepository creates a new review repository
func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) GetByProductAndUser(ctx context.Context, productID, userID uint) (*models.Review, error) {
	var review models.Review
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND user_id = ?", productID, userID).
		First(&review).Error
	if err != nil {
		return nil, translateError(err)
	}
	return &review, nil
}

func (r *reviewRepository) Create(ctx context.Context, review *models.Review) error {
	return translateError(r.db.WithContext(ctx).Create(review).Error)
}

func (r *reviewRepository) Update(ctx context.Context, review *models.Review) error {
	err := r.db.WithContext(ctx).Model(review).
		Select("rating", "comment").
		Updates(review).Error
	return translateError(err)
}

func (r *reviewRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Review{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *reviewRepository) RecomputeRating(ctx context.Context, productID uint) (float64, error) {
	err := r.db.WithContext(ctx).Exec(
		`UPDATE products SET ratings = COALESCE((SELECT AVG(rating) FROM reviews WHERE product_id = ?), 0) WHERE id = ?`,
		productID, productID,
	).Error
	if err != nil {
		return 0, err
	}

	var ratings float64
	err = r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		Pluck("ratings", &ratings).Error
	return ratings, err
}
