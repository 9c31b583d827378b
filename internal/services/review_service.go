package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"commerce-service/internal/metrics"
	"commerce-service/internal/models"
	"commerce-service/internal/repository"
)

// ReviewResult reports whether a review was created or replaced, and the product rating afterwards
type ReviewResult struct {
	Created bool
	Ratings float64
}

// ReviewService keeps one review per user and product and maintains Product.Ratings
type ReviewService struct {
	store   repository.Store
	catalog *CatalogService
	logger  *logrus.Logger
}

// NewReviewService creates a new review service
func NewReviewService(store repository.Store, catalog *CatalogService, logger *logrus.Logger) *ReviewService {
	if logger == nil {
		logger = logrus.New()
	}
	return &ReviewService{store: store, catalog: catalog, logger: logger}
}

// UpsertReview creates the caller's review of a product or replaces the existing one
func (s *ReviewService) UpsertReview(ctx context.Context, userID, productID uint, req models.ReviewRequest) (*ReviewResult, error) {
	result := &ReviewResult{}

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := tx.Products().GetByID(ctx, productID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return newError(ErrNotFound, "Product not found")
			}
			return fmt.Errorf("failed to load product: %w", err)
		}

		if req.Rating == nil || *req.Rating < 1 || *req.Rating > 5 {
			return newError(ErrValidation, "Please select a value between 1-5")
		}

		review, err := tx.Reviews().GetByProductAndUser(ctx, productID, userID)
		switch {
		case err == nil:
			review.Rating = *req.Rating
			review.Comment = req.Comment
			if err := tx.Reviews().Update(ctx, review); err != nil {
				return fmt.Errorf("failed to update review: %w", err)
			}
		case errors.Is(err, repository.ErrNotFound):
			review = &models.Review{
				ProductID: productID,
				UserID:    userID,
				Rating:    *req.Rating,
				Comment:   req.Comment,
			}
			if err := tx.Reviews().Create(ctx, review); err != nil {
				return fmt.Errorf("failed to create review: %w", err)
			}
			result.Created = true
		default:
			return fmt.Errorf("failed to load review: %w", err)
		}

		ratings, err := tx.Reviews().RecomputeRating(ctx, productID)
		if err != nil {
			return fmt.Errorf("failed to update ratings: %w", err)
		}
		result.Ratings = ratings
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.catalog.InvalidateProduct(ctx, productID)
	if result.Created {
		metrics.RecordReview("create")
	} else {
		metrics.RecordReview("update")
	}

	s.logger.WithFields(logrus.Fields{
		"product_id": productID,
		"user_id":    userID,
		"created":    result.Created,
		"ratings":    result.Ratings,
	}).Info("Review saved")
	return result, nil
}

// DeleteReview removes the caller's review of a product and returns the recomputed rating
func (s *ReviewService) DeleteReview(ctx context.Context, userID, productID uint) (float64, error) {
	var ratings float64

	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := tx.Products().GetByID(ctx, productID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return newError(ErrNotFound, "Product not found")
			}
			return fmt.Errorf("failed to load product: %w", err)
		}

		review, err := tx.Reviews().GetByProductAndUser(ctx, productID, userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return newError(ErrNotFound, "Review Does Not Exist")
			}
			return fmt.Errorf("failed to load review: %w", err)
		}

		if err := tx.Reviews().Delete(ctx, review.ID); err != nil {
			return fmt.Errorf("failed to delete review: %w", err)
		}

		ratings, err = tx.Reviews().RecomputeRating(ctx, productID)
		if err != nil {
			return fmt.Errorf("failed to update ratings: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.catalog.InvalidateProduct(ctx, productID)
	metrics.RecordReview("delete")
	return ratings, nil
}
