package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce-service/internal/cache"
	"commerce-service/internal/models"
)

func TestReviewService_UpsertAveragesRatings(t *testing.T) {
	env := newTestEnv()
	owner := env.seedUser("seller@example.com", false)
	alice := env.seedUser("alice@example.com", false)
	bob := env.seedUser("bob@example.com", false)
	product := env.seedProduct(owner.ID, "Laptop", 999, 3)
	ctx := context.Background()

	result, err := env.reviews.UpsertReview(ctx, alice.ID, product.ID, models.ReviewRequest{Rating: intPtr(4), Comment: "good"})
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, 4.0, result.Ratings)

	result, err = env.reviews.UpsertReview(ctx, bob.ID, product.ID, models.ReviewRequest{Rating: intPtr(2), Comment: "meh"})
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, 3.0, result.Ratings)
	assert.Equal(t, 3.0, env.store.ProductRatings(product.ID))
}

func TestReviewService_UpsertReplacesOwnReview(t *testing.T) {
	env := newTestEnv()
	owner := env.seedUser("seller@example.com", false)
	alice := env.seedUser("alice@example.com", false)
	product := env.seedProduct(owner.ID, "Laptop", 999, 3)
	ctx := context.Background()

	_, err := env.reviews.UpsertReview(ctx, alice.ID, product.ID, models.ReviewRequest{Rating: intPtr(1)})
	require.NoError(t, err)

	result, err := env.reviews.UpsertReview(ctx, alice.ID, product.ID, models.ReviewRequest{Rating: intPtr(5), Comment: "changed my mind"})
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Equal(t, 5.0, result.Ratings)

	got, err := env.catalog.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, got.Reviews, 1)
	assert.Equal(t, "changed my mind", got.Reviews[0].Comment)
}

func TestReviewService_UpsertInvalidatesCache(t *testing.T) {
	env := newTestEnv()
	owner := env.seedUser("seller@example.com", false)
	alice := env.seedUser("alice@example.com", false)
	product := env.seedProduct(owner.ID, "Laptop", 999, 3)
	ctx := context.Background()

	_, err := env.catalog.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	require.True(t, env.cache.has(cache.ProductCacheKey(product.ID)))

	_, err = env.reviews.UpsertReview(ctx, alice.ID, product.ID, models.ReviewRequest{Rating: intPtr(4)})
	require.NoError(t, err)
	assert.False(t, env.cache.has(cache.ProductCacheKey(product.ID)))

	got, err := env.catalog.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 4.0, got.Ratings)
}

func TestReviewService_UpsertRejectsBadInput(t *testing.T) {
	env := newTestEnv()
	owner := env.seedUser("seller@example.com", false)
	alice := env.seedUser("alice@example.com", false)
	product := env.seedProduct(owner.ID, "Laptop", 999, 3)
	ctx := context.Background()

	tests := []struct {
		name   string
		rating *int
	}{
		{name: "missing", rating: nil},
		{name: "zero", rating: intPtr(0)},
		{name: "too high", rating: intPtr(6)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.reviews.UpsertReview(ctx, alice.ID, product.ID, models.ReviewRequest{Rating: tt.rating})
			assert.True(t, errors.Is(err, ErrValidation))
			assert.Equal(t, "Please select a value between 1-5", Message(err))
		})
	}

	_, err := env.reviews.UpsertReview(ctx, alice.ID, 999, models.ReviewRequest{Rating: intPtr(3)})
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "Product not found", Message(err))
}

func TestReviewService_Delete(t *testing.T) {
	env := newTestEnv()
	owner := env.seedUser("seller@example.com", false)
	alice := env.seedUser("alice@example.com", false)
	bob := env.seedUser("bob@example.com", false)
	product := env.seedProduct(owner.ID, "Laptop", 999, 3)
	ctx := context.Background()

	_, err := env.reviews.UpsertReview(ctx, alice.ID, product.ID, models.ReviewRequest{Rating: intPtr(4)})
	require.NoError(t, err)
	_, err = env.reviews.UpsertReview(ctx, bob.ID, product.ID, models.ReviewRequest{Rating: intPtr(2)})
	require.NoError(t, err)

	ratings, err := env.reviews.DeleteReview(ctx, alice.ID, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2.0, ratings)

	ratings, err = env.reviews.DeleteReview(ctx, bob.ID, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, ratings)
	assert.Equal(t, 0.0, env.store.ProductRatings(product.ID))

	_, err = env.reviews.DeleteReview(ctx, bob.ID, product.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "Review Does Not Exist", Message(err))
}
