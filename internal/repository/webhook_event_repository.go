package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"commerce-service/internal/models"
)

// WebhookEventRepository stores the audit trail of verified gateway events
type WebhookEventRepository interface {
	// Record inserts the event. A redelivered event id updates the stored result.
	Record(ctx context.Context, event *models.WebhookEvent) error
}

type webhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository creates a new webhook event repository
func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

func (r *webhookEventRepository) Record(ctx context.Context, event *models.WebhookEvent) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"result", "processed_at"}),
	}).Create(event).Error
}
