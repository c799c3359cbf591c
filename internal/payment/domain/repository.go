package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// InsertWebhookEvent inserts the durable record and reports whether the
	// row was new. A duplicate (provider, event_id) yields false, nil.
	InsertWebhookEvent(ctx context.Context, db *gorm.DB, event *WebhookEvent) (bool, error)
	FindWebhookEvent(ctx context.Context, db *gorm.DB, provider, eventID string) (*WebhookEvent, error)
}
