package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/billingrelay/internal/payment/domain"
	"github.com/smallbiznis/billingrelay/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertWebhookEvent(ctx context.Context, conn *gorm.DB, event *domain.WebhookEvent) (bool, error) {
	result := conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "event_id"}},
			DoNothing: true,
		}).
		Create(event)
	if result.Error != nil {
		if db.IsDuplicateKeyErr(result.Error) {
			return false, nil
		}
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) FindWebhookEvent(ctx context.Context, conn *gorm.DB, provider, eventID string) (*domain.WebhookEvent, error) {
	var event domain.WebhookEvent
	err := conn.WithContext(ctx).
		Where("provider = ? AND event_id = ?", provider, eventID).
		Take(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}
