package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/billingrelay/internal/subscription/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) FindByOrgID(ctx context.Context, orgID string) (*domain.Subscription, error) {
	return r.first(ctx, "org_id = ?", orgID)
}

func (r *repository) FindByExternalSubscriptionID(ctx context.Context, provider, externalSubscriptionID string) (*domain.Subscription, error) {
	if externalSubscriptionID == "" {
		return nil, nil
	}
	return r.first(ctx, "provider = ? AND external_subscription_id = ?", provider, externalSubscriptionID)
}

func (r *repository) FindByExternalCustomerID(ctx context.Context, provider, externalCustomerID string) (*domain.Subscription, error) {
	if externalCustomerID == "" {
		return nil, nil
	}
	return r.first(ctx, "provider = ? AND external_customer_id = ?", provider, externalCustomerID)
}

func (r *repository) first(ctx context.Context, query string, args ...any) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := r.db.WithContext(ctx).
		Where(query, args...).
		Order("updated_at DESC").
		Take(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *repository) Insert(ctx context.Context, sub *domain.Subscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *repository) Update(ctx context.Context, sub *domain.Subscription) error {
	return r.db.WithContext(ctx).Save(sub).Error
}
