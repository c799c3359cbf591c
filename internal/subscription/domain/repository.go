package domain

import (
	"context"

	"gorm.io/gorm"
)

// Repository lookups return nil, nil when no row matches.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByOrgID(ctx context.Context, orgID string) (*Subscription, error)
	FindByExternalSubscriptionID(ctx context.Context, provider, externalSubscriptionID string) (*Subscription, error)
	FindByExternalCustomerID(ctx context.Context, provider, externalCustomerID string) (*Subscription, error)
	Insert(ctx context.Context, sub *Subscription) error
	Update(ctx context.Context, sub *Subscription) error
}
