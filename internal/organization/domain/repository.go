package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// FindByID returns nil, nil when the organization does not exist.
	FindByID(ctx context.Context, id string) (*Organization, error)
	// LockByID reads the organization with a row lock held until the
	// surrounding transaction ends. Returns nil, nil when missing.
	LockByID(ctx context.Context, id string) (*Organization, error)
	CreateOrganization(ctx context.Context, org Organization) error
	UpdateEntitlement(ctx context.Context, org Organization) error
	AddMember(ctx context.Context, member OrganizationMember) error
	ListMemberEmails(ctx context.Context, orgID string, role string) ([]string, error)
}
