package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	organizationdomain "github.com/smallbiznis/billingrelay/internal/organization/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultOrgName = "Main"

type Options struct {
	OrgID   string
	OrgName string
	// AdminEmail is added as an admin member when set.
	AdminEmail string
	Log        *zap.Logger
}

// EnsureDefaultOrg creates the configured tenant if it does not exist yet.
// Existing rows are left untouched so entitlement state survives restarts.
func EnsureDefaultOrg(ctx context.Context, db *gorm.DB, node *snowflake.Node, opts Options) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	orgID := strings.TrimSpace(opts.OrgID)
	if orgID == "" {
		return errors.New("seed organization id is required")
	}
	name := strings.TrimSpace(opts.OrgName)
	if name == "" {
		name = defaultOrgName
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		org := organizationdomain.Organization{
			ID:        orgID,
			Name:      name,
			Slug:      orgSlug(name, orgID),
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&org)
		if result.Error != nil {
			return result.Error
		}
		if opts.Log != nil && result.RowsAffected > 0 {
			opts.Log.Info("seeded default organization", zap.String("org_id", orgID), zap.String("slug", org.Slug))
		}

		email := strings.ToLower(strings.TrimSpace(opts.AdminEmail))
		if email == "" {
			return nil
		}
		if node == nil {
			return errors.New("seed id generator is required")
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&organizationdomain.OrganizationMember{
			ID:        node.Generate(),
			OrgID:     orgID,
			Email:     email,
			Role:      organizationdomain.RoleAdmin,
			CreatedAt: now,
		}).Error
	})
}

// orgSlug suffixes the id so two tenants with one display name never collide.
func orgSlug(name, orgID string) string {
	return slug.Make(name + "-" + orgID)
}
