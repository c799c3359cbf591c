package migration

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billingrelay/internal/config"
	"github.com/smallbiznis/billingrelay/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, genID *snowflake.Node, log *zap.Logger) error {
		if err := Migrate(conn); err != nil {
			return err
		}

		if cfg.DefaultOrgID == "" {
			return nil
		}
		return seed.EnsureDefaultOrg(context.Background(), conn, genID, seed.Options{
			OrgID:      cfg.DefaultOrgID,
			OrgName:    cfg.DefaultOrgName,
			AdminEmail: cfg.DefaultAdminEmail,
			Log:        log,
		})
	}),
)
