package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/billingrelay/internal/clock"
	"github.com/smallbiznis/billingrelay/internal/config"
	"github.com/smallbiznis/billingrelay/internal/idempotency"
	"github.com/smallbiznis/billingrelay/internal/ledger"
	"github.com/smallbiznis/billingrelay/internal/migration"
	"github.com/smallbiznis/billingrelay/internal/notification"
	"github.com/smallbiznis/billingrelay/internal/observability"
	"github.com/smallbiznis/billingrelay/internal/organization"
	"github.com/smallbiznis/billingrelay/internal/payment"
	"github.com/smallbiznis/billingrelay/internal/reconciliation"
	"github.com/smallbiznis/billingrelay/internal/server"
	"github.com/smallbiznis/billingrelay/internal/subscription"
	"github.com/smallbiznis/billingrelay/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		idempotency.Module,

		// Functional Domains
		organization.Module,
		subscription.Module,
		ledger.Module,
		notification.Module,
		reconciliation.Module,
		payment.Module,

		server.Module,

		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
