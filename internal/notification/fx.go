package notification

import (
	"context"

	"github.com/smallbiznis/billingrelay/internal/clock"
	"github.com/smallbiznis/billingrelay/internal/config"
	"github.com/smallbiznis/billingrelay/internal/notification/domain"
	"github.com/smallbiznis/billingrelay/internal/notification/service"
	obsmetrics "github.com/smallbiznis/billingrelay/internal/observability/metrics"
	orgdomain "github.com/smallbiznis/billingrelay/internal/organization/domain"
	"github.com/smallbiznis/billingrelay/internal/providers/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("notification",
	email.Module,
	fx.Provide(newEmitter),
	fx.Provide(func(e *service.AsyncEmitter) domain.Emitter { return e }),
)

type emitterParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Log        *zap.Logger
	Clock      clock.Clock
	Webhook    *config.WebhookConfigHolder
	OrgRepo    orgdomain.Repository
	Email      email.Provider
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

func newEmitter(p emitterParams) *service.AsyncEmitter {
	cfg := p.Webhook.Get().Notifications
	emitter := service.NewAsyncEmitter(p.Log, p.Clock, p.ObsMetrics, service.Options{
		QueueSize: cfg.QueueSize,
		Workers:   cfg.Workers,
		Timeout:   cfg.Timeout,
	},
		service.NewLogSink(p.Log),
		service.NewEmailSink(p.OrgRepo, p.Email),
	)

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			emitter.Start()
			return nil
		},
		OnStop: emitter.Stop,
	})
	return emitter
}
