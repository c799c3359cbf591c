package payment

import (
	"github.com/smallbiznis/billingrelay/internal/payment/adapters"
	"github.com/smallbiznis/billingrelay/internal/payment/adapters/flutterwave"
	"github.com/smallbiznis/billingrelay/internal/payment/adapters/paystack"
	"github.com/smallbiznis/billingrelay/internal/payment/adapters/stripe"
	"github.com/smallbiznis/billingrelay/internal/payment/repository"
	"github.com/smallbiznis/billingrelay/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment",
	fx.Provide(repository.Provide),
	fx.Provide(func() *adapters.Registry {
		return adapters.NewRegistry(
			paystack.NewFactory(),
			flutterwave.NewFactory(),
			stripe.NewFactory(),
		)
	}),
	fx.Provide(webhook.NewService),
)
