package config

import "go.uber.org/fx"

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(fx.Annotate(
		NewInvoicePolicyHolder,
		fx.As(fx.Self()),
		fx.As(new(InvoicePolicySource)),
	)),
)
