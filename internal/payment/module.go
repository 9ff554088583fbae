package payment

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/flowershop/internal/config"
)

// Module provides payment adapter selected by configuration and the payment service.
var Module = fx.Provide(
	newAdapter,
	newService,
)

type adapterParams struct {
	fx.In

	Config *config.Config
	Sender Sender
	Logger *slog.Logger
}

func newAdapter(p adapterParams) Adapter {
	if !p.Config.PaymentsEnabled() {
		p.Logger.Info("payment provider is not configured, orders require manual confirmation")
		return ManualAdapter{}
	}
	return NewTelegramAdapter(p.Sender, p.Config.ProviderToken, p.Config.Currency)
}

type serviceParams struct {
	fx.In

	Adapter Adapter
	Orders  Orders
	Text    TextSender
	Config  *config.Config
	Logger  *slog.Logger
}

func newService(p serviceParams) *Service {
	return NewService(p.Adapter, p.Orders, p.Text, p.Config.Currency, p.Logger)
}
