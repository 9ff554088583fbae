package bot

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/flowershop/internal/config"
	"github.com/polkiloo/flowershop/internal/domain/model"
	"github.com/polkiloo/flowershop/internal/metrics"
)

// Module wires Telegram transport, conversation handler and dispatcher lifecycle.
var Module = fx.Options(
	fx.Provide(
		newAPI,
		NewTelegramMessenger,
		func(m *TelegramMessenger) Messenger { return m },
		newHandler,
		newDispatcher,
		NewPoller,
	),
	fx.Invoke(registerLifecycle),
)

func newAPI(cfg *config.Config, logger *slog.Logger) (API, error) {
	return NewAPI(cfg.BotToken, logger)
}

type handlerParams struct {
	fx.In

	Shop      ShopFacade
	Messenger Messenger
	Admins    model.AdminSet
	Config    *config.Config
	Logger    *slog.Logger
}

func newHandler(p handlerParams) *Handler {
	return NewHandler(p.Shop, p.Messenger, p.Admins, p.Config.Currency, p.Logger)
}

type dispatcherParams struct {
	fx.In

	Handler *Handler
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

func newDispatcher(p dispatcherParams) *Dispatcher {
	return NewDispatcher(p.Handler, p.Config.DispatchShards, p.Logger, p.Metrics)
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Ctx        context.Context
	Dispatcher *Dispatcher
	Poller     *Poller
	Logger     *slog.Logger
}

func registerLifecycle(p lifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			p.Dispatcher.Start(p.Ctx)
			p.Poller.Start(p.Ctx)
			p.Logger.Info("telegram polling started")
			return nil
		},
		OnStop: func(context.Context) error {
			p.Poller.Stop()
			p.Dispatcher.Stop()
			p.Logger.Info("telegram polling stopped")
			return nil
		},
	})
}
