package di

import (
	"go.uber.org/fx"

	"github.com/polkiloo/flowershop/internal/app"
	"github.com/polkiloo/flowershop/internal/bot"
	"github.com/polkiloo/flowershop/internal/config"
	"github.com/polkiloo/flowershop/internal/logger"
	"github.com/polkiloo/flowershop/internal/metrics"
	"github.com/polkiloo/flowershop/internal/notify"
	"github.com/polkiloo/flowershop/internal/payment"
	"github.com/polkiloo/flowershop/internal/pkg/auth"
	"github.com/polkiloo/flowershop/internal/server/http/handlers"
	"github.com/polkiloo/flowershop/internal/server/http/router"
	"github.com/polkiloo/flowershop/internal/storage"
	"github.com/polkiloo/flowershop/internal/usecase"
)

// Module composes the application graph. Extra options are appended last.
func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		metrics.Module,
		storage.Module,
		usecase.Module,
		payment.Module,
		notify.Module,
		fx.Provide(
			func(u *usecase.OrderUseCase) payment.Orders { return u },
			func(s *payment.Service) usecase.PaymentInitiator { return s },
			func(n *notify.Notifier) usecase.OrderNotifier { return n },
			func(api bot.API) payment.Sender { return api },
			func(m *bot.TelegramMessenger) payment.TextSender { return m },
			func(m *bot.TelegramMessenger) notify.Sender { return m },
			func(f *app.ShopFacade) bot.ShopFacade { return f },
			func(f *app.ShopFacade) handlers.ShopFacade { return f },
		),
		auth.Module,
		router.Module,
		app.Module,
		// registered after app so polling stops before the HTTP server and expiry worker
		bot.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
