package notify

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/flowershop/internal/config"
	"github.com/polkiloo/flowershop/internal/domain/model"
	"github.com/polkiloo/flowershop/internal/metrics"
)

// Module provides administrator notifier.
var Module = fx.Provide(newNotifier)

type notifierParams struct {
	fx.In

	Admins  model.AdminSet
	Sender  Sender
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

func newNotifier(p notifierParams) *Notifier {
	if p.Admins.Len() == 0 {
		p.Logger.Warn("no administrators configured, order notifications are disabled")
	}
	return NewNotifier(p.Admins, p.Sender, p.Config.Currency, p.Config.NotifyConcurrency, p.Logger, p.Metrics)
}
