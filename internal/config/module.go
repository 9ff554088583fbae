package config

import (
	"go.uber.org/fx"

	"github.com/polkiloo/flowershop/internal/domain/model"
)

// Module exposes configuration loader and the administrator allowlist for fx graphs.
var Module = fx.Provide(
	Load,
	func(cfg *Config) model.AdminSet { return model.NewAdminSet(cfg.AdminIDs...) },
)
