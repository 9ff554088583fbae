package auth

import (
	"go.uber.org/fx"

	"github.com/polkiloo/flowershop/internal/config"
)

// Module provides administrator key verification via fx.
var Module = fx.Provide(newKeyVerifier)

type verifierParams struct {
	fx.In

	Config *config.Config
}

func newKeyVerifier(p verifierParams) KeyVerifier {
	return NewKeyVerifier(p.Config.AdminAPIKey)
}
