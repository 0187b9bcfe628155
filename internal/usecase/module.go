package usecase

import (
	"go.uber.org/fx"

	"github.com/polkiloo/bitlend/internal/config"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	newAuthOptions,
	NewAuthUseCase,
	NewLoanUseCase,
)

func newAuthOptions(cfg *config.Config) AuthOptions {
	return AuthOptions{
		SessionTTL:     cfg.SessionTTL,
		ConnectTimeout: cfg.WalletConnectTimeout,
	}
}
