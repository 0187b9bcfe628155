package di

import (
	"go.uber.org/fx"

	"github.com/polkiloo/bitlend/internal/app"
	"github.com/polkiloo/bitlend/internal/config"
	"github.com/polkiloo/bitlend/internal/logger"
	"github.com/polkiloo/bitlend/internal/pkg/auth"
	"github.com/polkiloo/bitlend/internal/server/http/handlers"
	"github.com/polkiloo/bitlend/internal/server/http/router"
	"github.com/polkiloo/bitlend/internal/storage"
	"github.com/polkiloo/bitlend/internal/usecase"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		auth.Module,
		storage.Module,
		usecase.Module,
		fx.Provide(func(c *storage.Checker) handlers.HealthChecker { return c }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
