// Package storage selects repository backends from configuration: PostgreSQL
// or process memory for users and loans, Redis or process memory for
// sessions and wallet connect locks.
package storage

import (
	"context"
	"errors"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/bitlend/internal/config"
	"github.com/polkiloo/bitlend/internal/domain/repository"
	"github.com/polkiloo/bitlend/internal/storage/memory"
	"github.com/polkiloo/bitlend/internal/storage/postgres"
	"github.com/polkiloo/bitlend/internal/storage/redis"
)

// Module wires repository adapters.
var Module = fx.Options(
	fx.Provide(
		memory.New,
		newFactory,
		newSessionBackend,
		newChecker,
	),
	fx.Provide(
		func(f repository.Factory) repository.UserRepository { return f.Users() },
		func(f repository.Factory) repository.LoanRepository { return f.Loans() },
		func(f repository.Factory) repository.TransactionRepository { return f.Transactions() },
		func(b SessionBackend) repository.SessionRepository { return b.Sessions() },
		func(b SessionBackend) repository.ConnectLocker { return b.Locks() },
	),
)

// SessionBackend hands out session storage and connect locks sharing one store.
type SessionBackend interface {
	Sessions() repository.SessionRepository
	Locks() repository.ConnectLocker
}

type backendParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Ctx       context.Context
	Config    *config.Config
	Logger    *slog.Logger
	Memory    *memory.Storage
}

func newFactory(p backendParams) (repository.Factory, error) {
	if p.Config.DatabaseURI == "" {
		p.Logger.Warn("database URI is empty, loans and users are kept in memory")
		return p.Memory, nil
	}
	return postgres.Open(p.Ctx, p.Lifecycle, p.Config.DatabaseURI, p.Logger)
}

func newSessionBackend(p backendParams) (SessionBackend, error) {
	if p.Config.RedisAddr == "" {
		return p.Memory, nil
	}
	return redis.Open(p.Ctx, p.Lifecycle, p.Config.RedisAddr, p.Logger)
}

type healthChecker interface {
	HealthCheck(context.Context) error
}

// Checker health-checks the external backends in use. In-memory backends always pass.
type Checker struct {
	checks []healthChecker
}

func newChecker(f repository.Factory, b SessionBackend) *Checker {
	c := &Checker{}
	for _, backend := range []any{f, b} {
		if hc, ok := backend.(healthChecker); ok {
			c.checks = append(c.checks, hc)
		}
	}
	return c
}

// Check returns the joined errors of every failing backend.
func (c *Checker) Check(ctx context.Context) error {
	var errs []error
	for _, hc := range c.checks {
		if err := hc.HealthCheck(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
