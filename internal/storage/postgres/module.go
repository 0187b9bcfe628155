package postgres

import (
	"context"
	"log/slog"

	"go.uber.org/fx"
)

// Open connects storage and closes its pool when the application stops.
func Open(ctx context.Context, lc fx.Lifecycle, dsn string, logger *slog.Logger) (*Storage, error) {
	storage, err := New(ctx, dsn, logger)
	if err != nil {
		return nil, err
	}
	registerLifecycle(lc, storage)
	logger.Info("postgres storage ready")
	return storage, nil
}

func registerLifecycle(lc fx.Lifecycle, storage *Storage) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			storage.Close()
			return nil
		},
	})
}
