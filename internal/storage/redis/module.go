package redis

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/go-redis/redis/v8"
	"go.uber.org/fx"
)

// Open dials addr, verifies the connection and closes the client when the
// application stops.
func Open(ctx context.Context, lc fx.Lifecycle, addr string, logger *slog.Logger) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	store := New(client, logger)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return store.Close()
		},
	})
	logger.Info("redis session store ready", slog.String("addr", addr))
	return store, nil
}
