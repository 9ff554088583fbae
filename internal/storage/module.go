package storage

import (
	"context"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/polkiloo/flowershop/internal/config"
	"github.com/polkiloo/flowershop/internal/domain/repository"
	"github.com/polkiloo/flowershop/internal/storage/memory"
	"github.com/polkiloo/flowershop/internal/storage/postgres"
	sessionredis "github.com/polkiloo/flowershop/internal/storage/redis"
	"github.com/polkiloo/flowershop/internal/storage/sqlite"
)

// Backend is a persistent store of catalog and orders.
type Backend interface {
	repository.Factory
	repository.HealthChecker
}

// Module wires persistent storage, session store and repository adapters.
var Module = fx.Options(
	fx.Provide(
		newBackend,
		newSessionRepository,
		func(b Backend) repository.Factory { return b },
		func(b Backend) repository.HealthChecker { return b },
		func(b Backend) repository.CatalogRepository { return b.Catalog() },
		func(b Backend) repository.OrderRepository { return b.Orders() },
	),
	fx.Invoke(registerLifecycle),
)

var (
	openPostgres = func(ctx context.Context, dsn string, logger *slog.Logger) (Backend, error) {
		return postgres.New(ctx, dsn, logger)
	}
	openSQLite = func(ctx context.Context, path string, logger *slog.Logger) (Backend, error) {
		return sqlite.New(ctx, path, logger)
	}
)

type storageParams struct {
	fx.In

	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

func newBackend(p storageParams) (Backend, error) {
	if p.Config.DatabaseURI != "" {
		p.Logger.Info("using postgres storage")
		return openPostgres(p.Ctx, p.Config.DatabaseURI, p.Logger)
	}
	p.Logger.Info("using sqlite storage", slog.String("path", p.Config.DBPath))
	return openSQLite(p.Ctx, p.Config.DBPath, p.Logger)
}

type sessionParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Logger    *slog.Logger
}

func newSessionRepository(p sessionParams) repository.SessionRepository {
	if p.Config.RedisAddr == "" {
		return memory.NewSessionStore(p.Config.SessionTTL)
	}

	client := goredis.NewClient(&goredis.Options{Addr: p.Config.RedisAddr})
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	p.Logger.Info("using redis sessions", slog.String("addr", p.Config.RedisAddr))
	return sessionredis.NewSessionStore(client, p.Config.SessionTTL)
}

func registerLifecycle(lc fx.Lifecycle, backend Backend) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			backend.Close()
			return nil
		},
	})
}
