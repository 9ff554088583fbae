package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"go.uber.org/fx/fxtest"

	"github.com/polkiloo/flowershop/internal/config"
	"github.com/polkiloo/flowershop/internal/domain/repository"
	"github.com/polkiloo/flowershop/internal/storage/memory"
	sessionredis "github.com/polkiloo/flowershop/internal/storage/redis"
)

type backendStub struct {
	repository.Factory
	closed bool
}

func (b *backendStub) Close()                            { b.closed = true }
func (b *backendStub) HealthCheck(context.Context) error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestNewBackendSelectsPostgres(t *testing.T) {
	original := openPostgres
	t.Cleanup(func() { openPostgres = original })

	stub := &backendStub{}
	var gotDSN string
	openPostgres = func(_ context.Context, dsn string, _ *slog.Logger) (Backend, error) {
		gotDSN = dsn
		return stub, nil
	}

	cfg := &config.Config{DatabaseURI: "postgres://localhost/shop", DBPath: "ignored.db"}
	backend, err := newBackend(storageParams{Ctx: context.Background(), Config: cfg, Logger: discardLogger()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if backend != stub || gotDSN != cfg.DatabaseURI {
		t.Fatalf("expected postgres backend, got %T dsn=%q", backend, gotDSN)
	}

	openPostgres = func(context.Context, string, *slog.Logger) (Backend, error) {
		return nil, errors.New("connect")
	}
	if _, err := newBackend(storageParams{Ctx: context.Background(), Config: cfg, Logger: discardLogger()}); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewBackendDefaultsToSQLite(t *testing.T) {
	cfg := &config.Config{DBPath: filepath.Join(t.TempDir(), "shop.db")}
	backend, err := newBackend(storageParams{Ctx: context.Background(), Config: cfg, Logger: discardLogger()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer backend.Close()

	if err := backend.HealthCheck(context.Background()); err != nil {
		t.Fatalf("health check: %v", err)
	}
	if _, err := backend.Catalog().List(context.Background()); err != nil {
		t.Fatalf("list catalog: %v", err)
	}
}

func TestNewSessionRepository(t *testing.T) {
	lc := fxtest.NewLifecycle(t)

	repo := newSessionRepository(sessionParams{Lifecycle: lc, Config: &config.Config{}, Logger: discardLogger()})
	if _, ok := repo.(*memory.SessionStore); !ok {
		t.Fatalf("expected memory store, got %T", repo)
	}

	repo = newSessionRepository(sessionParams{Lifecycle: lc, Config: &config.Config{RedisAddr: "localhost:6379"}, Logger: discardLogger()})
	if _, ok := repo.(*sessionredis.SessionStore); !ok {
		t.Fatalf("expected redis store, got %T", repo)
	}
}

func TestRegisterLifecycle(t *testing.T) {
	stub := &backendStub{}
	lc := fxtest.NewLifecycle(t)
	registerLifecycle(lc, stub)

	if err := lc.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := lc.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if !stub.closed {
		t.Fatal("expected backend to be closed")
	}
}
