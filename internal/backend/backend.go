// Package backend opens the status store and stage queues selected by
// configuration so every process shares the same state.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"panelcast/internal/config"
	"panelcast/internal/database"
	"panelcast/internal/queue"
	"panelcast/internal/services"
	"panelcast/internal/status"
)

const (
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

const redisPingTimeout = 5 * time.Second

// Backend bundles the status store and stage queue backed by one connection.
type Backend struct {
	Name   string
	Status status.Store
	Queue  queue.Queue

	closers []func() error
}

// Open connects the backend named by cfg.Store.Backend.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Backend, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "backend", "open", "configuration is required", nil)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	switch cfg.Store.Backend {
	case BackendRedis:
		client, err := OpenRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		logger.Info("connected to redis",
			slog.String("addr", cfg.Redis.Addr),
			slog.Int("db", cfg.Redis.DB),
		)
		return &Backend{
			Name:    BackendRedis,
			Status:  status.NewRedisStore(client, cfg.Redis.KeyPrefix),
			Queue:   queue.NewRedisQueue(client, cfg.Redis.KeyPrefix),
			closers: []func() error{client.Close},
		}, nil
	case BackendSQLite:
		db, err := database.Open(cfg.SQLitePath())
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "backend", "open sqlite", cfg.SQLitePath(), err)
		}
		logger.Info("opened sqlite state", slog.String("path", db.Path()))
		return &Backend{
			Name:    BackendSQLite,
			Status:  status.NewSQLiteStore(db),
			Queue:   queue.NewSQLiteQueue(db),
			closers: []func() error{db.Close},
		}, nil
	case BackendMemory:
		logger.Warn("memory backend is process-local; status is not shared between processes")
		return NewMemory(), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "backend", "open",
			fmt.Sprintf("unknown store backend %q (supported: redis, sqlite, memory)", cfg.Store.Backend), nil)
	}
}

// NewMemory returns a process-local backend.
func NewMemory() *Backend {
	return &Backend{
		Name:   BackendMemory,
		Status: status.NewMemoryStore(),
		Queue:  queue.NewMemoryQueue(),
	}
}

// OpenRedis dials redis and verifies the connection with PING.
func OpenRedis(ctx context.Context, cfg config.Redis) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, services.Wrap(services.ErrTransient, "backend", "redis ping", cfg.Addr, err)
	}
	return client, nil
}

// Close releases the status store, queue, and shared connection.
func (b *Backend) Close() error {
	if b == nil {
		return nil
	}
	var errs []error
	if b.Status != nil {
		errs = append(errs, b.Status.Close())
	}
	if b.Queue != nil {
		errs = append(errs, b.Queue.Close())
	}
	for _, closer := range b.closers {
		errs = append(errs, closer())
	}
	return errors.Join(errs...)
}
