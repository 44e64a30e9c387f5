package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dmitrymomot/sessionkit/pkg/bolt"
	"github.com/dmitrymomot/sessionkit/pkg/config"
	"github.com/dmitrymomot/sessionkit/pkg/httpserver"
	"github.com/dmitrymomot/sessionkit/pkg/mongo"
	"github.com/dmitrymomot/sessionkit/pkg/pg"
	"github.com/dmitrymomot/sessionkit/pkg/redis"
	"github.com/dmitrymomot/sessionkit/pkg/session"
)

var errUnknownStore = errors.New("sessiond.unknown_store")

// backend is an opened session store plus whatever has to be released
// with it. Close runs the releases in reverse order.
type backend struct {
	store    session.Store
	checks   []httpserver.Check
	releases []func() error
}

func (b *backend) Close() error {
	var errs []error
	for i := len(b.releases) - 1; i >= 0; i-- {
		if err := b.releases[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *backend) onClose(c io.Closer) {
	b.releases = append(b.releases, c.Close)
}

func openStore(ctx context.Context, kind string, log *slog.Logger) (*backend, error) {
	b := &backend{}

	switch kind {
	case "", "memory":
		store := session.NewMemoryStore(0)
		b.store = store
		b.onClose(store)

	case "redis":
		var cfg redis.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		client, err := redis.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		b.onClose(client)
		store := redis.NewStoreFromConfig(client, cfg)
		b.onClose(store)
		b.store = store
		b.checks = append(b.checks, httpserver.ReadyCheck("redis", store))

	case "bolt":
		var cfg bolt.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		store, err := bolt.Open(cfg)
		if err != nil {
			return nil, err
		}
		b.onClose(store)
		b.store = store

	case "pg", "postgres":
		var cfg pg.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		pool, err := pg.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		b.releases = append(b.releases, func() error { pool.Close(); return nil })
		if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
			_ = b.Close()
			return nil, err
		}
		store := pg.NewStoreFromConfig(pool, cfg)
		b.onClose(store)
		b.store = store
		b.checks = append(b.checks, httpserver.ReadyCheck("pg", store))

	case "mongo", "mongodb":
		var cfg mongo.Config
		if err := config.Load(&cfg); err != nil {
			return nil, err
		}
		client, err := mongo.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		b.releases = append(b.releases, func() error {
			return client.Disconnect(context.WithoutCancel(ctx))
		})
		store, err := mongo.NewStoreFromConfig(ctx, client, cfg)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		b.onClose(store)
		b.store = store
		b.checks = append(b.checks, httpserver.ReadyCheck("mongo", store))

	default:
		return nil, fmt.Errorf("%w: %q", errUnknownStore, kind)
	}

	return b, nil
}
