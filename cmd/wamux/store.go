package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/wamux/pkg/config"
	"github.com/dmitrymomot/wamux/pkg/credstore"
	"github.com/dmitrymomot/wamux/pkg/mongo"
	"github.com/dmitrymomot/wamux/pkg/pg"
	"github.com/dmitrymomot/wamux/pkg/redis"
	"github.com/dmitrymomot/wamux/pkg/secrets"
)

// closeTimeout bounds releasing backend connections at exit.
const closeTimeout = 5 * time.Second

// storeBackend is the configured credential backend with its readiness
// checks and the cleanup for whatever connection it opened.
type storeBackend struct {
	store  credstore.Store
	checks []func(context.Context) error
	close  func()
}

func openStore(ctx context.Context, cfg appConfig, log *slog.Logger) (*storeBackend, error) {
	noop := func() {}

	switch cfg.CredentialStore {
	case "memory":
		log.Warn("credentials are kept in memory and lost on restart")
		return &storeBackend{store: credstore.NewMemoryStore(), close: noop}, nil

	case "local":
		store, err := credstore.NewLocalStore(cfg.CredentialDir)
		if err != nil {
			return nil, err
		}
		return &storeBackend{
			store:  store,
			checks: []func(context.Context) error{store.Healthcheck},
			close:  noop,
		}, nil

	case "redis":
		var rc redis.Config
		if err := config.Load(&rc); err != nil {
			return nil, err
		}
		client, err := redis.Connect(ctx, rc)
		if err != nil {
			return nil, err
		}
		return &storeBackend{
			store:  credstore.NewRedisStore(client, credstore.WithRedisPrefix(rc.KeyPrefix), credstore.WithRedisTTL(rc.CredentialTTL)),
			checks: []func(context.Context) error{redis.Healthcheck(client)},
			close:  func() { _ = client.Close() },
		}, nil

	case "mongo":
		var mc mongo.Config
		if err := config.Load(&mc); err != nil {
			return nil, err
		}
		client, err := mongo.New(ctx, mc)
		if err != nil {
			return nil, err
		}
		coll := client.Database(mc.Database).Collection(mc.Collection)
		return &storeBackend{
			store:  credstore.NewMongoStore(coll),
			checks: []func(context.Context) error{mongo.Healthcheck(client)},
			close: func() {
				ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
				defer cancel()
				_ = client.Disconnect(ctx)
			},
		}, nil

	case "postgres":
		var pc pg.Config
		if err := config.Load(&pc); err != nil {
			return nil, err
		}
		pool, err := pg.Connect(ctx, pc)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx, pool, credstore.Migrations, credstore.MigrationsDir, pc.MigrationsTable, log); err != nil {
			pool.Close()
			return nil, err
		}
		return &storeBackend{
			store:  credstore.NewPostgresStore(pool),
			checks: []func(context.Context) error{pg.Healthcheck(pool)},
			close:  pool.Close,
		}, nil

	case "s3":
		var sc credstore.S3Config
		if err := config.Load(&sc); err != nil {
			return nil, err
		}
		store, err := credstore.NewS3Store(ctx, sc)
		if err != nil {
			return nil, err
		}
		return &storeBackend{
			store:  store,
			checks: []func(context.Context) error{store.Healthcheck},
			close:  noop,
		}, nil
	}
	return nil, fmt.Errorf("%w: unknown CREDENTIAL_STORE %q", credstore.ErrInvalidConfig, cfg.CredentialStore)
}

func encrypt(store credstore.Store, encodedKey string) (credstore.Store, error) {
	key, err := secrets.ParseKey(encodedKey)
	if err != nil {
		return nil, err
	}
	keyring, err := secrets.NewKeyring(key)
	if err != nil {
		return nil, err
	}
	return credstore.NewEncrypted(store, keyring), nil
}
