// Package redis connects to Redis for the credential store backend.
//
// Connect retries the initial ping according to Config, which is populated
// from REDIS_* environment variables. Healthcheck adapts a client to the
// func(context.Context) error shape used by the readiness endpoint.
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//	client, err := redis.Connect(ctx, cfg)
//	store := credstore.NewRedisStore(client, credstore.WithRedisPrefix(cfg.KeyPrefix))
package redis
