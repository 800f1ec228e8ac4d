// Package config loads typed configuration from environment variables.
//
// Every infrastructure package in wamux declares its own Config struct with
// `env` tags (HTTP_*, REDIS_*, PG_*, SUPERVISOR_*, ...). Load parses such a
// struct with github.com/caarlos0/env/v11 and caches the result per type, so
// repeated calls are cheap and return identical values.
//
//	var cfg supervisor.Config
//	config.MustLoad(&cfg)
//
// Dotenv files are read with github.com/joho/godotenv. Load reads ./.env on
// first use; LoadEnv reads an explicit list of files, later files overriding
// earlier ones, which is how cmd/wamux applies its --env-file flag.
//
// ResetCache and ForceReloadConfig exist for tests that change the
// environment between loads. A failed parse is not cached.
package config
