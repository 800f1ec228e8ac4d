// Package pg connects to PostgreSQL through a pgx pool and applies goose
// migrations from an fs.FS.
//
//	pool, err := pg.Connect(ctx, cfg)
//	err = pg.Migrate(ctx, pool, credstore.Migrations, "migrations", cfg.MigrationsTable, log)
//
// Config is read from PG_* environment variables.
package pg
