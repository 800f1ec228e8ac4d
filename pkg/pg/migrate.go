package pg

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
)

// Migrate applies the goose migrations stored under dir in fsys, typically
// an embed.FS owned by the package whose tables they create. table names the
// version table; empty keeps goose's default.
func Migrate(ctx context.Context, pool *pgxpool.Pool, fsys fs.FS, dir string, table string, log logger) error {
	if fsys == nil {
		return errors.Join(ErrMigrate, ErrNoMigrations)
	}
	sub, err := fs.Sub(fsys, dir)
	if err == nil {
		_, err = fs.Stat(sub, ".")
	}
	if err != nil {
		return errors.Join(ErrMigrate, ErrNoMigrations, err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer func() {
		if err := db.Close(); err != nil {
			log.ErrorContext(ctx, "close migration handle", "error", err)
		}
	}()

	dialect := goose.DialectPostgres
	opts := []goose.ProviderOption{goose.WithLogger(gooseLog{log})}
	if table != "" {
		store, err := database.NewStore(database.DialectPostgres, table)
		if err != nil {
			return errors.Join(ErrMigrate, err)
		}
		// a custom store carries the dialect itself
		dialect = ""
		opts = append(opts, goose.WithStore(store))
	}

	provider, err := goose.NewProvider(dialect, db, sub, opts...)
	if err != nil {
		if errors.Is(err, goose.ErrNoMigrations) {
			return errors.Join(ErrMigrate, ErrNoMigrations)
		}
		return errors.Join(ErrMigrate, err)
	}
	results, err := provider.Up(ctx)
	for _, r := range results {
		log.InfoContext(ctx, "migration applied",
			slog.Int64("version", r.Source.Version),
			slog.String("file", r.Source.Path),
			slog.Duration("took", r.Duration),
		)
	}
	if err != nil {
		return errors.Join(ErrMigrate, err)
	}
	return nil
}

type gooseLog struct{ log logger }

func (g gooseLog) Fatalf(format string, v ...any) {
	g.log.ErrorContext(context.Background(), fmt.Sprintf(format, v...))
}

func (g gooseLog) Printf(format string, v ...any) {
	g.log.InfoContext(context.Background(), fmt.Sprintf(format, v...))
}
